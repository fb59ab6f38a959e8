package vault

import (
	"testing"

	"github.com/stretchr/testify/require"

	"yieldvault/core/events"
	"yieldvault/crypto"
	"yieldvault/native/token"
)

type positionKey struct {
	vault crypto.Address
	owner crypto.Address
}

type mockState struct {
	vaults    map[crypto.Address]*Vault
	positions map[positionKey]*Position
	holders   map[crypto.Address][]crypto.Address
	mints     map[crypto.Address]*token.Mint
	accounts  map[crypto.Address]*token.Account
}

func newMockState() *mockState {
	return &mockState{
		vaults:    make(map[crypto.Address]*Vault),
		positions: make(map[positionKey]*Position),
		holders:   make(map[crypto.Address][]crypto.Address),
		mints:     make(map[crypto.Address]*token.Mint),
		accounts:  make(map[crypto.Address]*token.Account),
	}
}

func (m *mockState) clone() *mockState {
	out := newMockState()
	for k, v := range m.vaults {
		out.vaults[k] = v.Clone()
	}
	for k, v := range m.positions {
		out.positions[k] = v.Clone()
	}
	for k, v := range m.holders {
		out.holders[k] = append([]crypto.Address(nil), v...)
	}
	for k, v := range m.mints {
		out.mints[k] = v.Clone()
	}
	for k, v := range m.accounts {
		out.accounts[k] = v.Clone()
	}
	return out
}

func (m *mockState) VaultGet(addr crypto.Address) (*Vault, bool, error) {
	v, ok := m.vaults[addr]
	if !ok {
		return nil, false, nil
	}
	return v.Clone(), true, nil
}

func (m *mockState) VaultPut(v *Vault) error {
	m.vaults[v.Address] = v.Clone()
	return nil
}

func (m *mockState) PositionGet(vaultAddr, owner crypto.Address) (*Position, bool, error) {
	p, ok := m.positions[positionKey{vaultAddr, owner}]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (m *mockState) PositionPut(p *Position) error {
	key := positionKey{p.Vault, p.Owner}
	if _, ok := m.positions[key]; !ok {
		m.holders[p.Vault] = append(m.holders[p.Vault], p.Owner)
	}
	m.positions[key] = p.Clone()
	return nil
}

func (m *mockState) Positions(vaultAddr crypto.Address) ([]*Position, error) {
	out := make([]*Position, 0, len(m.holders[vaultAddr]))
	for _, owner := range m.holders[vaultAddr] {
		out = append(out, m.positions[positionKey{vaultAddr, owner}].Clone())
	}
	return out, nil
}

func (m *mockState) TokenMintGet(addr crypto.Address) (*token.Mint, bool, error) {
	mint, ok := m.mints[addr]
	if !ok {
		return nil, false, nil
	}
	return mint.Clone(), true, nil
}

func (m *mockState) TokenMintPut(mint *token.Mint) error {
	m.mints[mint.Address] = mint.Clone()
	return nil
}

func (m *mockState) TokenAccountGet(addr crypto.Address) (*token.Account, bool, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return nil, false, nil
	}
	return acc.Clone(), true, nil
}

func (m *mockState) TokenAccountPut(acc *token.Account) error {
	m.accounts[acc.Address] = acc.Clone()
	return nil
}

// mockStore applies an Update to a scratch copy and swaps it in on success.
type mockStore struct {
	state *mockState
}

func (s *mockStore) Update(fn func(State) error) error {
	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *mockStore) View(fn func(State) error) error {
	return fn(s.state.clone())
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recordingEmitter) types() []string {
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.EventType())
	}
	return out
}

func testAddress(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type harness struct {
	t       *testing.T
	engine  *Engine
	store   *mockStore
	emitter *recordingEmitter
	owner   crypto.Address
	issuer  crypto.Address
	payment crypto.Address
	vault   *Vault
}

func newHarness(t *testing.T, params InitParams) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		store:   &mockStore{state: newMockState()},
		emitter: &recordingEmitter{},
		owner:   testAddress(0x01),
		issuer:  testAddress(0x02),
		payment: testAddress(0x03),
	}
	require.NoError(t, h.store.Update(func(st State) error {
		_, err := token.NewLedger(st).CreateMint(h.payment, h.issuer, 6)
		return err
	}))
	h.engine = NewEngine()
	h.engine.SetStore(h.store)
	h.engine.SetEmitter(h.emitter)
	h.engine.SetNowFunc(func() int64 { return 1_700_000_000 })

	if params.PaymentMint.IsZero() {
		params.PaymentMint = h.payment
	}
	v, err := h.engine.InitializeVault(h.owner, params)
	require.NoError(t, err)
	h.vault = v
	return h
}

// fund credits amount of the payment asset to holder's associated account.
func (h *harness) fund(holder crypto.Address, amount uint64) crypto.Address {
	h.t.Helper()
	var addr crypto.Address
	require.NoError(h.t, h.store.Update(func(st State) error {
		ledger := token.NewLedger(st)
		acct, err := ledger.EnsureAssociatedAccount(holder, h.payment)
		if err != nil {
			return err
		}
		addr = acct.Address
		return ledger.MintTo(h.payment, acct.Address, h.issuer, amount)
	}))
	return addr
}

func (h *harness) paymentAccount(holder crypto.Address) crypto.Address {
	return token.AssociatedAddress(holder, h.payment)
}

func (h *harness) balance(addr crypto.Address) uint64 {
	h.t.Helper()
	acct, ok := h.store.state.accounts[addr]
	if !ok {
		return 0
	}
	return acct.Amount
}

func (h *harness) current() *Vault {
	h.t.Helper()
	v, err := h.engine.Vault(h.vault.Address)
	require.NoError(h.t, err)
	return v
}

func (h *harness) mint(holder crypto.Address, amount uint64) (*MintReceipt, error) {
	return h.engine.MintShares(holder, MintAccounts{
		Vault:     h.vault.Address,
		Payment:   h.paymentAccount(holder),
		Principal: h.vault.PrincipalAccount,
		Revenue:   h.vault.RevenueAccount,
	}, amount)
}

func (h *harness) deposit(depositor crypto.Address, amount uint64) (*DepositReceipt, error) {
	return h.engine.DepositRevenue(depositor, DepositAccounts{
		Vault:    h.vault.Address,
		Payment:  h.paymentAccount(depositor),
		Revenue:  h.vault.RevenueAccount,
		Treasury: h.current().TreasuryAccount,
	}, amount)
}

func (h *harness) harvest(holder crypto.Address) (uint64, error) {
	return h.engine.Harvest(holder, HarvestAccounts{
		Vault:       h.vault.Address,
		Revenue:     h.vault.RevenueAccount,
		Destination: h.paymentAccount(holder),
	})
}

func (h *harness) redeem(holder crypto.Address, amount uint64) (*RedeemReceipt, error) {
	return h.engine.RedeemShares(holder, RedeemAccounts{
		Vault:     h.vault.Address,
		Payment:   h.paymentAccount(holder),
		Principal: h.vault.PrincipalAccount,
		Revenue:   h.vault.RevenueAccount,
	}, amount)
}

func (h *harness) requireInvariants() {
	h.t.Helper()
	report, err := h.engine.Audit(h.vault.Address)
	require.NoError(h.t, err)
	require.Empty(h.t, report.Violations, "audit: %+v", report)
}
