package observability

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"yieldvault/core/events"
	"yieldvault/crypto"
)

func TestVaultMetricsObserveOperation(t *testing.T) {
	m := newVaultMetrics()
	sentinel := errors.New("vault: insufficient shares for redemption")

	m.ObserveOperation("redeem", 5*time.Millisecond, nil)
	m.ObserveOperation("redeem", time.Millisecond, fmt.Errorf("%w: have 1", sentinel))
	m.ObserveOperation(" ", time.Millisecond, nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("redeem", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("redeem", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unknown", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("redeem", sentinel.Error())))
	require.Equal(t, 2, testutil.CollectAndCount(m.latency))
}

func TestVaultMetricsRecordFees(t *testing.T) {
	m := newVaultMetrics()
	vault := crypto.BytesToAddress([]byte{0x01})
	m.RecordFees(vault, 100)
	m.RecordFees(vault, 250)
	require.Equal(t, 250.0, testutil.ToFloat64(m.fees.WithLabelValues(vault.String())))

	var nilMetrics *VaultMetrics
	nilMetrics.RecordFees(vault, 1)
	nilMetrics.ObserveOperation("mint", 0, nil)
}

func TestCountingEmitterForwards(t *testing.T) {
	var seen []string
	next := events.EmitterFunc(func(evt events.Event) { seen = append(seen, evt.EventType()) })
	emitter := CountingEmitter{Metrics: Events(), Next: next}
	before := testutil.ToFloat64(Events().emitted.WithLabelValues(events.TypeVaultYieldHarvested))

	emitter.Emit(events.YieldHarvested{Amount: 3})
	emitter.Emit(nil)

	require.Equal(t, []string{events.TypeVaultYieldHarvested}, seen)
	require.Equal(t, before+1, testutil.ToFloat64(Events().emitted.WithLabelValues(events.TypeVaultYieldHarvested)))
}
