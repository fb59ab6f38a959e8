package observability

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"yieldvault/crypto"
)

// VaultMetrics captures per-operation outcomes of the vault engine.
type VaultMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	fees     *prometheus.GaugeVec
}

var (
	vaultMetricsOnce sync.Once
	vaultRegistry    *VaultMetrics
)

// Vault returns the singleton metrics registry for vault operations.
func Vault() *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = newVaultMetrics()
		prometheus.MustRegister(
			vaultRegistry.requests,
			vaultRegistry.errors,
			vaultRegistry.latency,
			vaultRegistry.fees,
		)
	})
	return vaultRegistry
}

func newVaultMetrics() *VaultMetrics {
	return &VaultMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yieldvault",
			Subsystem: "vault",
			Name:      "operations_total",
			Help:      "Total vault operations segmented by operation and outcome.",
		}, []string{"operation", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yieldvault",
			Subsystem: "vault",
			Name:      "errors_total",
			Help:      "Rejected vault operations segmented by operation and reason.",
		}, []string{"operation", "reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "yieldvault",
			Subsystem: "vault",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution for vault operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		fees: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "yieldvault",
			Subsystem: "vault",
			Name:      "fees_collected",
			Help:      "Cumulative performance fees collected per vault, in base units.",
		}, []string{"vault"}),
	}
}

// ObserveOperation records the outcome of a vault operation.
func (m *VaultMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(op, errorReason(err)).Inc()
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordFees publishes the cumulative fee total of a vault.
func (m *VaultMetrics) RecordFees(vault crypto.Address, total uint64) {
	if m == nil {
		return
	}
	m.fees.WithLabelValues(vault.String()).Set(float64(total))
}

// errorReason reduces err to the innermost error's message so the label stays
// bounded to the set of sentinel errors.
func errorReason(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	reason := strings.TrimSpace(err.Error())
	if reason == "" {
		return "unknown"
	}
	return reason
}
