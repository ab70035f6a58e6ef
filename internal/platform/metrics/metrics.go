package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway holds the Prometheus metrics of the biometric gateway.
type Gateway struct {
	Operations      *prometheus.CounterVec
	OperationTime   *prometheus.HistogramVec
	LockWait        prometheus.Histogram
	TicketsIssued   prometheus.Counter
	CurrentSequence prometheus.Gauge
	VendorDegraded  prometheus.Gauge
}

// NewGateway creates and registers the gateway metrics on reg.
func NewGateway(reg prometheus.Registerer) *Gateway {
	f := promauto.With(reg)
	return &Gateway{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bioauth_gateway_operations_total",
			Help: "Biometric operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		OperationTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bioauth_gateway_operation_duration_seconds",
			Help:    "Time spent holding the vendor lock per operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bioauth_gateway_lock_wait_seconds",
			Help:    "Time requests spend queued for the vendor lock",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		}),
		TicketsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "bioauth_gateway_tickets_issued_total",
			Help: "Signed authentication tickets issued",
		}),
		CurrentSequence: f.NewGauge(prometheus.GaugeOpts{
			Name: "bioauth_gateway_sequence",
			Help: "Last authentication nonce minted",
		}),
		VendorDegraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "bioauth_gateway_vendor_degraded",
			Help: "1 while the vendor circuit breaker is open",
		}),
	}
}

// ObserveOperation records the outcome and duration of one locked operation.
func (m *Gateway) ObserveOperation(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationTime.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveLockWait records how long a caller queued for the lock.
func (m *Gateway) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWait.Observe(d.Seconds())
}

// TicketIssued records a signed ticket and the nonce it carries.
func (m *Gateway) TicketIssued(nonce uint64) {
	if m == nil {
		return
	}
	m.TicketsIssued.Inc()
	m.CurrentSequence.Set(float64(nonce))
}

// SetVendorDegraded mirrors the vendor breaker state.
func (m *Gateway) SetVendorDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.VendorDegraded.Set(1)
		return
	}
	m.VendorDegraded.Set(0)
}

// Ledger holds the Prometheus metrics of the authorization ledger.
type Ledger struct {
	Authentications      prometheus.Counter
	Rejections           *prometheus.CounterVec
	Deauthentications    *prometheus.CounterVec
	Expirations          prometheus.Counter
	ActiveAuthorizations prometheus.Gauge
	PrunedNonces         prometheus.Counter
	BlockHeight          prometheus.Gauge
	PoolSize             prometheus.Gauge
}

// NewLedger creates and registers the ledger metrics on reg.
func NewLedger(reg prometheus.Registerer) *Ledger {
	f := promauto.With(reg)
	return &Ledger{
		Authentications: f.NewCounter(prometheus.CounterOpts{
			Name: "bioauth_ledger_authentications_total",
			Help: "Tickets applied to the ledger",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bioauth_ledger_rejections_total",
			Help: "Tickets rejected by the ledger by reason",
		}, []string{"reason"}),
		Deauthentications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bioauth_ledger_deauthentications_total",
			Help: "Forced authorization removals by reason",
		}, []string{"reason"}),
		Expirations: f.NewCounter(prometheus.CounterOpts{
			Name: "bioauth_ledger_expirations_total",
			Help: "Authorizations swept after their window elapsed",
		}),
		ActiveAuthorizations: f.NewGauge(prometheus.GaugeOpts{
			Name: "bioauth_ledger_active_authorizations",
			Help: "Authorization entries currently stored",
		}),
		PrunedNonces: f.NewCounter(prometheus.CounterOpts{
			Name: "bioauth_ledger_pruned_nonces_total",
			Help: "Consumed nonces removed by the prune policy",
		}),
		BlockHeight: f.NewGauge(prometheus.GaugeOpts{
			Name: "bioauth_chain_block_height",
			Help: "Current block number",
		}),
		PoolSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "bioauth_chain_pool_size",
			Help: "Transactions waiting for inclusion",
		}),
	}
}

func (m *Ledger) Authenticated() {
	if m == nil {
		return
	}
	m.Authentications.Inc()
}

func (m *Ledger) Rejected(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Ledger) Deauthenticated(reason string) {
	if m == nil {
		return
	}
	m.Deauthentications.WithLabelValues(reason).Inc()
}

func (m *Ledger) Expired(n int) {
	if m == nil {
		return
	}
	m.Expirations.Add(float64(n))
}

func (m *Ledger) SetActive(n int) {
	if m == nil {
		return
	}
	m.ActiveAuthorizations.Set(float64(n))
}

func (m *Ledger) Pruned(n int) {
	if m == nil {
		return
	}
	m.PrunedNonces.Add(float64(n))
}

func (m *Ledger) SetBlock(n uint64) {
	if m == nil {
		return
	}
	m.BlockHeight.Set(float64(n))
}

func (m *Ledger) SetPoolSize(n int) {
	if m == nil {
		return
	}
	m.PoolSize.Set(float64(n))
}
