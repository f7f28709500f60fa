package node

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons used as metric labels.
const (
	reasonVerification = "verification"
	reasonSignature    = "signature"
	reasonTransport    = "transport"
	reasonLedger       = "ledger"
	reasonOther        = "other"
)

// Metrics are the Prometheus counters of a node. Each node has its own
// registry so several nodes can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	flowsStarted   prometheus.Counter
	flowsFinalized prometheus.Counter
	flowsRejected  *prometheus.CounterVec
	rpcs           *prometheus.CounterVec
}

// NewMetrics creates and registers the counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		flowsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accord_flows_started_total",
			Help: "Number of agreement flows initiated by this node.",
		}),
		flowsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accord_flows_finalized_total",
			Help: "Number of flows this node finalized, as initiator or responder.",
		}),
		flowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_flows_rejected_total",
			Help: "Number of flows this node rejected or saw rejected.",
		}, []string{"reason"}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_rpc_total",
			Help: "Number of RPC requests processed.",
		}, []string{"command"}),
	}

	m.registry.MustRegister(
		m.flowsStarted,
		m.flowsFinalized,
		m.flowsRejected,
		m.rpcs,
	)

	return m
}

// Registry returns the registry holding the counters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
