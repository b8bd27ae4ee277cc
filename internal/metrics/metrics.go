package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "senda"

// Metrics groups the collectors of the daemon on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	Transitions     *prometheus.CounterVec
	DepositedAmount *prometheus.CounterVec
	VaultHalts      prometheus.Counter
	HaltedVaults    prometheus.Gauge
	TxDuration      *prometheus.HistogramVec

	MirrorDeliveries *prometheus.CounterVec
	MirrorQueue      prometheus.Gauge

	EventStreamClients prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lot_transitions_total",
			Help:      "Lot operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		DepositedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposited_amount_total",
			Help:      "Sum of deposited amounts in smallest units, by asset.",
		}, []string{"asset"}),
		VaultHalts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vault_halts_total",
			Help:      "Vaults halted after an accounting invariant violation.",
		}),
		HaltedVaults: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "halted_vaults",
			Help:      "Vaults currently waiting for reconciliation.",
		}),
		TxDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Duration of lot operations including storage commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		MirrorDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_deliveries_total",
			Help:      "Mirror snapshot deliveries by result.",
		}, []string{"result"}),
		MirrorQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mirror_queue_length",
			Help:      "Snapshots waiting to be delivered to the mirror.",
		}),
		EventStreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_stream_clients",
			Help:      "Connected websocket event stream clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Transitions,
		m.DepositedAmount,
		m.VaultHalts,
		m.HaltedVaults,
		m.TxDuration,
		m.MirrorDeliveries,
		m.MirrorQueue,
		m.EventStreamClients,
	)
	return m
}

// Registry is what the /metrics endpoint gathers from.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
