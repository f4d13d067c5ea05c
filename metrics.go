package rendezvous

import "github.com/prometheus/client_golang/prometheus"

// Instrumentation exposes optional prometheus counters for a set of
// channels. A nil *Instrumentation is valid everywhere it is used: no
// metric is recorded and no registration happens, so instrumentation
// is purely additive.
type Instrumentation struct {
	parkedPuts  prometheus.Counter
	parkedGets  prometheus.Counter
	compactions prometheus.Counter
	selects     prometheus.Counter
}

// NewInstrumentation builds and registers a set of counters under
// namespace into reg. Callers typically construct one Instrumentation
// per process and share it across every Chan via WithInstrumentation.
func NewInstrumentation(reg prometheus.Registerer, namespace string) *Instrumentation {
	i := &Instrumentation{
		parkedPuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rendezvous_parked_puts_total",
			Help:      "Total number of put operations parked waiting for a counterparty.",
		}),
		parkedGets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rendezvous_parked_gets_total",
			Help:      "Total number of get operations parked waiting for a counterparty.",
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rendezvous_queue_compactions_total",
			Help:      "Total number of put/get queue compactions triggered by dirty-entry thresholds.",
		}),
		selects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rendezvous_selects_committed_total",
			Help:      "Total number of Select calls that committed an operation.",
		}),
	}
	reg.MustRegister(i.parkedPuts, i.parkedGets, i.compactions, i.selects)
	return i
}

func (i *Instrumentation) incParkedPuts() {
	if i == nil {
		return
	}
	i.parkedPuts.Inc()
}

func (i *Instrumentation) incParkedGets() {
	if i == nil {
		return
	}
	i.parkedGets.Inc()
}

func (i *Instrumentation) incCompactions() {
	if i == nil {
		return
	}
	i.compactions.Inc()
}

func (i *Instrumentation) incSelects() {
	if i == nil {
		return
	}
	i.selects.Inc()
}
