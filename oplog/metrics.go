package oplog

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts what happens to appended operations.
type Metrics struct {
	Appended     prometheus.Counter
	Duplicates   prometheus.Counter
	Conflicts    prometheus.Counter
	DecodeErrors prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crdtop",
			Subsystem: "oplog",
			Name:      "appended_total",
			Help:      "Operations written to the log",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crdtop",
			Subsystem: "oplog",
			Name:      "duplicates_total",
			Help:      "Appends of operations already in the log",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crdtop",
			Subsystem: "oplog",
			Name:      "conflicts_total",
			Help:      "Appends refused for reusing the timestamp and node of a different operation",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crdtop",
			Subsystem: "oplog",
			Name:      "decode_errors_total",
			Help:      "Stored records that failed to decode during a scan",
		}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Appended, m.Duplicates, m.Conflicts, m.DecodeErrors}
}
