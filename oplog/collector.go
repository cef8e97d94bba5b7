package oplog

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

// PebbleCollector reports storage engine metrics of an operation log.
type PebbleCollector struct {
	source func() *pebble.Metrics

	compactionCount         *prometheus.Desc
	compactionEstimatedDebt *prometheus.Desc
	memtableSize            *prometheus.Desc
	memtableCount           *prometheus.Desc
	walFiles                *prometheus.Desc
	walSize                 *prometheus.Desc
	walBytesWritten         *prometheus.Desc
}

// NewPebbleCollector reads metrics from source on every scrape; a nil
// result skips the scrape.
func NewPebbleCollector(source func() *pebble.Metrics) *PebbleCollector {
	return &PebbleCollector{
		source: source,
		compactionCount: prometheus.NewDesc(
			"crdtop_pebble_compaction_count_total",
			"Total number of compactions performed",
			nil, nil,
		),
		compactionEstimatedDebt: prometheus.NewDesc(
			"crdtop_pebble_compaction_estimated_debt_bytes",
			"Estimated number of bytes that need to be compacted to reach a stable state",
			nil, nil,
		),
		memtableSize: prometheus.NewDesc(
			"crdtop_pebble_memtable_size_bytes",
			"Current size of the memtable in bytes",
			nil, nil,
		),
		memtableCount: prometheus.NewDesc(
			"crdtop_pebble_memtable_count",
			"Current count of memtables",
			nil, nil,
		),
		walFiles: prometheus.NewDesc(
			"crdtop_pebble_wal_files",
			"Number of live WAL files",
			nil, nil,
		),
		walSize: prometheus.NewDesc(
			"crdtop_pebble_wal_size_bytes",
			"Size of live WAL data in bytes",
			nil, nil,
		),
		walBytesWritten: prometheus.NewDesc(
			"crdtop_pebble_wal_bytes_written_total",
			"Total physical bytes written to the WAL",
			nil, nil,
		),
	}
}

func (pc *PebbleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.compactionCount
	ch <- pc.compactionEstimatedDebt
	ch <- pc.memtableSize
	ch <- pc.memtableCount
	ch <- pc.walFiles
	ch <- pc.walSize
	ch <- pc.walBytesWritten
}

func (pc *PebbleCollector) Collect(ch chan<- prometheus.Metric) {
	m := pc.source()
	if m == nil {
		return
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}
	counter(pc.compactionCount, float64(m.Compact.Count))
	gauge(pc.compactionEstimatedDebt, float64(m.Compact.EstimatedDebt))
	gauge(pc.memtableSize, float64(m.MemTable.Size))
	gauge(pc.memtableCount, float64(m.MemTable.Count))
	gauge(pc.walFiles, float64(m.WAL.Files))
	gauge(pc.walSize, float64(m.WAL.Size))
	counter(pc.walBytesWritten, float64(m.WAL.BytesWritten))
}
