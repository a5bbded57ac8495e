package kawa

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector exposes BufferPool counters as Prometheus metrics. Register
// it on the embedding proxy's registry:
//
//	prometheus.MustRegister(kawa.NewPoolCollector(pool))
type PoolCollector struct {
	pool *BufferPool

	gets     *prometheus.Desc
	puts     *prometheus.Desc
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	discards *prometheus.Desc
}

// NewPoolCollector creates a collector over the given pool.
func NewPoolCollector(pool *BufferPool) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName("kawa", "buffer_pool", name),
			help, []string{"size"}, nil,
		)
	}
	return &PoolCollector{
		pool:     pool,
		gets:     desc("gets_total", "Total number of buffer Get operations"),
		puts:     desc("puts_total", "Total number of buffer Put operations"),
		hits:     desc("hits_total", "Total number of pool hits (reused buffer)"),
		misses:   desc("misses_total", "Total number of pool misses (new allocation)"),
		discards: desc("discards_total", "Total number of buffers discarded on Put"),
	}
}

// Describe implements prometheus.Collector.
func (pc *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.gets
	ch <- pc.puts
	ch <- pc.hits
	ch <- pc.misses
	ch <- pc.discards
}

// Collect implements prometheus.Collector. Counters are read on each scrape.
func (pc *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	m := pc.pool.Metrics()
	for _, sized := range [...]SizedPoolMetrics{m.Pool4KB, m.Pool16KB, m.Pool64KB} {
		label := strconv.Itoa(sized.Size)
		counter := func(desc *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), label)
		}
		counter(pc.gets, sized.Gets)
		counter(pc.puts, sized.Puts)
		counter(pc.hits, sized.Hits)
		counter(pc.misses, sized.Misses)
		counter(pc.discards, sized.Discards)
	}
}
