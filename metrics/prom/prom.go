// Package prom exports the cache metrics sink to Prometheus. The adapter
// is a pull-style prometheus.Collector over snapshots, so the cache pays
// nothing on the hot path beyond its own atomic counters.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/collcache/metrics"
)

// Adapter implements prometheus.Collector by sampling a snapshot source
// on every scrape. Safe for concurrent use.
type Adapter struct {
	source func() metrics.Snapshot

	requests    *prometheus.Desc
	hits        *prometheus.Desc
	misses      *prometheus.Desc
	loads       *prometheus.Desc
	loadSeconds *prometheus.Desc
	evictions   *prometheus.Desc
	puts        *prometheus.Desc
	removes     *prometheus.Desc
	sizeEntries *prometheus.Desc
	sizeMax     *prometheus.Desc
}

// New constructs and registers a Prometheus adapter.
//   - reg:         registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
//   - source:      snapshot provider, typically Cache.Admin().Snapshot
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels, source func() metrics.Snapshot) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	name := func(n string) string {
		return prometheus.BuildFQName(ns, sub, n)
	}
	a := &Adapter{
		source:      source,
		requests:    prometheus.NewDesc(name("requests_total"), "Lookup requests", nil, constLabels),
		hits:        prometheus.NewDesc(name("hits_total"), "Cache hits", nil, constLabels),
		misses:      prometheus.NewDesc(name("misses_total"), "Cache misses", nil, constLabels),
		loads:       prometheus.NewDesc(name("loads_total"), "Loader invocations by result", []string{"result"}, constLabels),
		loadSeconds: prometheus.NewDesc(name("load_seconds_total"), "Cumulative successful load time", nil, constLabels),
		evictions:   prometheus.NewDesc(name("evictions_total"), "Entries evicted", nil, constLabels),
		puts:        prometheus.NewDesc(name("puts_total"), "Installs and replacements", nil, constLabels),
		removes:     prometheus.NewDesc(name("removes_total"), "Explicit invalidations", nil, constLabels),
		sizeEntries: prometheus.NewDesc(name("size_entries"), "Resident entries", nil, constLabels),
		sizeMax:     prometheus.NewDesc(name("size_max_entries"), "Configured capacity (0 = unbounded)", nil, constLabels),
	}
	reg.MustRegister(a)
	return a
}

// Describe implements prometheus.Collector.
func (a *Adapter) Describe(ch chan<- *prometheus.Desc) {
	ch <- a.requests
	ch <- a.hits
	ch <- a.misses
	ch <- a.loads
	ch <- a.loadSeconds
	ch <- a.evictions
	ch <- a.puts
	ch <- a.removes
	ch <- a.sizeEntries
	ch <- a.sizeMax
}

// Collect implements prometheus.Collector.
func (a *Adapter) Collect(ch chan<- prometheus.Metric) {
	s := a.source()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(a.requests, s.RequestCount)
	counter(a.hits, s.HitCount)
	counter(a.misses, s.MissCount)
	counter(a.loads, s.LoadSuccessCount, "success")
	counter(a.loads, s.LoadFailureCount, "failure")
	ch <- prometheus.MustNewConstMetric(a.loadSeconds, prometheus.CounterValue, float64(s.TotalLoadNanos)/1e9)
	counter(a.evictions, s.EvictionCount)
	counter(a.puts, s.PutCount)
	counter(a.removes, s.RemoveCount)
	ch <- prometheus.MustNewConstMetric(a.sizeEntries, prometheus.GaugeValue, float64(s.CurrentSize))
	ch <- prometheus.MustNewConstMetric(a.sizeMax, prometheus.GaugeValue, float64(s.MaxSize))
}

// Compile-time check: Adapter is a prometheus.Collector.
var _ prometheus.Collector = (*Adapter)(nil)
