package catalog

import "github.com/prometheus/client_golang/prometheus"

type storeMetrics struct {
	items           prometheus.Gauge
	reloads         prometheus.Counter
	loadFailures    prometheus.Counter
	persistFailures prometheus.Counter
}

// newStoreMetrics registers the store collectors on reg. A nil registry
// disables them.
func newStoreMetrics(reg *prometheus.Registry) *storeMetrics {
	if reg == nil {
		return nil
	}

	m := &storeMetrics{
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_store_items",
			Help: "Items currently held by the catalog store",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_store_reloads_total",
			Help: "Reloads triggered by external changes of the backing file",
		}),
		loadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_store_load_failures_total",
			Help: "Backing file loads that degraded to an empty collection",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_store_persist_failures_total",
			Help: "Failed writes of the backing file",
		}),
	}

	reg.MustRegister(m.items, m.reloads, m.loadFailures, m.persistFailures)
	return m
}

func (m *storeMetrics) setItems(n int) {
	if m != nil {
		m.items.Set(float64(n))
	}
}

func (m *storeMetrics) reloaded() {
	if m != nil {
		m.reloads.Inc()
	}
}

func (m *storeMetrics) loadFailed() {
	if m != nil {
		m.loadFailures.Inc()
	}
}

func (m *storeMetrics) persistFailed() {
	if m != nil {
		m.persistFailures.Inc()
	}
}

type cacheMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
}

func newCacheMetrics(reg *prometheus.Registry) *cacheMetrics {
	if reg == nil {
		return nil
	}

	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_query_cache_hits_total",
			Help: "List queries answered from the result cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_query_cache_misses_total",
			Help: "List queries computed from a store snapshot",
		}),
	}

	reg.MustRegister(m.hits, m.misses)
	return m
}

func (m *cacheMetrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *cacheMetrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}
