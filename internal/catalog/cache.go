package catalog

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// listCache memoizes list results per collection fingerprint. A mutation
// or reload changes the fingerprint, so stale entries are never hit and
// age out of the LRU.
type listCache struct {
	lru     *lru.Cache[string, ListResult]
	metrics *cacheMetrics
}

func newListCache(size int, reg *prometheus.Registry) *listCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[string, ListResult](size)
	if err != nil {
		return nil
	}
	return &listCache{lru: c, metrics: newCacheMetrics(reg)}
}

func (c *listCache) get(fingerprint, key string) (ListResult, bool) {
	if c == nil {
		return ListResult{}, false
	}
	res, ok := c.lru.Get(fingerprint + "|" + key)
	if !ok {
		c.metrics.miss()
		return ListResult{}, false
	}
	c.metrics.hit()
	res.Items = cloneItems(res.Items)
	return res, true
}

func (c *listCache) add(fingerprint, key string, res ListResult) {
	if c == nil {
		return
	}
	res.Items = cloneItems(res.Items)
	c.lru.Add(fingerprint+"|"+key, res)
}

func (c *listCache) size() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
