package metadata

import (
	"maps"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/On-Jun9/ShutterGate/internal/policy"
	"github.com/On-Jun9/ShutterGate/pkg/types"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shuttergate_metadata_cache_hits_total",
		Help: "Number of metadata extractions served from the cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shuttergate_metadata_cache_misses_total",
		Help: "Number of metadata extractions that had to decode the buffer.",
	})
)

// CachedExtractor memoizes extraction results by content hash, so resubmitting the
// same bytes within the TTL skips decoding.
type CachedExtractor struct {
	inner *Extractor
	cache *expirable.LRU[string, types.ExtractedTags]
}

func NewCachedExtractor(inner *Extractor, size int, ttl time.Duration) *CachedExtractor {
	if size < 1 {
		size = 1
	}
	return &CachedExtractor{
		inner: inner,
		cache: expirable.NewLRU[string, types.ExtractedTags](size, nil, ttl),
	}
}

func (c *CachedExtractor) Extract(data []byte) types.ExtractedTags {
	key := policy.HexDigest(data)
	if tags, ok := c.cache.Get(key); ok {
		cacheHitsTotal.Inc()
		return cloneTags(tags)
	}
	cacheMissesTotal.Inc()

	tags := c.inner.Extract(data)
	c.cache.Add(key, tags)
	return cloneTags(tags)
}

// Len returns the number of cached entries.
func (c *CachedExtractor) Len() int {
	return c.cache.Len()
}

// cloneTags copies the maps so callers cannot alter a cached entry.
func cloneTags(t types.ExtractedTags) types.ExtractedTags {
	out := types.ExtractedTags{
		Tags:  maps.Clone(t.Tags),
		Dates: maps.Clone(t.Dates),
		Error: t.Error,
	}
	if t.GPS != nil {
		gps := *t.GPS
		out.GPS = &gps
	}
	return out
}
