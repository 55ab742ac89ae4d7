package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "request_start"
	cacheHitMetaKey  = "cache_hit"
	processingMetaMs = "processing_time_ms"
)

// ResponseMeta prepares per-request metadata that handlers can attach to the
// response envelope.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	meta(c)[cacheHitMetaKey] = hit
}

// Meta returns the metadata collected so far, stamped with the elapsed time.
// It is nil when nothing was recorded.
func Meta(c *gin.Context) map[string]interface{} {
	value, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	m, _ := value.(map[string]interface{})
	if len(m) == 0 {
		return nil
	}
	if start, ok := c.Get(requestStartKey); ok {
		if t, ok := start.(time.Time); ok {
			m[processingMetaMs] = time.Since(t).Milliseconds()
		}
	}
	return m
}

func meta(c *gin.Context) map[string]interface{} {
	if value, ok := c.Get(responseMetaKey); ok {
		if m, ok := value.(map[string]interface{}); ok {
			return m
		}
	}
	m := map[string]interface{}{}
	c.Set(responseMetaKey, m)
	return m
}
