package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Set("request_start", time.Now())
		c.Next()
	}
}

// SetMeta records a metadata entry returned alongside the response data.
func SetMeta(c *gin.Context, key string, value interface{}) {
	ensureMeta(c)[key] = value
}

// SetCacheHit records whether the payload came from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, "cache_hit", hit)
}

// ExtractMeta returns the metadata collected so far, stamping the elapsed
// processing time. It returns nil when nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(map[string]interface{})
	if !ok || len(meta) == 0 {
		return nil
	}
	if started, ok := c.Get("request_start"); ok {
		if t, ok := started.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
