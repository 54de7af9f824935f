package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	persistenceKey  = "persistence"

	// PersistenceRemote means writes reach the durable store.
	PersistenceRemote = "remote"
	// PersistenceFallback means the session is running on the fallback cache only.
	PersistenceFallback = "fallback"
)

// RemoteProbe reports whether remote persistence is usable. repository.Gateway implements it.
type RemoteProbe interface {
	RemoteUsable() bool
}

// PersistenceMode tags every response with the persistence mode seen when the request started.
func PersistenceMode(probe RemoteProbe) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := ensureMeta(c)
		mode := PersistenceFallback
		if probe != nil && probe.RemoteUsable() {
			mode = PersistenceRemote
		}
		meta[persistenceKey] = mode
		c.Next()
	}
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	newMeta := make(map[string]interface{})
	c.Set(responseMetaKey, newMeta)
	return newMeta
}
