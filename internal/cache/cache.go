package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key for a retrieval query at a given depth
func Key(query string, topK int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", query, topK)))
	return "claimgate:v1:" + hex.EncodeToString(hash[:])
}
