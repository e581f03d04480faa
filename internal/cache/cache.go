package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is not present
var ErrMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value store with per-entry TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds a deterministic cache key for an analytics query.
// params must marshal to stable JSON (structs, or maps which encoding/json sorts).
func Key(kind string, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key params: %w", err)
	}
	sum := sha256.Sum256(raw)
	return "analytics:" + kind + ":" + hex.EncodeToString(sum[:]), nil
}
