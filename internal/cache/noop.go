package cache

import (
	"context"
	"time"
)

// Noop is used when caching is disabled. Every read misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) {
	return nil, ErrMiss
}

func (Noop) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
