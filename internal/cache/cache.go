package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// AppendJSON pushes val onto the list at key, keeps only the newest keep
	// entries and refreshes the ttl.
	AppendJSON(ctx context.Context, key string, val any, keep int64, ttl time.Duration) error
	// ListJSON decodes the list at key, oldest first, into dst (a pointer to a slice).
	ListJSON(ctx context.Context, key string, dst any) error
}
