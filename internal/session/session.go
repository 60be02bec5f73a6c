// Package session provides session storage backends mapping opaque tokens to
// the admin identity they were issued for.
package session

import (
	"context"
	"errors"
	"time"
)

// Entry is what a live token resolves to.
type Entry struct {
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is implemented by MemoryStore and RedisStore.
type Store interface {
	Create(ctx context.Context, identity string) (string, error)
	Validate(ctx context.Context, token string) (Entry, bool, error)
	ClearAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

const maxCreateAttempts = 5

var ErrTokenSpace = errors.New("could not allocate a unique session token")
