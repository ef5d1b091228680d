// Package session provides key-value storage scoped to a single browser session.
package session

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyUser = "user"
)

// ErrNotFound is returned by Store.Get when the key is absent.
var ErrNotFound = errors.New("session key not found")

// Store is the state of one browser session. Nothing stored here is visible
// to any other session.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Provider opens the Store for a session id.
type Provider interface {
	Open(id string) Store
	Destroy(ctx context.Context, id string) error
}
