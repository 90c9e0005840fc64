// Package store defines the interface over the client's small persistent
// state: the sealed session values (bearer token, serialized identity) and
// the device binding. The two have different lifecycles: session values are
// cleared together on logout, the device binding survives it.
package store

import (
	"context"
	"errors"
)

// ErrNotFound reports an absent key.
var ErrNotFound = errors.New("store: not found")

// Sessions persists the sealed session pair.
type Sessions interface {
	// Save writes both session values atomically.
	Save(ctx context.Context, token, identity []byte) error

	// Load returns the sealed token and identity, or ErrNotFound when no
	// session is persisted.
	Load(ctx context.Context) (token, identity []byte, err error)

	// Clear removes both session values. The device binding is untouched.
	Clear(ctx context.Context) error
}

// Devices persists the device binding.
type Devices interface {
	// ID returns the persisted device identifier, or ErrNotFound before
	// first use.
	ID(ctx context.Context) (string, error)

	// SaveID persists a freshly minted device identifier.
	SaveID(ctx context.Context, id string) error
}

// Store is the client state store.
type Store interface {
	Sessions() Sessions
	Devices() Devices
	Close() error
}
