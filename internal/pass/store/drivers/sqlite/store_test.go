package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/gatepass/internal/pass/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestSessionsRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.Sessions().Load(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Sessions().Save(ctx, []byte("sealed-token"), []byte("sealed-identity")))

	token, identity, err := s.Sessions().Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("sealed-token"), token)
	require.Equal(t, []byte("sealed-identity"), identity)

	// Save overwrites in place.
	require.NoError(t, s.Sessions().Save(ctx, []byte("token-2"), []byte("identity-2")))
	token, identity, err = s.Sessions().Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("token-2"), token)
	require.Equal(t, []byte("identity-2"), identity)

	require.NoError(t, s.Sessions().Clear(ctx))
	_, _, err = s.Sessions().Load(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestClearLeavesDeviceBinding(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Devices().SaveID(ctx, "device-abc"))
	require.NoError(t, s.Sessions().Save(ctx, []byte("t"), []byte("i")))

	require.NoError(t, s.Sessions().Clear(ctx))

	id, err := s.Devices().ID(ctx)
	require.NoError(t, err)
	require.Equal(t, "device-abc", id)
}

func TestDevicesRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Devices().ID(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Devices().SaveID(ctx, "device-abc"))
	id, err := s.Devices().ID(ctx)
	require.NoError(t, err)
	require.Equal(t, "device-abc", id)
}

func TestMigrationsIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestStateSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Sessions().Save(ctx, []byte("t"), []byte("i")))
	require.NoError(t, s.Devices().SaveID(ctx, "device-abc"))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.ApplyMigrations())

	token, _, err := s.Sessions().Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("t"), token)

	id, err := s.Devices().ID(ctx)
	require.NoError(t, err)
	require.Equal(t, "device-abc", id)
}
