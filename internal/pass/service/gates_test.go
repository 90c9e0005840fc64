package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
	"github.com/aussiebroadwan/gatepass/pkg/gateapi"
	"github.com/stretchr/testify/require"
)

type fakeConfigAPI struct {
	gates      []byte
	gatesErr   error
	gateCalls  atomic.Int32
	token      string
	tokenErr   error
	version    string
	versionErr error
}

func (f *fakeConfigAPI) FetchGates(ctx context.Context) ([]byte, error) {
	f.gateCalls.Add(1)
	return f.gates, f.gatesErr
}

func (f *fakeConfigAPI) FetchSASToken(ctx context.Context) (string, error) {
	return f.token, f.tokenErr
}

func (f *fakeConfigAPI) FetchVersion(ctx context.Context) (string, error) {
	return f.version, f.versionErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGateConfigFetchAndCache(t *testing.T) {
	t.Parallel()

	api := &fakeConfigAPI{gates: []byte(`{
		"1": {"enabled": true, "text": {"en": "Main Gate", "ar": "الرئيسية"}},
		"3": {"enabled": false, "text": {"en": "Closed", "ar": "مغلق"}}
	}`)}
	resolver := NewConfigResolver(api, time.Hour, discardLogger())

	ctx := context.Background()
	cfg := resolver.GateConfig(ctx)
	require.True(t, cfg.Selectable(1))
	require.False(t, cfg.Selectable(3))
	require.Equal(t, "Main Gate", cfg[1].Text.EN)

	// Within the interval the remote store is not hit again.
	for range 5 {
		resolver.GateConfig(ctx)
	}
	require.Equal(t, int32(1), api.gateCalls.Load())
}

func TestGateConfigFallbackOnFetchError(t *testing.T) {
	t.Parallel()

	api := &fakeConfigAPI{gatesErr: errors.New("remote config unreachable")}
	resolver := NewConfigResolver(api, time.Hour, discardLogger())

	cfg := resolver.GateConfig(context.Background())
	for _, id := range domain.GateSlots {
		require.False(t, cfg.Selectable(id), "gate %d selectable without config", id)
	}
	require.Equal(t, "Unavailable", cfg[1].Text.EN)
}

func TestGateConfigFallbackOnParseError(t *testing.T) {
	t.Parallel()

	api := &fakeConfigAPI{gates: []byte(`{"1": `)}
	resolver := NewConfigResolver(api, time.Hour, discardLogger())

	cfg := resolver.GateConfig(context.Background())
	require.False(t, cfg.Selectable(1))
}

func TestGateConfigKeepsLastGoodOnLaterFailure(t *testing.T) {
	t.Parallel()

	api := &fakeConfigAPI{gates: []byte(`{"4": {"enabled": true, "text": {"en": "East", "ar": "شرق"}}}`)}
	// Zero interval so every call reaches the fake.
	resolver := NewConfigResolver(api, time.Nanosecond, discardLogger())

	ctx := context.Background()
	require.True(t, resolver.GateConfig(ctx).Selectable(4))

	api.gatesErr = errors.New("transient outage")
	time.Sleep(2 * time.Millisecond)
	cfg := resolver.GateConfig(ctx)
	require.True(t, cfg.Selectable(4), "last good config survives a transient outage")
}

func TestSharedToken(t *testing.T) {
	t.Parallel()

	t.Run("token and version", func(t *testing.T) {
		t.Parallel()
		api := &fakeConfigAPI{token: "sas-abc", version: "2.3.0"}
		resolver := NewConfigResolver(api, time.Hour, discardLogger())

		token, err := resolver.SharedToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, gateapi.SharedToken{Token: "sas-abc", Version: "2.3.0"}, token)
	})

	t.Run("missing token is fatal", func(t *testing.T) {
		t.Parallel()
		api := &fakeConfigAPI{tokenErr: gateapi.ErrTokenMissing, version: "2.3.0"}
		resolver := NewConfigResolver(api, time.Hour, discardLogger())

		_, err := resolver.SharedToken(context.Background())
		require.ErrorIs(t, err, domain.ErrConfigUnavailable)
	})

	t.Run("missing version falls back to baseline", func(t *testing.T) {
		t.Parallel()
		api := &fakeConfigAPI{token: "sas-abc", versionErr: errors.New("not found")}
		resolver := NewConfigResolver(api, time.Hour, discardLogger())

		token, err := resolver.SharedToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, gateapi.BaselineAPIVersion, token.Version)
	})

	t.Run("empty version falls back to baseline", func(t *testing.T) {
		t.Parallel()
		api := &fakeConfigAPI{token: "sas-abc"}
		resolver := NewConfigResolver(api, time.Hour, discardLogger())

		token, err := resolver.SharedToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, gateapi.BaselineAPIVersion, token.Version)
	})
}
