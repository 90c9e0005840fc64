package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
	"github.com/aussiebroadwan/gatepass/pkg/gateapi"
	"golang.org/x/time/rate"
)

// DefaultConfigInterval is the minimum spacing between remote gate-config
// fetches, respecting the provider's quota.
const DefaultConfigInterval = time.Hour

// ConfigAPI is the slice of the Data API the resolver needs.
type ConfigAPI interface {
	FetchGates(ctx context.Context) ([]byte, error)
	FetchSASToken(ctx context.Context) (string, error)
	FetchVersion(ctx context.Context) (string, error)
}

// ConfigResolver fetches gate availability and the shared access token.
// Gate config is cached and rate-limited; the shared token is always fetched
// fresh, never cached beyond a single issuance attempt.
type ConfigResolver struct {
	api     ConfigAPI
	limiter *rate.Limiter
	logger  *slog.Logger

	mu     sync.Mutex
	cached domain.GateConfig
}

// NewConfigResolver builds a resolver that hits the remote config store at
// most once per minInterval.
func NewConfigResolver(api ConfigAPI, minInterval time.Duration, logger *slog.Logger) *ConfigResolver {
	if minInterval <= 0 {
		minInterval = DefaultConfigInterval
	}
	return &ConfigResolver{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		logger:  logger,
	}
}

// GateConfig returns the current gate availability. It never fails: a fetch
// or parse problem degrades to the last good config, or to the all-disabled
// fallback when there has never been one.
func (r *ConfigResolver) GateConfig(ctx context.Context) domain.GateConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.limiter.Allow() {
		return r.cachedOrFallback()
	}

	raw, err := r.api.FetchGates(ctx)
	if err != nil {
		r.logger.Warn("gate config fetch failed", "error", err)
		return r.cachedOrFallback()
	}

	cfg, err := domain.ParseGateConfig(raw)
	if err != nil {
		r.logger.Warn("gate config parse failed", "error", err)
		return r.cachedOrFallback()
	}

	r.cached = cfg
	return cfg
}

func (r *ConfigResolver) cachedOrFallback() domain.GateConfig {
	if r.cached != nil {
		return r.cached
	}
	return domain.FallbackGateConfig()
}

// SharedToken fetches the short-lived bearer token and the required API
// version, reading both documents concurrently. A missing token document is
// a hard failure; a missing version document falls back to the baseline.
func (r *ConfigResolver) SharedToken(ctx context.Context) (gateapi.SharedToken, error) {
	var (
		wg         sync.WaitGroup
		token      string
		tokenErr   error
		version    string
		versionErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		token, tokenErr = r.api.FetchSASToken(ctx)
	}()
	go func() {
		defer wg.Done()
		version, versionErr = r.api.FetchVersion(ctx)
	}()
	wg.Wait()

	if tokenErr != nil {
		return gateapi.SharedToken{}, fmt.Errorf("%w: %v", domain.ErrConfigUnavailable, tokenErr)
	}

	if versionErr != nil || version == "" {
		if versionErr != nil {
			r.logger.Warn("version fetch failed, using baseline", "error", versionErr)
		}
		version = gateapi.BaselineAPIVersion
	}

	return gateapi.SharedToken{Token: token, Version: version}, nil
}
