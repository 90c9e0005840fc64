package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
	"github.com/aussiebroadwan/gatepass/internal/pass/state"
	"github.com/aussiebroadwan/gatepass/pkg/gateapi"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	cfg      domain.GateConfig
	token    gateapi.SharedToken
	tokenErr error
}

func (f *fakeResolver) GateConfig(ctx context.Context) domain.GateConfig { return f.cfg }

func (f *fakeResolver) SharedToken(ctx context.Context) (gateapi.SharedToken, error) {
	return f.token, f.tokenErr
}

type fakeMinter struct {
	calls atomic.Int32
	resp  gateapi.AddVisitorResponse
	err   error
	block chan struct{} // when non-nil, AddVisitor waits until closed

	mu      sync.Mutex
	gotHost string
	gotGate int
	gotName string
}

func (f *fakeMinter) AddVisitor(ctx context.Context, token gateapi.SharedToken, hostID string, gateID int, name string) (gateapi.AddVisitorResponse, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.gotHost, f.gotGate, f.gotName = hostID, gateID, name
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.resp, f.err
}

type countingAnalytics struct {
	issued atomic.Int32
}

func (c *countingAnalytics) PassIssued(ctx context.Context, hostID string, gate domain.GateID, visitorName string) {
	c.issued.Add(1)
}

func openGates() domain.GateConfig {
	cfg := domain.FallbackGateConfig()
	cfg[1] = domain.GateStatus{Enabled: true, Text: domain.GateLabel{EN: "Main Gate", AR: "الرئيسية"}}
	cfg[4] = domain.GateStatus{Enabled: true, Text: domain.GateLabel{EN: "East Gate", AR: "الشرقية"}}
	return cfg
}

func testResident() domain.ResidentIdentity {
	return domain.ResidentIdentity{
		HostID:   "12-4o",
		Name:     "Mona Adel",
		Building: 12,
		Flat:     4,
		UnitType: "owner",
		Phone:    "01012345678",
		Verified: true,
	}
}

func newTestIssuer(t *testing.T, resolver TokenSource, minter VisitorMinter, opts func(*IssuerConfig)) (*Issuer, *state.Store) {
	t.Helper()
	alerts := state.NewStore()
	cfg := IssuerConfig{
		Resolver: resolver,
		Visitors: minter,
		Alerts:   alerts,
		Clock:    func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) },
	}
	if opts != nil {
		opts(&cfg)
	}
	issuer := NewIssuer(cfg)
	issuer.Begin(testResident())
	return issuer, alerts
}

func TestIssuerSuccess(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{
		cfg:   openGates(),
		token: gateapi.SharedToken{Token: "sas-token", Version: "2.1.0"},
	}
	minter := &fakeMinter{resp: gateapi.AddVisitorResponse{
		CardNo:      "998877",
		GatesResult: []gateapi.GateResult{{Success: true}},
	}}
	analytics := &countingAnalytics{}
	issuer, _ := newTestIssuer(t, resolver, minter, func(c *IssuerConfig) {
		c.Analytics = analytics
	})

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.Equal(t, StateEnteringName, issuer.State())
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	pass, err := issuer.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, StateIssued, issuer.State())

	require.Equal(t, "998877", pass.CardNumber)
	require.Equal(t, "12-4o", pass.HostID)
	require.Equal(t, domain.GateID(1), pass.Gate)
	require.Equal(t, "Ali Hassan", pass.VisitorName)
	require.Equal(t, pass.IssuedAt.Add(24*time.Hour), pass.ExpiresAt)

	require.Equal(t, "12-4o", minter.gotHost)
	require.Equal(t, 1, minter.gotGate)
	require.Equal(t, "Ali Hassan", minter.gotName)
	require.Equal(t, int32(1), analytics.issued.Load())
}

func TestIssuerDisabledGateRejected(t *testing.T) {
	t.Parallel()

	issuer, _ := newTestIssuer(t, &fakeResolver{cfg: openGates()}, &fakeMinter{}, nil)

	// Gate 3 is disabled in the fallback and never re-enabled above.
	err := issuer.SelectGate(context.Background(), 3)
	require.ErrorIs(t, err, domain.ErrGateDisabled)
	require.Equal(t, StateSelectingGate, issuer.State())
	require.Equal(t, domain.GateNone, issuer.SelectedGate())
}

func TestIssuerEmptyNameRejected(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "   ", "\t\n"} {
		minter := &fakeMinter{}
		issuer, alerts := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, nil)

		ctx := context.Background()
		require.NoError(t, issuer.SelectGate(ctx, 1))
		require.NoError(t, issuer.SetVisitorName(name))

		_, err := issuer.Submit(ctx)
		require.ErrorIs(t, err, domain.ErrEmptyVisitorName)
		require.Equal(t, StateEnteringName, issuer.State())
		require.Zero(t, minter.calls.Load())

		// Validation errors stay inline, never reaching the alert channel.
		require.Empty(t, alerts.Alerts())
	}
}

func TestIssuerSubmitIdempotency(t *testing.T) {
	t.Parallel()

	minter := &fakeMinter{
		resp:  gateapi.AddVisitorResponse{CardNo: "1", GatesResult: []gateapi.GateResult{{Success: true}}},
		block: make(chan struct{}),
	}
	issuer, _ := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, nil)

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	first := make(chan error, 1)
	go func() {
		_, err := issuer.Submit(ctx)
		first <- err
	}()

	// Wait until the first submission is actually in flight.
	require.Eventually(t, func() bool {
		return issuer.State() == StateSubmitting
	}, time.Second, time.Millisecond)

	// Rapid duplicate triggers are all ignored while Submitting.
	for range 10 {
		_, err := issuer.Submit(ctx)
		require.ErrorIs(t, err, domain.ErrSubmitInFlight)
	}

	close(minter.block)
	require.NoError(t, <-first)
	require.Equal(t, int32(1), minter.calls.Load(), "exactly one mint call in flight per attempt")
}

func TestIssuerBusinessFailureResetsGate(t *testing.T) {
	t.Parallel()

	// HTTP 200 but the per-gate result says no.
	minter := &fakeMinter{resp: gateapi.AddVisitorResponse{
		GatesResult: []gateapi.GateResult{{Success: false}},
	}}
	analytics := &countingAnalytics{}
	issuer, alerts := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, func(c *IssuerConfig) {
		c.Analytics = analytics
	})

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	_, err := issuer.Submit(ctx)
	require.ErrorIs(t, err, domain.ErrGateRejected)

	require.Equal(t, StateFailed, issuer.State())
	require.Equal(t, domain.GateNone, issuer.SelectedGate(), "gate selection reset to none")
	require.Equal(t, "Ali Hassan", issuer.VisitorName(), "visitor name kept for retry")
	require.Zero(t, analytics.issued.Load(), "no analytics on failure")
	require.NotEmpty(t, alerts.Alerts())
}

func TestIssuerRetryAfterBusinessFailure(t *testing.T) {
	t.Parallel()

	minter := &fakeMinter{resp: gateapi.AddVisitorResponse{
		GatesResult: []gateapi.GateResult{{Success: false}},
	}}
	issuer, _ := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, nil)

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	_, err := issuer.Submit(ctx)
	require.ErrorIs(t, err, domain.ErrGateRejected)
	require.Equal(t, StateFailed, issuer.State())

	// Picking a gate again is enough to retry; the name survives.
	require.NoError(t, issuer.SelectGate(ctx, 4))
	require.Equal(t, StateEnteringName, issuer.State())
	require.Equal(t, "Ali Hassan", issuer.VisitorName())
	require.NoError(t, issuer.Err())

	minter.resp = gateapi.AddVisitorResponse{
		CardNo:      "12321",
		GatesResult: []gateapi.GateResult{{Success: true}},
	}
	pass, err := issuer.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, StateIssued, issuer.State())
	require.Equal(t, "Ali Hassan", pass.VisitorName)
	require.Equal(t, domain.GateID(4), pass.Gate)
	require.Equal(t, "Ali Hassan", minter.gotName)
}

func TestIssuerEmptyGatesResultIsBusinessFailure(t *testing.T) {
	t.Parallel()

	minter := &fakeMinter{resp: gateapi.AddVisitorResponse{CardNo: "5"}}
	issuer, _ := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, nil)

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	_, err := issuer.Submit(ctx)
	require.ErrorIs(t, err, domain.ErrGateRejected)
	require.Equal(t, domain.GateNone, issuer.SelectedGate())
}

func TestIssuerDailyLimit(t *testing.T) {
	t.Parallel()

	minter := &fakeMinter{err: gateapi.ErrDailyLimitReached}
	issuer, _ := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, nil)

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	_, err := issuer.Submit(ctx)
	require.ErrorIs(t, err, domain.ErrDailyLimit)
	require.Equal(t, StateFailed, issuer.State())
	// Daily limit is not a gate rejection; the selection stays.
	require.Equal(t, domain.GateID(1), issuer.SelectedGate())
}

func TestIssuerTokenFetchFailureSkipsMint(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{cfg: openGates(), tokenErr: domain.ErrConfigUnavailable}
	minter := &fakeMinter{}
	issuer, _ := newTestIssuer(t, resolver, minter, nil)

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	_, err := issuer.Submit(ctx)
	require.ErrorIs(t, err, domain.ErrConfigUnavailable)
	require.Equal(t, StateFailed, issuer.State())
	require.Zero(t, minter.calls.Load(), "mint endpoint never contacted without a token")
}

func TestIssuerStaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	minter := &fakeMinter{
		resp:  gateapi.AddVisitorResponse{CardNo: "old", GatesResult: []gateapi.GateResult{{Success: true}}},
		block: make(chan struct{}),
	}
	issuer, _ := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, nil)

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	done := make(chan error, 1)
	go func() {
		_, err := issuer.Submit(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool {
		return issuer.State() == StateSubmitting
	}, time.Second, time.Millisecond)

	// A newer attempt supersedes the one whose response is still in flight.
	issuer.Reset()
	close(minter.block)

	require.ErrorIs(t, <-done, domain.ErrAttemptSuperseded)
	require.Equal(t, StateSelectingGate, issuer.State())
	require.Nil(t, issuer.Pass())
}

func TestIssuerIssuedIsTerminal(t *testing.T) {
	t.Parallel()

	minter := &fakeMinter{resp: gateapi.AddVisitorResponse{
		CardNo:      "998877",
		GatesResult: []gateapi.GateResult{{Success: true}},
	}}
	issuer, _ := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, nil)

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))
	_, err := issuer.Submit(ctx)
	require.NoError(t, err)

	// No transition out of Issued except a full restart.
	require.ErrorIs(t, issuer.SelectGate(ctx, 4), ErrWrongState)
	_, err = issuer.Submit(ctx)
	require.ErrorIs(t, err, ErrWrongState)

	issuer.Begin(testResident())
	require.Equal(t, StateSelectingGate, issuer.State())
	require.Empty(t, issuer.VisitorName(), "no stale visitor name leaks into the next pass")
	require.Equal(t, domain.GateNone, issuer.SelectedGate())
	require.Nil(t, issuer.Pass())
}

type failingCapturer struct{}

func (failingCapturer) Capture(pass domain.VisitorPass, resident domain.ResidentIdentity) ([]byte, error) {
	return nil, context.DeadlineExceeded
}

func TestIssuerCaptureFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	minter := &fakeMinter{resp: gateapi.AddVisitorResponse{
		CardNo:      "998877",
		GatesResult: []gateapi.GateResult{{Success: true}},
	}}
	issuer, alerts := newTestIssuer(t, &fakeResolver{cfg: openGates(), token: gateapi.SharedToken{Token: "x"}}, minter, func(c *IssuerConfig) {
		c.Capturer = failingCapturer{}
	})

	ctx := context.Background()
	require.NoError(t, issuer.SelectGate(ctx, 1))
	require.NoError(t, issuer.SetVisitorName("Ali Hassan"))

	pass, err := issuer.Submit(ctx)
	require.NoError(t, err, "export failure must not fail issuance")
	require.Equal(t, StateIssued, issuer.State())
	require.Equal(t, "998877", pass.CardNumber)
	require.Nil(t, issuer.Card())
	require.NotEmpty(t, alerts.Alerts(), "export failure surfaces as a non-fatal alert")
}
