package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
	"github.com/aussiebroadwan/gatepass/internal/pass/l10n"
	"github.com/aussiebroadwan/gatepass/internal/pass/state"
	"github.com/aussiebroadwan/gatepass/pkg/gateapi"
	"github.com/oklog/ulid/v2"
)

// IssueState names the orchestrator's position in the issuance workflow.
type IssueState string

const (
	StateSelectingGate IssueState = "selecting_gate"
	StateEnteringName  IssueState = "entering_visitor_name"
	StateSubmitting    IssueState = "submitting"
	StateIssued        IssueState = "issued"
	StateFailed        IssueState = "failed"
)

// ErrWrongState rejects an operation invoked outside its state.
var ErrWrongState = errors.New("operation not valid in current state")

// TokenSource supplies a fresh shared token per issuance attempt.
type TokenSource interface {
	GateConfig(ctx context.Context) domain.GateConfig
	SharedToken(ctx context.Context) (gateapi.SharedToken, error)
}

// VisitorMinter is the slice of the Data API that mints visitor cards.
type VisitorMinter interface {
	AddVisitor(ctx context.Context, token gateapi.SharedToken, hostID string, gateID int, name string) (gateapi.AddVisitorResponse, error)
}

// CardCapturer rasterizes an issued pass. Capture failures never invalidate
// the pass.
type CardCapturer interface {
	Capture(pass domain.VisitorPass, resident domain.ResidentIdentity) ([]byte, error)
}

// IssuerConfig wires an Issuer.
type IssuerConfig struct {
	Resolver  TokenSource
	Visitors  VisitorMinter
	Capturer  CardCapturer // optional
	Analytics Analytics    // optional
	Alerts    *state.Store // optional
	Logger    *slog.Logger
	Locale    l10n.Lang
	Validity  time.Duration    // defaults to domain.DefaultValidity
	Clock     func() time.Time // defaults to time.Now
}

// Issuer drives a single pass attempt through the state machine
//
//	SelectingGate -> EnteringVisitorName -> Submitting -> Issued | Failed
//
// All transitions are serialized under one mutex; the network call inside
// Submit runs unlocked and its result is fenced by the attempt id, so a
// response that lands after Reset or a newer attempt is discarded.
type Issuer struct {
	resolver  TokenSource
	visitors  VisitorMinter
	capturer  CardCapturer
	analytics Analytics
	alerts    *state.Store
	logger    *slog.Logger
	locale    l10n.Lang
	validity  time.Duration
	clock     func() time.Time

	mu          sync.Mutex
	st          IssueState
	attempt     ulid.ULID
	resident    domain.ResidentIdentity
	gate        domain.GateID
	visitorName string
	pass        *domain.VisitorPass
	card        []byte
	lastErr     error
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.Validity <= 0 {
		cfg.Validity = domain.DefaultValidity
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Locale == "" {
		cfg.Locale = l10n.EN
	}
	return &Issuer{
		resolver:  cfg.Resolver,
		visitors:  cfg.Visitors,
		capturer:  cfg.Capturer,
		analytics: cfg.Analytics,
		alerts:    cfg.Alerts,
		logger:    cfg.Logger,
		locale:    cfg.Locale,
		validity:  cfg.Validity,
		clock:     cfg.Clock,
		st:        StateSelectingGate,
	}
}

// Begin starts a fresh attempt for the given resident, discarding anything
// left from the previous one. Issuing a second pass always goes back through
// here, so no stale gate or visitor name can leak into it.
func (i *Issuer) Begin(resident domain.ResidentIdentity) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.resident = resident
	i.reset()
}

// Reset returns the current attempt to gate selection.
func (i *Issuer) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.reset()
}

// reset must be called with the mutex held.
func (i *Issuer) reset() {
	i.st = StateSelectingGate
	i.attempt = ulid.Make()
	i.gate = domain.GateNone
	i.visitorName = ""
	i.pass = nil
	i.card = nil
	i.lastErr = nil
}

// SelectGate chooses a gate and advances to visitor-name entry. A gate whose
// remote enabled flag is false is refused. Selection is also the retry entry
// point out of Failed: the visitor name entered for the failed attempt stays
// in place so only the gate needs re-choosing.
func (i *Issuer) SelectGate(ctx context.Context, id domain.GateID) error {
	cfg := i.resolver.GateConfig(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.st != StateSelectingGate && i.st != StateFailed {
		return fmt.Errorf("%w: %s", ErrWrongState, i.st)
	}
	if !cfg.Selectable(id) {
		return domain.ErrGateDisabled
	}

	i.gate = id
	i.st = StateEnteringName
	i.lastErr = nil
	return nil
}

// SetVisitorName records the visitor name while in name entry. Validation
// happens on submit so the user can keep editing.
func (i *Issuer) SetVisitorName(name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.st != StateEnteringName {
		return fmt.Errorf("%w: %s", ErrWrongState, i.st)
	}
	i.visitorName = name
	return nil
}

// Submit runs the mint call for the current attempt.
//
// Guards, in order: a duplicate trigger while a submission is in flight
// returns ErrSubmitInFlight and does nothing (at most one mint call per
// attempt); an empty trimmed visitor name returns ErrEmptyVisitorName and
// leaves the machine in name entry. A shared-token failure aborts before the
// mint endpoint is ever contacted.
//
// A 200 mint response whose first gatesResult entry has success=false is a
// business failure: the machine moves to Failed and the gate selection is
// reset to none. The visitor name is deliberately left in place, so a retry
// only needs a fresh SelectGate before submitting again.
func (i *Issuer) Submit(ctx context.Context) (*domain.VisitorPass, error) {
	i.mu.Lock()
	if i.st == StateSubmitting {
		i.mu.Unlock()
		return nil, domain.ErrSubmitInFlight
	}
	if i.st != StateEnteringName {
		st := i.st
		i.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrWrongState, st)
	}

	name := strings.TrimSpace(i.visitorName)
	if name == "" {
		i.mu.Unlock()
		return nil, domain.ErrEmptyVisitorName
	}

	attempt := i.attempt
	gate := i.gate
	resident := i.resident
	i.st = StateSubmitting
	i.mu.Unlock()

	token, err := i.resolver.SharedToken(ctx)
	if err != nil {
		return nil, i.fail(attempt, err, false)
	}

	resp, err := i.visitors.AddVisitor(ctx, token, resident.HostID, int(gate), name)
	if err != nil {
		if errors.Is(err, gateapi.ErrDailyLimitReached) {
			err = fmt.Errorf("%w: %v", domain.ErrDailyLimit, err)
		}
		return nil, i.fail(attempt, err, false)
	}

	if len(resp.GatesResult) == 0 || !resp.GatesResult[0].Success {
		return nil, i.fail(attempt, domain.ErrGateRejected, true)
	}

	issuedAt := i.clock()
	pass := domain.NewVisitorPass(resident.HostID, gate, name, string(resp.CardNo), issuedAt, i.validity)

	i.mu.Lock()
	if i.attempt != attempt || i.st != StateSubmitting {
		i.mu.Unlock()
		return nil, domain.ErrAttemptSuperseded
	}
	i.st = StateIssued
	i.pass = &pass
	i.mu.Unlock()

	if i.analytics != nil {
		i.analytics.PassIssued(ctx, resident.HostID, gate, name)
	}
	i.captureCard(pass, resident)

	return &pass, nil
}

// fail records the failure for the given attempt, optionally resetting the
// gate selection, and pushes a global alert. Stale attempts are ignored.
func (i *Issuer) fail(attempt ulid.ULID, err error, resetGate bool) error {
	i.mu.Lock()
	if i.attempt != attempt || i.st != StateSubmitting {
		i.mu.Unlock()
		return domain.ErrAttemptSuperseded
	}
	i.st = StateFailed
	i.lastErr = err
	if resetGate {
		i.gate = domain.GateNone
	}
	i.mu.Unlock()

	i.logger.Warn("pass issuance failed", "error", err, "gate_reset", resetGate)
	if i.alerts != nil && domain.Classify(err) != domain.KindValidation {
		i.alerts.Dispatch(state.PushAlert{Alert: state.Alert{
			Severity: state.SeverityError,
			Title:    l10n.Title(err, i.locale),
			Message:  l10n.Message(err, i.locale),
		}})
	}
	return err
}

// captureCard renders the issued pass. Export problems are reported as
// non-fatal alerts; the pass stays issued and displayed.
func (i *Issuer) captureCard(pass domain.VisitorPass, resident domain.ResidentIdentity) {
	if i.capturer == nil {
		return
	}
	card, err := i.capturer.Capture(pass, resident)
	if err != nil {
		i.logger.Warn("pass capture failed", "error", err)
		if i.alerts != nil {
			i.alerts.Dispatch(state.PushAlert{Alert: state.Alert{
				Severity: state.SeverityWarning,
				Title:    l10n.Title(err, i.locale),
				Message:  l10n.Message(err, i.locale),
			}})
		}
		return
	}

	i.mu.Lock()
	if i.pass != nil && i.pass.CardNumber == pass.CardNumber {
		i.card = card
	}
	i.mu.Unlock()
}

// State returns the current machine state.
func (i *Issuer) State() IssueState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.st
}

// SelectedGate returns the chosen gate, GateNone after a business failure.
func (i *Issuer) SelectedGate() domain.GateID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.gate
}

// VisitorName returns the entered name as typed.
func (i *Issuer) VisitorName() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.visitorName
}

// Pass returns the issued pass, nil before Issued.
func (i *Issuer) Pass() *domain.VisitorPass {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pass
}

// Card returns the rendered card image, nil when capture was skipped or
// failed.
func (i *Issuer) Card() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.card
}

// Err returns the failure recorded by the last attempt.
func (i *Issuer) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastErr
}
