package domain

import "errors"

// Sentinel errors for the pass issuance workflow. Business-rule failures are
// distinct values so callers can map each to its own localized message;
// everything unrecognised falls through to the generic network bucket.
var (
	// ErrConfigUnavailable means the shared access token (or the config store
	// behind it) could not be fetched. Pass issuance aborts without calling
	// the mint endpoint.
	ErrConfigUnavailable = errors.New("shared config unavailable")

	// ErrEmptyVisitorName rejects a submission whose visitor name is empty
	// after trimming.
	ErrEmptyVisitorName = errors.New("visitor name is empty")

	// ErrGateDisabled rejects selection of a gate whose remote enabled flag
	// is false.
	ErrGateDisabled = errors.New("gate is disabled")

	// ErrGateRejected is the business failure hidden inside an HTTP 200 mint
	// response: the per-gate result array reported success=false.
	ErrGateRejected = errors.New("gate rejected the pass")

	// ErrDailyLimit is the server's fixed daily visitor-creation ceiling.
	ErrDailyLimit = errors.New("daily visitor limit reached")

	// ErrDeviceLimit means the resident already has the maximum number of
	// registered devices.
	ErrDeviceLimit = errors.New("device limit reached")

	// ErrNotVerified means the account has not passed server-side review.
	ErrNotVerified = errors.New("account not verified")

	// ErrRentalExpired means the resident's rental period has ended.
	ErrRentalExpired = errors.New("rental period expired")

	// ErrEmailUnverified means login succeeded upstream but the account
	// still requires email verification.
	ErrEmailUnverified = errors.New("email not verified")

	// ErrEmailMissing means the account has no email on file and one must be
	// added before login can complete.
	ErrEmailMissing = errors.New("email address required")

	// ErrSubmitInFlight is the idempotency guard: a submission is already in
	// flight for this attempt and the duplicate trigger is ignored.
	ErrSubmitInFlight = errors.New("submission already in flight")

	// ErrAttemptSuperseded marks a response that arrived after a newer
	// attempt replaced the one that issued the request.
	ErrAttemptSuperseded = errors.New("pass attempt superseded")
)

// ErrorKind buckets an error for presentation and propagation policy.
type ErrorKind int

const (
	// KindNetwork covers transport failures, timeouts and anything
	// unrecognised. Surfaced as a generic alert.
	KindNetwork ErrorKind = iota

	// KindConfig covers remote-config and shared-token failures.
	KindConfig

	// KindValidation covers locally detected input problems, resolved inline
	// and never dispatched to the global alert channel.
	KindValidation

	// KindBusinessRule covers server-enforced rules with specific messages.
	KindBusinessRule
)

// Classify maps an error to its presentation bucket.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrConfigUnavailable):
		return KindConfig
	case errors.Is(err, ErrEmptyVisitorName):
		return KindValidation
	case errors.Is(err, ErrGateDisabled),
		errors.Is(err, ErrGateRejected),
		errors.Is(err, ErrDailyLimit),
		errors.Is(err, ErrDeviceLimit),
		errors.Is(err, ErrNotVerified),
		errors.Is(err, ErrRentalExpired),
		errors.Is(err, ErrEmailUnverified),
		errors.Is(err, ErrEmailMissing):
		return KindBusinessRule
	default:
		return KindNetwork
	}
}
