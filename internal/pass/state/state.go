// Package state holds the process-wide mutable application state: the
// current resident, the alert queue and the global loading flag. All
// mutation goes through Dispatch with a tagged action; nothing writes
// fields directly, preserving a single-writer discipline even though many
// surfaces read.
package state

import (
	"sync"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
)

// Severity grades an alert.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// Alert is one entry of the global notification channel.
type Alert struct {
	Severity Severity
	Title    string
	Message  string
}

// Action is the closed set of state mutations.
type Action interface{ isAction() }

// SetResident installs the authenticated resident.
type SetResident struct{ Resident domain.ResidentIdentity }

// ClearResident removes the session's resident on logout or rejection.
type ClearResident struct{}

// PushAlert appends to the alert queue.
type PushAlert struct{ Alert Alert }

// ShiftAlert removes the oldest alert after it has been displayed.
type ShiftAlert struct{}

// SetLoading flips the global loading flag.
type SetLoading struct{ Loading bool }

func (SetResident) isAction()   {}
func (ClearResident) isAction() {}
func (PushAlert) isAction()     {}
func (ShiftAlert) isAction()    {}
func (SetLoading) isAction()    {}

// Store is the application state container.
type Store struct {
	mu       sync.Mutex
	resident *domain.ResidentIdentity
	alerts   []Alert
	loading  bool
}

func NewStore() *Store {
	return &Store{}
}

// Dispatch applies one action. Unknown action types are impossible by
// construction of the Action interface.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch act := a.(type) {
	case SetResident:
		r := act.Resident
		s.resident = &r
	case ClearResident:
		s.resident = nil
	case PushAlert:
		s.alerts = append(s.alerts, act.Alert)
	case ShiftAlert:
		if len(s.alerts) > 0 {
			s.alerts = s.alerts[1:]
		}
	case SetLoading:
		s.loading = act.Loading
	}
}

// Resident returns a copy of the current resident, or nil when logged out.
func (s *Store) Resident() *domain.ResidentIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resident == nil {
		return nil
	}
	r := *s.resident
	return &r
}

// Alerts returns a snapshot of the alert queue.
func (s *Store) Alerts() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Loading reports the global loading flag.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
