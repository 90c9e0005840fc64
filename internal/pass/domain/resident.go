package domain

import (
	"fmt"
	"strings"
	"time"
)

// ResidentIdentity is the unit-owning or renting user who issues passes.
// It is created by the external registration workflow and loaded into the
// session on a successful login; it is never persisted outside the sealed
// session record.
type ResidentIdentity struct {
	HostID       string     // stable host identifier, "{building}-{flat}{typeInitial}"
	Name         string     // display name
	Building     int        // building number
	Flat         int        // flat number
	UnitType     string     // "owner" or "renter"
	Phone        string     // login phone number
	Verified     bool       // set server-side after document review
	RentalExpiry *time.Time // nil for owners or open-ended rentals
}

// FormatHostID builds the canonical host identifier from the unit details,
// e.g. building 12, flat 4, type "owner" -> "12-4o".
func FormatHostID(building, flat int, unitType string) string {
	initial := "o"
	if t := strings.TrimSpace(strings.ToLower(unitType)); t != "" {
		initial = t[:1]
	}
	return fmt.Sprintf("%d-%d%s", building, flat, initial)
}

// Entitled reports whether the resident may issue passes right now. It is
// the single entitlement check shared by the login and session-restore
// paths: the account must be verified and any rental period must not have
// ended before now.
func (r ResidentIdentity) Entitled(now time.Time) error {
	if !r.Verified {
		return ErrNotVerified
	}
	if r.RentalExpiry != nil && r.RentalExpiry.Before(now) {
		return ErrRentalExpired
	}
	return nil
}
