package domain

import "time"

// DefaultValidity is the fixed validity window applied to a freshly issued
// pass unless reconfigured.
const DefaultValidity = 24 * time.Hour

// expiryLayout is the display format for a pass expiry. It deliberately drops
// sub-minute precision; re-parsing a formatted expiry lands within a minute
// of the original instant.
const expiryLayout = "2006-01-02 15:04 -0700"

// VisitorPass is the issued artifact binding a resident, a gate, a visitor
// name and the server-minted card number. The card number is the sole
// scannable credential; nothing else on the pass is presented to the gate
// scanner. A pass is never mutated after creation.
type VisitorPass struct {
	HostID      string
	Gate        GateID
	VisitorName string
	CardNumber  string // opaque, server-minted
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// NewVisitorPass builds a pass issued at the given instant with the given
// validity window.
func NewVisitorPass(hostID string, gate GateID, visitorName, cardNumber string, issuedAt time.Time, validity time.Duration) VisitorPass {
	if validity <= 0 {
		validity = DefaultValidity
	}
	return VisitorPass{
		HostID:      hostID,
		Gate:        gate,
		VisitorName: visitorName,
		CardNumber:  cardNumber,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(validity),
	}
}

// Valid reports whether the pass is still within its validity window.
func (p VisitorPass) Valid(at time.Time) bool {
	return !at.Before(p.IssuedAt) && at.Before(p.ExpiresAt)
}

// FormatExpiry renders the expiry instant for display.
func (p VisitorPass) FormatExpiry() string {
	return p.ExpiresAt.Format(expiryLayout)
}

// ParseExpiry reads back a displayed expiry string.
func ParseExpiry(s string) (time.Time, error) {
	return time.Parse(expiryLayout, s)
}
