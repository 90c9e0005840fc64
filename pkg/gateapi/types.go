package gateapi

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Auth API types
// ============================================================================

// LoginRequest is the credential payload for POST /api/auth/login.
type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// LoginResponse is the login result. The two Requires* flags signal account
// states that block the session even though the credentials were accepted.
type LoginResponse struct {
	Success                   bool     `json:"success"`
	Token                     string   `json:"token"`
	User                      UserBlob `json:"user"`
	RequiresEmailVerification bool     `json:"requiresEmailVerification,omitempty"`
	RequiresEmail             bool     `json:"requiresEmail,omitempty"`
}

// UserBlob is the serialized user object returned by the Auth API and cached
// locally for the session's lifetime.
type UserBlob struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// RegisterRequest creates a new resident account pending verification.
type RegisterRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Building    int    `json:"building"`
	Flat        int    `json:"flat"`
	UnitType    string `json:"unitType"` // "owner" or "renter"
	Email       string `json:"email,omitempty"`
}

// RegisterResponse carries pre-signed blob URLs for the ownership documents
// the applicant must upload to complete registration.
type RegisterResponse struct {
	Success    bool     `json:"success"`
	UploadURLs []string `json:"uploadUrls,omitempty"`
}

// ============================================================================
// Property/Data API types
// ============================================================================

// Host is the normalized property-search result. The wire shape varies
// (`host`, `Host`, or a bare array); SearchProperty folds every variant into
// this one struct so shape variance never leaks past the client boundary.
type Host struct {
	HostID        string `json:"hostId"`
	Name          string `json:"name"`
	Building      int    `json:"building"`
	Flat          int    `json:"flat"`
	UnitType      string `json:"unitType"`
	Phone         string `json:"phone"`
	IsVerified    bool   `json:"isVerified"`
	RentalEndDate string `json:"rentalEndDate,omitempty"` // RFC 3339, empty for owners
}

// SharedToken is the short-lived bearer credential plus the API version the
// server requires alongside it. Fetched fresh per issuance attempt, never
// cached.
type SharedToken struct {
	Token   string
	Version string
}

// AddVisitorRequest mints a visitor card for one gate.
type AddVisitorRequest struct {
	HostID string `json:"hostId"`
	GateID int    `json:"gateId"`
	Name   string `json:"name"`
}

// GateResult is one entry of the per-gate result array embedded in a mint
// response. The first entry's Success flag is authoritative: false means the
// pass was refused even when the HTTP layer reported 200.
type GateResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CardNumber is the opaque scannable credential. The server emits it as a
// JSON string or a bare number depending on deployment; both decode to the
// string form.
type CardNumber string

func (c *CardNumber) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*c = CardNumber(asString)
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("card number: %w", err)
	}
	*c = CardNumber(asNumber.String())
	return nil
}

// AddVisitorResponse is the mint result.
type AddVisitorResponse struct {
	CardNo      CardNumber   `json:"cardNo"`
	GatesResult []GateResult `json:"gatesResult"`
}

// RegisterDeviceRequest binds a device identifier to a resident.
type RegisterDeviceRequest struct {
	HostID   string `json:"hostId"`
	DeviceID string `json:"deviceId"`
	Platform string `json:"platform"`
}

// RemoveDeviceRequest releases a device binding.
type RemoveDeviceRequest struct {
	HostID   string `json:"hostId"`
	DeviceID string `json:"deviceId"`
}

// NotificationTokenRequest stores or deletes a push-notification token.
type NotificationTokenRequest struct {
	HostID   string `json:"hostId"`
	DeviceID string `json:"deviceId"`
	Token    string `json:"token,omitempty"`
}
