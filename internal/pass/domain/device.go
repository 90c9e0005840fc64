package domain

import "github.com/google/uuid"

// DeviceBinding is the randomly generated identifier tying this install to
// the resident's device-count ceiling. It is created lazily on first use,
// persisted independently of the authenticated session, and survives logout.
type DeviceBinding struct {
	ID string
}

// NewDeviceBinding mints a fresh UUID-shaped binding.
func NewDeviceBinding() DeviceBinding {
	return DeviceBinding{ID: uuid.NewString()}
}
