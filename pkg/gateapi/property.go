package gateapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// SearchProperty looks up the property record bound to a phone number.
//
// Older deployments of the Data API disagree on the envelope: the host object
// may arrive under "host", under "Host", or as the first element of a bare
// array. All three shapes are folded into one Host here so callers never see
// the variance.
func (c *Client) SearchProperty(ctx context.Context, phone string) (Host, error) {
	path := "/Property/search?phone=" + url.QueryEscape(phone)
	resp, err := c.doData(ctx, http.MethodGet, path, nil)
	if err != nil {
		return Host{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Host{}, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Host{}, parseErrorResponse(resp, body)
	}

	return normalizeHost(body)
}

// normalizeHost extracts the host record from any of the known envelope
// shapes.
func normalizeHost(raw json.RawMessage) (Host, error) {
	// Bare array shape: [ {host...} ]
	var list []Host
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return Host{}, fmt.Errorf("gateapi: property search returned no results")
		}
		return list[0], nil
	}

	var envelope struct {
		Success   bool            `json:"success"`
		Host      json.RawMessage `json:"host"`
		HostUpper json.RawMessage `json:"Host"`
		HostID    string          `json:"hostId"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Host{}, fmt.Errorf("gateapi: decode property search: %w", err)
	}

	payload := envelope.Host
	if len(payload) == 0 {
		payload = envelope.HostUpper
	}
	if len(payload) == 0 {
		return Host{}, fmt.Errorf("gateapi: property search returned no host")
	}

	var host Host
	if err := json.Unmarshal(payload, &host); err != nil {
		return Host{}, fmt.Errorf("gateapi: decode host: %w", err)
	}
	if host.HostID == "" {
		host.HostID = envelope.HostID
	}
	return host, nil
}

// RegisterDevice binds this install's device identifier to the resident. The
// server enforces a per-resident device ceiling; hitting it returns
// ErrDeviceLimitReached.
func (c *Client) RegisterDevice(ctx context.Context, hostID, deviceID, platform string) error {
	resp, err := c.doData(ctx, http.MethodPost, "/Property/register-device", RegisterDeviceRequest{
		HostID:   hostID,
		DeviceID: deviceID,
		Platform: platform,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// RemoveDevice releases the device binding on logout.
func (c *Client) RemoveDevice(ctx context.Context, hostID, deviceID string) error {
	resp, err := c.doData(ctx, http.MethodPost, "/Property/remove-device", RemoveDeviceRequest{
		HostID:   hostID,
		DeviceID: deviceID,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
