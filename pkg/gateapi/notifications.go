package gateapi

import (
	"context"
	"net/http"
)

// StoreNotificationToken registers a push-notification token for this
// device. The token itself is opaque; the push provider is external.
func (c *Client) StoreNotificationToken(ctx context.Context, hostID, deviceID, token string) error {
	resp, err := c.doData(ctx, http.MethodPost, "/notifications/store-token", NotificationTokenRequest{
		HostID:   hostID,
		DeviceID: deviceID,
		Token:    token,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// DeleteNotificationToken removes this device's push token on logout.
func (c *Client) DeleteNotificationToken(ctx context.Context, hostID, deviceID string) error {
	resp, err := c.doData(ctx, http.MethodPost, "/notifications/delete-token", NotificationTokenRequest{
		HostID:   hostID,
		DeviceID: deviceID,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
