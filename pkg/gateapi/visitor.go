package gateapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AddVisitor mints a visitor card for the given gate. The call carries the
// freshly fetched shared token (not the session bearer) and the API version
// the token came with, and is bounded by the mint deadline alone, not by the
// shorter general-call deadline; once dispatched it cannot be cancelled
// server-side, so callers must fence stale responses themselves.
//
// An HTTP 200 response is not sufficient for success: the first entry of the
// embedded gatesResult array is the authoritative business outcome and must
// be checked by the caller.
func (c *Client) AddVisitor(
	ctx context.Context,
	token SharedToken,
	hostID string,
	gateID int,
	name string,
) (AddVisitorResponse, error) {
	deadline := c.MintTimeout
	if deadline <= 0 {
		deadline = MintTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	payload, err := json.Marshal(AddVisitorRequest{HostID: hostID, GateID: gateID, Name: name})
	if err != nil {
		return AddVisitorResponse{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dataURL("/Visitor/AddVisitor"), bytes.NewReader(payload))
	if err != nil {
		return AddVisitorResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIVersion, token.Version)
	req.Header.Set("Accept-Language", c.Locale)
	req.Header.Set(headerRequestSource, requestSource)
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return AddVisitorResponse{}, fmt.Errorf("send request: %w", err)
	}

	var out AddVisitorResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return AddVisitorResponse{}, err
	}
	return out, nil
}
