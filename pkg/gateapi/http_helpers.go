package gateapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doJSON performs a request with a JSON body (nil payload sends no body)
// under the client's per-call deadline. extraHeaders win over the defaults.
// The deadline's cancel is released when the response body is closed.
func (c *Client) doJSON(
	ctx context.Context,
	method, url string,
	payload any,
	extraHeaders map[string]string,
) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	cancel := func() {}
	if c.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("send request: %w", err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases a request-scoped cancel together with the body it
// guards.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// doAuth performs a request against the Auth API.
func (c *Client) doAuth(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	headers := map[string]string{}
	if b := c.Bearer(); b != "" {
		headers["Authorization"] = "Bearer " + b
	}
	return c.doJSON(ctx, method, c.authURL(path), payload, headers)
}

// doData performs a request against the Property/Data API with the required
// header set: API version, locale, internal-source marker and bearer token
// when one is installed.
func (c *Client) doData(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	headers := map[string]string{
		headerAPIVersion:    c.APIVersion,
		"Accept-Language":   c.Locale,
		headerRequestSource: requestSource,
	}
	if b := c.Bearer(); b != "" {
		headers["Authorization"] = "Bearer " + b
	}
	return c.doJSON(ctx, method, c.dataURL(path), payload, headers)
}

// decodeJSON reads the full body once, routes non-expected statuses through
// the typed error parser, and unmarshals successful responses into target
// (which may be nil to discard the body).
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, body)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
