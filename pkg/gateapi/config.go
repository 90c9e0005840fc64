package gateapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// FetchGates returns the raw gate-availability document from the config
// store. Parsing into the fixed gate shape happens in the domain layer so a
// malformed document degrades there rather than here.
func (c *Client) FetchGates(ctx context.Context) ([]byte, error) {
	resp, err := c.doData(ctx, http.MethodGet, "/Config/gates", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp, body)
	}
	return body, nil
}

// FetchSASToken reads the shared-token document. An absent document (404 or
// an empty value) is ErrTokenMissing: without it no privileged call can be
// made and pass issuance must abort.
func (c *Client) FetchSASToken(ctx context.Context) (string, error) {
	resp, err := c.doData(ctx, http.MethodGet, "/Config/sas-token", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrTokenMissing
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", parseErrorResponse(resp, body)
	}

	token := decodeConfigValue(body)
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}

// FetchVersion reads the required API version document. Absence is not a
// failure; callers substitute BaselineAPIVersion.
func (c *Client) FetchVersion(ctx context.Context) (string, error) {
	resp, err := c.doData(ctx, http.MethodGet, "/Config/version", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", parseErrorResponse(resp, body)
	}
	return decodeConfigValue(body), nil
}

// decodeConfigValue extracts a scalar config document that may arrive as a
// bare string, a JSON string, or a {"value": ...} wrapper.
func decodeConfigValue(body []byte) string {
	text := strings.TrimSpace(string(body))

	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Value != "" {
		return wrapped.Value
	}

	var quoted string
	if err := json.Unmarshal(body, &quoted); err == nil {
		return strings.TrimSpace(quoted)
	}
	return text
}
