package gateapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// dailyLimitSentinel is the exact body the Data API returns (HTTP 400) when
// the resident has exhausted the day's visitor-creation allowance. Matching
// it verbatim is part of the wire contract.
const dailyLimitSentinel = "Visitor creation limit reached for today."

var (
	// ErrDailyLimitReached is the daily visitor-creation ceiling.
	ErrDailyLimitReached = errors.New("gateapi: visitor creation limit reached for today")

	// ErrDeviceLimitReached means the resident's device-count ceiling is hit.
	ErrDeviceLimitReached = errors.New("gateapi: device limit reached")

	// ErrTokenMissing means the shared-token document is absent from the
	// config store. This is a hard failure for pass issuance.
	ErrTokenMissing = errors.New("gateapi: shared token document missing")
)

// APIError is a non-2xx response that did not match a known sentinel.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateapi: %s: %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("gateapi: HTTP %d: %s", e.StatusCode, e.Message)
}

// parseErrorResponse turns a non-success response into a typed error. Known
// server sentinels are matched first; everything else becomes an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	text := strings.TrimSpace(string(body))
	// The daily-limit sentinel arrives either raw or as a JSON string.
	if unquoted, err := strconvUnquote(text); err == nil {
		text = unquoted
	}
	if resp.StatusCode == http.StatusBadRequest && text == dailyLimitSentinel {
		return ErrDailyLimitReached
	}

	var payload struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		msg := payload.Message
		if msg == "" {
			msg = payload.Error
		}
		if isDeviceLimitMessage(msg) || payload.Code == "device_limit_reached" {
			return ErrDeviceLimitReached
		}
		if msg != "" || payload.Code != "" {
			return &APIError{StatusCode: resp.StatusCode, Code: payload.Code, Message: msg}
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
}

func isDeviceLimitMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "device limit")
}

// strconvUnquote unquotes a JSON string literal, returning an error for
// anything that is not one.
func strconvUnquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("not a quoted string")
	}
	var out string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return "", err
	}
	return out, nil
}
