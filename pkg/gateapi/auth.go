package gateapi

import (
	"context"
	"net/http"
)

// Login exchanges phone credentials for a bearer token and the serialized
// user object.
func (c *Client) Login(ctx context.Context, phone, password string) (LoginResponse, error) {
	resp, err := c.doAuth(ctx, http.MethodPost, "/api/auth/login", LoginRequest{
		PhoneNumber: phone,
		Password:    password,
	})
	if err != nil {
		return LoginResponse{}, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return LoginResponse{}, err
	}
	return out, nil
}

// VerifyToken asks the Auth API whether the given bearer token is still
// valid. Validity is signalled by HTTP status alone: 200 means valid, 401
// means invalid (not an error); anything else is a transport-level failure.
func (c *Client) VerifyToken(ctx context.Context, token string) (bool, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, c.authURL("/api/auth/verify-token"), nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized:
		return false, nil
	default:
		return false, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
}

// Register submits a new resident application and returns the pre-signed
// URLs for the required document uploads.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	resp, err := c.doAuth(ctx, http.MethodPost, "/api/auth/register", req)
	if err != nil {
		return RegisterResponse{}, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return RegisterResponse{}, err
	}
	return out, nil
}

// ForgotPassword starts the password-reset flow for the given phone number.
func (c *Client) ForgotPassword(ctx context.Context, phone string) error {
	resp, err := c.doAuth(ctx, http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"phoneNumber": phone,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// ResetPassword completes the password-reset flow with the emailed code.
func (c *Client) ResetPassword(ctx context.Context, code, newPassword string) error {
	resp, err := c.doAuth(ctx, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"code":        code,
		"newPassword": newPassword,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// VerifyEmail confirms an email address with the code sent to it.
func (c *Client) VerifyEmail(ctx context.Context, code string) error {
	resp, err := c.doAuth(ctx, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"code": code,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// AddEmail attaches an email address to an account that has none.
func (c *Client) AddEmail(ctx context.Context, email string) error {
	resp, err := c.doAuth(ctx, http.MethodPost, "/api/auth/add-email", map[string]string{
		"email": email,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// SendEmailVerification re-sends the verification email.
func (c *Client) SendEmailVerification(ctx context.Context) error {
	resp, err := c.doAuth(ctx, http.MethodPost, "/api/auth/send-email-verification", nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
