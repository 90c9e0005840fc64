// Package gateapi is the typed client for the compound's two REST API
// groups: the Auth API (login, token verification, registration) and the
// Property/Data API (property lookup, device registry, remote config,
// visitor minting, notification tokens). Both are opaque collaborators;
// this package owns the wire contract and normalizes its quirks so callers
// never see them.
package gateapi

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTimeout is the per-call deadline for every call except visitor
	// minting and document uploads, which carry their own longer deadline
	// (see MintTimeout). Deadlines are enforced per request through the
	// context, never through http.Client.Timeout: a transport-wide timeout
	// would silently cap the longer calls.
	DefaultTimeout = 10 * time.Second

	// MintTimeout is the client-side ceiling on the AddVisitor call and on
	// blob uploads, after which the attempt is treated as a generic network
	// failure.
	MintTimeout = 30 * time.Second

	// BaselineAPIVersion is assumed when the remote version document is
	// absent.
	BaselineAPIVersion = "1.0.0"

	headerAPIVersion    = "X-API-Version"
	headerRequestSource = "X-Request-Source"
	requestSource       = "gatepass-app"
)

// Client talks to the Auth API and the Property/Data API. The zero value is
// not usable; construct with NewClient.
type Client struct {
	AuthBaseURL string
	DataBaseURL string

	// HTTPClient must not carry its own Timeout; per-call deadlines come
	// from Timeout and MintTimeout via the request context.
	HTTPClient *http.Client

	// Timeout bounds every call except minting and uploads.
	Timeout time.Duration

	// MintTimeout bounds AddVisitor and UploadBlob.
	MintTimeout time.Duration

	// APIVersion is sent as X-API-Version on Data API calls. It is replaced
	// whenever a fresh shared token (which carries the required version) is
	// fetched.
	APIVersion string

	// Locale is sent as Accept-Language on Data API calls.
	Locale string

	mu     sync.RWMutex
	bearer string
}

// NewClient creates a client for the two API groups.
func NewClient(authBaseURL, dataBaseURL string) *Client {
	return &Client{
		AuthBaseURL: strings.TrimSuffix(authBaseURL, "/"),
		DataBaseURL: strings.TrimSuffix(dataBaseURL, "/"),
		HTTPClient:  &http.Client{},
		Timeout:     DefaultTimeout,
		MintTimeout: MintTimeout,
		APIVersion:  BaselineAPIVersion,
		Locale:      "en",
	}
}

// SetBearer installs (or clears, with "") the session bearer token attached
// to subsequent privileged calls.
func (c *Client) SetBearer(token string) {
	c.mu.Lock()
	c.bearer = token
	c.mu.Unlock()
}

// Bearer returns the currently installed session token.
func (c *Client) Bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

func (c *Client) authURL(path string) string { return c.AuthBaseURL + path }
func (c *Client) dataURL(path string) string { return c.DataBaseURL + path }
