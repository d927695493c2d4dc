package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// API is the remote surface the runtime consumes. Client implements it over
// HTTP; tests substitute fakes.
type API interface {
	// Login exchanges credentials for tokens and the user record.
	Login(ctx context.Context, in LoginInput) (*LoginResponse, error)
	// CurrentUser succeeds iff the stored token is still valid.
	CurrentUser(ctx context.Context) (*User, error)
	// Profile returns the signed-in user's profile.
	Profile(ctx context.Context) (*Profile, error)
	// MapToken issues an access token for the map provider.
	MapToken(ctx context.Context) (string, error)
}

const (
	loginPath       = "/api/auth/login/"
	currentUserPath = "/api/auth/user/"
	profilePath     = "/api/profile/"
	mapTokenPath    = "/api/mapbox-token/"

	maxErrorBody = 1 << 20
)

// Client talks to the attendance platform API.
type Client struct {
	baseURL string
	anon    *http.Client
	authed  *http.Client
	bus     *Bus
}

var _ API = (*Client)(nil)

// ClientOptions configures Client construction.
type ClientOptions struct {
	HTTPClient *http.Client
	Bus        *Bus
}

// ClientOption mutates ClientOptions.
type ClientOption func(*ClientOptions)

// WithHTTPClient overrides the base HTTP client. Its transport is wrapped for
// authenticated calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithExpiryBus makes the client publish session-expired whenever an
// authenticated call is answered with 401.
func WithExpiryBus(bus *Bus) ClientOption {
	return func(opts *ClientOptions) {
		opts.Bus = bus
	}
}

// NewClient creates a Client for the API at baseURL. Authenticated calls take
// their bearer token from tokens on every request.
func NewClient(baseURL string, tokens oauth2.TokenSource, optFns ...ClientOption) *Client {
	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	authed := &http.Client{
		Transport: &oauth2.Transport{
			Source: tokens,
			Base:   opts.HTTPClient.Transport,
		},
		Timeout:       opts.HTTPClient.Timeout,
		CheckRedirect: opts.HTTPClient.CheckRedirect,
		Jar:           opts.HTTPClient.Jar,
	}

	return &Client{
		baseURL: baseURL,
		anon:    opts.HTTPClient,
		authed:  authed,
		bus:     opts.Bus,
	}
}

// Login posts the normalized credentials to the login endpoint.
func (c *Client) Login(ctx context.Context, in LoginInput) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, c.anon, http.MethodPost, loginPath, in.Normalized(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser fetches the user the stored token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, c.authed, http.MethodGet, currentUserPath, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, c.authed, http.MethodGet, profilePath, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// MapToken requests a map provider token from the token-issuance endpoint.
func (c *Client) MapToken(ctx context.Context) (string, error) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, mapTokenPath, nil, &payload); err != nil {
		return "", err
	}
	return payload.Token, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: data}
		if apiErr.Unauthorized() && hc == c.authed && c.bus != nil {
			c.bus.Publish()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
