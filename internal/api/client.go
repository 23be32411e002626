package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Codealike/Codealike-plugins-core/internal/config"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

const (
	apiPrefix = "/api/v2"

	headerClient   = "X-Eauth-Client"
	headerIdentity = "X-Api-Identity"
	headerToken    = "X-Api-Token"

	requestTimeout = 30 * time.Second
)

var (
	// ErrUnauthorized is returned when the collector rejects the credentials
	ErrUnauthorized = errors.New("user token was rejected by the server")

	// ErrNoCredentials is returned when a request needs a token and none was set
	ErrNoCredentials = errors.New("api client has no user token")
)

// StatusError is a non-2xx response
type StatusError struct {
	Route      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status code %d", e.Route, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status code %d: %s", e.Route, e.StatusCode, e.Body)
}

// Client talks to the Codealike collector
type Client struct {
	baseURL    string
	clientID   string
	clock      util.Clock
	httpClient *http.Client

	mu    sync.RWMutex
	token config.Token
}

// NewClient returns a client for the collector at apiURL (scheme and host,
// e.g. https://codealike.com), identifying itself as clientID.
func NewClient(apiURL, clientID string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(apiURL, "/") + apiPrefix,
		clientID: clientID,
		clock:    util.GetTimeProvider(),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// SetToken installs the credentials sent with every authenticated request
func (c *Client) SetToken(token config.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Disconnect forgets the credentials
func (c *Client) Disconnect() {
	c.SetToken(config.Token{})
}

func (c *Client) credentials() (config.Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token.Identity == "" {
		return config.Token{}, ErrNoCredentials
	}
	return c.token, nil
}

// Authenticate checks that the configured token is accepted
func (c *Client) Authenticate(ctx context.Context) error {
	tok, err := c.credentials()
	if err != nil {
		return err
	}
	route := "account/" + url.PathEscape(tok.Identity) + "/authorized"
	if _, err := c.do(ctx, http.MethodGet, route, nil); err != nil {
		return err
	}
	util.LogInfo("Authenticated against collector", util.F("identity", tok.Identity))
	return nil
}

// GetProfile returns the authenticated user's profile
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	tok, err := c.credentials()
	if err != nil {
		return nil, err
	}
	route := "account/" + url.PathEscape(tok.Identity) + "/profile"
	body, err := c.do(ctx, http.MethodGet, route, nil)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := sonic.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &profile, nil
}

// RegisterProject announces a new solution to the collector
func (c *Client) RegisterProject(ctx context.Context, projectID, name string) error {
	payload, err := sonic.Marshal(SolutionContextInfo{
		SolutionID:   projectID,
		Name:         name,
		CreationTime: util.FormatTimestamp(c.clock.Now()),
	})
	if err != nil {
		return fmt.Errorf("failed to encode solution: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "solution", payload)
	return err
}

// PostActivity sends one activity batch
func (c *Client) PostActivity(ctx context.Context, info ActivityInfo) error {
	payload, err := EncodeActivity(info)
	if err != nil {
		return err
	}
	return c.PostActivityPayload(ctx, payload)
}

// PostActivityPayload sends an already encoded ActivityInfo
func (c *Client) PostActivityPayload(ctx context.Context, payload []byte) error {
	_, err := c.do(ctx, http.MethodPost, "activity", payload)
	return err
}

// EncodeActivity renders info as the JSON body of POST activity
func EncodeActivity(info ActivityInfo) ([]byte, error) {
	payload, err := sonic.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity: %w", err)
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, method, route string, payload []byte) ([]byte, error) {
	tok, err := c.credentials()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+route, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerClient, c.clientID)
	req.Header.Set(headerIdentity, tok.Identity)
	req.Header.Set(headerToken, tok.Secret)

	util.LogDebugf("%s %s", method, route)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, route, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", route, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Route: route, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}
