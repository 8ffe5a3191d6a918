package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/inchronicle/go-stories/pkg/types"
)

// APIBasePath is the mount point every endpoint group hangs off.
const APIBasePath = "/api/v1"

// DefaultTimeout bounds a single HTTP attempt when no http.Client is
// supplied.
const DefaultTimeout = 30 * time.Second

// Config wires the client. BaseURL is the server origin; the /api/v1 prefix
// is appended when missing.
type Config struct {
	BaseURL string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	// Tokens persists the session. Defaults to an in-memory store.
	Tokens TokenStore
	// Navigator receives the login redirect when a session expires. Nil
	// disables navigation.
	Navigator Navigator
	Logger    types.Logger
}

// Client talks to the go-stories API. All methods are safe for concurrent
// use; a burst of 401s collapses into a single refresh call.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	nav     Navigator
	logger  types.Logger

	refreshMu sync.Mutex

	Auth       *AuthAPI
	Stories    *StoriesAPI
	Network    *NetworkAPI
	Workspaces *WorkspacesAPI
	Wallet     *WalletAPI
	Onboarding *OnboardingAPI
}

// New constructs a client for the given server.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("go-stories: api client requires a base URL")
	}
	if !strings.HasSuffix(base, APIBasePath) {
		base += APIBasePath
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	c := &Client{
		baseURL: base,
		http:    httpClient,
		tokens:  tokens,
		nav:     cfg.Navigator,
		logger:  logger,
	}
	c.Auth = &AuthAPI{client: c}
	c.Stories = &StoriesAPI{client: c}
	c.Network = &NetworkAPI{client: c}
	c.Workspaces = &WorkspacesAPI{client: c}
	c.Wallet = &WalletAPI{client: c}
	c.Onboarding = &OnboardingAPI{client: c}
	return c, nil
}

// Tokens exposes the session store, mainly so hosts can check whether a
// session is present.
func (c *Client) Tokens() TokenStore { return c.tokens }

// request is one HTTP call. The body is a byte slice so a 401 replay can
// rebuild the reader.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	// open skips the bearer token and the refresh path, for login style
	// endpoints.
	open bool
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool { return r.status >= 200 && r.status < 300 }

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send performs a single HTTP attempt with the given bearer token.
func (c *Client) send(ctx context.Context, req request, token string) (*response, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return nil, fmt.Errorf("go-stories: build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		contentType := req.contentType
		if contentType == "" {
			contentType = "application/json"
		}
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

// invoke performs the request, refreshing the session once on a 401 and
// replaying with the new token.
func (c *Client) invoke(ctx context.Context, req request) (*Envelope, error) {
	token := ""
	if !req.open {
		token = c.tokens.AccessToken()
	}
	resp, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusUnauthorized && !req.open {
		if err := c.refreshSession(ctx, token); err != nil {
			return nil, err
		}
		resp, err = c.send(ctx, req, c.tokens.AccessToken())
		if err != nil {
			return nil, err
		}
	}
	if !resp.ok() {
		return nil, resp.asError()
	}
	env := &Envelope{}
	if len(resp.body) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(resp.body, env); err != nil {
		return nil, fmt.Errorf("go-stories: decode api envelope: %w", err)
	}
	if !env.Success {
		return nil, &HTTPError{Status: resp.status, Message: env.message()}
	}
	return env, nil
}

// refreshSession exchanges the refresh token for a new pair. Concurrent
// callers racing on the same expired token queue on the mutex and find the
// session already refreshed, so the server sees one refresh call.
func (c *Client) refreshSession(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if current := c.tokens.AccessToken(); current != "" && current != stale {
		return nil
	}
	refresh := c.tokens.RefreshToken()
	if refresh == "" {
		c.endSession()
		return ErrSessionExpired
	}
	body, err := json.Marshal(map[string]string{"refresh_token": refresh})
	if err != nil {
		return fmt.Errorf("go-stories: encode refresh request: %w", err)
	}
	resp, err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   body,
		open:   true,
	}, "")
	if err != nil {
		// transport failures keep the session; only a server verdict ends it
		return err
	}
	if !resp.ok() {
		c.endSession()
		return fmt.Errorf("%w: %v", ErrSessionExpired, resp.asError())
	}
	var env Envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		c.endSession()
		return fmt.Errorf("%w: malformed refresh response", ErrSessionExpired)
	}
	var pair Session
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &pair); err != nil {
			c.endSession()
			return fmt.Errorf("%w: malformed refresh payload", ErrSessionExpired)
		}
	}
	if pair.AccessToken == "" {
		c.endSession()
		return ErrSessionExpired
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refresh
	}
	c.tokens.SetTokens(pair.AccessToken, pair.RefreshToken)
	c.logger.Debug("api session refreshed")
	return nil
}

// endSession drops the stored tokens and sends browser hosts to the login
// page unless they are already on a public one.
func (c *Client) endSession() {
	c.tokens.Clear()
	if c.nav == nil {
		return
	}
	if PublicPath(c.nav.CurrentPath()) {
		return
	}
	c.nav.Redirect(LoginPath)
}

// call runs the request and decodes the envelope's data into out when both
// are present. It returns the envelope's pagination block, if any.
func (c *Client) call(ctx context.Context, req request, out any) (*Pagination, error) {
	env, err := c.invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("go-stories: decode api payload: %w", err)
		}
	}
	return env.Pagination, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.call(ctx, request{method: http.MethodGet, path: path, query: query}, out)
	return err
}

func (c *Client) getPage(ctx context.Context, path string, query url.Values, out any) (*Pagination, error) {
	return c.call(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	req, err := jsonRequest(http.MethodPost, path, in)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, req, out)
	return err
}

// postOpen posts without a bearer token, for endpoints that establish the
// session in the first place.
func (c *Client) postOpen(ctx context.Context, path string, in, out any) error {
	req, err := jsonRequest(http.MethodPost, path, in)
	if err != nil {
		return err
	}
	req.open = true
	_, err = c.call(ctx, req, out)
	return err
}

func (c *Client) put(ctx context.Context, path string, in, out any) error {
	req, err := jsonRequest(http.MethodPut, path, in)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, req, out)
	return err
}

func (c *Client) del(ctx context.Context, path string) error {
	_, err := c.call(ctx, request{method: http.MethodDelete, path: path}, nil)
	return err
}

func jsonRequest(method, path string, in any) (request, error) {
	req := request{method: method, path: path}
	if in == nil {
		return req, nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return request{}, fmt.Errorf("go-stories: encode request body: %w", err)
	}
	req.body = body
	return req, nil
}
