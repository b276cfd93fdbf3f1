// Package client is the session manager that sits between an application and
// an auth backend speaking bearer tokens plus a refresh cookie.
//
// A Client owns a SessionStore, a RefreshCoordinator that renews the access
// token through the cookie jar, an Interceptor that authenticates requests and
// retries once after renewal, a SessionRegistry for device sessions, and a
// RenewalScheduler for proactive renewal.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/Krish-Depani/auth-session-client/config"
	"github.com/Krish-Depani/auth-session-client/models"
	"github.com/Krish-Depani/auth-session-client/store"
)

const DefaultRequestTimeout = 10 * time.Second

type Config struct {
	BaseURL         string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
}

// ConfigFromEnv maps the loaded environment onto a client Config.
func ConfigFromEnv(env *config.Env) Config {
	return Config{
		BaseURL:         env.APIBaseURL,
		RefreshInterval: env.RefreshInterval,
		RequestTimeout:  env.RequestTimeout,
	}
}

type Option func(*Client)

// WithHTTPClient sets the transport. A cookie jar is attached if it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithStore shares an existing SessionStore instead of creating one.
func WithStore(st *store.SessionStore) Option {
	return func(c *Client) { c.store = st }
}

type Client struct {
	cfg   Config
	http  *http.Client
	log   *slog.Logger
	store *store.SessionStore

	coordinator *RefreshCoordinator
	interceptor *Interceptor
	registry    *SessionRegistry
	scheduler   *RenewalScheduler

	// logouts counts Logout calls so an in-flight Login can tell it lost.
	logouts atomic.Uint64
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("client: base URL is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.store == nil {
		c.store = store.New()
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("client: cookie jar: %w", err)
		}
		c.http.Jar = jar
	}

	c.coordinator = NewRefreshCoordinator(c.http, cfg.BaseURL, c.store, cfg.RequestTimeout, c.log.With("component", "refresh"))
	c.interceptor = NewInterceptor(c.http, c.store, c.coordinator, c.log.With("component", "interceptor"))
	c.registry = NewSessionRegistry(c.interceptor, cfg.BaseURL, c.store)
	c.scheduler = NewRenewalScheduler(c.coordinator, cfg.RefreshInterval, c.log.With("component", "scheduler"))
	return c, nil
}

func (c *Client) Store() *store.SessionStore { return c.store }
func (c *Client) Coordinator() *RefreshCoordinator { return c.coordinator }
func (c *Client) Sessions() *SessionRegistry { return c.registry }
func (c *Client) Scheduler() *RenewalScheduler { return c.scheduler }
func (c *Client) Do(req *http.Request) (*http.Response, error) { return c.interceptor.Do(req) }

// Bootstrap attempts one silent renewal at application start. A failure
// leaves the store unauthenticated and is returned for logging only.
func (c *Client) Bootstrap(ctx context.Context) error {
	if c.store.Current().Status == models.StatusUnauthenticated {
		c.store.Set(models.Session{Status: models.StatusAuthenticating})
	}
	_, err := c.coordinator.Renew(ctx)
	if err != nil && c.store.Current().Status == models.StatusAuthenticating {
		// Renew gave up waiting before the shared call settled.
		c.store.Clear()
	}
	return err
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email and password. It bypasses the interceptor:
// a 401 here means bad credentials, not an expired token.
//
// A Logout that starts while the request is in flight wins: the response is
// discarded and the error matches ErrNoToken. A newer login or renewal that
// lands first also wins, and its session is returned.
func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	const op = "login"
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return models.Session{}, &Error{Kind: KindValidation, Op: op, Message: "email and password are required"}
	}

	req, err := newJSONRequest(ctx, http.MethodPost, endpoint(c.cfg.BaseURL, "/auth/login"), loginRequest{Email: email, Password: password})
	if err != nil {
		return models.Session{}, err
	}

	gen := c.store.Generation()
	logouts := c.logouts.Load()

	var tokens models.TokenResponse
	if err := call(c.http, op, req, &tokens); err != nil {
		return models.Session{}, err
	}
	if tokens.AccessToken == "" {
		return models.Session{}, &Error{Kind: KindServer, Op: op, Status: http.StatusOK, Message: "response carried no access token"}
	}

	session := tokens.Session()
	for !c.store.SetIf(gen, session) {
		if c.logouts.Load() != logouts {
			c.log.Info("discarding login response, logged out while it was in flight")
			return models.Session{}, fmt.Errorf("%s: %w: logged out during login", op, ErrNoToken)
		}
		cur, curGen := c.store.Snapshot()
		if cur.Authenticated() {
			c.log.Debug("discarding login response overtaken by a newer session")
			return cur, nil
		}
		// A failed renewal cleared the store meanwhile; the login still applies.
		gen = curGen
	}
	c.log.Info("logged in", "user_id", session.UserID)
	return c.store.Current(), nil
}

// Signup registers a new account. It does not log in.
func (c *Client) Signup(ctx context.Context, name, email, password string) error {
	const op = "signup"
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return &Error{Kind: KindValidation, Op: op, Message: "email and password are required"}
	}

	req, err := newJSONRequest(ctx, http.MethodPost, endpoint(c.cfg.BaseURL, "/auth/signup"), signupRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	return call(c.http, op, req, nil)
}

// Logout ends the server-side session and clears the local one regardless of
// the server's answer. The server error, if any, is returned for reporting.
// Renewals fail without a request until the server has answered.
func (c *Client) Logout(ctx context.Context) error {
	c.logouts.Add(1)
	resume := c.coordinator.suspend()
	defer resume()

	token := c.store.Token()
	c.store.Clear()

	req, err := newJSONRequest(ctx, http.MethodGet, endpoint(c.cfg.BaseURL, "/auth/logout"), nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if err := call(c.http, "logout", req, nil); err != nil {
		c.log.Warn("server logout failed, local session cleared anyway", "error", err)
		return err
	}
	c.log.Info("logged out")
	return nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var p models.Profile
	req, err := newJSONRequest(ctx, http.MethodGet, endpoint(c.cfg.BaseURL, "/auth/profile"), nil)
	if err != nil {
		return p, err
	}
	err = call(c.interceptor, "profile", req, &p)
	return p, err
}

// UpdateProfile applies patch and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (models.Profile, error) {
	var p models.Profile
	if patch.Empty() {
		return p, &Error{Kind: KindValidation, Op: "update profile", Message: "update at least one field"}
	}
	req, err := newJSONRequest(ctx, http.MethodPatch, endpoint(c.cfg.BaseURL, "/auth"), patch)
	if err != nil {
		return p, err
	}
	err = call(c.interceptor, "update profile", req, &p)
	return p, err
}
