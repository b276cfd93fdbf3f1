package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Krish-Depani/auth-session-client/models"
	"github.com/Krish-Depani/auth-session-client/store"
)

const renewKey = "renew"

// RefreshCoordinator exchanges the refresh cookie for a new access token.
//
// Concurrent Renew calls share one network request. The shared call is
// forgotten as soon as it settles, so every later Renew performs a real
// request. Results are applied to the store only if the store was not
// mutated while the request was in flight; otherwise the caller gets
// whatever token the newer mutation left behind.
type RefreshCoordinator struct {
	doer    Doer
	baseURL string
	store   *store.SessionStore
	timeout time.Duration
	log     *slog.Logger

	group     singleflight.Group
	waiting   atomic.Int32
	suspended atomic.Int32
}

// NewRefreshCoordinator returns a coordinator that issues GET /auth/refresh
// through doer, which must forward the refresh cookie.
func NewRefreshCoordinator(doer Doer, baseURL string, st *store.SessionStore, timeout time.Duration, log *slog.Logger) *RefreshCoordinator {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &RefreshCoordinator{
		doer:    doer,
		baseURL: baseURL,
		store:   st,
		timeout: timeout,
		log:     log,
	}
}

// Renew returns a fresh access token, joining an in-flight renewal if one
// exists. On failure the returned error matches ErrNoToken. Cancelling ctx
// abandons the wait but not the shared request.
func (c *RefreshCoordinator) Renew(ctx context.Context) (string, error) {
	ch := c.group.DoChan(renewKey, c.renew)
	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// suspend makes renewals fail without a request until the returned func is
// called. Logout holds it while the server session is being ended.
func (c *RefreshCoordinator) suspend() (resume func()) {
	c.suspended.Add(1)
	var once sync.Once
	return func() { once.Do(func() { c.suspended.Add(-1) }) }
}

// Pending reports how many callers are waiting on the current renewal.
func (c *RefreshCoordinator) Pending() int {
	return int(c.waiting.Load())
}

func (c *RefreshCoordinator) renew() (any, error) {
	gen := c.store.Generation()
	if c.suspended.Load() > 0 {
		c.log.Debug("renewal skipped, logout in progress")
		return "", fmt.Errorf("%w: logout in progress", ErrNoToken)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	started := time.Now()
	tokens, err := c.fetch(ctx)
	if err != nil {
		if c.store.ClearIf(gen) {
			c.log.Warn("session renewal failed, session cleared", "error", err, "kind", KindOf(err).String())
			return "", fmt.Errorf("%w: %w", ErrNoToken, err)
		}
		c.log.Debug("session renewal failed after session changed", "error", err)
		if token := c.store.Token(); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("%w: %w", ErrNoToken, err)
	}

	if !c.store.SetIf(gen, tokens.Session()) {
		c.log.Debug("discarding renewal overtaken by a newer session change")
		if token := c.store.Token(); token != "" {
			return token, nil
		}
		return "", ErrNoToken
	}

	c.log.Info("session renewed", "user_id", tokens.User.ID, "duration", time.Since(started))
	return tokens.AccessToken, nil
}

func (c *RefreshCoordinator) fetch(ctx context.Context) (models.TokenResponse, error) {
	const op = "refresh"

	var tokens models.TokenResponse
	req, err := newJSONRequest(ctx, http.MethodGet, endpoint(c.baseURL, "/auth/refresh"), nil)
	if err != nil {
		return tokens, err
	}
	if err := call(c.doer, op, req, &tokens); err != nil {
		return tokens, err
	}
	if tokens.AccessToken == "" {
		return tokens, &Error{Kind: KindServer, Op: op, Status: http.StatusOK, Message: "response carried no access token"}
	}
	return tokens, nil
}
