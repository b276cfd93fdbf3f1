package client

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Krish-Depani/auth-session-client/store"
)

// Interceptor attaches the live access token to every request it wraps and
// recovers from a 401/403 by renewing once and replaying the request once.
// Any other outcome, including transport errors, is returned unmodified.
type Interceptor struct {
	next    Doer
	store   *store.SessionStore
	renewer Renewer
	log     *slog.Logger
}

func NewInterceptor(next Doer, st *store.SessionStore, r Renewer, log *slog.Logger) *Interceptor {
	if log == nil {
		log = slog.Default()
	}
	return &Interceptor{next: next, store: st, renewer: r, log: log}
}

// callState is the retry bookkeeping for one logical request.
type callState struct {
	id      string
	sent    int
	retried bool
}

func (i *Interceptor) Do(req *http.Request) (*http.Response, error) {
	st := &callState{id: req.Header.Get(RequestIDHeader)}
	if st.id == "" {
		st.id = uuid.NewString()
	}

	resp, err := i.send(req, st, i.store.Token())
	if err != nil || !IsAuthFailure(resp.StatusCode) {
		return resp, err
	}
	return i.recoverAuth(req, st, resp)
}

func (i *Interceptor) recoverAuth(req *http.Request, st *callState, failed *http.Response) (*http.Response, error) {
	if st.retried {
		return failed, nil
	}
	st.retried = true

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		i.log.Debug("request body cannot be replayed, not renewing", "request_id", st.id, "path", req.URL.Path)
		return failed, nil
	}

	token, err := i.renewer.Renew(req.Context())
	if err != nil || token == "" {
		if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			drainAndClose(failed.Body)
			return nil, ctxErr
		}
		i.log.Info("renewal after authorization failure yielded no token",
			"request_id", st.id, "path", req.URL.Path, "status", failed.StatusCode, "error", err)
		return failed, nil
	}

	drainAndClose(failed.Body)
	i.log.Debug("replaying request with renewed token", "request_id", st.id, "path", req.URL.Path)
	return i.send(req, st, token)
}

func (i *Interceptor) send(req *http.Request, st *callState, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if st.sent > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	st.sent++

	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	out.Header.Set(RequestIDHeader, st.id)

	return i.next.Do(out)
}

var _ Doer = (*Interceptor)(nil)
var _ Renewer = (*RefreshCoordinator)(nil)
