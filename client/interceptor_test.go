package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krish-Depani/auth-session-client/logger"
	"github.com/Krish-Depani/auth-session-client/models"
	"github.com/Krish-Depani/auth-session-client/store"
)

func authedStore(token string) *store.SessionStore {
	st := store.New()
	if token != "" {
		st.Set(models.Session{AccessToken: token, UserID: "u1", DisplayName: "A"})
	}
	return st
}

func get(t *testing.T, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://api.test"+path, nil)
	require.NoError(t, err)
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestInterceptor_AttachesBearer(t *testing.T) {
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"name":"A"}`), nil
	}}
	renewer := &fakeRenewer{}
	i := NewInterceptor(doer, authedStore("T1"), renewer, logger.Discard())

	resp, err := i.Do(get(t, "/auth/profile"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"A"}`, readBody(t, resp))

	reqs := doer.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer T1", reqs[0].Authorization)
	assert.NotEmpty(t, reqs[0].RequestID)
	assert.Zero(t, renewer.calls.Load())
}

func TestInterceptor_NoTokenNoHeader(t *testing.T) {
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, nil), nil
	}}
	i := NewInterceptor(doer, store.New(), &fakeRenewer{}, logger.Discard())

	req := get(t, "/auth/profile")
	req.Header.Set("Authorization", "Bearer leftover")
	resp, err := i.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "", doer.all()[0].Authorization)
}

func TestInterceptor_RenewsAndReplaysOnce(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			doer := &recordingDoer{respond: func(n int, _ *http.Request) (*http.Response, error) {
				if n == 1 {
					return jsonResponse(status, `{"error":"expired"}`), nil
				}
				return jsonResponse(http.StatusOK, `{"id":"u1","name":"A"}`), nil
			}}
			renewer := &fakeRenewer{token: "T2"}
			i := NewInterceptor(doer, authedStore("T1"), renewer, logger.Discard())

			resp, err := i.Do(get(t, "/auth/profile"))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, `{"id":"u1","name":"A"}`, readBody(t, resp))

			reqs := doer.all()
			require.Len(t, reqs, 2)
			assert.Equal(t, "Bearer T1", reqs[0].Authorization)
			assert.Equal(t, "Bearer T2", reqs[1].Authorization)
			assert.Equal(t, reqs[0].RequestID, reqs[1].RequestID)
			assert.Equal(t, int32(1), renewer.calls.Load())
		})
	}
}

func TestInterceptor_RetriesAtMostOnce(t *testing.T) {
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":"Invalid session"}`), nil
	}}
	renewer := &fakeRenewer{token: "T2"}
	i := NewInterceptor(doer, authedStore("T1"), renewer, logger.Discard())

	resp, err := i.Do(get(t, "/auth/profile"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	assert.Len(t, doer.all(), 2)
	assert.Equal(t, int32(1), renewer.calls.Load())
}

func TestInterceptor_RenewalFailureSurfacesOriginalResponse(t *testing.T) {
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":"Invalid session"}`), nil
	}}
	renewer := &fakeRenewer{err: ErrNoToken}
	i := NewInterceptor(doer, authedStore("T1"), renewer, logger.Discard())

	resp, err := i.Do(get(t, "/auth/profile"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `{"error":"Invalid session"}`, readBody(t, resp))

	assert.Len(t, doer.all(), 1)
	assert.Equal(t, int32(1), renewer.calls.Load())
}

func TestInterceptor_OtherFailuresPassThrough(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusInternalServerError, `{"error":"Database error"}`), nil
		}}
		renewer := &fakeRenewer{token: "T2"}
		resp, err := NewInterceptor(doer, authedStore("T1"), renewer, logger.Discard()).Do(get(t, "/auth/profile"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, `{"error":"Database error"}`, readBody(t, resp))
		assert.Zero(t, renewer.calls.Load())
		assert.Len(t, doer.all(), 1)
	})

	t.Run("transport error", func(t *testing.T) {
		boom := errors.New("connection reset")
		doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
			return nil, boom
		}}
		renewer := &fakeRenewer{token: "T2"}
		_, err := NewInterceptor(doer, authedStore("T1"), renewer, logger.Discard()).Do(get(t, "/auth/profile"))
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, renewer.calls.Load())
	})
}

func TestInterceptor_ReplaysRequestBody(t *testing.T) {
	doer := &recordingDoer{respond: func(n int, _ *http.Request) (*http.Response, error) {
		if n == 1 {
			return jsonResponse(http.StatusUnauthorized, nil), nil
		}
		return jsonResponse(http.StatusOK, `{}`), nil
	}}
	i := NewInterceptor(doer, authedStore("T1"), &fakeRenewer{token: "T2"}, logger.Discard())

	req, err := newJSONRequest(context.Background(), http.MethodPost, "http://api.test/auth/revoke", []string{"s1", "s2"})
	require.NoError(t, err)
	resp, err := i.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	reqs := doer.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, `["s1","s2"]`, reqs[0].Body)
	assert.Equal(t, reqs[0].Body, reqs[1].Body)
}

func TestInterceptor_UnreplayableBodyIsNotRetried(t *testing.T) {
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, nil), nil
	}}
	renewer := &fakeRenewer{token: "T2"}
	i := NewInterceptor(doer, authedStore("T1"), renewer, logger.Discard())

	req, err := http.NewRequest(http.MethodPost, "http://api.test/auth/revoke", io.NopCloser(strings.NewReader(`["s1"]`)))
	require.NoError(t, err)
	resp, err := i.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, renewer.calls.Load())
	assert.Len(t, doer.all(), 1)
}

func TestInterceptor_CancelledDuringRenewal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, nil), nil
	}}
	renewer := &fakeRenewer{token: "T2", onCall: cancel}
	i := NewInterceptor(doer, authedStore("T1"), renewer, logger.Discard())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.test/auth/profile", nil)
	require.NoError(t, err)
	_, err = i.Do(req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, doer.all(), 1)
}

// A failed renewal forces logout: later requests go out without a bearer.
func TestInterceptor_ForcedLogout(t *testing.T) {
	doer := &recordingDoer{respond: func(_ int, req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"error":"Invalid session"}`), nil
	}}
	st := authedStore("T1")
	coord := newTestCoordinator(doer, st)
	i := NewInterceptor(doer, st, coord, logger.Discard())

	resp, err := i.Do(get(t, "/auth/profile"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, models.StatusUnauthenticated, st.Current().Status)

	resp, err = i.Do(get(t, "/auth/sessions"))
	require.NoError(t, err)
	resp.Body.Close()

	var paths []string
	for _, r := range doer.all() {
		paths = append(paths, r.Method+" "+r.Path+" ["+r.Authorization+"]")
	}
	assert.Equal(t, []string{
		"GET /auth/profile [Bearer T1]",
		"GET /auth/refresh []",
		"GET /auth/sessions []",
		"GET /auth/refresh []",
	}, paths)
}

func TestInterceptor_PreservesCallerRequest(t *testing.T) {
	doer := &recordingDoer{respond: func(n int, _ *http.Request) (*http.Response, error) {
		if n == 1 {
			return jsonResponse(http.StatusUnauthorized, nil), nil
		}
		return jsonResponse(http.StatusOK, nil), nil
	}}
	i := NewInterceptor(doer, authedStore("T1"), &fakeRenewer{token: "T2"}, logger.Discard())

	req, err := http.NewRequest(http.MethodPatch, "http://api.test/auth", bytes.NewReader([]byte(`{"name":"B"}`)))
	require.NoError(t, err)
	resp, err := i.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("Authorization"), "the caller's request is never mutated")
}
