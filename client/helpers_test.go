package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
)

func jsonResponse(status int, body any) *http.Response {
	var buf []byte
	switch b := body.(type) {
	case nil:
	case string:
		buf = []byte(b)
	default:
		buf, _ = json.Marshal(b)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(buf)),
	}
}

func tokenBody(token string) map[string]any {
	return map[string]any{
		"accessToken": token,
		"user":        map[string]string{"id": "u1", "name": "A"},
	}
}

// recorded is a request as seen by a fake transport.
type recorded struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          string
}

// recordingDoer records every request and answers with respond.
type recordingDoer struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(n int, req *http.Request) (*http.Response, error)
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}

	d.mu.Lock()
	d.requests = append(d.requests, recorded{
		Method:        req.Method,
		Path:          req.URL.Path,
		Authorization: req.Header.Get("Authorization"),
		RequestID:     req.Header.Get(RequestIDHeader),
		Body:          body,
	})
	n := len(d.requests)
	d.mu.Unlock()

	return d.respond(n, req)
}

func (d *recordingDoer) all() []recorded {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]recorded(nil), d.requests...)
}

// fakeRenewer answers every call with token and err.
type fakeRenewer struct {
	calls  atomic.Int32
	token  string
	err    error
	onCall func()
}

func (r *fakeRenewer) Renew(ctx context.Context) (string, error) {
	r.calls.Add(1)
	if r.onCall != nil {
		r.onCall()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.token, r.err
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
