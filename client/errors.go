package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response reached the client.
	KindNetwork Kind = iota + 1
	// KindAuthorization is a 401 or 403.
	KindAuthorization
	// KindValidation is any other 4xx.
	KindValidation
	// KindServer is a 5xx, or a 1xx/3xx the client did not expect.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network failure"
	case KindAuthorization:
		return "authorization failure"
	case KindValidation:
		return "validation failure"
	case KindServer:
		return "server failure"
	default:
		return "unknown failure"
	}
}

var (
	ErrNetwork      = errors.New("network failure")
	ErrUnauthorized = errors.New("authorization failure")
	ErrValidation   = errors.New("validation failure")
	ErrServer       = errors.New("server failure")

	// ErrNoToken is returned by renewal when no access token could be obtained.
	ErrNoToken = errors.New("no access token available")
)

// FieldError mirrors the backend's per-field validation entry.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// Error is a classified API failure.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUnauthorized:
		return e.Kind == KindAuthorization
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// KindOf returns the Kind of err, or 0 if err is not a classified failure.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsAuthFailure reports whether status is 401 or 403.
func IsAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func networkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// errorBody covers both error shapes the backend produces: the
// {status,message,error} envelope and the {errors:[...]} validation list.
type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Errors  []FieldError    `json:"errors"`
}

const maxErrorBody = 64 << 10

// responseError builds an *Error from a non-2xx response and closes its body.
func responseError(op string, resp *http.Response) *Error {
	defer resp.Body.Close()

	e := &Error{Op: op, Status: resp.StatusCode}
	switch {
	case IsAuthFailure(resp.StatusCode):
		e.Kind = KindAuthorization
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		e.Kind = KindValidation
	default:
		// 5xx, and 1xx/3xx that the backend never sends on purpose.
		e.Kind = KindServer
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		e.Message = http.StatusText(resp.StatusCode)
		return e
	}

	var body errorBody
	if json.Unmarshal(raw, &body) != nil {
		e.Message = strings.TrimSpace(string(raw))
		return e
	}
	e.Fields = body.Errors
	e.Message = body.detail()
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func (b errorBody) detail() string {
	if len(b.Error) > 0 {
		var s string
		if json.Unmarshal(b.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(b.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return b.Message
}
