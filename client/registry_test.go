package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krish-Depani/auth-session-client/logger"
	"github.com/Krish-Depani/auth-session-client/models"
)

func deviceSessions(current string, others int) []models.DeviceSession {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	sessions := []models.DeviceSession{{
		ID: "current", Device: "Firefox", IPAddress: "10.0.0.1", Location: "Local",
		CreatedAt: now, LastUsedAt: now, AccessToken: current,
	}}
	for k := 0; k < others; k++ {
		sessions = append(sessions, models.DeviceSession{
			ID:          fmt.Sprintf("s%d", k),
			Device:      "Chrome",
			AccessToken: fmt.Sprintf("other-%d", k),
			CreatedAt:   now,
			LastUsedAt:  now,
		})
	}
	return sessions
}

func TestSessionRegistry_ListMarksCurrent(t *testing.T) {
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, deviceSessions("T1", 2)), nil
	}}
	st := authedStore("T1")
	r := NewSessionRegistry(NewInterceptor(doer, st, &fakeRenewer{}, logger.Discard()), "http://api.test", st)

	sessions, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	assert.True(t, sessions[0].IsCurrent)
	assert.False(t, sessions[1].IsCurrent)
	assert.False(t, sessions[2].IsCurrent)
	assert.Equal(t, "Firefox", sessions[0].Device)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), sessions[0].LastUsedAt)

	reqs := doer.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "GET /auth/sessions", reqs[0].Method+" "+reqs[0].Path)
	assert.Equal(t, "Bearer T1", reqs[0].Authorization)
}

func TestSessionRegistry_ListFailureLeavesStore(t *testing.T) {
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{"status":500,"message":"Failed to fetch sessions","error":"Database error"}`), nil
	}}
	st := authedStore("T1")
	r := NewSessionRegistry(NewInterceptor(doer, st, &fakeRenewer{}, logger.Discard()), "http://api.test", st)

	_, err := r.List(context.Background())
	require.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "Database error")
	assert.Equal(t, "T1", st.Token())
	assert.Len(t, doer.all(), 1, "no automatic retry for server failures")
}

func TestSessionRegistry_RevokeOthersExcludesCurrent(t *testing.T) {
	for k := 0; k <= 5; k++ {
		t.Run(fmt.Sprintf("others=%d", k), func(t *testing.T) {
			doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"message":"ok"}`), nil
			}}
			st := authedStore("T1")
			r := NewSessionRegistry(NewInterceptor(doer, st, &fakeRenewer{}, logger.Discard()), "http://api.test", st)

			sessions := deviceSessions("T1", k)
			// A stale IsCurrent flag must not matter.
			sessions[0].IsCurrent = false

			ids, err := r.RevokeOthers(context.Background(), sessions)
			require.NoError(t, err)
			assert.NotContains(t, ids, "current")
			assert.Len(t, ids, k)

			reqs := doer.all()
			if k == 0 {
				assert.Empty(t, reqs)
				return
			}
			require.Len(t, reqs, 1)
			assert.Equal(t, "/auth/revoke", reqs[0].Path)

			var sent []string
			require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &sent))
			assert.Equal(t, ids, sent)
			assert.NotContains(t, sent, "current")
		})
	}
}

func TestSessionRegistry_RevokeDoesNotClearStore(t *testing.T) {
	doer := &recordingDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"message":"ok"}`), nil
	}}
	st := authedStore("T1")
	r := NewSessionRegistry(NewInterceptor(doer, st, &fakeRenewer{}, logger.Discard()), "http://api.test", st)

	require.NoError(t, r.Revoke(context.Background(), []string{"current", "s0"}))
	assert.Equal(t, "T1", st.Token())

	require.NoError(t, r.Revoke(context.Background(), nil))
	assert.Len(t, doer.all(), 1)
}

func TestOtherSessionIDs(t *testing.T) {
	sessions := deviceSessions("T1", 3)
	assert.Equal(t, []string{"s0", "s1", "s2"}, OtherSessionIDs(sessions, "T1"))
	assert.Equal(t, []string{"current", "s0", "s1", "s2"}, OtherSessionIDs(sessions, ""))
	assert.Empty(t, OtherSessionIDs(nil, "T1"))
}
