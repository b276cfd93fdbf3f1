package client

import (
	"context"
	"net/http"

	"github.com/Krish-Depani/auth-session-client/models"
	"github.com/Krish-Depani/auth-session-client/store"
)

// SessionRegistry lists and revokes the user's device sessions. Its results
// are display snapshots and never drive authorization decisions.
type SessionRegistry struct {
	doer    Doer
	baseURL string
	store   *store.SessionStore
}

// NewSessionRegistry expects doer to be the authenticated Interceptor.
func NewSessionRegistry(doer Doer, baseURL string, st *store.SessionStore) *SessionRegistry {
	return &SessionRegistry{doer: doer, baseURL: baseURL, store: st}
}

// List fetches the device sessions of the authenticated user and marks the
// one holding the live token as current.
func (r *SessionRegistry) List(ctx context.Context) ([]models.DeviceSession, error) {
	req, err := newJSONRequest(ctx, http.MethodGet, endpoint(r.baseURL, "/auth/sessions"), nil)
	if err != nil {
		return nil, err
	}

	var sessions []models.DeviceSession
	if err := call(r.doer, "list sessions", req, &sessions); err != nil {
		return nil, err
	}

	token := r.store.Token()
	for i := range sessions {
		sessions[i].IsCurrent = token != "" && sessions[i].AccessToken == token
	}
	return sessions, nil
}

// Revoke asks the backend to invalidate the given sessions. It does not touch
// the local session even if the current device is among ids; the next
// request's authorization failure handles that. An empty set is a no-op.
func (r *SessionRegistry) Revoke(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	req, err := newJSONRequest(ctx, http.MethodPost, endpoint(r.baseURL, "/auth/revoke"), ids)
	if err != nil {
		return err
	}
	return call(r.doer, "revoke sessions", req, nil)
}

// RevokeOthers revokes every session in sessions except the current one and
// returns the ids it sent.
func (r *SessionRegistry) RevokeOthers(ctx context.Context, sessions []models.DeviceSession) ([]string, error) {
	ids := OtherSessionIDs(sessions, r.store.Token())
	if err := r.Revoke(ctx, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// OtherSessionIDs returns the ids of sessions not bound to liveToken.
// Current-ness is recomputed from the token, not taken from IsCurrent.
func OtherSessionIDs(sessions []models.DeviceSession, liveToken string) []string {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if liveToken != "" && s.AccessToken == liveToken {
			continue
		}
		ids = append(ids, s.ID)
	}
	return ids
}
