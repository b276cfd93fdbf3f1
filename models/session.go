package models

// Status is the authentication state of the in-memory Session.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusAuthenticating
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Identity is the user block returned by login and refresh.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the client's authenticated identity. It lives in memory only.
// Status is StatusAuthenticated exactly when AccessToken is non-empty.
type Session struct {
	AccessToken string
	UserID      string
	DisplayName string
	Status      Status
}

// Authenticated reports whether the session carries a usable access token.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// TokenResponse is the payload of POST /auth/login and GET /auth/refresh.
type TokenResponse struct {
	AccessToken string   `json:"accessToken"`
	User        Identity `json:"user"`
}

// Session converts the payload into an authenticated Session.
func (r TokenResponse) Session() Session {
	return Session{
		AccessToken: r.AccessToken,
		UserID:      r.User.ID,
		DisplayName: r.User.Name,
		Status:      StatusAuthenticated,
	}
}
