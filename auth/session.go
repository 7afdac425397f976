package auth

import (
	"alumni-chat/errors"
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the identity of the signed-in user. It is built explicitly and
// handed to every component that needs to know who is acting.
type Session struct {
	userID string
	roles  []string
	token  string
}

func NewSession(userID string, roles ...string) Session {
	return Session{userID: userID, roles: roles}
}

// CurrentUserID returns false for an anonymous session.
func (s Session) CurrentUserID() (string, bool) {
	return s.userID, s.userID != ""
}

func (s Session) Roles() []string {
	return s.roles
}

// Token is the raw JWT the session was read from, empty when built by hand.
func (s Session) Token() string {
	return s.token
}

// RequireUserID is CurrentUserID for callers that cannot act anonymously.
func (s Session) RequireUserID() (string, error) {
	uid, ok := s.CurrentUserID()
	if !ok {
		return "", errors.ErrNoSession
	}
	return uid, nil
}

// SessionFromToken reads the identity of a token without checking its signature.
// The client uses it to know who it is; the server always validates.
func SessionFromToken(token string) (Session, error) {
	claims := &CustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return Session{}, errors.ErrInvalidToken
	}
	return Session{userID: claims.UserID, roles: claims.Roles, token: token}, nil
}

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session injected by the interceptors, or an
// anonymous one.
func SessionFromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey).(Session)
	return s
}
