package gateway

import "context"

// Session supplies credentials for one logical caller. It is carried on the
// request context; the Client itself never stores a token.
type Session interface {
	// AccessToken returns the current bearer token, "" when logged out
	AccessToken() string

	// RenewAccessToken is called once after a 401. rejected is the token the
	// backend refused; implementations return a newer token without another
	// refresh when one is already available. An error means the session has
	// been cleared.
	RenewAccessToken(ctx context.Context, rejected string) (string, error)
}

type sessionKey struct{}

// WithSession returns a context whose backend calls authenticate as s
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached by WithSession
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s != nil
}
