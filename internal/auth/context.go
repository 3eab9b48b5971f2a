package auth

import "context"

type ctxKey int

const (
	userCtxKey ctxKey = iota
	tokenCtxKey
)

// WithUser returns a context carrying the resolved user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext returns the resolved user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userCtxKey).(*User)
	return user, ok
}

// WithToken returns a context carrying the resolved bearer token.
func WithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, tokenCtxKey, token)
}

// TokenFromContext returns the resolved bearer token, if any.
func TokenFromContext(ctx context.Context) (*Token, bool) {
	token, ok := ctx.Value(tokenCtxKey).(*Token)
	return token, ok
}
