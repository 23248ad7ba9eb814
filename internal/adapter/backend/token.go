package backend

import "context"

type tokenKey struct{}

// WithToken attaches the caller's bearer token to outgoing backend calls
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
