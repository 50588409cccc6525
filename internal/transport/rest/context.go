package rest

import (
	"context"

	"github.com/hearthshare/stay-service/internal/domain"
)

type ctxKeyUser struct{}

// AuthContext carries the authenticated household member for the request.
type AuthContext struct {
	User domain.User
}

func withAuth(ctx context.Context, a AuthContext) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, a.User)
}

func GetAuth(ctx context.Context) (AuthContext, bool) {
	u, ok := ctx.Value(ctxKeyUser{}).(domain.User)
	if !ok {
		return AuthContext{}, false
	}
	return AuthContext{User: u}, true
}
