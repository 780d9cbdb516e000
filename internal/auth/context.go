package auth

import (
	"context"

	"github.com/dukerupert/roomboard/internal/model"
)

type contextKey struct{}

type AuthContext struct {
	SessionID int64
	UserID    int64
	Role      model.Role
	APIToken  string
	User      model.User
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func SessionID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.SessionID
}

// User returns the signed-in user, or the zero User.
func User(ctx context.Context) model.User {
	ac, _ := FromContext(ctx)
	return ac.User
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleAdmin
}
