package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// PrincipalFromContext rebuilds the authenticated caller. A missing or
// malformed identity yields the zero Principal, which services reject.
func PrincipalFromContext(ctx context.Context) auth.Principal {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return auth.Principal{}
	}
	role, err := enums.ParseRole(RoleFromContext(ctx))
	if err != nil {
		return auth.Principal{UserID: userID}
	}
	return auth.Principal{UserID: userID, Role: role}
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the caller's role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
