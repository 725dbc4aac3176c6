package auth

import (
	"github.com/google/uuid"

	"github.com/innointernhub/backend/pkg/enums"
)

// Principal is the authenticated caller passed from handlers into services.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == enums.RoleAdmin
}

// Is reports whether the principal is the given user.
func (p Principal) Is(userID uuid.UUID) bool {
	return p.UserID != uuid.Nil && p.UserID == userID
}

// CanAccessOwned allows the owner of a resource or any admin.
func (p Principal) CanAccessOwned(ownerID uuid.UUID) bool {
	return p.IsAdmin() || p.Is(ownerID)
}
