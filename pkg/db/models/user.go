package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/innointernhub/backend/pkg/enums"
)

// User is the account record certificates, notifications and points hang off.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string     `gorm:"type:text;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;not null"`
	Role      enums.Role `gorm:"column:role;type:user_role;not null"`
	Points    int        `gorm:"column:points;not null;default:0"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
