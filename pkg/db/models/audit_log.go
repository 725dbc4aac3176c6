package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/innointernhub/backend/pkg/enums"
)

// AuditLog records administrative actions. Rows are append-only.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Action     enums.AuditAction `gorm:"column:action;not null"`
	EntityType enums.AuditEntity `gorm:"column:entity_type;not null"`
	EntityID   uuid.UUID         `gorm:"column:entity_id;type:uuid;not null"`
	Details    json.RawMessage   `gorm:"column:details;type:jsonb"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
