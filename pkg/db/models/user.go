package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// User is an account belonging to one of the three parties. Admin users
// carry no organization reference.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string           `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string           `gorm:"column:password_hash;not null" json:"-"`
	Name         string           `gorm:"column:name;not null" json:"name"`
	Role         enums.MemberRole `gorm:"column:role;type:member_role;not null" json:"role"`
	OrgID        *uuid.UUID       `gorm:"column:org_id;type:uuid" json:"org_id,omitempty"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
