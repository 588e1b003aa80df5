package types

import (
	"time"

	"github.com/google/uuid"
)

// Quota is a per-user, per-feature generation allowance.
type Quota struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_quota_user_feature,unique,priority:1" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Feature   string    `gorm:"not null;index:idx_quota_user_feature,unique,priority:2" json:"feature"`
	Remaining int       `gorm:"not null;default:0" json:"remaining"`
	Used      int       `gorm:"not null;default:0" json:"used"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Quota) TableName() string {
	return "quota"
}
