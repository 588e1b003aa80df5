package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Article is one saved generation result (article body, thesis outline,
// case report, ...). Kind matches the generation feature that produced it.
type Article struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`

	Kind  string `gorm:"column:kind;not null;index" json:"kind"` // article|title|case_summary|case_topic|case_report|paragraph|outline
	Title string `gorm:"column:title" json:"title"`
	// Inputs keeps the form payload that drove the run, for regeneration.
	Inputs   datatypes.JSON `gorm:"column:inputs" json:"inputs,omitempty"`
	Content  string         `gorm:"column:content;type:text" json:"content"`
	FileURLs datatypes.JSON `gorm:"column:file_urls" json:"file_urls,omitempty"`

	TaskID    string         `gorm:"column:task_id;index" json:"task_id"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Article) TableName() string {
	return "article"
}
