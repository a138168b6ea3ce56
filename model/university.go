package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// University represents an institution whose exam papers are archived
type University struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Slug      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"` // e.g., "kuet", "buet"
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relationships
	Departments []Department `gorm:"foreignKey:UniversityID;constraint:OnDelete:CASCADE" json:"departments,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not provide an ID
func (u *University) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
