package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department belongs to a university; its slug is unique within that university
type Department struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Slug         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_departments_university_slug" json:"slug"`
	UniversityID string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_departments_university_slug" json:"universityId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Relationships
	University *University `gorm:"foreignKey:UniversityID;constraint:OnDelete:CASCADE" json:"university,omitempty"`
	Courses    []Course    `gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE" json:"courses,omitempty"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
