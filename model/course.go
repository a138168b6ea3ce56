package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course represents a subject taught by a department (e.g., CSE135 Data Structures)
type Course struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Code         string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_courses_department_code" json:"code"`
	Name         string    `gorm:"not null" json:"name"`
	Slug         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_courses_department_slug" json:"slug"`
	DepartmentID string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_courses_department_code;uniqueIndex:idx_courses_department_slug" json:"departmentId"`
	Credits      *float64  `json:"credits"`
	Semester     *int      `json:"semester"` // 1..8, "Y-T" imports map to (Y-1)*2+T
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Relationships
	Department *Department `gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE" json:"department,omitempty"`
	Questions  []Question  `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
