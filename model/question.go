package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultExamType is used when neither the question nor its batch names an exam
const DefaultExamType = "Final"

// Question is a single exam question; content is markdown
type Question struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CourseID   string    `gorm:"type:varchar(36);not null;index" json:"courseId"`
	Year       int       `gorm:"not null;index" json:"year"`
	ExamType   string    `gorm:"type:varchar(50);not null;default:'Final'" json:"examType"` // e.g., "Final", "Mid", "CT1"
	QuestionNo *int      `json:"questionNo"`
	Marks      *int      `json:"marks"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Relationships
	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Answer *Answer `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answer"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// Answer holds the worked solution for a question
type Answer struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	QuestionID  string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"questionId"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Source      *string   `json:"source"`      // book or paper the answer was taken from
	Contributor *string   `json:"contributor"` // who wrote it
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every table in dependency order for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&University{},
		&Department{},
		&Course{},
		&Question{},
		&Answer{},
	}
}
