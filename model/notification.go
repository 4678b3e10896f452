package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationCategory represents the category of notification
type NotificationCategory string

const (
	NotificationCategoryStudyPlan     NotificationCategory = "study_plan"
	NotificationCategoryExamCountdown NotificationCategory = "exam_countdown"
	NotificationCategoryGeneral       NotificationCategory = "general"
)

// Notification is an in-app reminder for a user
type Notification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UserID    uint                 `gorm:"index;not null" json:"user_id"`
	SubjectID *uint                `gorm:"index" json:"subject_id,omitempty"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Title     string               `gorm:"type:varchar(255);not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Read      bool                 `json:"read"`
	Metadata  datatypes.JSON       `json:"metadata,omitempty"`
	DedupeKey string               `gorm:"type:varchar(100);index" json:"-"` // e.g. "exam_countdown:2026-10-19"
}

// NotificationMetadata represents common metadata fields
type NotificationMetadata struct {
	SubjectName string `json:"subject_name,omitempty"`
	ExamDate    string `json:"exam_date,omitempty"`
	DaysLeft    int    `json:"days_left,omitempty"`
	PlanDate    string `json:"plan_date,omitempty"`
}
