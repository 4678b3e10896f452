package model

import (
	"strings"
	"time"
)

// Material is a file uploaded for a week.
type Material struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	WeekID     uint      `gorm:"index;not null" json:"week_id"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath   string    `gorm:"type:varchar(500);not null" json:"file_path"`
	FileType   string    `gorm:"type:varchar(20)" json:"file_type"`
	FileSize   int64     `json:"file_size"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	Week *Week `gorm:"foreignKey:WeekID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsPDF reports whether the material carries extractable PDF text.
func (m *Material) IsPDF() bool {
	return strings.EqualFold(m.FileType, "pdf")
}

// MaterialText is the companion extracted-text record of a PDF material.
type MaterialText struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	MaterialID    uint      `gorm:"uniqueIndex;not null" json:"material_id"`
	SubjectID     uint      `gorm:"index;not null" json:"subject_id"`
	WeekID        uint      `gorm:"index;not null" json:"week_id"`
	FileName      string    `gorm:"type:varchar(255)" json:"file_name"`
	FilePath      string    `gorm:"type:varchar(500)" json:"file_path"`
	FileSize      int64     `json:"file_size"`
	ExtractedText string    `gorm:"type:text" json:"-"`

	Material *Material `gorm:"foreignKey:MaterialID;constraint:OnDelete:CASCADE" json:"-"`
}

// Concept content modes.
const (
	ConceptModeSummary  = "summary"
	ConceptModeDeepDive = "deep_dive"
)

// ConceptContent caches generated study content per (week, mode).
type ConceptContent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	WeekID    uint      `gorm:"uniqueIndex:idx_week_mode;not null" json:"week_id"`
	Mode      string    `gorm:"uniqueIndex:idx_week_mode;type:varchar(20);not null" json:"mode"`
	Content   string    `gorm:"type:text;not null" json:"content"`

	Week *Week `gorm:"foreignKey:WeekID;constraint:OnDelete:CASCADE" json:"-"`
}
