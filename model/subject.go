package model

import (
	"strconv"
	"strings"
	"time"
)

// Subject types. The Korean labels are accepted on input and mapped.
const (
	SubjectTypeLiberal = "liberal"
	SubjectTypeMajor   = "major"
)

// Exam types.
const (
	ExamTypeMidterm = "midterm"
	ExamTypeFinal   = "final"
)

// PastelColors is the palette assigned to new subjects by count.
var PastelColors = []string{
	"#A8D5E2", "#B8D4C1", "#D4B8E8", "#F5C2C7",
	"#FFD4A3", "#C4E0F6", "#E8D0B3", "#B5C9E8",
	"#D9E5C9", "#F0D5C4", "#C8D8E8", "#E5D4E8",
}

// NormalizeSubjectType maps accepted labels to the canonical value.
func NormalizeSubjectType(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SubjectTypeLiberal, "교양":
		return SubjectTypeLiberal, true
	case SubjectTypeMajor, "전공":
		return SubjectTypeMajor, true
	}
	return "", false
}

// Subject is a course a learner follows, built from an uploaded syllabus.
type Subject struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	UserID           uint             `gorm:"index;not null" json:"user_id"`
	Name             string           `gorm:"type:varchar(100);not null" json:"name"`
	SubjectType      string           `gorm:"type:varchar(20);not null" json:"subject_type"`
	SyllabusFilePath string           `gorm:"type:varchar(255)" json:"syllabus_file_path"`
	SyllabusText     string           `gorm:"type:text" json:"-"`
	Analysis         SyllabusAnalysis `gorm:"column:syllabus_analysis" json:"syllabus_analysis"`
	Color            string           `gorm:"type:varchar(7)" json:"color"`
	DisplayOrder     *int             `gorm:"column:display_order" json:"order"`

	ExamDate         *time.Time `json:"exam_date"`
	ExamType         *string    `gorm:"type:varchar(20)" json:"exam_type"`
	ExamWeekStart    *int       `json:"exam_week_start"`
	ExamWeekEnd      *int       `json:"exam_week_end"`
	IsNotificationOn bool       `json:"is_notification_on"`
	StudyPlan        *StudyPlan `json:"study_plan"`

	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Weeks []Week `gorm:"foreignKey:SubjectID" json:"weeks,omitempty"`
}

// AnalysisState derives the analysis lifecycle state.
func (s *Subject) AnalysisState() AnalysisState {
	switch {
	case s.Analysis.Failure != nil:
		return AnalysisFailed
	case s.Analysis.Result != nil:
		return AnalysisAnalyzed
	case strings.TrimSpace(s.SyllabusText) == "":
		return AnalysisNoText
	default:
		return AnalysisUnanalyzed
	}
}

// HasExamRange reports whether both ends of the exam week range are set.
func (s *Subject) HasExamRange() bool {
	return s.ExamWeekStart != nil && s.ExamWeekEnd != nil
}

// Week is one numbered week of a subject.
type Week struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	SubjectID   uint      `gorm:"uniqueIndex:idx_subject_week;not null" json:"subject_id"`
	WeekNumber  int       `gorm:"uniqueIndex:idx_subject_week;not null" json:"week_number"`
	Title       string    `gorm:"type:varchar(200)" json:"title"`
	Description string    `gorm:"type:text" json:"description"`

	Subject   *Subject   `gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE" json:"-"`
	Materials []Material `gorm:"foreignKey:WeekID" json:"materials"`
}

// DefaultWeekTitle is used when the schedule has no topic for a week.
func DefaultWeekTitle(weekNumber int) string {
	return "Week " + strconv.Itoa(weekNumber)
}

// HasStudyPlan reports whether a non-empty plan is stored.
func (s *Subject) HasStudyPlan() bool {
	return s.StudyPlan != nil && len(s.StudyPlan.Plan) > 0
}
