package model

import (
	"time"
)

// Learning-style preference values collected during onboarding.
const (
	ExamStyleEarly    = "미리미리"
	ExamStyleCramming = "벼락치기"

	LearningDepthPrinciple = "원리파악"
	LearningDepthIntuition = "직관이해"

	MaterialPreferenceText  = "텍스트"
	MaterialPreferenceVideo = "영상"

	PracticeStyleTheory   = "이론중심"
	PracticeStyleProblems = "문제중심"

	AIPersonaEncouraging = "격려형"
	AIPersonaStrict      = "엄격형"
)

// Theme values for the client UI.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// User represents a registered learner
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"type:varchar(80);not null" json:"username"`
	LoginID      string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"login_id"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Email        *string   `gorm:"type:varchar(120);uniqueIndex" json:"email"`
	School       string    `gorm:"type:varchar(100)" json:"school"`
	Major        string    `gorm:"type:varchar(100)" json:"major"`
	Grade        int       `json:"grade"`
	SocialType   *string   `gorm:"type:varchar(20)" json:"social_type"`
	SocialID     *string   `gorm:"type:varchar(100)" json:"social_id"`

	ExamStyle           *string `gorm:"type:varchar(20)" json:"exam_style"`
	LearningDepth       *string `gorm:"type:varchar(20)" json:"learning_depth"`
	MaterialPreference  *string `gorm:"type:varchar(20)" json:"material_preference"`
	PracticeStyle       *string `gorm:"type:varchar(20)" json:"practice_style"`
	AIPersona           *string `gorm:"type:varchar(20)" json:"ai_persona"`
	OnboardingCompleted bool    `json:"onboarding_completed"`

	Theme              string `gorm:"type:varchar(10)" json:"theme"`
	EmailNotifications bool   `json:"email_notifications"`
	PushNotifications  bool   `json:"push_notifications"`

	Subjects []Subject `gorm:"foreignKey:UserID" json:"-"`
}

// LearningStyle is the resolved set of onboarding preferences with defaults applied.
type LearningStyle struct {
	ExamStyle          string
	LearningDepth      string
	MaterialPreference string
	PracticeStyle      string
	AIPersona          string
}

// LearningStyle returns the user's preferences, falling back to defaults for unset values.
func (u *User) LearningStyle() LearningStyle {
	style := LearningStyle{
		ExamStyle:          ExamStyleEarly,
		LearningDepth:      LearningDepthPrinciple,
		MaterialPreference: MaterialPreferenceText,
		PracticeStyle:      PracticeStyleTheory,
		AIPersona:          AIPersonaEncouraging,
	}
	if u == nil {
		return style
	}
	if u.ExamStyle != nil && *u.ExamStyle != "" {
		style.ExamStyle = *u.ExamStyle
	}
	if u.LearningDepth != nil && *u.LearningDepth != "" {
		style.LearningDepth = *u.LearningDepth
	}
	if u.MaterialPreference != nil && *u.MaterialPreference != "" {
		style.MaterialPreference = *u.MaterialPreference
	}
	if u.PracticeStyle != nil && *u.PracticeStyle != "" {
		style.PracticeStyle = *u.PracticeStyle
	}
	if u.AIPersona != nil && *u.AIPersona != "" {
		style.AIPersona = *u.AIPersona
	}
	return style
}
