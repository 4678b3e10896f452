package model

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz difficulties.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question types.
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeShortAnswer    = "short_answer"
)

// Quiz is one generated practice quiz over selected weeks of a subject.
type Quiz struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time                   `json:"created_at"`
	SubjectID       uint                        `gorm:"index;uniqueIndex:idx_quiz_number;not null" json:"subject_id"`
	UserID          uint                        `gorm:"index;uniqueIndex:idx_quiz_number;not null" json:"user_id"`
	WeekNumbers     datatypes.JSONSlice[int]    `json:"week_numbers"`
	Difficulty      string                      `gorm:"type:varchar(20)" json:"difficulty"`
	QuestionTypes   datatypes.JSONSlice[string] `json:"question_types"`
	Language        string                      `gorm:"type:varchar(20)" json:"language"`
	NumQuestions    int                         `json:"num_questions"`
	PastExamContext string                      `gorm:"type:text" json:"past_exam_context"`
	QuizNumber      int                         `gorm:"uniqueIndex:idx_quiz_number;not null" json:"quiz_number"`

	Subject   *Subject    `gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE" json:"-"`
	Questions []Question  `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	Report    *QuizReport `gorm:"foreignKey:QuizID" json:"report,omitempty"`
}

// Question is one question of a quiz; Position defines display and grading order.
type Question struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	QuizID        uint                        `gorm:"index;not null" json:"quiz_id"`
	QuestionType  string                      `gorm:"type:varchar(30)" json:"question_type"`
	QuestionText  string                      `gorm:"type:text;not null" json:"question_text"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                      `gorm:"type:text" json:"correct_answer"`
	Explanation   string                      `gorm:"type:text" json:"explanation"`
	KeyConcept    string                      `gorm:"type:varchar(200)" json:"key_concept"`
	Position      int                         `gorm:"not null" json:"order"`

	Quiz *Quiz `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"-"`
}

// UserResponse is a learner's graded answer to one question.
type UserResponse struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	QuizID      uint      `gorm:"index;not null" json:"quiz_id"`
	QuestionID  uint      `gorm:"index;not null" json:"question_id"`
	UserAnswer  string    `gorm:"type:text" json:"user_answer"`
	IsCorrect   bool      `json:"is_correct"`
	SubmittedAt time.Time `gorm:"autoCreateTime" json:"submitted_at"`

	Quiz     *Quiz     `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"-"`
	Question *Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
}

// QuizReport is the single graded report of a quiz.
type QuizReport struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	QuizID    uint      `gorm:"uniqueIndex;not null" json:"quiz_id"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	AIReport  string    `gorm:"type:text" json:"ai_report"`
}
