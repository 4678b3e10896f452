package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services/llm"
	"github.com/sahilchouksey/adaptive-tutor-api/services/normalizer"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizService owns the quiz lifecycle.
type QuizService struct {
	db  *gorm.DB
	llm *llm.Client
	log *logger.Logger
}

// NewQuizService creates a new quiz service
func NewQuizService(db *gorm.DB, client *llm.Client, log *logger.Logger) *QuizService {
	if log == nil {
		log = logger.NewNop()
	}
	return &QuizService{db: db, llm: client, log: log.With("component", "quizzes")}
}

// GenerateQuizRequest selects weeks and shapes the generated quiz.
type GenerateQuizRequest struct {
	SubjectID       uint
	UserID          uint
	WeekNumbers     []int
	Difficulty      string
	QuestionTypes   []string
	Language        string
	NumQuestions    int
	PastExamContext string
}

func (r *GenerateQuizRequest) applyDefaults() {
	if r.Difficulty == "" {
		r.Difficulty = model.DifficultyMedium
	}
	if len(r.QuestionTypes) == 0 {
		r.QuestionTypes = []string{model.QuestionTypeMultipleChoice}
	}
	if r.Language == "" {
		r.Language = "korean"
	}
	if r.NumQuestions == 0 {
		r.NumQuestions = 5
	}
}

// GenerateQuiz builds a quiz from the material texts of the selected weeks.
// Nothing is persisted unless the model returns enough questions.
func (s *QuizService) GenerateQuiz(ctx context.Context, req GenerateQuizRequest) (*model.Quiz, error) {
	req.applyDefaults()
	if len(req.WeekNumbers) == 0 {
		return nil, invalid("week_numbers", "at least one week must be selected")
	}
	if req.NumQuestions < 1 {
		return nil, invalid("num_questions", "num_questions must be positive")
	}

	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, req.SubjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("subject")
		}
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}
	if subject.UserID != req.UserID {
		return nil, ErrForbidden
	}

	material, weeks, err := s.collectMaterial(ctx, req.SubjectID, req.WeekNumbers)
	if err != nil {
		return nil, err
	}

	previous, err := s.latestReport(ctx, req.SubjectID, req.UserID)
	if err != nil {
		return nil, err
	}

	prompt := quizPrompt(quizPromptInput{
		Material:        material,
		Difficulty:      req.Difficulty,
		QuestionTypes:   req.QuestionTypes,
		NumQuestions:    req.NumQuestions,
		Language:        req.Language,
		Weeks:           weeks,
		PastExamContext: req.PastExamContext,
		PreviousReport:  previous,
	})
	res, err := s.llm.Run(ctx, llm.QuizPolicy, prompt, llm.CallOptions{
		Generation: llm.GenerationConfig{Temperature: llm.Float32(0.7)},
		Quota:      llm.QuotaAdvance,
	})
	if err != nil {
		return nil, err
	}

	drafts, err := normalizer.ParseQuestionSet(res.Text, req.NumQuestions)
	if err != nil {
		s.log.Warn("quiz response rejected", "subject_id", req.SubjectID, "model", res.Model, "error", err)
		return nil, err
	}

	quiz := model.Quiz{
		SubjectID:       req.SubjectID,
		UserID:          req.UserID,
		WeekNumbers:     datatypes.JSONSlice[int](weeks),
		Difficulty:      req.Difficulty,
		QuestionTypes:   datatypes.JSONSlice[string](req.QuestionTypes),
		Language:        req.Language,
		NumQuestions:    req.NumQuestions,
		PastExamContext: req.PastExamContext,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// numbers are never reused after a delete
		var last int
		if err := tx.Model(&model.Quiz{}).
			Where("subject_id = ? AND user_id = ?", req.SubjectID, req.UserID).
			Select("COALESCE(MAX(quiz_number), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to read last quiz number: %w", err)
		}
		quiz.QuizNumber = last + 1

		if err := tx.Create(&quiz).Error; err != nil {
			return fmt.Errorf("failed to create quiz: %w", err)
		}

		questions := make([]model.Question, len(drafts))
		for idx, d := range drafts {
			questions[idx] = model.Question{
				QuizID:        quiz.ID,
				QuestionType:  d.QuestionType,
				QuestionText:  d.QuestionText,
				Options:       datatypes.JSONSlice[string](d.Options),
				CorrectAnswer: d.CorrectAnswer,
				Explanation:   d.Explanation,
				KeyConcept:    d.KeyConcept,
				Position:      idx + 1,
			}
		}
		if err := tx.Create(&questions).Error; err != nil {
			return fmt.Errorf("failed to create questions: %w", err)
		}
		quiz.Questions = questions
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quiz generated", "quiz_id", quiz.ID, "subject_id", req.SubjectID, "questions", len(quiz.Questions), "model", res.Model)
	return &quiz, nil
}

// collectMaterial concatenates the PDF texts of the requested weeks and
// returns the weeks that contributed text.
func (s *QuizService) collectMaterial(ctx context.Context, subjectID uint, weekNumbers []int) (string, []int, error) {
	var sections []string
	var weeks []int
	seen := make(map[int]bool, len(weekNumbers))

	for _, weekNo := range weekNumbers {
		if seen[weekNo] {
			continue
		}
		seen[weekNo] = true

		var texts []model.MaterialText
		err := s.db.WithContext(ctx).
			Joins("JOIN weeks ON weeks.id = material_texts.week_id").
			Where("weeks.subject_id = ? AND weeks.week_number = ?", subjectID, weekNo).
			Order("material_texts.id ASC").
			Find(&texts).Error
		if err != nil {
			return "", nil, fmt.Errorf("failed to load week %d material: %w", weekNo, err)
		}

		contributed := false
		for _, t := range texts {
			body := strings.TrimSpace(t.ExtractedText)
			if body == "" {
				continue
			}
			sections = append(sections, fmt.Sprintf("=== Week %d - %s ===\n%s", weekNo, t.FileName, body))
			contributed = true
		}
		if contributed {
			weeks = append(weeks, weekNo)
		}
	}

	if len(sections) == 0 {
		return "", nil, ErrNoMaterials
	}
	return truncateRunes(strings.Join(sections, "\n\n"), quizContextBudget), weeks, nil
}

func (s *QuizService) latestReport(ctx context.Context, subjectID, userID uint) (string, error) {
	var report model.QuizReport
	err := s.db.WithContext(ctx).
		Joins("JOIN quizzes ON quizzes.id = quiz_reports.quiz_id").
		Where("quizzes.subject_id = ? AND quizzes.user_id = ?", subjectID, userID).
		Order("quiz_reports.created_at DESC").
		Order("quiz_reports.id DESC").
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load latest report: %w", err)
	}
	return report.AIReport, nil
}

// SubmittedAnswer is one answer in a submission.
type SubmittedAnswer struct {
	QuestionID uint
	Answer     string
}

// AnswerResult is the graded outcome of one question.
type AnswerResult struct {
	QuestionID    uint   `json:"question_id"`
	IsCorrect     bool   `json:"is_correct"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	KeyConcept    string `json:"key_concept"`
}

// SubmitResult is a graded submission with its report.
type SubmitResult struct {
	Score   int
	Total   int
	Results []AnswerResult
	Report  *model.QuizReport
}

// normalizeAnswer uppercases and drops every whitespace rune.
func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), "")
}

// AnswersMatch compares a submitted answer with the canonical one.
func AnswersMatch(submitted, canonical string) bool {
	return normalizeAnswer(submitted) == normalizeAnswer(canonical)
}

// SubmitQuiz grades answers and replaces any previous responses and report.
// Every question gets a response; unanswered ones are stored blank and wrong.
func (s *QuizService) SubmitQuiz(ctx context.Context, quizID, userID uint, answers []SubmittedAnswer) (*SubmitResult, error) {
	quiz, err := s.getOwned(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}

	var questions []model.Question
	if err := s.db.WithContext(ctx).Where("quiz_id = ?", quizID).Order("position ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	submitted := make(map[uint]string, len(answers))
	for _, a := range answers {
		submitted[a.QuestionID] = strings.TrimSpace(a.Answer)
	}

	result := &SubmitResult{Total: len(questions), Results: make([]AnswerResult, 0, len(questions))}
	responses := make([]model.UserResponse, 0, len(questions))
	graded := make([]gradedAnswer, 0, len(questions))

	for _, q := range questions {
		answer := submitted[q.ID]
		correct := answer != "" && AnswersMatch(answer, q.CorrectAnswer)
		if correct {
			result.Score++
		}
		responses = append(responses, model.UserResponse{
			QuizID:     quiz.ID,
			QuestionID: q.ID,
			UserAnswer: answer,
			IsCorrect:  correct,
		})
		result.Results = append(result.Results, AnswerResult{
			QuestionID:    q.ID,
			IsCorrect:     correct,
			UserAnswer:    answer,
			CorrectAnswer: strings.TrimSpace(q.CorrectAnswer),
			Explanation:   q.Explanation,
			KeyConcept:    q.KeyConcept,
		})
		graded = append(graded, gradedAnswer{
			Position:      q.Position,
			KeyConcept:    q.KeyConcept,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
		})
	}

	var prev *previousAttempt
	var existing model.QuizReport
	err = s.db.WithContext(ctx).Where("quiz_id = ?", quizID).First(&existing).Error
	switch {
	case err == nil:
		prev = &previousAttempt{Score: existing.Score, Summary: truncateRunes(existing.AIReport, previousReportBudget)}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load previous report: %w", err)
	}

	narrative := s.narrative(ctx, quizID, result.Score, result.Total, graded, prev)
	report := model.QuizReport{
		QuizID:   quiz.ID,
		Score:    result.Score,
		Total:    result.Total,
		AIReport: narrative,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.UserResponse{}).Error; err != nil {
			return fmt.Errorf("failed to delete previous responses: %w", err)
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizReport{}).Error; err != nil {
			return fmt.Errorf("failed to delete previous report: %w", err)
		}
		if len(responses) > 0 {
			if err := tx.Create(&responses).Error; err != nil {
				return fmt.Errorf("failed to store responses: %w", err)
			}
		}
		if err := tx.Create(&report).Error; err != nil {
			return fmt.Errorf("failed to store report: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Report = &report
	s.log.Info("quiz graded", "quiz_id", quizID, "score", result.Score, "total", result.Total, "resubmission", prev != nil)
	return result, nil
}

// narrative asks for the report text, falling back to a fixed notice so a
// provider failure never loses the grading.
func (s *QuizService) narrative(ctx context.Context, quizID uint, score, total int, graded []gradedAnswer, prev *previousAttempt) string {
	res, err := s.llm.Run(ctx, llm.QuizPolicy, reportPrompt(score, total, graded, prev), llm.CallOptions{
		Generation: llm.GenerationConfig{Temperature: llm.Float32(0.7)},
		Quota:      llm.QuotaAdvance,
	})
	if err != nil {
		s.log.Warn("report generation failed, storing fallback", "quiz_id", quizID, "kind", llm.KindOf(err), "error", err)
		return fallbackReport(score, total)
	}
	return strings.TrimSpace(res.Text)
}

// QuizDetail is a quiz with its ordered questions, any stored responses keyed
// by question id, and its report.
type QuizDetail struct {
	Quiz      *model.Quiz
	Questions []model.Question
	Responses map[uint]model.UserResponse
	Report    *model.QuizReport
}

// GetQuiz reads a quiz together with any recorded attempt.
func (s *QuizService) GetQuiz(ctx context.Context, quizID uint) (*QuizDetail, error) {
	quiz, err := s.get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	var questions []model.Question
	if err := s.db.WithContext(ctx).Where("quiz_id = ?", quizID).Order("position ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	var responses []model.UserResponse
	if err := s.db.WithContext(ctx).Where("quiz_id = ?", quizID).Find(&responses).Error; err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	byQuestion := make(map[uint]model.UserResponse, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}

	detail := &QuizDetail{Quiz: quiz, Questions: questions, Responses: byQuestion}
	var report model.QuizReport
	err = s.db.WithContext(ctx).Where("quiz_id = ?", quizID).First(&report).Error
	switch {
	case err == nil:
		detail.Report = &report
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return detail, nil
}

// History lists a learner's quizzes for a subject, newest first, with reports.
func (s *QuizService) History(ctx context.Context, subjectID, userID uint) ([]model.Quiz, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).Select("id").First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("subject")
		}
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}

	var quizzes []model.Quiz
	err := s.db.WithContext(ctx).
		Where("subject_id = ? AND user_id = ?", subjectID, userID).
		Preload("Report").
		Order("created_at DESC").
		Order("id DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}

// DeleteQuiz removes a quiz the user owns and everything hanging off it.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID, userID uint) error {
	if _, err := s.getOwned(ctx, quizID, userID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteQuizzes(tx, []uint{quizID})
	})
}

func (s *QuizService) getOwned(ctx context.Context, quizID, userID uint) (*model.Quiz, error) {
	quiz, err := s.get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.UserID != userID {
		return nil, ErrForbidden
	}
	return quiz, nil
}

func (s *QuizService) get(ctx context.Context, quizID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := s.db.WithContext(ctx).First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("quiz")
		}
		return nil, fmt.Errorf("failed to fetch quiz: %w", err)
	}
	return &quiz, nil
}
