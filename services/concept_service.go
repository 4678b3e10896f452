package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services/llm"
	"github.com/sahilchouksey/adaptive-tutor-api/services/normalizer"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// minConceptSourceChars is the shortest extracted text worth sending.
const minConceptSourceChars = 50

var conceptRetry = llm.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 2 * time.Second,
	MaxBackoff:     30 * time.Second,
}

var conceptGeneration = llm.GenerationConfig{
	Temperature:     llm.Float32(0.7),
	TopP:            llm.Float32(0.95),
	TopK:            llm.Int32(40),
	MaxOutputTokens: llm.Int32(16384),
}

// ConceptService generates and caches per-week study content.
type ConceptService struct {
	db  *gorm.DB
	llm *llm.Client
	log *logger.Logger
}

// NewConceptService creates a new concept service
func NewConceptService(db *gorm.DB, client *llm.Client, log *logger.Logger) *ConceptService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ConceptService{db: db, llm: client, log: log.With("component", "concepts")}
}

// ConceptResult is generated or cached content.
type ConceptResult struct {
	Content string
	Cached  bool
}

// Generate returns the cached content for (week, mode) unless force is set,
// otherwise builds it from the week's PDF texts and stores it.
func (s *ConceptService) Generate(ctx context.Context, weekID uint, mode string, force bool) (*ConceptResult, error) {
	if mode == "" {
		mode = model.ConceptModeSummary
	}
	if mode != model.ConceptModeSummary && mode != model.ConceptModeDeepDive {
		return nil, invalid("mode", `mode must be "summary" or "deep_dive"`)
	}

	var week model.Week
	if err := s.db.WithContext(ctx).First(&week, weekID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("week")
		}
		return nil, fmt.Errorf("failed to fetch week: %w", err)
	}

	if !force {
		var cached model.ConceptContent
		err := s.db.WithContext(ctx).Where("week_id = ? AND mode = ?", weekID, mode).First(&cached).Error
		if err == nil {
			return &ConceptResult{Content: cached.Content, Cached: true}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to read cached content: %w", err)
		}
	}

	lectureText, err := s.lectureText(ctx, weekID)
	if err != nil {
		return nil, err
	}

	res, err := s.llm.Run(ctx, llm.ContentPolicy, conceptPrompt(mode, week.WeekNumber, lectureText), llm.CallOptions{
		Generation: conceptGeneration,
		Retry:      conceptRetry,
		Quota:      llm.QuotaRetry,
		MinLength:  minConceptSourceChars,
	})
	if err != nil {
		return nil, err
	}

	content := model.ConceptContent{
		WeekID:  weekID,
		Mode:    mode,
		Content: normalizer.CleanMarkdown(res.Text),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "week_id"}, {Name: "mode"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&content).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store concept content: %w", err)
	}

	s.log.Info("concept content generated", "week_id", weekID, "mode", mode, "model", res.Model, "chars", len([]rune(content.Content)))
	return &ConceptResult{Content: content.Content}, nil
}

// lectureText joins the week's usable PDF texts under file headings and
// applies the character budget.
func (s *ConceptService) lectureText(ctx context.Context, weekID uint) (string, error) {
	var texts []model.MaterialText
	if err := s.db.WithContext(ctx).Where("week_id = ?", weekID).Order("id ASC").Find(&texts).Error; err != nil {
		return "", fmt.Errorf("failed to load material texts: %w", err)
	}
	if len(texts) == 0 {
		return "", notFound("pdf material")
	}

	sections := make([]string, 0, len(texts))
	for _, t := range texts {
		body := strings.TrimSpace(t.ExtractedText)
		if len([]rune(body)) < minConceptSourceChars {
			continue
		}
		if strings.TrimSpace(t.FileName) != "" {
			sections = append(sections, fmt.Sprintf("## 📄 %s\n\n%s", t.FileName, body))
		} else {
			sections = append(sections, body)
		}
	}
	if len(sections) == 0 {
		return "", ErrNoText
	}

	text := strings.Join(sections, "\n\n")
	if len([]rune(text)) > conceptContextBudget {
		text = truncateRunes(text, conceptContextBudget) + conceptTruncationSuffix
	}
	return text, nil
}
