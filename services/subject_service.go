package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services/storage"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"gorm.io/gorm"
)

// SubjectService manages subjects, their weeks and exam settings.
type SubjectService struct {
	db        *gorm.DB
	store     *storage.LocalStore
	extractor *PDFExtractor
	analysis  *AnalysisService
	allowed   func(ext string) bool
	log       *logger.Logger
}

// NewSubjectService creates a new subject service
func NewSubjectService(db *gorm.DB, store *storage.LocalStore, extractor *PDFExtractor, analysis *AnalysisService, allowed func(ext string) bool, log *logger.Logger) *SubjectService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SubjectService{
		db:        db,
		store:     store,
		extractor: extractor,
		analysis:  analysis,
		allowed:   allowed,
		log:       log.With("component", "subjects"),
	}
}

// CreateSubjectRequest represents an uploaded syllabus
type CreateSubjectRequest struct {
	UserID      uint
	Name        string
	SubjectType string
	FileName    string
	File        io.Reader
}

// CreateSubject stores the syllabus, extracts its text, creates the subject
// and runs the first analysis.
func (s *SubjectService) CreateSubject(ctx context.Context, req CreateSubjectRequest) (*AnalysisOutcome, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	subjectType, ok := model.NormalizeSubjectType(req.SubjectType)
	if !ok {
		return nil, invalid("subject_type", "subject_type must be liberal or major")
	}
	ext := storage.Extension(req.FileName)
	if req.FileName == "" || !s.allowed(ext) {
		return nil, invalid("file", "file type %q is not allowed", ext)
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	rel, _, err := s.store.Save(ctx, storage.SyllabusDir, req.UserID, req.FileName, req.File)
	if err != nil {
		return nil, err
	}

	text := ""
	if ext == "pdf" {
		text = s.extractor.ExtractFile(s.store.Abs(rel))
	}

	subject := model.Subject{
		UserID:           req.UserID,
		Name:             name,
		SubjectType:      subjectType,
		SyllabusFilePath: rel,
		SyllabusText:     text,
		IsNotificationOn: true,
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		_ = s.store.Remove(ctx, rel)
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			_ = s.store.Remove(ctx, rel)
			panic(r)
		}
	}()

	var count int64
	var maxOrder sql.NullInt64
	if err := tx.Model(&model.Subject{}).Where("user_id = ?", req.UserID).Count(&count).Error; err != nil {
		tx.Rollback()
		_ = s.store.Remove(ctx, rel)
		return nil, fmt.Errorf("failed to count subjects: %w", err)
	}
	if err := tx.Model(&model.Subject{}).Where("user_id = ?", req.UserID).
		Select("MAX(display_order)").Row().Scan(&maxOrder); err != nil {
		tx.Rollback()
		_ = s.store.Remove(ctx, rel)
		return nil, fmt.Errorf("failed to read subject order: %w", err)
	}

	order := 1
	if maxOrder.Valid {
		order = int(maxOrder.Int64) + 1
	}
	subject.DisplayOrder = &order
	subject.Color = model.PastelColors[int(count)%len(model.PastelColors)]

	if err := tx.Create(&subject).Error; err != nil {
		tx.Rollback()
		_ = s.store.Remove(ctx, rel)
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		_ = s.store.Remove(ctx, rel)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Info("subject created", "subject_id", subject.ID, "user_id", req.UserID, "text_chars", len(text))

	if subject.AnalysisState() == model.AnalysisNoText {
		return &AnalysisOutcome{Subject: &subject, Status: string(model.AnalysisNoText)}, nil
	}
	return s.analysis.EnsureAnalyzed(ctx, subject.ID)
}

// ListSubjects returns a user's subjects in display order.
func (s *SubjectService) ListSubjects(ctx context.Context, userID uint) ([]model.Subject, error) {
	var subjects []model.Subject
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("display_order ASC").
		Order("id ASC").
		Find(&subjects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

// SubjectDetail is a subject with its weeks and materials.
type SubjectDetail struct {
	Subject        *model.Subject
	Weeks          []model.Week
	AnalysisStatus string
}

// GetSubjectDetail checks the analysis state first, analyzing an unanalyzed
// course, then reads the subject tree.
func (s *SubjectService) GetSubjectDetail(ctx context.Context, subjectID uint) (*SubjectDetail, error) {
	outcome, err := s.analysis.EnsureAnalyzed(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	var weeks []model.Week
	err = s.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("week_number ASC").
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at ASC")
		}).
		Find(&weeks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load weeks: %w", err)
	}

	return &SubjectDetail{Subject: outcome.Subject, Weeks: weeks, AnalysisStatus: outcome.Status}, nil
}

// DeleteSubject removes a subject and its tree. A non-nil userID must own it.
func (s *SubjectService) DeleteSubject(ctx context.Context, subjectID uint, userID *uint) error {
	subject, err := s.get(ctx, subjectID)
	if err != nil {
		return err
	}
	if userID != nil && subject.UserID != *userID {
		return ErrForbidden
	}

	var files []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		files, err = deleteSubjects(tx, []uint{subjectID})
		return err
	})
	if err != nil {
		return err
	}

	s.store.RemoveAll(ctx, files)
	s.log.Info("subject deleted", "subject_id", subjectID, "files", len(files))
	return nil
}

// UpdateWeekTopic renames a scheduled week in the analysis and its Week row.
func (s *SubjectService) UpdateWeekTopic(ctx context.Context, subjectID uint, weekNo int, topic string) (*model.Subject, error) {
	subject, err := s.get(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject.Analysis.Result == nil {
		return nil, ErrNoAnalysis
	}

	found := false
	for i := range subject.Analysis.Result.WeeklySchedule {
		if subject.Analysis.Result.WeeklySchedule[i].WeekNo == weekNo {
			subject.Analysis.Result.WeeklySchedule[i].Topic = topic
			found = true
		}
	}
	if !found {
		return nil, ErrWeekNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Subject{}).Where("id = ?", subjectID).
			Update("syllabus_analysis", subject.Analysis).Error; err != nil {
			return fmt.Errorf("failed to update analysis: %w", err)
		}
		if err := tx.Model(&model.Week{}).
			Where("subject_id = ? AND week_number = ?", subjectID, weekNo).
			Update("title", topic).Error; err != nil {
			return fmt.Errorf("failed to update week title: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subject, nil
}

// ReorderSubjects sets display_order to each id's position, starting at 1.
// Every id must belong to the user.
func (s *SubjectService) ReorderSubjects(ctx context.Context, userID uint, subjectIDs []uint) error {
	if len(subjectIDs) == 0 {
		return invalid("subject_ids", "subject_ids must not be empty")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&model.Subject{}).
			Where("user_id = ? AND id IN ?", userID, subjectIDs).
			Count(&owned).Error; err != nil {
			return fmt.Errorf("failed to verify subjects: %w", err)
		}
		if int(owned) != len(uniqueIDs(subjectIDs)) {
			return notFound("subject")
		}
		for idx, id := range subjectIDs {
			if err := tx.Model(&model.Subject{}).Where("id = ?", id).
				Update("display_order", idx+1).Error; err != nil {
				return fmt.Errorf("failed to reorder subject %d: %w", id, err)
			}
		}
		return nil
	})
}

// UpdateColor sets a subject's color; color format is validated by the caller.
func (s *SubjectService) UpdateColor(ctx context.Context, subjectID, userID uint, color string) (*model.Subject, error) {
	subject, err := s.get(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject.UserID != userID {
		return nil, ErrForbidden
	}
	if err := s.db.WithContext(ctx).Model(subject).Update("color", color).Error; err != nil {
		return nil, fmt.Errorf("failed to update color: %w", err)
	}
	return subject, nil
}

// ExamSettings is the exam metadata of a subject.
type ExamSettings struct {
	ExamDate  time.Time
	ExamType  *string
	WeekStart *int
	WeekEnd   *int
}

// SetExamDate stores exam settings. A change of day, type or week range
// discards the stored study plan.
func (s *SubjectService) SetExamDate(ctx context.Context, subjectID uint, settings ExamSettings) (*model.Subject, error) {
	if settings.ExamType != nil && *settings.ExamType != model.ExamTypeMidterm && *settings.ExamType != model.ExamTypeFinal {
		return nil, invalid("exam_type", "exam_type must be midterm or final")
	}
	if (settings.WeekStart == nil) != (settings.WeekEnd == nil) {
		return nil, invalid("exam_week_start", "exam_week_start and exam_week_end must be set together")
	}
	if settings.WeekStart != nil && (*settings.WeekStart < 1 || *settings.WeekEnd < *settings.WeekStart) {
		return nil, invalid("exam_week_end", "exam week range must satisfy 1 <= start <= end")
	}

	subject, err := s.get(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"exam_date":       settings.ExamDate,
		"exam_type":       settings.ExamType,
		"exam_week_start": settings.WeekStart,
		"exam_week_end":   settings.WeekEnd,
	}
	if examChanged(subject, settings) {
		updates["study_plan"] = gorm.Expr("NULL")
	}

	if err := s.db.WithContext(ctx).Model(&model.Subject{}).Where("id = ?", subjectID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update exam date: %w", err)
	}
	return s.get(ctx, subjectID)
}

// ClearExamDate removes the exam date and the stored plan.
func (s *SubjectService) ClearExamDate(ctx context.Context, subjectID uint) (*model.Subject, error) {
	if _, err := s.get(ctx, subjectID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Model(&model.Subject{}).Where("id = ?", subjectID).
		Updates(map[string]interface{}{
			"exam_date":  gorm.Expr("NULL"),
			"study_plan": gorm.Expr("NULL"),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to clear exam date: %w", err)
	}
	return s.get(ctx, subjectID)
}

// SetNotification toggles reminders for a subject.
func (s *SubjectService) SetNotification(ctx context.Context, subjectID uint, on bool) (*model.Subject, error) {
	if _, err := s.get(ctx, subjectID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.Subject{}).Where("id = ?", subjectID).
		Update("is_notification_on", on).Error; err != nil {
		return nil, fmt.Errorf("failed to update notification setting: %w", err)
	}
	return s.get(ctx, subjectID)
}

func examChanged(subject *model.Subject, next ExamSettings) bool {
	if subject.ExamDate == nil || !sameDay(*subject.ExamDate, next.ExamDate) {
		return true
	}
	return !equalStringPtr(subject.ExamType, next.ExamType) ||
		!equalIntPtr(subject.ExamWeekStart, next.WeekStart) ||
		!equalIntPtr(subject.ExamWeekEnd, next.WeekEnd)
}

func sameDay(a, b time.Time) bool {
	return a.In(KST).Format(dateLayout) == b.In(KST).Format(dateLayout)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s *SubjectService) get(ctx context.Context, subjectID uint) (*model.Subject, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("subject")
		}
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}
	return &subject, nil
}
