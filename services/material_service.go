package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services/storage"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"gorm.io/gorm"
)

// MaterialService handles per-week lecture material uploads.
type MaterialService struct {
	db        *gorm.DB
	store     *storage.LocalStore
	extractor *PDFExtractor
	allowed   func(ext string) bool
	log       *logger.Logger
}

// NewMaterialService creates a new material service
func NewMaterialService(db *gorm.DB, store *storage.LocalStore, extractor *PDFExtractor, allowed func(ext string) bool, log *logger.Logger) *MaterialService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MaterialService{db: db, store: store, extractor: extractor, allowed: allowed, log: log.With("component", "materials")}
}

// UploadMaterialRequest is one uploaded file for a week. When the week does
// not exist yet, SubjectID and WeekNumber identify the week to create.
type UploadMaterialRequest struct {
	WeekID     uint
	SubjectID  *uint
	WeekNumber *int
	FileName   string
	File       io.Reader
}

// UploadResult is a stored material with the id of its text record, if any.
type UploadResult struct {
	Material       *model.Material
	MaterialTextID *uint
}

// UploadMaterial stores a file under the week and, for PDFs, records the
// extracted text alongside it.
func (s *MaterialService) UploadMaterial(ctx context.Context, req UploadMaterialRequest) (*UploadResult, error) {
	ext := storage.Extension(req.FileName)
	if req.FileName == "" || !s.allowed(ext) {
		return nil, invalid("file", "file type %q is not allowed", ext)
	}

	week, err := s.resolveWeek(ctx, req)
	if err != nil {
		return nil, err
	}

	var subject model.Subject
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&subject, week.SubjectID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}

	rel, size, err := s.store.Save(ctx, storage.MaterialsDir, subject.UserID, req.FileName, req.File)
	if err != nil {
		return nil, err
	}

	material := model.Material{
		WeekID:   week.ID,
		FileName: req.FileName,
		FilePath: rel,
		FileType: ext,
		FileSize: size,
	}
	var textID *uint

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&material).Error; err != nil {
			return fmt.Errorf("failed to create material: %w", err)
		}
		if !material.IsPDF() {
			return nil
		}
		text := s.extractor.ExtractFile(s.store.Abs(rel))
		record := model.MaterialText{
			MaterialID:    material.ID,
			SubjectID:     week.SubjectID,
			WeekID:        week.ID,
			FileName:      req.FileName,
			FilePath:      rel,
			FileSize:      size,
			ExtractedText: text,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to store material text: %w", err)
		}
		textID = &record.ID
		return nil
	})
	if err != nil {
		_ = s.store.Remove(ctx, rel)
		return nil, err
	}

	s.log.Info("material uploaded", "material_id", material.ID, "week_id", week.ID, "type", ext)
	return &UploadResult{Material: &material, MaterialTextID: textID}, nil
}

func (s *MaterialService) resolveWeek(ctx context.Context, req UploadMaterialRequest) (*model.Week, error) {
	var week model.Week
	err := s.db.WithContext(ctx).First(&week, req.WeekID).Error
	if err == nil {
		return &week, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to fetch week: %w", err)
	}
	if req.SubjectID == nil || req.WeekNumber == nil {
		return nil, notFound("week")
	}
	if *req.WeekNumber < 1 {
		return nil, invalid("week_number", "week_number must be positive")
	}

	var subject model.Subject
	if err := s.db.WithContext(ctx).Select("id").First(&subject, *req.SubjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("subject")
		}
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}

	week = model.Week{}
	err = s.db.WithContext(ctx).
		Where(model.Week{SubjectID: subject.ID, WeekNumber: *req.WeekNumber}).
		Attrs(model.Week{Title: model.DefaultWeekTitle(*req.WeekNumber)}).
		FirstOrCreate(&week).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create week: %w", err)
	}
	return &week, nil
}

// DeleteMaterial removes a material, its text record and file. Deleting a
// PDF also drops the week's generated concept content, which was built
// from it. It returns the week id.
func (s *MaterialService) DeleteMaterial(ctx context.Context, materialID uint) (uint, error) {
	var material model.Material
	if err := s.db.WithContext(ctx).First(&material, materialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, notFound("material")
		}
		return 0, fmt.Errorf("failed to fetch material: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("material_id = ?", material.ID).Delete(&model.MaterialText{}).Error; err != nil {
			return fmt.Errorf("failed to delete material text: %w", err)
		}
		if material.IsPDF() {
			if err := tx.Where("week_id = ?", material.WeekID).Delete(&model.ConceptContent{}).Error; err != nil {
				return fmt.Errorf("failed to delete concept contents: %w", err)
			}
		}
		if err := tx.Delete(&material).Error; err != nil {
			return fmt.Errorf("failed to delete material: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.store.Remove(ctx, material.FilePath); err != nil {
		s.log.Warn("material row deleted but file remained", "material_id", material.ID, "error", err)
	}
	return material.WeekID, nil
}
