package services

import (
	"fmt"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"gorm.io/gorm"
)

// The delete helpers walk the ownership graph children-first inside the
// caller's transaction and return the stored file paths to remove once the
// transaction commits.

func deleteQuizzes(tx *gorm.DB, quizIDs []uint) error {
	if len(quizIDs) == 0 {
		return nil
	}
	steps := []struct {
		name  string
		model interface{}
		where string
	}{
		{"responses", &model.UserResponse{}, "quiz_id IN ?"},
		{"reports", &model.QuizReport{}, "quiz_id IN ?"},
		{"questions", &model.Question{}, "quiz_id IN ?"},
		{"quizzes", &model.Quiz{}, "id IN ?"},
	}
	for _, step := range steps {
		if err := tx.Where(step.where, quizIDs).Delete(step.model).Error; err != nil {
			return fmt.Errorf("failed to delete %s: %w", step.name, err)
		}
	}
	return nil
}

// deleteWeekContent removes concept contents, material texts and materials
// of the given weeks, returning the material file paths.
func deleteWeekContent(tx *gorm.DB, weekIDs []uint) ([]string, error) {
	if len(weekIDs) == 0 {
		return nil, nil
	}
	var files []string
	if err := tx.Model(&model.Material{}).Where("week_id IN ?", weekIDs).Pluck("file_path", &files).Error; err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	if err := tx.Where("week_id IN ?", weekIDs).Delete(&model.ConceptContent{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete concept contents: %w", err)
	}
	if err := tx.Where("week_id IN ?", weekIDs).Delete(&model.MaterialText{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete material texts: %w", err)
	}
	if err := tx.Where("week_id IN ?", weekIDs).Delete(&model.Material{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete materials: %w", err)
	}
	return files, nil
}

// deleteSubjects removes subjects and everything they own.
func deleteSubjects(tx *gorm.DB, subjectIDs []uint) ([]string, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}

	var quizIDs []uint
	if err := tx.Model(&model.Quiz{}).Where("subject_id IN ?", subjectIDs).Pluck("id", &quizIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	if err := deleteQuizzes(tx, quizIDs); err != nil {
		return nil, err
	}

	var weekIDs []uint
	if err := tx.Model(&model.Week{}).Where("subject_id IN ?", subjectIDs).Pluck("id", &weekIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list weeks: %w", err)
	}
	files, err := deleteWeekContent(tx, weekIDs)
	if err != nil {
		return nil, err
	}
	if len(weekIDs) > 0 {
		if err := tx.Where("id IN ?", weekIDs).Delete(&model.Week{}).Error; err != nil {
			return nil, fmt.Errorf("failed to delete weeks: %w", err)
		}
	}

	var syllabi []string
	if err := tx.Model(&model.Subject{}).Where("id IN ? AND syllabus_file_path <> ''", subjectIDs).
		Pluck("syllabus_file_path", &syllabi).Error; err != nil {
		return nil, fmt.Errorf("failed to list syllabus files: %w", err)
	}
	if err := tx.Where("subject_id IN ?", subjectIDs).Delete(&model.Notification{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete subject notifications: %w", err)
	}
	if err := tx.Where("id IN ?", subjectIDs).Delete(&model.Subject{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete subjects: %w", err)
	}
	return append(files, syllabi...), nil
}

// deleteUserGraph removes a user and everything the user owns.
func deleteUserGraph(tx *gorm.DB, userID uint) ([]string, error) {
	// quizzes taken on any subject, not only the user's own
	var quizIDs []uint
	if err := tx.Model(&model.Quiz{}).Where("user_id = ?", userID).Pluck("id", &quizIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	if err := deleteQuizzes(tx, quizIDs); err != nil {
		return nil, err
	}

	var subjectIDs []uint
	if err := tx.Model(&model.Subject{}).Where("user_id = ?", userID).Pluck("id", &subjectIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	files, err := deleteSubjects(tx, subjectIDs)
	if err != nil {
		return nil, err
	}

	if err := tx.Where("user_id = ?", userID).Delete(&model.Notification{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete notifications: %w", err)
	}
	if err := tx.Delete(&model.User{}, userID).Error; err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return files, nil
}
