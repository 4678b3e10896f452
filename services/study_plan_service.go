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
)

// KST is the fixed UTC+9 zone calendar days are computed in.
var KST = time.FixedZone("KST", 9*60*60)

const dateLayout = "2006-01-02"

// Clock returns the current time.
type Clock func() time.Time

// DayOf truncates t to its KST calendar day.
func DayOf(t time.Time) time.Time {
	k := t.In(KST)
	return time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, KST)
}

// StudyPlanService generates day-by-day plans up to a subject's exam.
type StudyPlanService struct {
	db  *gorm.DB
	llm *llm.Client
	now Clock
	log *logger.Logger
}

// NewStudyPlanService creates the service. A nil clock uses time.Now.
func NewStudyPlanService(db *gorm.DB, client *llm.Client, now Clock, log *logger.Logger) *StudyPlanService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &StudyPlanService{db: db, llm: client, now: now, log: log.With("component", "study_plans")}
}

// GeneratePlan requests a plan from today through the exam date and
// replaces the stored plan with it.
func (s *StudyPlanService) GeneratePlan(ctx context.Context, subjectID, userID uint) (*model.StudyPlan, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("subject")
		}
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}
	if subject.ExamDate == nil {
		return nil, ErrExamDateMissing
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	today := DayOf(s.now())
	examDay := DayOf(*subject.ExamDate)
	if !examDay.After(today) {
		return nil, ErrExamDatePassed
	}

	examType := ""
	if subject.ExamType != nil {
		examType = *subject.ExamType
	}
	prompt := studyPlanPrompt(planPromptInput{
		SubjectName: subject.Name,
		ExamType:    examType,
		Today:       today.Format(dateLayout),
		ExamDate:    examDay.Format(dateLayout),
		DaysLeft:    DaysBetween(today, examDay),
		RangeStart:  subject.ExamWeekStart,
		RangeEnd:    subject.ExamWeekEnd,
		Context:     PlanContext(&subject),
		Style:       user.LearningStyle(),
	})

	res, err := s.llm.Run(ctx, llm.AnalysisPolicy, prompt, llm.CallOptions{
		Generation: llm.GenerationConfig{Temperature: llm.Float32(0.7)},
		Quota:      llm.QuotaAdvance,
	})
	if err != nil {
		return nil, err
	}

	plan, err := normalizer.ParseStudyPlan(res.Text)
	if err != nil {
		s.log.Warn("study plan response rejected", "subject_id", subjectID, "model", res.Model, "error", err)
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&model.Subject{}).Where("id = ?", subjectID).
		Update("study_plan", plan).Error; err != nil {
		return nil, fmt.Errorf("failed to store study plan: %w", err)
	}

	s.log.Info("study plan generated", "subject_id", subjectID, "days", len(plan.Plan))
	return plan, nil
}

// GetPlan returns the stored plan, or nil when none is stored.
func (s *StudyPlanService) GetPlan(ctx context.Context, subjectID uint) (*model.StudyPlan, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("subject")
		}
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}
	if !subject.HasStudyPlan() {
		return nil, nil
	}
	return subject.StudyPlan, nil
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours()+12) / 24
}

// PlanContext describes what the exam covers: the analyzed weeks in the
// exam range, else the whole schedule, else the head of the syllabus text.
func PlanContext(subject *model.Subject) string {
	if result := subject.Analysis.Result; result != nil && len(result.WeeklySchedule) > 0 {
		entries := result.WeeklySchedule
		if subject.HasExamRange() {
			entries = result.WeeksInRange(*subject.ExamWeekStart, *subject.ExamWeekEnd)
		}
		lines := make([]string, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, fmt.Sprintf("Week %d: %s", e.WeekNo, e.Topic))
		}
		return strings.Join(lines, "\n")
	}
	return truncateRunes(subject.SyllabusText, planFallbackBudget)
}
