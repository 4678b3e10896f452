package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services/llm"
	"github.com/sahilchouksey/adaptive-tutor-api/services/normalizer"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// AnalysisStatusInProgress is reported when another request holds the
// analysis lock for a course.
const AnalysisStatusInProgress = "in_progress"

const analysisLockTTL = 2 * time.Minute

// AnalysisLock is a cross-process advisory lock, satisfied by *cache.RedisCache.
type AnalysisLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// AnalysisOutcome is a subject after an analysis decision, with the status
// to report to clients.
type AnalysisOutcome struct {
	Subject *model.Subject
	Status  string
	// Err is the provider or parse failure behind a stored sentinel.
	Err error
}

// AnalysisService runs syllabus analysis and owns the analysis state machine.
type AnalysisService struct {
	db    *gorm.DB
	llm   *llm.Client
	lock  AnalysisLock
	group singleflight.Group
	log   *logger.Logger
}

// NewAnalysisService creates the service. lock may be nil, in which case only
// in-process de-duplication applies.
func NewAnalysisService(db *gorm.DB, client *llm.Client, lock AnalysisLock, log *logger.Logger) *AnalysisService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalysisService{db: db, llm: client, lock: lock, log: log.With("component", "analysis")}
}

// EnsureAnalyzed is the lazy trigger: it analyzes a course only in the
// unanalyzed state. Analyzed and failed courses are returned untouched.
// Provider failures are stored as sentinels, never returned.
func (s *AnalysisService) EnsureAnalyzed(ctx context.Context, subjectID uint) (*AnalysisOutcome, error) {
	subject, err := s.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject.AnalysisState() != model.AnalysisUnanalyzed {
		return &AnalysisOutcome{Subject: subject, Status: string(subject.AnalysisState())}, nil
	}
	return s.run(ctx, subjectID, false)
}

// Reanalyze forces a new analysis regardless of the stored state.
func (s *AnalysisService) Reanalyze(ctx context.Context, subjectID uint) (*AnalysisOutcome, error) {
	subject, err := s.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject.AnalysisState() == model.AnalysisNoText {
		return nil, ErrNoText
	}
	return s.run(ctx, subjectID, true)
}

func (s *AnalysisService) run(ctx context.Context, subjectID uint, force bool) (*AnalysisOutcome, error) {
	key := strconv.FormatUint(uint64(subjectID), 10)
	if force {
		key = "force:" + key
	}
	// the shared call is detached from any one caller's cancellation
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.analyzeLocked(context.WithoutCancel(ctx), subjectID, force)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*AnalysisOutcome), nil
	}
}

func (s *AnalysisService) analyzeLocked(ctx context.Context, subjectID uint, force bool) (*AnalysisOutcome, error) {
	if s.lock != nil {
		lockKey := fmt.Sprintf("analysis:lock:%d", subjectID)
		release, acquired, err := s.lock.TryLock(ctx, lockKey, analysisLockTTL)
		switch {
		case err != nil:
			s.log.Warn("analysis lock unavailable, continuing unlocked", "subject_id", subjectID, "error", err)
		case !acquired:
			subject, err := s.load(ctx, subjectID)
			if err != nil {
				return nil, err
			}
			return &AnalysisOutcome{Subject: subject, Status: AnalysisStatusInProgress}, nil
		default:
			defer func() {
				if err := release(context.Background()); err != nil {
					s.log.Warn("failed to release analysis lock", "subject_id", subjectID, "error", err)
				}
			}()
		}
	}

	// another request may have finished while we waited for the lock
	subject, err := s.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	state := subject.AnalysisState()
	if state == model.AnalysisNoText || (!force && state != model.AnalysisUnanalyzed) {
		return &AnalysisOutcome{Subject: subject, Status: string(state)}, nil
	}

	analysis, cause := s.analyze(ctx, subject.SyllabusText)
	if err := s.store(ctx, subject, analysis); err != nil {
		return nil, err
	}
	if cause != nil {
		s.log.Warn("syllabus analysis failed, stored sentinel",
			"subject_id", subjectID, "kind", analysis.Failure.Kind, "error", cause)
	} else {
		s.log.Info("syllabus analyzed", "subject_id", subjectID, "weeks", len(analysis.Result.WeeklySchedule))
	}

	subject, err = s.load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return &AnalysisOutcome{Subject: subject, Status: string(subject.AnalysisState()), Err: cause}, nil
}

// analyze calls the provider and turns every failure into a sentinel.
func (s *AnalysisService) analyze(ctx context.Context, syllabusText string) (model.SyllabusAnalysis, error) {
	res, err := s.llm.Run(ctx, llm.AnalysisPolicy, analysisPrompt(syllabusText), llm.CallOptions{
		Generation: llm.GenerationConfig{Temperature: llm.Float32(0.3)},
		Quota:      llm.QuotaAdvance,
	})
	if err != nil {
		return model.AnalysisFailedWith(FailureKindFor(err), err.Error()), err
	}

	result, err := normalizer.ParseSyllabusAnalysis(res.Text)
	if err != nil {
		return model.AnalysisFailedWith(model.AnalysisFailureGeneric, err.Error()), err
	}
	return model.AnalysisSucceeded(result), nil
}

// FailureKindFor maps a generation error to the stored sentinel kind.
func FailureKindFor(err error) model.AnalysisFailureKind {
	var perr *llm.ProviderError
	if errors.As(err, &perr) {
		switch perr.Kind {
		case llm.KindQuota:
			return model.AnalysisFailureQuota
		case llm.KindAuth:
			return model.AnalysisFailureAuth
		}
	}
	return model.AnalysisFailureGeneric
}

// store persists the analysis and, on success, creates the weeks it lists.
func (s *AnalysisService) store(ctx context.Context, subject *model.Subject, analysis model.SyllabusAnalysis) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Subject{}).Where("id = ?", subject.ID).
			Update("syllabus_analysis", analysis).Error; err != nil {
			return fmt.Errorf("failed to store analysis: %w", err)
		}
		if analysis.Result == nil {
			return nil
		}
		return materializeWeeks(tx, subject.ID, analysis.Result.WeeklySchedule)
	})
}

// materializeWeeks creates a Week for every scheduled week that does not exist yet.
func materializeWeeks(tx *gorm.DB, subjectID uint, schedule []model.ScheduleEntry) error {
	for _, entry := range schedule {
		if entry.WeekNo <= 0 {
			continue
		}
		title := entry.Topic
		if title == "" {
			title = model.DefaultWeekTitle(entry.WeekNo)
		}
		week := model.Week{}
		err := tx.Where(model.Week{SubjectID: subjectID, WeekNumber: entry.WeekNo}).
			Attrs(model.Week{Title: title, Description: entry.Description}).
			FirstOrCreate(&week).Error
		if err != nil {
			return fmt.Errorf("failed to create week %d: %w", entry.WeekNo, err)
		}
	}
	return nil
}

func (s *AnalysisService) load(ctx context.Context, subjectID uint) (*model.Subject, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("subject")
		}
		return nil, fmt.Errorf("failed to fetch subject: %w", err)
	}
	return &subject, nil
}
