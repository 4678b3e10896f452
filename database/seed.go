package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/auth"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"gorm.io/gorm"
)

// Seeder fills an empty database with a demo learner
type Seeder struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Seeder{db: db, log: log, now: time.Now}
}

// DemoLearner describes the seeded account
type DemoLearner struct {
	LoginID  string
	Password string
	Username string
}

var demoSchedule = []model.ScheduleEntry{
	{WeekNo: 1, Topic: "운영체제 개요", Description: "커널과 시스템 콜"},
	{WeekNo: 2, Topic: "프로세스와 스레드", Description: "PCB, 문맥 교환"},
	{WeekNo: 3, Topic: "CPU 스케줄링", Description: "FCFS, SJF, RR"},
	{WeekNo: 4, Topic: "동기화", Description: "세마포어와 모니터"},
	{WeekNo: 5, Topic: "교착 상태", Description: "은행원 알고리즘"},
	{WeekNo: 6, Topic: "메모리 관리", Description: "페이징과 세그멘테이션"},
	{WeekNo: 7, Topic: "가상 메모리", Description: "페이지 교체"},
	{WeekNo: 8, Topic: "중간고사", Description: ""},
}

// SeedDemoLearner creates an onboarded learner with one analyzed subject and
// a midterm two weeks out. It does nothing when the login id already exists.
func (s *Seeder) SeedDemoLearner(demo DemoLearner, bcryptCost int) (*model.User, error) {
	var existing model.User
	err := s.db.Where("login_id = ?", demo.LoginID).First(&existing).Error
	if err == nil {
		s.log.Info("demo learner already exists, skipping", "login_id", demo.LoginID)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up demo learner: %w", err)
	}

	hash, err := auth.HashPasswordWithCost(demo.Password, bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	examStyle := model.ExamStyleEarly
	depth := model.LearningDepthPrinciple
	material := model.MaterialPreferenceText
	practice := model.PracticeStyleProblems
	persona := model.AIPersonaEncouraging
	user := model.User{
		LoginID:             demo.LoginID,
		PasswordHash:        hash,
		Username:            demo.Username,
		School:              "Demo University",
		Major:               "Computer Science",
		Grade:               3,
		ExamStyle:           &examStyle,
		LearningDepth:       &depth,
		MaterialPreference:  &material,
		PracticeStyle:       &practice,
		AIPersona:           &persona,
		OnboardingCompleted: true,
		Theme:               model.ThemeLight,
		EmailNotifications:  true,
		PushNotifications:   true,
	}

	credits := 3.0
	courseType := "전공필수"
	examDate := s.now().AddDate(0, 0, 14)
	examType := model.ExamTypeMidterm
	weekStart, weekEnd := 1, 7
	order := 1

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		subject := model.Subject{
			UserID:      user.ID,
			Name:        "운영체제",
			SubjectType: model.SubjectTypeMajor,
			Analysis: model.AnalysisSucceeded(&model.AnalysisResult{
				BasicInfo: model.BasicInfo{
					Credits:       &credits,
					CourseType:    &courseType,
					GradingPolicy: model.GradingPolicy{"midterm": 30, "final": 40, "assignment": 20, "attendance": 10},
				},
				WeeklySchedule: demoSchedule,
			}),
			Color:            model.PastelColors[0],
			DisplayOrder:     &order,
			ExamDate:         &examDate,
			ExamType:         &examType,
			ExamWeekStart:    &weekStart,
			ExamWeekEnd:      &weekEnd,
			IsNotificationOn: true,
		}
		if err := tx.Create(&subject).Error; err != nil {
			return fmt.Errorf("failed to create subject: %w", err)
		}

		for _, entry := range demoSchedule {
			week := model.Week{SubjectID: subject.ID, WeekNumber: entry.WeekNo, Title: entry.Topic, Description: entry.Description}
			if err := tx.Create(&week).Error; err != nil {
				return fmt.Errorf("failed to create week %d: %w", entry.WeekNo, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("seeded demo learner", "login_id", demo.LoginID, "user_id", user.ID)
	return &user, nil
}
