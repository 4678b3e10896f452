package cron

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/database"
	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestManager(t *testing.T, now time.Time) (*CronManager, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.Models()...))

	m := NewCronManager(db, services.NewNotificationService(db, nil), "0 0 8 * * *", nil)
	m.now = func() time.Time { return now }
	return m, db
}

func seedSubject(t *testing.T, db *gorm.DB, loginID string, push bool, exam time.Time, plan *model.StudyPlan) *model.Subject {
	t.Helper()
	user := model.User{LoginID: loginID, PasswordHash: "x", Username: loginID, PushNotifications: push}
	require.NoError(t, db.Create(&user).Error)
	subject := model.Subject{
		UserID:           user.ID,
		Name:             "Operating Systems",
		SubjectType:      model.SubjectTypeMajor,
		IsNotificationOn: true,
		ExamDate:         &exam,
		StudyPlan:        plan,
	}
	require.NoError(t, db.Create(&subject).Error)
	return &subject
}

func TestSendStudyReminders(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, services.KST)
	m, db := newTestManager(t, now)
	ctx := context.Background()

	plan := &model.StudyPlan{Plan: map[string]string{"2026-10-19": "Week 3 복습", "2026-10-20": "Week 4"}}
	threeDays := seedSubject(t, db, "d3", true, time.Date(2026, 10, 22, 10, 0, 0, 0, services.KST), plan)
	seedSubject(t, db, "d5", true, time.Date(2026, 10, 24, 10, 0, 0, 0, services.KST), nil)
	seedSubject(t, db, "muted", false, time.Date(2026, 10, 22, 10, 0, 0, 0, services.KST), plan)
	seedSubject(t, db, "past", true, time.Date(2026, 10, 19, 7, 0, 0, 0, services.KST), plan)

	created, err := m.sendStudyReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var notes []model.Notification
	require.NoError(t, db.Order("id").Find(&notes).Error)
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.Equal(t, threeDays.UserID, n.UserID)
	}
	assert.Equal(t, model.NotificationCategoryStudyPlan, notes[0].Category)
	assert.Equal(t, "Week 3 복습", notes[0].Message)
	assert.Equal(t, model.NotificationCategoryExamCountdown, notes[1].Category)
	assert.Contains(t, notes[1].Title, "D-3")

	// a second run on the same day writes nothing new
	created, err = m.sendStudyReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestJobRunsAreLogged(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, services.KST)
	m, db := newTestManager(t, now)

	m.SendStudyReminders()
	m.CleanupNotifications()

	var logs []model.CronJobLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, JobStudyReminders, logs[0].JobName)
	assert.Equal(t, "completed", logs[0].Status)
	assert.NotNil(t, logs[0].CompletedAt)
	assert.Equal(t, JobCleanupNotifications, logs[1].JobName)
}

func TestRegisterJobsRejectsBadSchedule(t *testing.T) {
	m, _ := newTestManager(t, time.Now())
	m.reminderSchedule = "not a schedule"
	assert.Error(t, m.Start())
}
