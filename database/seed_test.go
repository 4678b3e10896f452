package database

import (
	"testing"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

func TestSeedDemoLearner(t *testing.T) {
	db := openSeedDB(t)
	seeder := NewSeeder(db, nil)
	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	seeder.now = func() time.Time { return fixed }

	demo := DemoLearner{LoginID: "demo", Password: "demo1234!", Username: "Demo"}
	user, err := seeder.SeedDemoLearner(demo, bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, user.OnboardingCompleted)
	assert.NoError(t, auth.VerifyPassword(user.PasswordHash, demo.Password))

	var subject model.Subject
	require.NoError(t, db.Preload("Weeks").Where("user_id = ?", user.ID).First(&subject).Error)
	assert.Equal(t, model.AnalysisAnalyzed, subject.AnalysisState())
	assert.Len(t, subject.Weeks, len(demoSchedule))
	require.NotNil(t, subject.ExamDate)
	assert.True(t, subject.ExamDate.Equal(fixed.AddDate(0, 0, 14)))
	assert.True(t, subject.HasExamRange())

	// a second run leaves the data alone
	again, err := seeder.SeedDemoLearner(demo, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	var subjects int64
	require.NoError(t, db.Model(&model.Subject{}).Count(&subjects).Error)
	assert.Equal(t, int64(1), subjects)
}
