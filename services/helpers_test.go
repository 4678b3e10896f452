package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/database"
	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services/llm"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive across queries
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

type fakeReply struct {
	text string
	err  error
}

// fakeProvider exposes one model and answers from a queue; the last reply
// repeats once the queue is drained.
type fakeProvider struct {
	mu      sync.Mutex
	replies []fakeReply
	prompts []string
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return []llm.ModelInfo{{ID: "gemini-2.5-flash", SupportsGeneration: true}}, nil
}

func (f *fakeProvider) Generate(ctx context.Context, model, prompt string, cfg llm.GenerationConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if len(f.replies) == 0 {
		return "", &llm.ProviderError{Kind: llm.KindOther, Err: errors.New("no scripted reply")}
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply.text, reply.err
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func replyText(texts ...string) []fakeReply {
	out := make([]fakeReply, len(texts))
	for i, t := range texts {
		out[i] = fakeReply{text: t}
	}
	return out
}

func newTestClient(p llm.Provider) *llm.Client {
	return llm.NewClient(p, llm.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
}

func createUser(t *testing.T, db *gorm.DB, loginID string) *model.User {
	t.Helper()
	user := model.User{
		LoginID:           loginID,
		PasswordHash:      "x",
		Username:          loginID,
		School:            "Test University",
		Major:             "Computer Science",
		Grade:             2,
		PushNotifications: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createSubject(t *testing.T, db *gorm.DB, userID uint, name, text string) *model.Subject {
	t.Helper()
	subject := model.Subject{
		UserID:           userID,
		Name:             name,
		SubjectType:      model.SubjectTypeMajor,
		SyllabusText:     text,
		IsNotificationOn: true,
	}
	require.NoError(t, db.Create(&subject).Error)
	return &subject
}

func createWeekWithText(t *testing.T, db *gorm.DB, subjectID uint, weekNo int, fileName, text string) *model.Week {
	t.Helper()
	week := model.Week{SubjectID: subjectID, WeekNumber: weekNo, Title: model.DefaultWeekTitle(weekNo)}
	require.NoError(t, db.Create(&week).Error)
	material := model.Material{WeekID: week.ID, FileName: fileName, FilePath: "materials/" + fileName, FileType: "pdf", FileSize: int64(len(text))}
	require.NoError(t, db.Create(&material).Error)
	record := model.MaterialText{
		MaterialID:    material.ID,
		SubjectID:     subjectID,
		WeekID:        week.ID,
		FileName:      fileName,
		FilePath:      material.FilePath,
		ExtractedText: text,
	}
	require.NoError(t, db.Create(&record).Error)
	return &week
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

// questionSetJSON renders n numbered multiple choice questions.
func questionSetJSON(n int) string {
	var b strings.Builder
	b.WriteString(`{"questions": [`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"question_type": "multiple_choice", "question_text": "Question `)
		b.WriteString(string(rune('A' + i)))
		b.WriteString(`", "options": ["A", "B", "C", "D"], "correct_answer": "B", "explanation": "because", "key_concept": "concept `)
		b.WriteString(string(rune('A' + i)))
		b.WriteString(`"}`)
	}
	b.WriteString("]}")
	return b.String()
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
