package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analysisReply = `{
  "basic_info": {"credits": 3, "course_type": "전공필수", "grading_policy": {"midterm": 30, "final": 40, "assignment": 0}},
  "weekly_schedule": [
    {"week_no": 1, "topic": "Introduction", "description": "overview"},
    {"week_no": 2, "topic": "Processes"},
    {"week_no": 3, "topic": ""}
  ]
}`

type stubLock struct {
	acquire  bool
	released []string
}

func (l *stubLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if !l.acquire {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released = append(l.released, key)
		return nil
	}, true, nil
}

func TestEnsureAnalyzed_MaterializesWeeksOnce(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{replies: replyText(analysisReply)}
	svc := NewAnalysisService(db, newTestClient(provider), nil, nil)

	user := createUser(t, db, "analyst")
	subject := createSubject(t, db, user.ID, "Operating Systems", "1주차 소개 2주차 프로세스 3주차 스레드")

	outcome, err := svc.EnsureAnalyzed(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AnalysisAnalyzed), outcome.Status)
	require.NotNil(t, outcome.Subject.Analysis.Result)
	assert.Len(t, outcome.Subject.Analysis.Result.WeeklySchedule, 3)
	_, hasZero := outcome.Subject.Analysis.Result.BasicInfo.GradingPolicy["assignment"]
	assert.False(t, hasZero)

	var weeks []model.Week
	require.NoError(t, db.Where("subject_id = ?", subject.ID).Order("week_number").Find(&weeks).Error)
	require.Len(t, weeks, 3)
	assert.Equal(t, "Introduction", weeks[0].Title)
	assert.Equal(t, "Week 3", weeks[2].Title)

	_, err = svc.EnsureAnalyzed(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls())
	assert.Equal(t, int64(3), countRows(t, db, &model.Week{}))
}

func TestEnsureAnalyzed_FailedSentinelIsNotRetried(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{replies: replyText(analysisReply)}
	svc := NewAnalysisService(db, newTestClient(provider), nil, nil)

	user := createUser(t, db, "failed")
	subject := createSubject(t, db, user.ID, "Networks", "syllabus text")
	require.NoError(t, db.Model(subject).
		Update("syllabus_analysis", model.AnalysisFailedWith(model.AnalysisFailureGeneric, "boom")).Error)

	outcome, err := svc.EnsureAnalyzed(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AnalysisFailed), outcome.Status)
	assert.Equal(t, 0, provider.calls())
}

func TestEnsureAnalyzed_QuotaStoresSentinel(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{replies: []fakeReply{{err: &llm.ProviderError{Kind: llm.KindQuota, Err: errors.New("resource exhausted")}}}}
	svc := NewAnalysisService(db, newTestClient(provider), nil, nil)

	user := createUser(t, db, "quota")
	subject := createSubject(t, db, user.ID, "Databases", "syllabus text")

	outcome, err := svc.EnsureAnalyzed(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AnalysisFailed), outcome.Status)
	require.Error(t, outcome.Err)
	assert.Equal(t, llm.KindQuota, llm.KindOf(outcome.Err))

	var stored model.Subject
	require.NoError(t, db.First(&stored, subject.ID).Error)
	require.NotNil(t, stored.Analysis.Failure)
	assert.Equal(t, model.AnalysisFailureQuota, stored.Analysis.Failure.Kind)
	assert.Equal(t, int64(0), countRows(t, db, &model.Week{}))
}

func TestEnsureAnalyzed_NoTextSkipsProvider(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{replies: replyText(analysisReply)}
	svc := NewAnalysisService(db, newTestClient(provider), nil, nil)

	user := createUser(t, db, "notext")
	subject := createSubject(t, db, user.ID, "Art", "   ")

	outcome, err := svc.EnsureAnalyzed(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AnalysisNoText), outcome.Status)
	assert.Equal(t, 0, provider.calls())

	_, err = svc.Reanalyze(context.Background(), subject.ID)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestEnsureAnalyzed_LockHeldElsewhere(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{replies: replyText(analysisReply)}
	lock := &stubLock{acquire: false}
	svc := NewAnalysisService(db, newTestClient(provider), lock, nil)

	user := createUser(t, db, "locked")
	subject := createSubject(t, db, user.ID, "Compilers", "syllabus text")

	outcome, err := svc.EnsureAnalyzed(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, AnalysisStatusInProgress, outcome.Status)
	assert.Equal(t, 0, provider.calls())
	assert.Empty(t, lock.released)
}

func TestReanalyze_ReplacesFailure(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{replies: replyText(analysisReply)}
	lock := &stubLock{acquire: true}
	svc := NewAnalysisService(db, newTestClient(provider), lock, nil)

	user := createUser(t, db, "again")
	subject := createSubject(t, db, user.ID, "Algorithms", "syllabus text")
	require.NoError(t, db.Model(subject).
		Update("syllabus_analysis", model.AnalysisFailedWith(model.AnalysisFailureQuota, "quota")).Error)

	outcome, err := svc.Reanalyze(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AnalysisAnalyzed), outcome.Status)
	assert.Equal(t, 1, provider.calls())
	assert.Equal(t, []string{"analysis:lock:" + uintString(subject.ID)}, lock.released)
}

func TestFailureKindFor(t *testing.T) {
	assert.Equal(t, model.AnalysisFailureQuota, FailureKindFor(&llm.ProviderError{Kind: llm.KindQuota}))
	assert.Equal(t, model.AnalysisFailureAuth, FailureKindFor(&llm.ProviderError{Kind: llm.KindAuth}))
	assert.Equal(t, model.AnalysisFailureGeneric, FailureKindFor(&llm.ProviderError{Kind: llm.KindEmpty}))
	assert.Equal(t, model.AnalysisFailureGeneric, FailureKindFor(assert.AnError))
}

// gatedProvider blocks generation until released, honouring cancellation.
type gatedProvider struct {
	fakeProvider
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedProvider) Generate(ctx context.Context, model, prompt string, cfg llm.GenerationConfig) (string, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-ctx.Done():
		return "", &llm.ProviderError{Kind: llm.KindOther, Model: model, Err: ctx.Err()}
	case <-g.release:
	}
	return g.fakeProvider.Generate(ctx, model, prompt, cfg)
}

func TestEnsureAnalyzed_CancelledCallerDoesNotStoreFailure(t *testing.T) {
	db := newTestDB(t)
	provider := &gatedProvider{
		fakeProvider: fakeProvider{replies: replyText(analysisReply)},
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	svc := NewAnalysisService(db, newTestClient(provider), nil, nil)

	user := createUser(t, db, "impatient")
	subject := createSubject(t, db, user.ID, "Networks", "1주차 소개 2주차 TCP")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.EnsureAnalyzed(ctx, subject.ID)
		done <- err
	}()

	<-provider.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	close(provider.release)

	outcome, err := svc.EnsureAnalyzed(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.AnalysisAnalyzed), outcome.Status)
	assert.Nil(t, outcome.Subject.Analysis.Failure)
	assert.Equal(t, 1, provider.calls())
}
