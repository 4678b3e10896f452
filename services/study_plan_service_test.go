package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planReply = "```json\n" + `{"plan": {"2026-10-20": "Week 4 복습", "2026-10-19": "Week 3 개념 정리"}}` + "\n```"

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func scheduledSubject(t *testing.T, svc *SubjectService, userID uint) *model.Subject {
	t.Helper()
	subject := createSubject(t, svc.db, userID, "Operating Systems", "syllabus")
	schedule := make([]model.ScheduleEntry, 0, 8)
	for i := 1; i <= 8; i++ {
		schedule = append(schedule, model.ScheduleEntry{WeekNo: i, Topic: "Topic " + string(rune('A'+i-1))})
	}
	analysis := model.AnalysisSucceeded(&model.AnalysisResult{WeeklySchedule: schedule})
	require.NoError(t, svc.db.Model(subject).Update("syllabus_analysis", analysis).Error)
	subject.Analysis = analysis
	return subject
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestPlanContext(t *testing.T) {
	subject := &model.Subject{
		Analysis: model.AnalysisSucceeded(&model.AnalysisResult{WeeklySchedule: []model.ScheduleEntry{
			{WeekNo: 2, Topic: "Processes"},
			{WeekNo: 3, Topic: "Threads"},
			{WeekNo: 4, Topic: "Scheduling"},
			{WeekNo: 5, Topic: "Deadlocks"},
			{WeekNo: 6, Topic: "Memory"},
		}}),
		ExamWeekStart: intPtr(3),
		ExamWeekEnd:   intPtr(5),
	}
	assert.Equal(t, "Week 3: Threads\nWeek 4: Scheduling\nWeek 5: Deadlocks", PlanContext(subject))

	subject.ExamWeekStart, subject.ExamWeekEnd = nil, nil
	assert.Contains(t, PlanContext(subject), "Week 6: Memory")

	plain := &model.Subject{SyllabusText: "raw syllabus"}
	assert.Equal(t, "raw syllabus", PlanContext(plain))
}

func TestDaysBetween(t *testing.T) {
	// 23:30 UTC on the 18th is already the 19th in KST
	a := time.Date(2026, 10, 18, 23, 30, 0, 0, time.UTC)
	b := time.Date(2026, 10, 26, 9, 0, 0, 0, KST)
	assert.Equal(t, 7, DaysBetween(a, b))
	assert.Equal(t, 0, DaysBetween(a, a.Add(time.Hour)))
}

func TestGeneratePlan_StoresAndReturnsPlan(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{replies: replyText(planReply)}
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, KST)
	plans := NewStudyPlanService(db, newTestClient(provider), fixedClock(now), nil)
	subjects := NewSubjectService(db, nil, nil, nil, nil, nil)

	user := createUser(t, db, "planner")
	subject := scheduledSubject(t, subjects, user.ID)
	_, err := subjects.SetExamDate(context.Background(), subject.ID, ExamSettings{
		ExamDate:  time.Date(2026, 10, 26, 0, 0, 0, 0, KST),
		ExamType:  strPtr(model.ExamTypeMidterm),
		WeekStart: intPtr(3),
		WeekEnd:   intPtr(4),
	})
	require.NoError(t, err)

	plan, err := plans.GeneratePlan(context.Background(), subject.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, plan.Plan, 2)

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "2026-10-19")
	assert.Contains(t, prompt, "2026-10-26")
	assert.Contains(t, prompt, "Week 3: Topic C")
	assert.NotContains(t, prompt, "Week 5: Topic E")

	stored, err := plans.GetPlan(context.Background(), subject.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Week 3 개념 정리", stored.Plan["2026-10-19"])
}

func TestGeneratePlan_ExamDateChecks(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{replies: replyText(planReply)}
	now := time.Date(2026, 10, 19, 23, 0, 0, 0, KST)
	plans := NewStudyPlanService(db, newTestClient(provider), fixedClock(now), nil)
	subjects := NewSubjectService(db, nil, nil, nil, nil, nil)
	ctx := context.Background()

	user := createUser(t, db, "late")
	subject := scheduledSubject(t, subjects, user.ID)

	_, err := plans.GeneratePlan(ctx, subject.ID, user.ID)
	assert.ErrorIs(t, err, ErrExamDateMissing)

	for _, exam := range []time.Time{
		time.Date(2026, 10, 19, 8, 0, 0, 0, KST),
		time.Date(2026, 10, 1, 0, 0, 0, 0, KST),
	} {
		_, err := subjects.SetExamDate(ctx, subject.ID, ExamSettings{ExamDate: exam})
		require.NoError(t, err)
		_, err = plans.GeneratePlan(ctx, subject.ID, user.ID)
		assert.ErrorIs(t, err, ErrExamDatePassed)
	}
	assert.Equal(t, 0, provider.calls())

	plan, err := plans.GetPlan(ctx, subject.ID)
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestSetExamDate_InvalidatesPlanOnlyOnChange(t *testing.T) {
	db := newTestDB(t)
	subjects := NewSubjectService(db, nil, nil, nil, nil, nil)
	ctx := context.Background()

	user := createUser(t, db, "exam")
	subject := createSubject(t, db, user.ID, "Networks", "syllabus")
	settings := ExamSettings{
		ExamDate:  time.Date(2026, 12, 10, 9, 0, 0, 0, KST),
		ExamType:  strPtr(model.ExamTypeFinal),
		WeekStart: intPtr(9),
		WeekEnd:   intPtr(15),
	}
	_, err := subjects.SetExamDate(ctx, subject.ID, settings)
	require.NoError(t, err)

	storePlan := func() {
		plan := &model.StudyPlan{Plan: map[string]string{"2026-12-01": "review"}}
		require.NoError(t, db.Model(&model.Subject{}).Where("id = ?", subject.ID).Update("study_plan", plan).Error)
	}

	storePlan()
	// same KST day, different hour
	same := settings
	same.ExamDate = time.Date(2026, 12, 10, 1, 0, 0, 0, time.UTC)
	updated, err := subjects.SetExamDate(ctx, subject.ID, same)
	require.NoError(t, err)
	assert.True(t, updated.HasStudyPlan())

	changed := settings
	changed.WeekEnd = intPtr(14)
	updated, err = subjects.SetExamDate(ctx, subject.ID, changed)
	require.NoError(t, err)
	assert.False(t, updated.HasStudyPlan())

	storePlan()
	updated, err = subjects.ClearExamDate(ctx, subject.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.ExamDate)
	assert.False(t, updated.HasStudyPlan())
}

func TestSetExamDate_Validation(t *testing.T) {
	db := newTestDB(t)
	subjects := NewSubjectService(db, nil, nil, nil, nil, nil)
	user := createUser(t, db, "validate")
	subject := createSubject(t, db, user.ID, "Networks", "syllabus")
	exam := time.Date(2026, 12, 10, 0, 0, 0, 0, KST)

	cases := map[string]ExamSettings{
		"bad type":       {ExamDate: exam, ExamType: strPtr("quiz")},
		"half range":     {ExamDate: exam, WeekStart: intPtr(3)},
		"inverted range": {ExamDate: exam, WeekStart: intPtr(5), WeekEnd: intPtr(3)},
		"zero start":     {ExamDate: exam, WeekStart: intPtr(0), WeekEnd: intPtr(3)},
	}
	for name, settings := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := subjects.SetExamDate(context.Background(), subject.ID, settings)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}
