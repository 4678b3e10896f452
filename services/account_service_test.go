package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAccounts(t *testing.T) *AccountService {
	return NewAccountService(newTestDB(t), nil, nil).WithBcryptCost(bcrypt.MinCost)
}

func validRegistration(loginID string) RegisterInput {
	return RegisterInput{
		LoginID:  loginID,
		Password: "Str0ng!Pass",
		Username: "Jiwoo",
		School:   "Seoul National University",
		Major:    "Computer Science",
		Grade:    3,
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newAccounts(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, validRegistration("jiwoo01"))
	require.NoError(t, err)
	assert.Equal(t, model.ThemeLight, user.Theme)
	assert.True(t, user.PushNotifications)
	assert.False(t, user.OnboardingCompleted)
	assert.NotEqual(t, "Str0ng!Pass", user.PasswordHash)

	_, err = svc.Register(ctx, validRegistration("jiwoo01"))
	assert.ErrorIs(t, err, ErrDuplicateLogin)

	got, err := svc.Authenticate(ctx, "jiwoo01", "Str0ng!Pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "jiwoo01", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "Str0ng!Pass")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegister_Validation(t *testing.T) {
	svc := newAccounts(t)
	ctx := context.Background()

	weak := validRegistration("weak")
	weak.Password = "short"
	_, err := svc.Register(ctx, weak)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)

	grade := validRegistration("grade")
	grade.Grade = 5
	_, err = svc.Register(ctx, grade)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "grade", verr.Field)
}

func TestOnboardingAndPreferences(t *testing.T) {
	svc := newAccounts(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, validRegistration("style"))
	require.NoError(t, err)

	updated, err := svc.SaveOnboarding(ctx, user.ID, OnboardingInput{
		ExamStyle:          model.ExamStyleCramming,
		LearningDepth:      model.LearningDepthIntuition,
		MaterialPreference: model.MaterialPreferenceVideo,
		PracticeStyle:      model.PracticeStyleProblems,
		AIPersona:          model.AIPersonaStrict,
	})
	require.NoError(t, err)
	assert.True(t, updated.OnboardingCompleted)
	assert.Equal(t, model.ExamStyleCramming, updated.LearningStyle().ExamStyle)

	dark := model.ThemeDark
	off := false
	prefs, err := svc.UpdatePreferences(ctx, user.ID, PreferencesUpdate{Theme: &dark, PushNotifications: &off})
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, prefs.Theme)
	assert.False(t, prefs.PushNotifications)
	assert.True(t, prefs.EmailNotifications)

	neon := "neon"
	_, err = svc.UpdatePreferences(ctx, user.ID, PreferencesUpdate{Theme: &neon})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdateProfile_Email(t *testing.T) {
	svc := newAccounts(t)
	ctx := context.Background()
	first, err := svc.Register(ctx, validRegistration("first"))
	require.NoError(t, err)
	second, err := svc.Register(ctx, validRegistration("second"))
	require.NoError(t, err)

	email := "first@example.com"
	updated, err := svc.UpdateProfile(ctx, first.ID, ProfileUpdate{Email: &email})
	require.NoError(t, err)
	require.NotNil(t, updated.Email)
	assert.Equal(t, email, *updated.Email)

	_, err = svc.UpdateProfile(ctx, second.ID, ProfileUpdate{Email: &email})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	// saving your own email again is fine
	_, err = svc.UpdateProfile(ctx, first.ID, ProfileUpdate{Email: &email})
	assert.NoError(t, err)

	blank := " "
	cleared, err := svc.UpdateProfile(ctx, first.ID, ProfileUpdate{Email: &blank})
	require.NoError(t, err)
	assert.Nil(t, cleared.Email)

	_, err = svc.UpdateProfile(ctx, first.ID, ProfileUpdate{Username: &blank})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestChangePassword(t *testing.T) {
	svc := newAccounts(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, validRegistration("changer"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "wrong", "N3w!Passw0rd"), ErrBadCredentials)
	require.NoError(t, svc.ChangePassword(ctx, user.ID, "Str0ng!Pass", "N3w!Passw0rd"))

	_, err = svc.Authenticate(ctx, "changer", "N3w!Passw0rd")
	assert.NoError(t, err)
}

func TestDeleteAccount_RemovesEverything(t *testing.T) {
	svc := newAccounts(t)
	db := svc.db
	ctx := context.Background()
	user, err := svc.Register(ctx, validRegistration("leaver"))
	require.NoError(t, err)
	keeper := createUser(t, db, "keeper")
	keptSubject := createSubject(t, db, keeper.ID, "Kept", "syllabus")

	for _, name := range []string{"OS", "Networks"} {
		subject := createSubject(t, db, user.ID, name, "syllabus")
		week := createWeekWithText(t, db, subject.ID, 1, name+".pdf", "text")
		require.NoError(t, db.Create(&model.ConceptContent{WeekID: week.ID, Mode: model.ConceptModeSummary, Content: "c"}).Error)

		quiz := model.Quiz{SubjectID: subject.ID, UserID: user.ID, QuizNumber: 1, NumQuestions: 3}
		require.NoError(t, db.Create(&quiz).Error)
		for pos := 1; pos <= 3; pos++ {
			q := model.Question{QuizID: quiz.ID, QuestionText: "q", CorrectAnswer: "A", Position: pos}
			require.NoError(t, db.Create(&q).Error)
			require.NoError(t, db.Create(&model.UserResponse{QuizID: quiz.ID, QuestionID: q.ID, UserAnswer: "A", IsCorrect: true}).Error)
		}
		require.NoError(t, db.Create(&model.QuizReport{QuizID: quiz.ID, Score: 3, Total: 3, AIReport: "good"}).Error)

		subjectID := subject.ID
		require.NoError(t, db.Create(&model.Notification{UserID: user.ID, SubjectID: &subjectID, Category: model.NotificationCategoryGeneral, Title: "t"}).Error)
	}

	require.NoError(t, svc.DeleteAccount(ctx, user.ID))

	owned := []interface{}{
		&model.Question{}, &model.UserResponse{}, &model.QuizReport{}, &model.Quiz{},
		&model.ConceptContent{}, &model.MaterialText{}, &model.Material{}, &model.Week{},
		&model.Notification{},
	}
	for _, m := range owned {
		assert.Equal(t, int64(0), countRows(t, db, m))
	}
	assert.Equal(t, int64(1), countRows(t, db, &model.Subject{}))
	assert.Equal(t, int64(1), countRows(t, db, &model.User{}))

	var remaining model.Subject
	require.NoError(t, db.First(&remaining).Error)
	assert.Equal(t, keptSubject.ID, remaining.ID)

	_, err = svc.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
