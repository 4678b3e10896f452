package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
	"github.com/sahilchouksey/adaptive-tutor-api/services/storage"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/auth"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccountService manages learners: registration, credentials, profile,
// onboarding preferences and account removal.
type AccountService struct {
	db         *gorm.DB
	store      *storage.LocalStore
	bcryptCost int
	log        *logger.Logger
}

// NewAccountService creates a new account service
func NewAccountService(db *gorm.DB, store *storage.LocalStore, log *logger.Logger) *AccountService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AccountService{db: db, store: store, bcryptCost: auth.DefaultCost, log: log.With("component", "accounts")}
}

// WithBcryptCost overrides the hashing cost.
func (s *AccountService) WithBcryptCost(cost int) *AccountService {
	if cost >= bcrypt.MinCost {
		s.bcryptCost = cost
	}
	return s
}

// RegisterInput is a validated sign-up request.
type RegisterInput struct {
	LoginID  string
	Password string
	Username string
	School   string
	Major    string
	Grade    int
}

// Register creates a learner. The login id must be unused and the password
// must satisfy the strength policy.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if ok, problems := validation.ValidatePasswordStrength(in.Password); !ok {
		return nil, invalid("password", "%s", strings.Join(problems, "; "))
	}
	if in.Grade < 1 || in.Grade > 4 {
		return nil, invalid("grade", "grade must be between 1 and 4")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("login_id = ?", in.LoginID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check login id: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateLogin
	}

	hash, err := auth.HashPasswordWithCost(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := model.User{
		LoginID:            in.LoginID,
		PasswordHash:       hash,
		Username:           strings.TrimSpace(in.Username),
		School:             strings.TrimSpace(in.School),
		Major:              strings.TrimSpace(in.Major),
		Grade:              in.Grade,
		Theme:              model.ThemeLight,
		EmailNotifications: true,
		PushNotifications:  true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", "user_id", user.ID)
	return &user, nil
}

// Authenticate checks a login id and password.
func (s *AccountService) Authenticate(ctx context.Context, loginID, password string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("login_id = ?", loginID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrBadCredentials
	}
	return &user, nil
}

// GetUser returns a learner by id.
func (s *AccountService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// OnboardingInput holds the five learning-style answers.
type OnboardingInput struct {
	ExamStyle          string
	LearningDepth      string
	MaterialPreference string
	PracticeStyle      string
	AIPersona          string
}

// SaveOnboarding stores the learning style and completes onboarding.
func (s *AccountService) SaveOnboarding(ctx context.Context, userID uint, in OnboardingInput) (*model.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.ExamStyle = &in.ExamStyle
	user.LearningDepth = &in.LearningDepth
	user.MaterialPreference = &in.MaterialPreference
	user.PracticeStyle = &in.PracticeStyle
	user.AIPersona = &in.AIPersona
	user.OnboardingCompleted = true

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return user, nil
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	Username *string
	Email    *string
	School   *string
	Major    *string
	Grade    *int
}

// UpdateProfile applies a partial profile change. A blank email clears it.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*model.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	requireText := func(field string, v *string, dest *string) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return invalid(field, "%s must not be blank", field)
		}
		*dest = trimmed
		return nil
	}
	if err := requireText("username", in.Username, &user.Username); err != nil {
		return nil, err
	}
	if err := requireText("school", in.School, &user.School); err != nil {
		return nil, err
	}
	if err := requireText("major", in.Major, &user.Major); err != nil {
		return nil, err
	}
	if in.Grade != nil {
		if *in.Grade < 1 || *in.Grade > 4 {
			return nil, invalid("grade", "grade must be between 1 and 4")
		}
		user.Grade = *in.Grade
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			user.Email = nil
		} else {
			if !validation.ValidateEmail(email) {
				return nil, invalid("email", "email must be a valid email address")
			}
			var taken int64
			if err := s.db.WithContext(ctx).Model(&model.User{}).
				Where("email = ? AND id <> ?", email, userID).Count(&taken).Error; err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if taken > 0 {
				return nil, ErrDuplicateEmail
			}
			user.Email = &email
		}
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(user.PasswordHash, current); err != nil {
		return ErrBadCredentials
	}
	if ok, problems := validation.ValidatePasswordStrength(next); !ok {
		return invalid("new_password", "%s", strings.Join(problems, "; "))
	}
	hash, err := auth.HashPasswordWithCost(next, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// PreferencesUpdate changes display and notification settings.
type PreferencesUpdate struct {
	Theme              *string
	EmailNotifications *bool
	PushNotifications  *bool
}

// UpdatePreferences applies the set fields.
func (s *AccountService) UpdatePreferences(ctx context.Context, userID uint, in PreferencesUpdate) (*model.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Theme != nil {
		switch *in.Theme {
		case model.ThemeLight, model.ThemeDark, model.ThemeSystem:
			user.Theme = *in.Theme
		default:
			return nil, invalid("theme", "theme must be one of light, dark, system")
		}
	}
	if in.EmailNotifications != nil {
		user.EmailNotifications = *in.EmailNotifications
	}
	if in.PushNotifications != nil {
		user.PushNotifications = *in.PushNotifications
	}
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return user, nil
}

// DeleteAccount removes the user and everything the user owns in one
// transaction, then deletes the stored files.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	var files []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		files, err = deleteUserGraph(tx, userID)
		return err
	})
	if err != nil {
		return err
	}

	if s.store != nil {
		s.store.RemoveAll(ctx, files)
	}
	s.log.Info("account deleted", "user_id", userID, "files", len(files))
	return nil
}
