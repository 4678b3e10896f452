package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("resource belongs to another user")
	ErrNoMaterials     = errors.New("no material text found for the selected weeks")
	ErrNoText          = errors.New("no usable text available")
	ErrExamDateMissing = errors.New("exam date is not set")
	ErrExamDatePassed  = errors.New("exam date has already passed")
	ErrNoAnalysis      = errors.New("syllabus has not been analyzed")
	ErrWeekNotFound    = errors.New("week not found")
	ErrDuplicateLogin  = errors.New("login id is already taken")
	ErrDuplicateEmail  = errors.New("email is already in use")
	ErrBadCredentials  = errors.New("password does not match")
)

// ValidationError is a request that passed decoding but breaks a domain rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// notFound wraps ErrNotFound with the entity name.
func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}
