package habits

import (
	"errors"

	"github.com/julianstephens/habitual/internal/validation"
)

var (
	// ErrValidation marks malformed input. Nothing is written when it is returned.
	ErrValidation = validation.ErrInvalidInput
	// ErrNotFound marks a missing habit or category, or a habit whose status
	// does not allow the requested operation.
	ErrNotFound = errors.New("not found")
	// ErrNotStarted marks a completion dated before the habit's start date.
	ErrNotStarted = errors.New("habit has not started yet")
)
