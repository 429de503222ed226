// Package errors renders command failures for the terminal.
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/logger"
)

// Exit codes returned by the habitual binary.
const (
	ExitFailure    = 1
	ExitValidation = 2
	ExitNotFound   = 3
)

// Format prefixes err with "Error: ".
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf is Format for a format string.
func Formatf(format string, args ...any) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// ExitCode maps a habit service error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case stderrors.Is(err, habits.ErrValidation), stderrors.Is(err, habits.ErrNotStarted):
		return ExitValidation
	case stderrors.Is(err, habits.ErrNotFound):
		return ExitNotFound
	default:
		return ExitFailure
	}
}

// Report writes err to w and returns its exit code. Nothing is written for nil.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	logger.Error("Command execution failed", "error", err)
	fmt.Fprintln(w, Format(err))
	return ExitCode(err)
}

// Fatal reports err on stderr and exits. It returns when err is nil.
func Fatal(err error) {
	if err != nil {
		os.Exit(Report(os.Stderr, err))
	}
}

// Fatalf formats a message, reports it on stderr and exits with ExitFailure.
func Fatalf(format string, args ...any) {
	logger.Error("Command execution failed", "error", fmt.Sprintf(format, args...))
	fmt.Fprintln(os.Stderr, Formatf(format, args...))
	os.Exit(ExitFailure)
}
