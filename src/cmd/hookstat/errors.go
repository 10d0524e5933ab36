package main

import (
	"errors"
	"fmt"
	"os"

	"hookstat/src/config"
	"hookstat/src/store"
)

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// wrapError converts the errors a user can act on into UserErrors.
func wrapError(what string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return err
	}

	if errors.Is(err, os.ErrNotExist) {
		return &UserError{
			Message: fmt.Sprintf("%s: file not found", what),
			Hint:    "Check the --trace, --locations and --report paths. Use '-' to read a trace from stdin.",
			Err:     err,
		}
	}

	var notFound store.ErrNotFound
	if errors.As(err, &notFound) {
		return &UserError{
			Message: fmt.Sprintf("%s: %v", what, notFound),
			Hint:    fmt.Sprintf("Findings are only kept across processes in Postgres. Set %s and run with --store.", config.EnvPostgresDSN),
			Err:     err,
		}
	}

	return fmt.Errorf("%s: %w", what, err)
}
