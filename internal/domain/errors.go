package domain

import "errors"

var (
	// ErrBankNotFound indicates the question source could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrSetNotFound is returned when a group id matches no questions.
	ErrSetNotFound = errors.New("no questions for this set")
	// ErrSessionNotFound is returned when a test session has not been started.
	ErrSessionNotFound = errors.New("test session not found")
	// ErrSubmitted rejects mutations after a session has been submitted.
	ErrSubmitted = errors.New("session already submitted")
)
