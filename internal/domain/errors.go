package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or already ended.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions indicates a session was started with an empty question list.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrInvalidQuestion indicates malformed question content.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidMode indicates an unknown session mode.
	ErrInvalidMode = errors.New("invalid session mode")
	// ErrWrongPhase indicates an operation was called in a phase that does not allow it.
	ErrWrongPhase = errors.New("operation not allowed in current phase")
	// ErrOptionOutOfRange indicates a selected option index outside the question's options.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrInvalidRewardPolicy indicates a speed bonus table that is not strictly decreasing or has no positive floor.
	ErrInvalidRewardPolicy = errors.New("invalid reward policy")
)
