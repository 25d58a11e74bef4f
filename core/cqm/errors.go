package cqm

import "errors"

var (
	// ErrDuplicateLabel is returned when a variable or constraint label is reused.
	ErrDuplicateLabel = errors.New("duplicate label")
	// ErrUnknownVariable is returned when an expression references a variable
	// that was never declared.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrFinalized is returned when a Builder is used after Model was called.
	ErrFinalized = errors.New("model already finalized")
	// ErrTooLarge is returned by Relax for models above the size limit.
	ErrTooLarge = errors.New("model too large for relaxation")
)
