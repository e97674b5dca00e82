package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownStage       = errors.New("unknown stage")
	ErrStageConflict      = errors.New("projects span multiple stages")
	ErrEmptySelection     = errors.New("empty selection")
	ErrCheckerUnavailable = errors.New("eligibility checker unavailable")
)
