package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidStageName  = errors.New("invalid stage name")
	ErrInvalidStageOrder = errors.New("invalid stage order")
	ErrInvalidCompletion = errors.New("invalid completion status")
	ErrProjectCompleted  = errors.New("project is completed and read-only")
)
