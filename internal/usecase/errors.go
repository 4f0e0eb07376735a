package usecase

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrJobNotFound       = errors.New("job not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrTemplateConflict  = errors.New("template version already exists")
	ErrNoActiveTemplate  = errors.New("no active template")
	ErrInternal          = errors.New("internal error")
)
