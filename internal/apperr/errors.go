package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrConfigInvalid = errors.New("conversion config invalid")
	ErrCommitFailed  = errors.New("commit failed")
)
