package service

import (
	"errors"

	"github.com/okian/reputation/internal/adapters/repository"
)

// Validation and lookup outcomes returned by Service.
var (
	ErrInvalidPage     = errors.New("page must be a positive integer")
	ErrEmptyQuery      = errors.New("search query is required")
	ErrNoMatches       = errors.New("no members matched")
	ErrInvalidCategory = errors.New("unknown category")
	ErrMissingField    = errors.New("missing required field")

	// Store outcomes callers may branch on.
	ErrNotFound      = repository.ErrNotFound
	ErrDuplicateName = repository.ErrDuplicateName
)
