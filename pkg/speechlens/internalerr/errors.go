package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrLoad              = errors.New("load error")
	ErrEmptyCorpus       = errors.New("empty corpus")
	ErrVocabularyMiss    = errors.New("word not in vocabulary")
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)
