package domain

import (
	"errors"
	"fmt"
)

// Error classes returned by the query engine. Callers classify failures with errors.Is.
var (
	// ErrInput marks a rejected request: missing coordinates, malformed dates, reversed ranges.
	ErrInput = errors.New("invalid input")
	// ErrNotFound marks an unknown parameter or a partition pattern matching no files.
	ErrNotFound = errors.New("not found")
	// ErrNoMatch marks requested timestamps that are absent from the loaded time axis.
	ErrNoMatch = errors.New("temporal mismatch")
	// ErrData marks source data that cannot be concatenated, reduced or indexed.
	ErrData = errors.New("data error")
)

type classified struct {
	class error
	msg   string
}

func (e *classified) Error() string { return e.class.Error() + ": " + e.msg }
func (e *classified) Unwrap() error { return e.class }

func newClassified(class error, format string, args ...any) error {
	return &classified{class: class, msg: fmt.Sprintf(format, args...)}
}

// InputErrorf returns an error of class ErrInput.
func InputErrorf(format string, args ...any) error {
	return newClassified(ErrInput, format, args...)
}

// NotFoundErrorf returns an error of class ErrNotFound.
func NotFoundErrorf(format string, args ...any) error {
	return newClassified(ErrNotFound, format, args...)
}

// NoMatchErrorf returns an error of class ErrNoMatch.
func NoMatchErrorf(format string, args ...any) error {
	return newClassified(ErrNoMatch, format, args...)
}

// DataErrorf returns an error of class ErrData.
func DataErrorf(format string, args ...any) error {
	return newClassified(ErrData, format, args...)
}
