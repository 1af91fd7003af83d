// Package errors defines the error taxonomy shared by every layer of foodlens.
// Each stage boundary classifies failures into one of these types so that
// transports can map them to HTTP statuses or chat replies.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown     = "UNKNOWN"
	CodeValidation  = "VALIDATION"
	CodeNotFound    = "NOT_FOUND"
	CodeAnalysis    = "ANALYSIS"
	CodeStorage     = "STORAGE"
	CodePersistence = "PERSISTENCE"
	CodeDownload    = "DOWNLOAD"
	CodeConfig      = "CONFIG"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// appError carries the code, message and cause shared by every error type.
type appError struct {
	code    string
	message string
	err     error
}

func (e *appError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *appError) Code() string {
	return e.code
}

func (e *appError) Unwrap() error {
	return e.err
}

// Message returns the message without the wrapped cause.
func (e *appError) Message() string {
	return e.message
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't have one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// ValidationError reports bad, user-fixable input.
type ValidationError struct{ appError }

func NewValidationError(message string, cause error) error {
	return &ValidationError{appError{code: CodeValidation, message: message, err: cause}}
}

// NotFoundError reports a missing record.
type NotFoundError struct{ appError }

func NewNotFoundError(message string) error {
	return &NotFoundError{appError{code: CodeNotFound, message: message}}
}

// AnalysisError reports that the vision model could not produce a structured result.
type AnalysisError struct{ appError }

func NewAnalysisError(message string, cause error) error {
	return &AnalysisError{appError{code: CodeAnalysis, message: message, err: cause}}
}

// StorageError reports an artifact store failure.
type StorageError struct{ appError }

func NewStorageError(message string, cause error) error {
	return &StorageError{appError{code: CodeStorage, message: message, err: cause}}
}

// PersistenceError reports a repository failure.
type PersistenceError struct{ appError }

func NewPersistenceError(message string, cause error) error {
	return &PersistenceError{appError{code: CodePersistence, message: message, err: cause}}
}

// DownloadError reports a failure fetching a file from the messaging platform.
type DownloadError struct{ appError }

func NewDownloadError(message string, cause error) error {
	return &DownloadError{appError{code: CodeDownload, message: message, err: cause}}
}

type ConfigError struct{ appError }

func NewConfigError(message string, cause error) error {
	return &ConfigError{appError{code: CodeConfig, message: message, err: cause}}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsAnalysis(err error) bool {
	var target *AnalysisError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

func IsDownload(err error) bool {
	var target *DownloadError
	return errors.As(err, &target)
}

// Classified reports whether err already carries one of the taxonomy types.
func Classified(err error) bool {
	return Code(err) != CodeUnknown
}

// Message returns the message of the first ApplicationError in err's chain
// without its wrapped cause, or "" when err is unclassified.
func Message(err error) string {
	var m interface{ Message() string }
	if errors.As(err, &m) {
		return m.Message()
	}
	return ""
}
