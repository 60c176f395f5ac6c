package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrUnknownStoreKind indicates the [store] kind setting is not recognised.
	ErrUnknownStoreKind = errors.New("unknown store kind")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("configuration store is closed")

	// ErrInvalidSetting indicates a setting value could not be interpreted.
	ErrInvalidSetting = errors.New("invalid setting")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
