// Package cortexerr defines the engine's single error type.
//
// Every operation in cortex returns a plain (T, error) pair. Errors that
// the engine, policy, model and adapters raise themselves are a *Error
// carrying a machine-readable Code and a message that states what failed
// and what the caller can do about it. Errors from the sqlindex package,
// the config loader and the adapters' underlying OS calls (file reads,
// writes, renames, directory creation) are passed through as plain Go
// errors without a Code.
// Front-ends (CLI, tool server) map Code to exit codes or protocol errors
// without reinterpreting it.
package cortexerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category, stable across releases.
type Code string

const (
	// Input
	InvalidPath       Code = "INVALID_PATH"
	InvalidSlug       Code = "INVALID_SLUG"
	InvalidArguments  Code = "INVALID_ARGUMENTS"
	InvalidStoreName  Code = "INVALID_STORE_NAME"

	// Not found
	MemoryNotFound      Code = "MEMORY_NOT_FOUND"
	CategoryNotFound    Code = "CATEGORY_NOT_FOUND"
	StoreNotFound       Code = "STORE_NOT_FOUND"
	StoreNotInitialized Code = "STORE_NOT_INITIALIZED"

	// Conflict
	MemoryAlreadyExists Code = "MEMORY_ALREADY_EXISTS"
	DestinationExists   Code = "DESTINATION_EXISTS"
	StoreAlreadyExists  Code = "STORE_ALREADY_EXISTS"
	DuplicateStoreName  Code = "DUPLICATE_STORE_NAME"

	// Policy
	OperationNotPermitted         Code = "OPERATION_NOT_PERMITTED"
	ContentTooLong                Code = "CONTENT_TOO_LONG"
	SubcategoryCreationNotAllowed Code = "SUBCATEGORY_CREATION_NOT_ALLOWED"
	CategoryProtected             Code = "CATEGORY_PROTECTED"
	RootCategoryRejected          Code = "ROOT_CATEGORY_REJECTED"
	RootCategoryNotAllowed        Code = "ROOT_CATEGORY_NOT_ALLOWED"
	DescriptionTooLong            Code = "DESCRIPTION_TOO_LONG"

	// Storage
	StorageError       Code = "STORAGE_ERROR"
	IndexUpdateFailed  Code = "INDEX_UPDATE_FAILED"
	ConfigReadFailed   Code = "CONFIG_READ_FAILED"
	ConfigWriteFailed  Code = "CONFIG_WRITE_FAILED"

	// Parse/serialize
	ParseFailed     Code = "PARSE_FAILED"
	SerializeFailed Code = "SERIALIZE_FAILED"
)

// Error is the engine's single error type.
type Error struct {
	Code        Code
	Message     string
	Store       string
	Path        string
	Remediation string
	Cause       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Remediation != "" {
		msg += ". " + e.Remediation
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the wrapped cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a storage/parse cause to a new error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithRemediation returns a copy of e with the remediation sentence set.
func (e *Error) WithRemediation(s string) *Error {
	cp := *e
	cp.Remediation = s
	return &cp
}

// WithPath returns a copy of e annotated with the memory/category path
// that the originating operation was acting on.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// WithStore returns a copy of e annotated with the store name.
func (e *Error) WithStore(store string) *Error {
	cp := *e
	cp.Store = store
	return &cp
}

// Is reports whether err is a *Error with the given code, matching
// through wrapped errors via errors.As.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
