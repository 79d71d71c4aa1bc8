// Package apperr provides the typed error taxonomy shared across the server.
//
// Components below the conversation manager raise these typed errors; only
// the manager and the MCP tool boundary translate them into response
// payloads. The one sanctioned exception: the workflow catalog swallows a
// configuration error when falling back to a built-in definition.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes as constants
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodePrecondition  = "PRECONDITION_FAILED"
	CodePersistence   = "PERSISTENCE_ERROR"
)

// Error is an application error with a category code and optional cause.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Configuration reports a malformed or structurally invalid document.
func Configuration(format string, args ...any) *Error {
	return &Error{Code: CodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing conversation, workflow, or workflow phase.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Precondition reports a call whose preconditions were not met. The message
// should name the failed precondition and the corrective action.
func Precondition(format string, args ...any) *Error {
	return &Error{Code: CodePrecondition, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure. Persistence errors are fatal to the
// current call and are never retried automatically.
func Persistence(message string, err error) *Error {
	return &Error{Code: CodePersistence, Message: message, Err: err}
}

func hasCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return hasCode(err, CodeConfiguration) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsPrecondition reports whether err is a precondition error.
func IsPrecondition(err error) bool { return hasCode(err, CodePrecondition) }

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool { return hasCode(err, CodePersistence) }
