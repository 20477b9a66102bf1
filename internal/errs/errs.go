// Package errs defines this module's typed error kinds. Each kind wraps an
// optional underlying cause and carries the minimal context a caller needs
// to decide how to react.
package errs

import "fmt"

// ConfigError reports missing or invalid configuration: a missing index
// directory, or an unknown analyzer name.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Reason)
}

// NewConfigError builds a ConfigError.
func NewConfigError(reason string) *ConfigError {
	return &ConfigError{Reason: reason}
}

// InvalidQueryError reports a violation of the QuerySpec validation rules.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// NewInvalidQueryError builds an InvalidQueryError.
func NewInvalidQueryError(reason string) *InvalidQueryError {
	return &InvalidQueryError{Reason: reason}
}

// IndexIOError reports any failure reading or writing the index directory.
// It is always surfaced to the caller, never swallowed.
type IndexIOError struct {
	Op  string
	Err error
}

func (e *IndexIOError) Error() string {
	return fmt.Sprintf("index io error during %s: %v", e.Op, e.Err)
}

func (e *IndexIOError) Unwrap() error {
	return e.Err
}

// NewIndexIOError builds an IndexIOError.
func NewIndexIOError(op string, cause error) *IndexIOError {
	return &IndexIOError{Op: op, Err: cause}
}

// StoreError reports a failure from the underlying triple store, during
// synchroniser rebuild or residual-query evaluation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("triple store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError builds a StoreError.
func NewStoreError(op string, cause error) *StoreError {
	return &StoreError{Op: op, Err: cause}
}

// CorruptStateError reports a detected violation of the single-document
// invariant: more than one hit returned for a subject-scoped search. The
// detecting caller logs it as a warning and continues using the first
// result; it is a typed value (rather than just a log line) so a caller
// that wants to surface or count these events can do so.
type CorruptStateError struct {
	Subject string
	Reason  string
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state for subject %q: %s", e.Subject, e.Reason)
}

// NewCorruptStateError builds a CorruptStateError.
func NewCorruptStateError(subject, reason string) *CorruptStateError {
	return &CorruptStateError{Subject: subject, Reason: reason}
}
