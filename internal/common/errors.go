package common

import (
	"errors"
	"fmt"
)

// ErrorClass partitions upstream failures so callers can decide whether a
// source is worth retrying, skipping, or abandoning for the run.
type ErrorClass int

const (
	// ClassConnection covers network, DNS, timeout and non-2xx responses
	// unrelated to authentication.
	ClassConnection ErrorClass = iota
	// ClassData covers payloads that arrived but could not be interpreted.
	ClassData
	// ClassAuth covers missing or rejected credentials. Terminal for the
	// adapter instance; never retried.
	ClassAuth
	// ClassConfig covers invalid caller input: bad period strings, bad
	// dates, empty symbols. Always surfaces immediately.
	ClassConfig
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConnection:
		return "connection"
	case ClassData:
		return "data"
	case ClassAuth:
		return "auth"
	case ClassConfig:
		return "config"
	}
	return "unknown"
}

// SourceError is a classified failure from a data source or from input
// validation. Source names the adapter or component that raised it.
type SourceError struct {
	Class  ErrorClass
	Source string
	Msg    string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s error: %s: %v", e.Source, e.Class, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Source, e.Class, e.Msg)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ConnectionError builds a ClassConnection SourceError.
func ConnectionError(source, msg string, err error) *SourceError {
	return &SourceError{Class: ClassConnection, Source: source, Msg: msg, Err: err}
}

// DataError builds a ClassData SourceError.
func DataError(source, msg string, err error) *SourceError {
	return &SourceError{Class: ClassData, Source: source, Msg: msg, Err: err}
}

// AuthError builds a ClassAuth SourceError.
func AuthError(source, msg string, err error) *SourceError {
	return &SourceError{Class: ClassAuth, Source: source, Msg: msg, Err: err}
}

// ConfigError builds a ClassConfig SourceError.
func ConfigError(source, msg string, err error) *SourceError {
	return &SourceError{Class: ClassConfig, Source: source, Msg: msg, Err: err}
}

// ClassOf reports the class of err, or ClassConnection when err carries no
// classification (an unclassified failure is treated as transient).
func ClassOf(err error) ErrorClass {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Class
	}
	return ClassConnection
}

// IsAuth reports whether err is an authentication-class failure.
func IsAuth(err error) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Class == ClassAuth
}

// IsConfig reports whether err is a caller-input failure.
func IsConfig(err error) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Class == ClassConfig
}

// IsData reports whether err is a malformed-payload failure.
func IsData(err error) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Class == ClassData
}
