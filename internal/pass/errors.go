package pass

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pass infrastructure failures.
type ErrorKind int

const (
	KindCircularDependency ErrorKind = iota + 1
	KindPassNotFound
	KindExecutionFailed
	KindDependencyNotSatisfied
	KindMissingData
	KindIRNotAvailable
	KindInvalidConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindCircularDependency:
		return "circular dependency"
	case KindPassNotFound:
		return "pass not found"
	case KindExecutionFailed:
		return "execution failed"
	case KindDependencyNotSatisfied:
		return "dependency not satisfied"
	case KindMissingData:
		return "missing data"
	case KindIRNotAvailable:
		return "ir not available"
	case KindInvalidConfiguration:
		return "invalid configuration"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrCircularDependency     = errors.New(KindCircularDependency.String())
	ErrPassNotFound           = errors.New(KindPassNotFound.String())
	ErrExecutionFailed        = errors.New(KindExecutionFailed.String())
	ErrDependencyNotSatisfied = errors.New(KindDependencyNotSatisfied.String())
	ErrMissingData            = errors.New(KindMissingData.String())
	ErrIRNotAvailable         = errors.New(KindIRNotAvailable.String())
	ErrInvalidConfiguration   = errors.New(KindInvalidConfiguration.String())
)

var sentinels = map[ErrorKind]error{
	KindCircularDependency:     ErrCircularDependency,
	KindPassNotFound:           ErrPassNotFound,
	KindExecutionFailed:        ErrExecutionFailed,
	KindDependencyNotSatisfied: ErrDependencyNotSatisfied,
	KindMissingData:            ErrMissingData,
	KindIRNotAvailable:         ErrIRNotAvailable,
	KindInvalidConfiguration:   ErrInvalidConfiguration,
}

// Error is the error type returned by the pass infrastructure.
type Error struct {
	Kind    ErrorKind
	Pass    ID
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Pass != "" {
		msg += " (" + string(e.Pass) + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Kind]; ok && s == target {
		return true
	}
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Pass == "" || t.Pass == e.Pass)
}

func newError(kind ErrorKind, id ID, format string, args ...any) *Error {
	return &Error{Kind: kind, Pass: id, Message: fmt.Sprintf(format, args...)}
}

// ExecutionFailed wraps a pass failure.
func ExecutionFailed(id ID, err error) *Error {
	return &Error{Kind: KindExecutionFailed, Pass: id, Message: err.Error(), Err: err}
}

// MissingData reports an artifact a pass needed but could not read.
func MissingData(id ID, artifact string) *Error {
	return newError(KindMissingData, id, "artifact %q is absent", artifact)
}

// IRNotAvailable reports an IR pass invoked before IR generation.
func IRNotAvailable(id ID) *Error {
	return newError(KindIRNotAvailable, id, "no IR has been generated")
}
