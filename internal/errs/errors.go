// Package errs defines the closed error-kind taxonomy the pipeline uses for
// every subsystem boundary. Errors are first-class values, never thrown
// across a component boundary; every component returns (T, error) and the
// *Error type here carries enough structure for the task state machine and
// the feedback router to classify failures without string sniffing.
package errs

import "fmt"

// Kind is the closed taxonomy of error categories from spec.md §7.
type Kind string

const (
	KindInput          Kind = "input_error"
	KindLLM            Kind = "llm_error"
	KindFileOp         Kind = "file_op_error"
	KindCompilation    Kind = "compilation_error"
	KindValidation     Kind = "validation_error"
	KindInfrastructure Kind = "infrastructure_error"
	KindPolicy         Kind = "policy_error"
)

// Error is the uniform error value returned across subsystem boundaries.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Input(message string, cause error) *Error          { return newErr(KindInput, message, cause) }
func LLM(message string, cause error) *Error             { return newErr(KindLLM, message, cause) }
func FileOp(message string, cause error) *Error          { return newErr(KindFileOp, message, cause) }
func Compilation(message string, cause error) *Error     { return newErr(KindCompilation, message, cause) }
func Validation(message string, cause error) *Error      { return newErr(KindValidation, message, cause) }
func Infrastructure(message string, cause error) *Error  { return newErr(KindInfrastructure, message, cause) }
func Policy(message string, cause error) *Error          { return newErr(KindPolicy, message, cause) }

// WithDetail attaches a short diagnostic preview (e.g. a missing-needle
// excerpt) without changing Kind or Message.
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = detail
	return &c
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error produced by this package; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
