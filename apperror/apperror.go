// Package apperror provides a custom error type that enhances standard Go errors
// with stack traces and support for additional nested errors.
//
// It is used throughout go-locale to wrap incidental faults (file reads,
// transport errors, config parsing) with the call location they occurred at.
// The trace is only rendered when debug mode is enabled, so production error
// messages stay short.
//
// Usage:
//
//	// Create a new application error
//	err := apperror.NewError("something went wrong")
//
//	// Wrap an existing error to capture a new stack trace point
//	err = apperror.Wrap(err)
//
//	// Add related errors for context
//	err = apperror.NewError("reading locale file failed").AddError(io.EOF)
//
// To enable debug output (stack traces), set `flag.Debug = true` before
// printing errors.
package apperror

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/valentin-kaiser/go-locale/flag"
)

var (
	// TraceDelimiter is used to separate trace entries
	TraceDelimiter = " -> "
	// ErrorDelimiter is used to separate multiple errors
	ErrorDelimiter = " => "
	// ErrorFormat is the format for displaying the error message and additional errors
	ErrorFormat = "%s [%s]"
	// ErrorTraceFormat is the format for displaying the error message with a stack trace
	ErrorTraceFormat = "%s | %s"
	// FullFormat is the format for displaying the error message with a stack trace and additional errors
	FullFormat = "%s | %s [%s]"
)

// Error represents an application error with a stack trace and additional errors
// It implements the error interface and can be used to wrap other errors
type Error struct {
	Trace   []string
	Errors  []error
	Message string
}

// NewError creates a new Error instance with the given message
// If the error is already of type Error you should use Wrap instead
func NewError(msg string) Error {
	e := Error{
		Message: msg,
	}
	e.Trace = trace(e)
	return e
}

// NewErrorf creates a new Error instance with the formatted message
// If the error is already of type Error you should use Wrap instead
func NewErrorf(format string, a ...interface{}) Error {
	e := Error{
		Message: fmt.Sprintf(format, a...),
	}
	e.Trace = trace(e)
	return e
}

// Wrap wraps an error and adds a stack trace to it
// Should be used to wrap errors that are of type Error
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		e.Trace = trace(e)
		return e
	}
	e := Error{
		Message: err.Error(),
	}
	e.Trace = trace(e)
	return e
}

// AddError adds an additional error to the Error instance context
func (e Error) AddError(err error) Error {
	e.Errors = append(e.Errors, err)
	return e
}

// Is implements the error unwrapping interface for errors.Is()
// It checks if the target error is equal to this error by comparing their messages
func (e Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(Error); ok {
		return e.Message == t.Message
	}

	return e.Message == target.Error()
}

// Unwrap implements the error unwrapping interface for errors.Is() and errors.As()
// It returns the first additional error if any exist, allowing the standard library
// to traverse the error chain when looking for specific error types
func (e Error) Unwrap() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Error implements the error interface and returns the error message
// If debug mode is enabled, it includes the stack trace and additional errors
func (e Error) Error() string {
	errs := ""
	for _, d := range e.Errors {
		if d == nil {
			continue
		}
		if errs != "" {
			errs += ErrorDelimiter
		}
		errs += d.Error()
	}

	if flag.Debug && len(e.Trace) > 0 {
		t := ""
		for i := len(e.Trace) - 1; i >= 0; i-- {
			t += e.Trace[i]
			if i > 0 {
				t += TraceDelimiter
			}
		}

		if errs != "" {
			return fmt.Sprintf(FullFormat, t, e.Message, errs)
		}
		return fmt.Sprintf(ErrorTraceFormat, t, e.Message)
	}

	if errs != "" {
		return fmt.Sprintf(ErrorFormat, e.Message, errs)
	}
	return e.Message
}

// Split separates the error into its components: message, trace, and additional errors
// It returns the message, a slice of trace strings, and a slice of additional errors
func Split(err error) (string, []string, []error) {
	aerr, ok := err.(Error)
	if !ok {
		return err.Error(), nil, nil
	}

	return aerr.Message, aerr.Trace, aerr.Errors
}

// Where returns the trace location of the caller at the specified level
// The level parameter indicates how many stack frames to skip
func Where(level int) string {
	pc := make([]uintptr, 32)
	n := runtime.Callers(level, pc)
	if n == 0 {
		return "unknown"
	}

	pc = pc[:n]
	frames := runtime.CallersFrames(pc)

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s:%d (%s)\n", frame.File, frame.Line, frame.Function)

		if !more {
			break
		}
	}
	return sb.String()
}

// trace generates a stack trace for the error
// It uses runtime.Caller to get the file name and line number
func trace(e Error) []string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return e.Trace
	}

	e.Trace = append(e.Trace, fmt.Sprintf("%s:%d", file, line))
	return e.Trace
}
