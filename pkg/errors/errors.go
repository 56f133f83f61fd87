package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// New returns an error with the supplied message and the caller's stack.
func New(message string) error {
	return errors.New(message)
}

// Errorf formats according to a format specifier and records the stack.
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Wrap annotates err with message and a stack trace. Wrap returns nil if err is nil.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf is Wrap with a format specifier.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// WithStack annotates err with the caller's stack. WithStack returns nil if err is nil.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// WithMessage annotates err with message without recording a new stack.
func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

// Cause returns the innermost error of a Wrap chain.
func Cause(err error) error {
	return errors.Cause(err)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// NewWithReport creates an error and pushes it to every registered reporter.
func NewWithReport(message string) error {
	err := errors.New(message)
	report(err)
	return err
}

// ErrorfAndReport is Errorf followed by a report.
func ErrorfAndReport(format string, args ...interface{}) error {
	err := errors.Errorf(format, args...)
	report(err)
	return err
}

// WrapAndReport is Wrap followed by a report. Nil errors are neither wrapped nor reported.
func WrapAndReport(err error, message string) error {
	if err == nil {
		return nil
	}
	wrapped := errors.Wrap(err, message)
	report(wrapped)
	return wrapped
}

type stack []uintptr

func callers() *stack {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	var st stack = pcs[0:n]
	return &st
}

// fullStack renders every frame as "function file:line", skipping the runtime.
func (s *stack) fullStack() []string {
	frames := runtime.CallersFrames(*s)
	lines := make([]string, 0, len(*s))
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			lines = append(lines, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return lines
}

// stackKey picks the frame used to group reports of the same origin.
func stackKey(stacks []string) string {
	if len(stacks) == 0 {
		return ""
	}
	if len(stacks) > 2 {
		return stacks[2]
	}
	return stacks[len(stacks)-1]
}
