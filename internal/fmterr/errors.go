// Package fmterr classifies formatting failures and reports them to the user
// through an output sink and a notifier.
package fmterr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	// KindToolFailure is anything the formatter reported which is not a
	// problem with the user's program.
	KindToolFailure Kind = iota
	KindUserSyntax
	KindUserSemantic
	// KindEnvironment covers a missing or broken formatter executable.
	KindEnvironment
	// KindIO covers temp file creation and cleanup.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindToolFailure:
		return "tool-failure"
	case KindUserSyntax:
		return "user-syntax-error"
	case KindUserSemantic:
		return "user-semantic-error"
	case KindEnvironment:
		return "environment-error"
	case KindIO:
		return "io-error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsUserError reports whether the failure is caused by the document being
// formatted.
func (k Kind) IsUserError() bool {
	return k == KindUserSyntax || k == KindUserSemantic
}

// Error is a classified formatting failure.
type Error struct {
	Kind    Kind
	Message string

	// Captured formatter streams, only set for formatter failures.
	Stdout string
	Stderr string

	Positions []Position

	Err error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Environment wraps a failure to locate or run the formatter executable.
func Environment(err error, message string) *Error {
	return &Error{
		Kind:    KindEnvironment,
		Message: message,
		Err:     err,
	}
}

// IO wraps a temp file failure.
func IO(err error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &Error{
		Kind:    KindIO,
		Message: msg,
		Err:     err,
	}
}

// processError is a failed formatter process, see stanc.ProcessError.
type processError interface {
	error
	Timeout() bool
	Output() (stdout, stderr string)
}

// Formatter classifies a failed formatter invocation and keeps the captured
// output and any source positions it mentions. Only the captured streams
// are classified, never the message, which holds the command line and so
// the user's file path. A timed out run is always a tool failure.
func Formatter(err error, stdout, stderr string) *Error {
	var pe processError
	isProcess := errors.As(err, &pe)
	if isProcess && stdout == "" && stderr == "" {
		stdout, stderr = pe.Output()
	}

	kind := KindToolFailure
	var positions []Position
	switch {
	case isProcess && pe.Timeout():
	case stderr != "" || stdout != "":
		diagnostic := stderr + "\n" + stdout
		kind = classifyMessage(diagnostic)
		positions = ParsePositions(diagnostic)
	case !isProcess:
		kind = classifyMessage(err.Error())
		positions = ParsePositions(err.Error())
	}

	return &Error{
		Kind:      kind,
		Message:   err.Error(),
		Stdout:    stdout,
		Stderr:    stderr,
		Positions: positions,
		Err:       err,
	}
}

// Classify returns the kind of err. A classified *Error in the chain wins,
// otherwise the message is inspected for the formatter's case-sensitive
// "Syntax" and "Semantic" markers.
func Classify(err error) Kind {
	if err == nil {
		return KindToolFailure
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}

	return classifyMessage(err.Error())
}

// The markers are matched anywhere in the text, which also matches a
// program that merely mentions the words. stanc gives no better signal.
func classifyMessage(msg string) Kind {
	switch {
	case strings.Contains(msg, "Syntax"):
		return KindUserSyntax
	case strings.Contains(msg, "Semantic"):
		return KindUserSemantic
	default:
		return KindToolFailure
	}
}

// Message returns the text shown to the user for err. Every part of a
// joined error is shown, one per line.
func Message(err error) string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		msgs := []string{}
		for _, part := range joined.Unwrap() {
			if part != nil {
				msgs = append(msgs, Message(part))
			}
		}
		return strings.Join(msgs, "\n")
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return err.Error()
}
