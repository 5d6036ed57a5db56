// Package asyncipcerr defines the error-kind taxonomy shared by every
// go-asyncipc package. Each kind from the design's error model is a
// distinct Go type (or sentinel, where no payload is carried), so callers
// use errors.As/errors.Is rather than inspecting a class hierarchy.
package asyncipcerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for kinds that carry no payload beyond a message.
var (
	// ErrEncodingUnknown indicates a Channel codec lookup failed.
	ErrEncodingUnknown = errors.New("asyncipc: encoding unknown")

	// ErrWatcherCreateFailed indicates the OS refused an FS-notification watch.
	ErrWatcherCreateFailed = errors.New("asyncipc: watcher create failed")

	// ErrEventUnknown indicates invoke_event was given a name without a handler.
	ErrEventUnknown = errors.New("asyncipc: event unknown")

	// ErrClassLoadFailed indicates dynamic resolution of a notifier class failed.
	ErrClassLoadFailed = errors.New("asyncipc: class load failed")

	// ErrStreamClosing indicates a write was attempted on a stream marked closing.
	ErrStreamClosing = errors.New("asyncipc: stream is closing")
)

// Unspecified indicates a required parameter was missing.
type Unspecified struct {
	Param string
}

func (e *Unspecified) Error() string {
	return fmt.Sprintf("asyncipc: unspecified parameter %q", e.Param)
}

// NewUnspecified returns a stack-annotated Unspecified error for param.
func NewUnspecified(param string) error {
	return errors.WithStack(&Unspecified{Param: param})
}

// Tainted indicates an untrusted string failed a validation regex.
type Tainted struct {
	Field string
	Value string
}

func (e *Tainted) Error() string {
	return fmt.Sprintf("asyncipc: tainted value for %q: %q", e.Field, e.Value)
}

// NewTainted returns a stack-annotated Tainted error.
func NewTainted(field, value string) error {
	return errors.WithStack(&Tainted{Field: field, Value: value})
}

// NotifierIDNotUnique indicates a (type, name) pair conflicted at construction.
type NotifierIDNotUnique struct {
	Type string
	Name string
}

func (e *NotifierIDNotUnique) Error() string {
	return fmt.Sprintf("asyncipc: notifier id not unique: type=%q name=%q", e.Type, e.Name)
}

// NewNotifierIDNotUnique returns a stack-annotated NotifierIDNotUnique error.
func NewNotifierIDNotUnique(typ, name string) error {
	return errors.WithStack(&NotifierIDNotUnique{Type: typ, Name: name})
}

// IOError wraps a syscall errno surfaced from a read/write/socketpair/watch
// failure, carrying the operation name for context.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("asyncipc: io error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError returns a stack-annotated IOError, or nil if err is nil.
func NewIOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&IOError{Op: op, Err: err})
}

// IsNonFatal reports whether err represents a syscall condition the loop
// should re-arm for instead of tearing down the endpoint: EAGAIN,
// EWOULDBLOCK, or EINTR.
func IsNonFatal(err error) bool {
	return errors.Is(err, errEAGAIN) || errors.Is(err, errEWOULDBLOCK) || errors.Is(err, errEINTR)
}
