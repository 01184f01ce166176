// Package rendering provides a fault-isolation boundary around page rasterizers.
package rendering

import (
	"errors"
	"fmt"
)

// ErrorKind is the category of the fault behind a RenderFailure.
type ErrorKind string

const (
	// KindMalformedResource means the document or page structure could not be interpreted.
	KindMalformedResource ErrorKind = "malformed_resource"
	// KindTypeMismatch covers type assertions, out-of-range indices and nil dereferences.
	KindTypeMismatch ErrorKind = "type_mismatch"
	// KindIO covers read, open and permission faults.
	KindIO ErrorKind = "io"
	// KindResourceExhaustion covers allocation failures and deadlines.
	KindResourceExhaustion ErrorKind = "resource_exhaustion"
	// KindUnknown is the catch-all for faults that match no other category.
	KindUnknown ErrorKind = "unknown"
)

// Category sentinels. A primitive can tag its own errors with Mark so that
// Classify recognizes them.
var (
	ErrMalformed         = errors.New("malformed resource")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrIO                = errors.New("i/o fault")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// RenderFailure is the only error returned by Guard. It is built once, when
// the underlying call fails, and is not modified afterwards.
type RenderFailure struct {
	Kind    ErrorKind // category of the underlying fault
	Origin  string    // Go type of the underlying fault, e.g. "*fs.PathError"
	Message string
	Page    int // page index, -1 when unknown
	Cause   error
}

func (e *RenderFailure) Error() string {
	if e.Page >= 0 {
		return fmt.Sprintf("render failure (%s) on page %d: %s", e.Kind, e.Page, e.Message)
	}
	return fmt.Sprintf("render failure (%s): %s", e.Kind, e.Message)
}

func (e *RenderFailure) Unwrap() error {
	return e.Cause
}

// PanicError carries a recovered panic value that was not itself an error.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// markedError attaches a category sentinel to an error without hiding it.
type markedError struct {
	err  error
	mark error
}

func (e *markedError) Error() string { return e.err.Error() }

func (e *markedError) Unwrap() []error { return []error{e.err, e.mark} }

// Mark returns err tagged with one of the category sentinels. It returns nil
// if err is nil.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, mark: sentinel}
}

// newFailure builds the RenderFailure for cause. Inspecting cause runs its
// Error and Unwrap methods, which belong to the primitive and may panic (a
// typed nil pointer is the common case), so that work is guarded too.
func newFailure(page int, cause error) (failure *RenderFailure) {
	defer func() {
		if r := recover(); r != nil {
			failure = &RenderFailure{
				Kind:    KindUnknown,
				Origin:  fmt.Sprintf("%T", cause),
				Message: fmt.Sprintf("unreadable %T error value (inspecting it panicked: %v)", cause, r),
				Page:    page,
				Cause:   cause,
			}
		}
	}()

	return &RenderFailure{
		Kind:    Classify(cause),
		Origin:  originOf(cause),
		Message: cause.Error(),
		Page:    page,
		Cause:   cause,
	}
}

// originOf names the concrete type of err, looking through marks and panic
// wrappers so the name reflects the fault that was actually raised.
func originOf(err error) string {
	switch e := err.(type) {
	case *markedError:
		return originOf(e.err)
	case *PanicError:
		return fmt.Sprintf("panic(%T)", e.Value)
	}
	return fmt.Sprintf("%T", err)
}
