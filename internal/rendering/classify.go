package rendering

import (
	"context"
	"errors"
	"image"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"syscall"
)

// runtimeShapeFaults are substrings of runtime.Error messages that indicate
// the data did not have the shape the code expected.
var runtimeShapeFaults = []string{
	"index out of range",
	"slice bounds out of range",
	"nil pointer dereference",
	"assignment to entry in nil map",
	"comparing uncomparable type",
}

// Classify maps an arbitrary error to an ErrorKind. Explicit marks win over
// structural matching; anything unrecognized is KindUnknown.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	switch {
	case errors.Is(err, ErrMalformed):
		return KindMalformedResource
	case errors.Is(err, ErrTypeMismatch):
		return KindTypeMismatch
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrResourceExhausted):
		return KindResourceExhaustion
	}

	if errors.Is(err, image.ErrFormat) {
		return KindMalformedResource
	}

	if isShapeFault(err) {
		return KindTypeMismatch
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ENOMEM) {
		return KindResourceExhaustion
	}

	if isIOFault(err) {
		return KindIO
	}

	return KindUnknown
}

func isShapeFault(err error) bool {
	var typeAssert *runtime.TypeAssertionError
	if errors.As(err, &typeAssert) {
		return true
	}

	var rtErr runtime.Error
	if !errors.As(err, &rtErr) {
		return false
	}
	msg := rtErr.Error()
	for _, fault := range runtimeShapeFaults {
		if strings.Contains(msg, fault) {
			return true
		}
	}
	return false
}

func isIOFault(err error) bool {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrShortBuffer) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return true
	}

	var errno syscall.Errno
	return errors.As(err, &errno)
}
