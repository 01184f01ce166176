package imageio

import "fmt"

// FormatError represents an unsupported output format
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported image format: %q (want png or jpeg)", e.Format)
}

// WriteError represents a failure writing an output image
type WriteError struct {
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write error: %s: %v", e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
