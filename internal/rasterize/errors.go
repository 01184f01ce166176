package rasterize

import (
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"

	"github.com/pagerender/pagerender/internal/rendering"
)

// OpenError represents a failure to open a document
type OpenError struct {
	Source string
	Cause  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Source, e.Cause)
}

func (e *OpenError) Unwrap() error {
	return e.Cause
}

// PageRangeError represents a page index outside the document
type PageRangeError struct {
	Index int
	Count int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("page index %d out of range (document has %d pages)", e.Index, e.Count)
}

func (e *PageRangeError) Unwrap() error {
	return rendering.ErrTypeMismatch
}

// fitzCategories maps go-fitz sentinels to rendering categories.
var fitzCategories = []struct {
	err      error
	category error
}{
	{fitz.ErrNoSuchFile, rendering.ErrIO},
	{fitz.ErrOpenDocument, rendering.ErrMalformed},
	{fitz.ErrOpenMemory, rendering.ErrMalformed},
	{fitz.ErrLoadPage, rendering.ErrMalformed},
	{fitz.ErrRunPageContents, rendering.ErrMalformed},
	{fitz.ErrPageMissing, rendering.ErrMalformed},
	{fitz.ErrCreateContext, rendering.ErrResourceExhausted},
	{fitz.ErrCreatePixmap, rendering.ErrResourceExhausted},
	{fitz.ErrPixmapSamples, rendering.ErrResourceExhausted},
}

// markFitzError tags a go-fitz error with its rendering category. Errors
// without a known category are returned unchanged.
func markFitzError(err error) error {
	for _, c := range fitzCategories {
		if errors.Is(err, c.err) {
			return rendering.Mark(err, c.category)
		}
	}
	return err
}
