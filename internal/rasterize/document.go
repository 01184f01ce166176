// Package rasterize renders PDF pages to images with MuPDF (through go-fitz).
package rasterize

import (
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/pagerender/pagerender/internal/rendering"
)

// Document is an open PDF. Pages of one Document may be rendered from
// several goroutines; go-fitz serializes access internally.
type Document struct {
	doc  *fitz.Document
	name string
}

// Open opens the PDF file at path.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &OpenError{Source: path, Cause: markFitzError(err)}
	}
	return &Document{doc: doc, name: path}, nil
}

// OpenBytes opens a PDF held in memory. name is only used in messages.
func OpenBytes(data []byte, name string) (*Document, error) {
	if len(data) == 0 {
		return nil, &OpenError{
			Source: name,
			Cause:  rendering.Mark(errors.New("empty document"), rendering.ErrMalformed),
		}
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &OpenError{Source: name, Cause: markFitzError(err)}
	}
	return &Document{doc: doc, name: name}, nil
}

// Name returns the path or name the document was opened with.
func (d *Document) Name() string {
	return d.name
}

// NumPages returns the number of pages in the document.
func (d *Document) NumPages() int {
	return d.doc.NumPage()
}

// Page returns the page with the given zero-based index.
func (d *Document) Page(index int) (*Page, error) {
	if index < 0 || index >= d.NumPages() {
		return nil, &PageRangeError{Index: index, Count: d.NumPages()}
	}
	return &Page{doc: d, index: index}, nil
}

// Pages returns handles for all pages in order.
func (d *Document) Pages() []*Page {
	pages := make([]*Page, d.NumPages())
	for i := range pages {
		pages[i] = &Page{doc: d, index: i}
	}
	return pages
}

// Close releases the MuPDF context.
func (d *Document) Close() error {
	return d.doc.Close()
}

// Page is a handle to one page of a Document. It implements rendering.Page.
type Page struct {
	doc   *Document
	index int
}

// Index returns the zero-based page index.
func (p *Page) Index() int {
	return p.index
}

// Bounds returns the page rectangle in points (72 dpi).
func (p *Page) Bounds() (image.Rectangle, error) {
	r, err := p.doc.doc.Bound(p.index)
	if err != nil {
		return image.Rectangle{}, markFitzError(err)
	}
	return r, nil
}

func (p *Page) String() string {
	return fmt.Sprintf("%s#%d", p.doc.name, p.index+1)
}
