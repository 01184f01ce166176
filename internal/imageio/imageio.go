// Package imageio encodes rendered pages and writes them to disk.
package imageio

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagerender/pagerender/internal/rendering"
)

// Format is an output image format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultJPEGQuality is used when a quality of 0 is requested.
const DefaultJPEGQuality = 90

// ParseFormat parses a format name. "jpg" is accepted as an alias for jpeg.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", &FormatError{Format: s}
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Encode writes img to w in the given format. quality only applies to JPEG.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: min(quality, 100)})
	default:
		return &FormatError{Format: string(format)}
	}
}

// PageFileName returns the output file name for a zero-based page index:
// "<stem>-<page>.<ext>" with a one-based, zero-padded page number.
func PageFileName(stem string, index, pageCount int, format Format) string {
	width := len(fmt.Sprint(pageCount))
	return fmt.Sprintf("%s-%0*d%s", stem, width, index+1, format.Extension())
}

// WritePages writes every successful result of a batch into dir and returns
// the paths written. Failed results are skipped.
func WritePages(dir, stem string, results []rendering.Result, pageCount int, format Format, quality int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &WriteError{Path: dir, Cause: err}
	}

	var written []string
	for _, r := range results {
		if r.Err != nil || r.Image == nil {
			continue
		}

		path := filepath.Join(dir, PageFileName(stem, r.Page.Index(), pageCount, format))
		if err := writeFile(path, r.Image, format, quality); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, img image.Image, format Format, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Cause: err}
	}

	if err := Encode(f, img, format, quality); err != nil {
		_ = f.Close()
		return &WriteError{Path: path, Cause: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Cause: err}
	}
	return nil
}

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
