package imageio

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagerender/pagerender/internal/rendering"
)

type indexPage int

func (p indexPage) Index() int { return int(p) }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatPNG, false},
		{"png", FormatPNG, false},
		{"PNG", FormatPNG, false},
		{"jpeg", FormatJPEG, false},
		{" jpg ", FormatJPEG, false},
		{"gif", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				var formatErr *FormatError
				assert.ErrorAs(t, err, &formatErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_ExtensionAndContentType(t *testing.T) {
	assert.Equal(t, ".png", FormatPNG.Extension())
	assert.Equal(t, ".jpg", FormatJPEG.Extension())
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	assert.Equal(t, "image/jpeg", FormatJPEG.ContentType())
}

func TestEncode_RoundTripsSize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 7, 3))

	var pngBuf bytes.Buffer
	require.NoError(t, Encode(&pngBuf, img, FormatPNG, 0))
	decoded, err := png.Decode(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	var jpegBuf bytes.Buffer
	require.NoError(t, Encode(&jpegBuf, img, FormatJPEG, 150))
	decoded, err = jpeg.Decode(&jpegBuf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestEncode_UnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, image.NewGray(image.Rect(0, 0, 1, 1)), Format("tiff"), 0)
	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestPageFileName(t *testing.T) {
	assert.Equal(t, "doc-1.png", PageFileName("doc", 0, 9, FormatPNG))
	assert.Equal(t, "doc-010.jpg", PageFileName("doc", 9, 120, FormatJPEG))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "report", Stem("/tmp/in/report.pdf"))
	assert.Equal(t, "noext", Stem("noext"))
}

func TestWritePages_SkipsFailures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	results := []rendering.Result{
		{Page: indexPage(0), Image: image.NewGray(image.Rect(0, 0, 2, 2))},
		{Page: indexPage(1), Err: &rendering.RenderFailure{Kind: rendering.KindUnknown, Page: 1, Cause: errors.New("x")}},
		{Page: indexPage(2), Image: image.NewGray(image.Rect(0, 0, 2, 2))},
	}

	written, err := WritePages(dir, "doc", results, 3, FormatPNG, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "doc-1.png"),
		filepath.Join(dir, "doc-3.png"),
	}, written)

	for _, path := range written {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}
	_, err = os.Stat(filepath.Join(dir, "doc-2.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestWritePages_BadDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := WritePages(filepath.Join(file, "sub"), "doc", nil, 0, FormatPNG, 0)
	var writeErr *WriteError
	assert.ErrorAs(t, err, &writeErr)
}
