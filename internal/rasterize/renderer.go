package rasterize

import (
	"fmt"
	"image"
	"math"

	"github.com/pagerender/pagerender/internal/rendering"
)

// DefaultMaxPixels bounds the size of a rasterized page (about 200 megapixels).
const DefaultMaxPixels = 200_000_000

// Renderer is the MuPDF page renderer. It implements rendering.Renderer and
// is meant to be used behind a rendering.Guard.
type Renderer struct {
	// MaxPixels caps width*height of the rasterized page before cropping
	// and scaling. Zero means DefaultMaxPixels.
	MaxPixels int
}

// NewRenderer returns a Renderer with default limits.
func NewRenderer() *Renderer {
	return &Renderer{MaxPixels: DefaultMaxPixels}
}

// RenderPage rasterizes page at opts.DPI and applies Transform.
func (r *Renderer) RenderPage(page rendering.Page, opts rendering.Options) (image.Image, error) {
	p, ok := page.(*Page)
	if !ok {
		return nil, rendering.Mark(fmt.Errorf("unsupported page handle %T", page), rendering.ErrTypeMismatch)
	}

	dpi := opts.EffectiveDPI()
	if dpi < 0 || math.IsNaN(dpi) || math.IsInf(dpi, 0) {
		return nil, rendering.Mark(fmt.Errorf("invalid resolution %g dpi", dpi), rendering.ErrTypeMismatch)
	}

	if err := r.checkSize(p, dpi); err != nil {
		return nil, err
	}

	img, err := p.doc.doc.ImageDPI(p.index, dpi)
	if err != nil {
		return nil, markFitzError(err)
	}

	return Transform(img, opts)
}

// checkSize refuses renders whose pixmap would exceed MaxPixels.
func (r *Renderer) checkSize(p *Page, dpi float64) error {
	limit := r.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}

	bounds, err := p.Bounds()
	if err != nil {
		return err
	}

	factor := dpi / 72
	pixels := float64(bounds.Dx()) * factor * float64(bounds.Dy()) * factor
	if pixels > float64(limit) {
		return rendering.Mark(
			fmt.Errorf("page %d at %g dpi needs %.0f pixels, limit is %d", p.index, dpi, pixels, limit),
			rendering.ErrResourceExhausted)
	}
	return nil
}
