package rendering

import (
	"fmt"
	"image"
)

// DefaultDPI is the resolution used when Options.DPI is zero.
const DefaultDPI = 72

// Options are the recognized rendering options. Guard passes them through
// untouched; checking them is the renderer's job.
type Options struct {
	DPI       float64         // resolution; 0 means DefaultDPI
	Width     int             // target width in pixels; 0 derives it from Height or the page
	Height    int             // target height in pixels; 0 derives it from Width or the page
	Crop      image.Rectangle // crop in rendered pixel space; empty means the whole page
	Gray      bool            // render to 8-bit grayscale
	Antialias bool            // smooth interpolation when scaling
}

// DefaultOptions returns options for a 72 dpi color render with antialiasing.
func DefaultOptions() Options {
	return Options{
		DPI:       DefaultDPI,
		Antialias: true,
	}
}

// EffectiveDPI returns DPI, or DefaultDPI when unset.
func (o Options) EffectiveDPI() float64 {
	if o.DPI == 0 {
		return DefaultDPI
	}
	return o.DPI
}

func (o Options) String() string {
	return fmt.Sprintf("dpi=%g size=%dx%d crop=%v gray=%t antialias=%t",
		o.EffectiveDPI(), o.Width, o.Height, o.Crop, o.Gray, o.Antialias)
}
