package rasterize

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/pagerender/pagerender/internal/rendering"
)

// subImager is implemented by the standard image types.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Transform applies the crop, scale and color options to a rasterized page,
// in that order. Crop is relative to the top-left corner of src.
func Transform(src image.Image, opts rendering.Options) (image.Image, error) {
	img := src

	if !opts.Crop.Empty() {
		cropped, err := crop(img, opts.Crop)
		if err != nil {
			return nil, err
		}
		img = cropped
	}

	if opts.Width != 0 || opts.Height != 0 {
		size, err := targetSize(img.Bounds(), opts.Width, opts.Height)
		if err != nil {
			return nil, err
		}
		img = scale(img, size, opts.Antialias)
	}

	if opts.Gray {
		img = toGray(img)
	}

	return img, nil
}

func crop(img image.Image, r image.Rectangle) (image.Image, error) {
	b := img.Bounds()
	area := r.Add(b.Min).Intersect(b)
	if area.Empty() {
		return nil, rendering.Mark(
			fmt.Errorf("crop %v does not overlap rendered page %v", r, b.Sub(b.Min)),
			rendering.ErrTypeMismatch)
	}

	if s, ok := img.(subImager); ok {
		return s.SubImage(area), nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	draw.Draw(dst, dst.Bounds(), img, area.Min, draw.Src)
	return dst, nil
}

// targetSize resolves the requested size, keeping the aspect ratio of b
// when one dimension is zero.
func targetSize(b image.Rectangle, width, height int) (image.Point, error) {
	if width < 0 || height < 0 {
		return image.Point{}, rendering.Mark(
			fmt.Errorf("invalid target size %dx%d", width, height),
			rendering.ErrTypeMismatch)
	}

	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.Point{}, rendering.Mark(
			fmt.Errorf("cannot scale empty image %v", b),
			rendering.ErrTypeMismatch)
	}
	switch {
	case width == 0:
		width = max(1, (w*height+h/2)/h)
	case height == 0:
		height = max(1, (h*width+w/2)/w)
	}
	return image.Pt(width, height), nil
}

func scale(img image.Image, size image.Point, antialias bool) image.Image {
	if img.Bounds().Size() == size {
		return img
	}

	var interp draw.Interpolator = draw.NearestNeighbor
	if antialias {
		interp = draw.CatmullRom
	}

	dst := image.NewRGBA(image.Rectangle{Max: size})
	interp.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
