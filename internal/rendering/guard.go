package rendering

import (
	"errors"
	"image"
	"runtime/debug"
)

// Page is an opaque handle to one page of a document. Index is only used to
// label failures.
type Page interface {
	Index() int
}

// Renderer is the untrusted primitive that turns a page into an image.
type Renderer interface {
	RenderPage(page Page, opts Options) (image.Image, error)
}

// RendererFunc adapts an ordinary function to a Renderer.
type RendererFunc func(page Page, opts Options) (image.Image, error)

// RenderPage calls f(page, opts).
func (f RendererFunc) RenderPage(page Page, opts Options) (image.Image, error) {
	return f(page, opts)
}

// errNilImage is reported when a renderer returns neither an image nor an error.
var errNilImage = Mark(errors.New("renderer returned no image and no error"), ErrTypeMismatch)

// Guard wraps a Renderer so that every failure, returned or panicked,
// reaches the caller as a *RenderFailure. A Guard holds no per-call state and
// may be shared between goroutines.
type Guard struct {
	renderer Renderer
}

// NewGuard returns a Guard around r.
func NewGuard(r Renderer) *Guard {
	return &Guard{renderer: r}
}

// RenderPageImage renders page with opts. On success the image from the
// underlying renderer is returned as is. On failure the error is always a
// *RenderFailure whose Cause is the original fault.
func (g *Guard) RenderPageImage(page Page, opts Options) (image.Image, error) {
	img, failure := g.render(page, opts)
	if failure != nil {
		return nil, failure
	}
	return img, nil
}

func (g *Guard) render(page Page, opts Options) (image.Image, *RenderFailure) {
	index := pageIndex(page)

	img, err := g.call(page, opts)
	if err != nil {
		return nil, newFailure(index, err)
	}
	if img == nil {
		return nil, newFailure(index, errNilImage)
	}
	return img, nil
}

// call invokes the renderer and turns a panic into an error.
func (g *Guard) call(page Page, opts Options) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = panicToError(r)
		}
	}()

	if g.renderer == nil {
		return nil, Mark(errors.New("no renderer configured"), ErrTypeMismatch)
	}
	return g.renderer.RenderPage(page, opts)
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicError{Value: r, Stack: debug.Stack()}
}

// pageIndex reads the page index without letting a faulty handle escape the
// boundary.
func pageIndex(page Page) (index int) {
	if page == nil {
		return -1
	}
	defer func() {
		if recover() != nil {
			index = -1
		}
	}()
	return page.Index()
}

// Protect runs fn inside the same boundary as RenderPageImage, for work that
// is not tied to a page, such as opening a document. It returns nil or a
// *RenderFailure with Page set to -1.
func Protect(fn func() error) error {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicToError(r)
			}
		}()
		return fn()
	}()
	if err != nil {
		return newFailure(-1, err)
	}
	return nil
}
