package rendering

import (
	"context"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of rendering one page in a batch. Exactly one of
// Image and Err is set.
type Result struct {
	Page  Page
	Image image.Image
	Err   *RenderFailure
}

// RenderPages renders pages concurrently with at most workers calls in
// flight (workers <= 0 means GOMAXPROCS). Results are returned in the order
// of pages. A failing page does not stop the others; once ctx is done, pages
// that have not started yet fail with ctx.Err() as their cause.
func (g *Guard) RenderPages(ctx context.Context, pages []Page, opts Options, workers int) []Result {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(pages))

	var eg errgroup.Group
	eg.SetLimit(workers)

	for i, page := range pages {
		results[i].Page = page

		if err := ctx.Err(); err != nil {
			results[i].Err = newFailure(pageIndex(page), err)
			continue
		}

		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = newFailure(pageIndex(page), err)
				return nil
			}

			results[i].Image, results[i].Err = g.render(page, opts)
			return nil
		})
	}

	_ = eg.Wait()
	return results
}

// Failures returns the failed results of a batch.
func Failures(results []Result) []*RenderFailure {
	var failures []*RenderFailure
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, r.Err)
		}
	}
	return failures
}
