package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pagerender/pagerender/internal/rasterize"
	"github.com/pagerender/pagerender/internal/rendering"
)

var pagesJSON bool

var pagesCmd = &cobra.Command{
	Use:   "pages <file.pdf>",
	Short: "Print page count and page sizes",
	Long:  "Prints the number of pages in a document and the size of each page in points (1/72 inch).",
	Args:  cobra.ExactArgs(1),
	RunE:  runPages,
}

func init() {
	pagesCmd.Flags().BoolVar(&pagesJSON, "json", false, "Print JSON instead of text")
	rootCmd.AddCommand(pagesCmd)
}

// pageSize is one entry of the pages listing. Kind is set instead of the
// size when the page cannot be measured.
type pageSize struct {
	Page   int    `json:"page"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Kind   string `json:"error,omitempty"`
}

type pagesListing struct {
	File      string     `json:"file"`
	PageCount int        `json:"page_count"`
	Pages     []pageSize `json:"pages"`
}

func runPages(cmd *cobra.Command, args []string) error {
	listing, err := listPages(args[0])
	if err != nil {
		return err
	}
	return printListing(cmd.OutOrStdout(), listing, pagesJSON)
}

func listPages(path string) (*pagesListing, error) {
	var doc *rasterize.Document
	err := rendering.Protect(func() error {
		var err error
		doc, err = rasterize.Open(path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = doc.Close() }()

	listing := &pagesListing{File: path, PageCount: doc.NumPages()}
	for _, page := range doc.Pages() {
		entry := pageSize{Page: page.Index() + 1}
		err := rendering.Protect(func() error {
			b, err := page.Bounds()
			if err != nil {
				return err
			}
			entry.Width, entry.Height = b.Dx(), b.Dy()
			return nil
		})
		var failure *rendering.RenderFailure
		if errors.As(err, &failure) {
			entry.Kind = string(failure.Kind)
		}
		listing.Pages = append(listing.Pages, entry)
	}
	return listing, nil
}

func printListing(w io.Writer, listing *pagesListing, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	if _, err := fmt.Fprintf(w, "Pages: %d\n", listing.PageCount); err != nil {
		return err
	}
	for _, p := range listing.Pages {
		var err error
		if p.Kind != "" {
			_, err = fmt.Fprintf(w, "  %d: unreadable (%s)\n", p.Page, p.Kind)
		} else {
			_, err = fmt.Fprintf(w, "  %d: %d x %d pt\n", p.Page, p.Width, p.Height)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
