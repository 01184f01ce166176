// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pagerender/pagerender/internal/rendering"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		if runes := []rune(line); len(runes) > boxWidth-4 {
			line = string(runes[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintOptions outputs the effective render settings for a run.
func (p *Printer) PrintOptions(source string, pageCount int, opts rendering.Options) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Source:    %s\n", source))
	sb.WriteString(fmt.Sprintf("Pages:     %d\n", pageCount))
	sb.WriteString(fmt.Sprintf("DPI:       %g\n", opts.EffectiveDPI()))
	if opts.Width > 0 || opts.Height > 0 {
		sb.WriteString(fmt.Sprintf("Size:      %s x %s\n", sizeOrAuto(opts.Width), sizeOrAuto(opts.Height)))
	}
	if !opts.Crop.Empty() {
		sb.WriteString(fmt.Sprintf("Crop:      %v\n", opts.Crop))
	}
	sb.WriteString(fmt.Sprintf("Gray:      %t\n", opts.Gray))
	sb.WriteString(fmt.Sprintf("Antialias: %t\n", opts.Antialias))

	p.printBox("RENDER SETTINGS", sb.String())
}

func sizeOrAuto(n int) string {
	if n <= 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", n)
}

// PrintResults outputs one line per rendered page.
func (p *Printer) PrintResults(results []rendering.Result) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		number := pageNumber(r)
		if r.Err != nil {
			sb.WriteString(fmt.Sprintf("✗ page %d  %s\n", number, r.Err.Kind))
			continue
		}
		b := r.Image.Bounds()
		sb.WriteString(fmt.Sprintf("✓ page %d  %dx%d\n", number, b.Dx(), b.Dy()))
	}

	p.printBox("RENDERED PAGES", sb.String())
}

// PrintFailure outputs the details of a single render failure.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFailure(failure *rendering.RenderFailure) {
	if failure == nil {
		return
	}

	var sb strings.Builder
	if failure.Page >= 0 {
		sb.WriteString(fmt.Sprintf("Page:    %d\n", failure.Page+1))
	}
	sb.WriteString(fmt.Sprintf("Kind:    %s\n", failure.Kind))
	sb.WriteString(fmt.Sprintf("Origin:  %s\n", failure.Origin))
	sb.WriteString("\n")
	sb.WriteString(wrap(failure.Message, boxWidth-4))

	p.printBox("⚠ RENDER FAILURE", sb.String())
}

// PrintSummary outputs totals for a run, with failures counted by kind.
func (p *Printer) PrintSummary(runID string, results []rendering.Result, elapsed time.Duration) {
	failures := rendering.Failures(results)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:       %s\n", runID))
	sb.WriteString(fmt.Sprintf("Rendered:  %d/%d\n", len(results)-len(failures), len(results)))
	sb.WriteString(fmt.Sprintf("Elapsed:   %v\n", elapsed.Round(time.Millisecond)))

	if len(failures) > 0 {
		counts := make(map[rendering.ErrorKind]int)
		for _, f := range failures {
			counts[f.Kind]++
		}
		kinds := make([]string, 0, len(counts))
		for kind := range counts {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)

		sb.WriteString("\nFailures:\n")
		for _, kind := range kinds {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", kind, counts[rendering.ErrorKind(kind)]))
		}

		sb.WriteString("\nFirst failures:\n")
		count := min(len(failures), maxItemsToShow)
		for i := 0; i < count; i++ {
			f := failures[i]
			sb.WriteString(fmt.Sprintf("  page %d: %s\n", f.Page+1, f.Origin))
		}
		if len(failures) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failures)-maxItemsToShow))
		}
	}

	p.printBox("SUMMARY", sb.String())
}

func pageNumber(r rendering.Result) int {
	if r.Err != nil && r.Err.Page >= 0 {
		return r.Err.Page + 1
	}
	if r.Page != nil {
		return r.Page.Index() + 1
	}
	return 0
}

// wrap breaks text into lines of at most width runes on word boundaries.
func wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var sb strings.Builder
	lineLen := 0
	for _, word := range words {
		if lineLen > 0 && lineLen+1+len(word) > width {
			sb.WriteString("\n")
			lineLen = 0
		}
		if lineLen > 0 {
			sb.WriteString(" ")
			lineLen++
		}
		sb.WriteString(word)
		lineLen += len(word)
	}
	return sb.String()
}
