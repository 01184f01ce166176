package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// parsePageSpec turns a one-based page list such as "1,3-5" into sorted,
// de-duplicated zero-based indices. An empty spec or "all" selects every page.
func parsePageSpec(spec string, pageCount int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		indices := make([]int, pageCount)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		first, last, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		if first < 1 || last > pageCount {
			return nil, fmt.Errorf("page range %q is outside 1-%d", part, pageCount)
		}
		for n := first; n <= last; n++ {
			seen[n-1] = true
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("no pages selected by %q", spec)
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}

func parseRange(part string) (int, int, error) {
	lo, hi, isRange := strings.Cut(part, "-")
	first, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid page %q", part)
	}
	if !isRange {
		return first, first, nil
	}

	last, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid page range %q", part)
	}
	if last < first {
		return 0, 0, fmt.Errorf("page range %q is reversed", part)
	}
	return first, last, nil
}

// parseCrop parses "x0,y0,x1,y1" in pixels of the rendered page.
func parseCrop(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("crop must be x0,y0,x1,y1, got %q", v)
	}

	crop := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("crop must be x0,y0,x1,y1, got %q", v)
		}
		crop[i] = n
	}
	return crop, nil
}
