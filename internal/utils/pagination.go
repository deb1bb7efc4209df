// Package utils provides small helpers shared by the HTTP layer that carry no
// campaign rules of their own.
package utils

import "strconv"

// Paging bounds for listings.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// malformed. Surrounding spaces are not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// ParsePage reads raw page and page_size values. Missing or malformed values
// fall back to the first page of DefaultPageSize; out-of-range values are
// clamped instead of rejected.
func ParsePage(number, size string) Page {
	p := Page{
		Number: AtoiDefault(number, 1),
		Size:   AtoiDefault(size, DefaultPageSize),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 1
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages is ceil(total/size); zero rows means zero pages.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
