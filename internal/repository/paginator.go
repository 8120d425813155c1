package repository

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidPage is returned when a page number or size is out of range.
	ErrInvalidPage = errors.New("page is invalid")
)

const (
	// DefaultPageSize is the number of products per search page.
	DefaultPageSize = 9
	// MaxPageSize caps the page size a client may request.
	MaxPageSize = 100
)

// Page is a 1-based offset page.
type Page struct {
	Number int
	Size   int
}

// NewPage validates and builds a page. Zero values fall back to page 1 and DefaultPageSize;
// sizes above MaxPageSize are clamped. Page numbers whose offset does not fit an int are rejected.
func NewPage(number, size int) (Page, error) {
	if number == 0 {
		number = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if number < 0 {
		return Page{}, fmt.Errorf("%w: page must be positive, got %d", ErrInvalidPage, number)
	}
	if size < 0 {
		return Page{}, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidPage, size)
	}
	size = min(size, MaxPageSize)
	if number-1 > math.MaxInt/size {
		return Page{}, fmt.Errorf("%w: page %d is out of range", ErrInvalidPage, number)
	}
	return Page{Number: number, Size: size}, nil
}

// Skip is the number of matches before this page.
func (p Page) Skip() int {
	return p.Size * (p.Number - 1)
}

// Limit is the maximum number of matches on this page.
func (p Page) Limit() int {
	return p.Size
}

// TotalPages returns ceil(total / size).
func (p Page) TotalPages(total int64) int {
	if p.Size <= 0 {
		return 0
	}
	size := int64(p.Size)
	return int((total + size - 1) / size)
}
