package core

import "math"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page selects a window of a listing. Page numbers start at 1.
type Page struct {
	Number int
	Limit  int
}

// MaxPageNumber is the highest page number whose offset fits in an int32 at the given limit.
func MaxPageNumber(limit int) int {
	if limit < 1 {
		limit = 1
	}
	return math.MaxInt32/limit + 1
}

// Skip returns the number of records before the page. It is never negative.
func (p Page) Skip() int64 {
	if p.Number < 1 || p.Limit < 1 {
		return 0
	}
	n, limit := int64(p.Number-1), int64(p.Limit)
	if n > math.MaxInt64/limit {
		return math.MaxInt64
	}
	return n * limit
}

// Pages returns the number of pages needed to list total records.
func (p Page) Pages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Window returns the bounds of the page within a slice of length n.
func (p Page) Window(n int) (start, end int) {
	if skip := p.Skip(); skip > int64(n) {
		start = n
	} else {
		start = int(skip)
	}
	end = start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
