// Package pagination slices an ordered result set into 1-indexed pages.
package pagination

import "strconv"

// DefaultSize is used when no page size is configured.
const DefaultSize = 10

// Page is a resolved window over Total records.
type Page struct {
	Number   int
	Size     int
	Total    int
	NumPages int
}

// Resolve clamps the requested page number into [1, NumPages]. An empty set
// still has one (empty) page.
func Resolve(requested, size, total int) Page {
	if size <= 0 {
		size = DefaultSize
	}
	if total < 0 {
		total = 0
	}
	numPages := (total + size - 1) / size
	if numPages < 1 {
		numPages = 1
	}

	number := requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return Page{Number: number, Size: size, Total: total, NumPages: numPages}
}

// Offset is the number of records preceding the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// Limit is the maximum number of records on the page.
func (p Page) Limit() int { return p.Size }

// ParseNumber reads a page query value. ok is false when the page is omitted;
// values that are not integers resolve to page 1.
func ParseNumber(raw string) (number int, ok bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1, true
	}
	return n, true
}
