package lending

// Pagination defaults and bounds for list operations.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page addresses one page of a result set with 1-based page numbers.
type Page struct {
	Number int
	Size   int
}

// DefaultPage returns the first page with the default page size.
func DefaultPage() Page {
	return Page{Number: 1, Size: DefaultPageSize}
}

// Validate checks the page number and size against the allowed bounds.
func (p Page) Validate() error {
	if p.Number < 1 || p.Size < 1 || p.Size > MaxPageSize {
		return ErrInvalidPage
	}

	return nil
}

// Offset converts the 1-based page number to a row offset.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages computes ceil(total / pageSize). The total count is always taken
// over the filtered set before pagination is applied.
func TotalPages(total int, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}

	return (total + pageSize - 1) / pageSize
}
