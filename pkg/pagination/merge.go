package pagination

// MergeStrategy writes a freshly fetched page into the accumulated items and
// returns the new sequence. pageNum is 1-based; 0 means the response carried
// no pagination metadata. Implementations must not modify items or page.
type MergeStrategy[T any] func(items, page []T, pageNum, limit int) []T

// OffsetMerge is the default strategy. Page 1 (or an unpaginated response)
// replaces the sequence wholesale. Any other page is written at
// (pageNum-1)*limit, growing the sequence when needed and leaving every
// other index untouched, so pages may arrive in any order. Indices skipped
// by an out-of-order page hold the zero value until their page arrives.
func OffsetMerge[T any](items, page []T, pageNum, limit int) []T {
	if pageNum <= 1 {
		out := make([]T, len(page))
		copy(out, page)
		return out
	}

	offset := (pageNum - 1) * limit
	size := len(items)
	if end := offset + len(page); end > size {
		size = end
	}

	merged := make([]T, size)
	copy(merged, items)
	copy(merged[offset:], page)
	return merged
}

// AppendMerge ignores page numbers after the first page and appends every
// later page to the end of the sequence. It suits cursor-style endpoints
// whose pages never arrive out of order.
func AppendMerge[T any](items, page []T, pageNum, limit int) []T {
	if pageNum <= 1 {
		return OffsetMerge(items, page, pageNum, limit)
	}
	merged := make([]T, 0, len(items)+len(page))
	merged = append(merged, items...)
	return append(merged, page...)
}
