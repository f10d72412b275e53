// Package page implements the cursor-pagination algorithm shared by
// relationship listing and entity listing (spec.md §4.4, §4.5): given an
// ordered slice of keys and an optional {first, last, before, after}
// window, compute the page and its hasBefore/hasAfter flags.
package page

import graphstore "github.com/relaydb/graphstore/pkg/errs"

// Request is the pagination window. A nil pointer means "not supplied".
type Request struct {
	First  *int
	Last   *int
	Before *string
	After  *string
}

// IsPaginated reports whether any pagination field was supplied — the
// signal entity listing uses to choose the paginated path over a plain
// prefix/range read. Relationship listing always paginates and does not
// consult it.
func (r Request) IsPaginated() bool {
	return r.First != nil || r.Last != nil || r.Before != nil || r.After != nil
}

// Result is one page plus its boundary flags.
type Result struct {
	Items     []string
	HasBefore bool
	HasAfter  bool
}

// Paginate slices items according to req. Cursor tokens (Before/After) are
// values expected to appear verbatim in items; a token absent from items
// is a NotFound error. The three forbidden combinations
// (first&&before, last&&after, first&&last) are a BadRequest.
func Paginate(items []string, req Request) (Result, error) {
	if req.First != nil && req.Before != nil {
		return Result{}, graphstore.BadRequest("first and before are mutually exclusive")
	}
	if req.Last != nil && req.After != nil {
		return Result{}, graphstore.BadRequest("last and after are mutually exclusive")
	}
	if req.First != nil && req.Last != nil {
		return Result{}, graphstore.BadRequest("first and last are mutually exclusive")
	}

	total := len(items)
	if total == 0 {
		return Result{Items: nil, HasBefore: false, HasAfter: false}, nil
	}

	start, end := 0, total-1

	if req.After != nil {
		idx := indexOf(items, *req.After)
		if idx < 0 {
			return Result{}, graphstore.NotFound("cursor " + *req.After)
		}
		start = idx + 1
	}
	if req.Before != nil {
		idx := indexOf(items, *req.Before)
		if idx < 0 {
			return Result{}, graphstore.NotFound("cursor " + *req.Before)
		}
		end = idx - 1
	}
	if req.First != nil {
		if candidate := start + *req.First - 1; candidate < end {
			end = candidate
		}
	}
	if req.Last != nil {
		if candidate := end - *req.Last + 1; candidate > start {
			start = candidate
		}
	}

	hasBefore := start > 0
	hasAfter := end < total-1

	var out []string
	if start <= end {
		out = append(out, items[start:end+1]...)
	}
	return Result{Items: out, HasBefore: hasBefore, HasAfter: hasAfter}, nil
}

func indexOf(items []string, target string) int {
	for i, v := range items {
		if v == target {
			return i
		}
	}
	return -1
}
