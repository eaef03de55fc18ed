package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SortKey selects the column a collection is ordered by.
type SortKey string

const (
	SortSubmittedAt SortKey = "created_at"
	SortScore       SortKey = "edge_score"
	SortRisk        SortKey = "overfit_probability"
)

// SortKeys lists the keys in the order the UI cycles through them.
var SortKeys = []SortKey{SortSubmittedAt, SortScore, SortRisk}

// Label is the short column title for k.
func (k SortKey) Label() string {
	switch k {
	case SortSubmittedAt:
		return "submitted"
	case SortScore:
		return "score"
	case SortRisk:
		return "risk"
	default:
		return string(k)
	}
}

// ParseSortKey accepts the wire names and their short labels.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created_at", "submitted", "submitted_at", "time":
		return SortSubmittedAt, nil
	case "edge_score", "score":
		return SortScore, nil
	case "overfit_probability", "risk":
		return SortRisk, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Reverse flips the order.
func (o SortOrder) Reverse() SortOrder {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// ParseSortOrder accepts asc/desc in either short or long form.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// CollectionQuery fully determines one collection fetch. Values are
// immutable: the With* helpers return a new query and never touch q.
type CollectionQuery struct {
	Page       int
	PageSize   int
	NameFilter string
	SortKey    SortKey
	SortOrder  SortOrder
}

// DefaultQuery is the first page, newest submissions first.
func DefaultQuery(pageSize int) CollectionQuery {
	return CollectionQuery{
		Page:      1,
		PageSize:  pageSize,
		SortKey:   SortSubmittedAt,
		SortOrder: Descending,
	}
}

// WithPage moves to page p. Pages below 1 clamp to 1.
func (q CollectionQuery) WithPage(p int) CollectionQuery {
	if p < 1 {
		p = 1
	}
	q.Page = p
	return q
}

// WithNameFilter changes the result set, so it also returns to page 1.
func (q CollectionQuery) WithNameFilter(filter string) CollectionQuery {
	q.NameFilter = filter
	q.Page = 1
	return q
}

// WithSort changes the ordering and returns to page 1.
func (q CollectionQuery) WithSort(key SortKey, order SortOrder) CollectionQuery {
	q.SortKey = key
	q.SortOrder = order
	q.Page = 1
	return q
}

// Values serialises only the fields that are set.
func (q CollectionQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if f := strings.TrimSpace(q.NameFilter); f != "" {
		v.Set("strategy_name", f)
	}
	if q.SortKey != "" {
		v.Set("sort_by", string(q.SortKey))
	}
	if q.SortOrder != "" {
		v.Set("sort_order", string(q.SortOrder))
	}
	return v
}

func (q CollectionQuery) String() string {
	return q.Values().Encode()
}
