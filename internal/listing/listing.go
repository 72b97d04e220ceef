// Package listing parses take/skip/sort query parameters and renders SQL ordering for collection endpoints.
package listing

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultTake = 100
	DefaultSkip = 0
	// MaxTake caps a single page.
	MaxTake = 1000

	defaultColumn = "id"
)

// SortField is one element of the JSON-encoded sort parameter.
type SortField struct {
	Selector string `json:"selector"`
	Desc     bool   `json:"desc"`
}

// Query is a parsed collection request.
type Query struct {
	Take int
	Skip int
	Sort []SortField
}

// Page is the response envelope for collection endpoints.
type Page[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"totalCount"`
}

// Parse reads take, skip and sort from query values. Missing values fall back to defaults.
func Parse(values url.Values) (Query, error) {
	q := Query{Take: DefaultTake, Skip: DefaultSkip}

	if raw := strings.TrimSpace(values.Get("take")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Query{}, fmt.Errorf("take must be a positive integer")
		}
		if n > MaxTake {
			n = MaxTake
		}
		q.Take = n
	}

	if raw := strings.TrimSpace(values.Get("skip")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Query{}, fmt.Errorf("skip must be a non-negative integer")
		}
		q.Skip = n
	}

	if raw := strings.TrimSpace(values.Get("sort")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Sort); err != nil {
			return Query{}, fmt.Errorf("sort must be a JSON array of {selector, desc}: %w", err)
		}
	}

	return q, nil
}

// Offset returns the row offset. Skip is rounded down to a whole page.
func (q Query) Offset() int {
	if q.Take <= 0 {
		return 0
	}
	return (q.Skip / q.Take) * q.Take
}

// Limit returns the page size.
func (q Query) Limit() int {
	if q.Take <= 0 {
		return DefaultTake
	}
	return q.Take
}

// OrderBy renders an ORDER BY clause. Selectors are resolved through columns;
// unknown selectors fall back to the id column. The result is always safe to splice into SQL.
func (q Query) OrderBy(columns map[string]string) string {
	parts := make([]string, 0, len(q.Sort))
	for _, s := range q.Sort {
		col, ok := columns[s.Selector]
		if !ok {
			col = defaultColumn
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		parts = append(parts, defaultColumn+" ASC")
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
