package peardb

import (
	"strconv"

	"github.com/jmoiron/sqlx"
)

// FetchMode selects the shape of fetched rows.
type FetchMode int

const (
	// FetchModeDefault uses the mode configured on the DB.
	FetchModeDefault FetchMode = 0

	// FetchModeOrdered returns column values by position.
	FetchModeOrdered FetchMode = 1

	// FetchModeAssoc returns column values keyed by column name.
	FetchModeAssoc FetchMode = 2

	// FetchModeBoth returns both shapes.
	FetchModeBoth FetchMode = 4
)

// String implements fmt.Stringer.
func (m FetchMode) String() string {
	switch m {
	case FetchModeDefault:
		return "default"
	case FetchModeOrdered:
		return "ordered"
	case FetchModeAssoc:
		return "assoc"
	case FetchModeBoth:
		return "both"
	default:
		return "FetchMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// Row is a single fetched row. Ordered is set for FetchModeOrdered and
// FetchModeBoth, Assoc for FetchModeAssoc and FetchModeBoth.
type Row struct {
	Ordered []any
	Assoc   map[string]any
}

// newRow shapes values according to mode. Duplicate column names keep the
// last value in Assoc.
func newRow(columns []string, values []any, mode FetchMode) *Row {
	r := &Row{}
	if mode == FetchModeOrdered || mode == FetchModeBoth {
		r.Ordered = values
	}
	if mode == FetchModeAssoc || mode == FetchModeBoth {
		r.Assoc = make(map[string]any, len(columns))
		for i, name := range columns {
			if i < len(values) {
				r.Assoc[name] = values[i]
			}
		}
	}
	return r
}

// Value returns the row in the shape a legacy caller expects: a slice for
// ordered rows, a map for associative rows, and for FetchModeBoth a map
// holding every value under both its position ("0", "1", ...) and its name.
func (r *Row) Value() any {
	switch {
	case r == nil:
		return nil
	case r.Assoc == nil:
		return r.Ordered
	case r.Ordered == nil:
		return r.Assoc
	}

	both := make(map[string]any, len(r.Ordered)+len(r.Assoc))
	for i, v := range r.Ordered {
		both[strconv.Itoa(i)] = v
	}
	for k, v := range r.Assoc {
		both[k] = v
	}
	return both
}

// scanValues reads the current row of rows as positional values.
func scanValues(rows *sqlx.Rows) ([]any, error) {
	values, err := rows.SliceScan()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = normalize(v)
	}
	return values, nil
}

// normalize converts driver byte slices to strings so values are comparable
// and usable as map keys.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
