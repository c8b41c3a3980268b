package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/kroma-labs/peardb-go/peardb"
)

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// rowValues returns the legacy shape of every row.
func rowValues(rows []*peardb.Row) []any {
	values := make([]any, len(rows))
	for i, r := range rows {
		values[i] = r.Value()
	}
	return values
}

// stringKeys converts getAssoc keys to strings, since JSON objects only have
// string keys.
func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}
