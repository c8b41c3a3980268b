package peardb

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// AutoQueryMode selects the statement AutoExecute builds.
type AutoQueryMode int

const (
	// AutoQueryInsert builds INSERT INTO table (fields) VALUES (?, ...).
	AutoQueryInsert AutoQueryMode = 1

	// AutoQueryUpdate builds UPDATE table SET field = ?, ... [WHERE where].
	AutoQueryUpdate AutoQueryMode = 2
)

// Field is one column name and the value bound to it.
type Field struct {
	Name  string
	Value any
}

// FieldsFromMap returns the entries of m sorted by name, giving callers that
// hold a map a stable column order.
func FieldsFromMap(m map[string]any) []Field {
	fields := make([]Field, 0, len(m))
	for name, value := range m {
		fields = append(fields, Field{Name: name, Value: value})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

// BuildManipSQL returns the INSERT or UPDATE statement for table and names,
// with one `?` placeholder per name in the given order.
//
// where is appended verbatim after " WHERE " in update mode. It is neither
// escaped nor parameterized: it must never contain untrusted input.
func BuildManipSQL(table string, names []string, mode AutoQueryMode, where string) (string, error) {
	switch mode {
	case AutoQueryInsert:
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(names, ","), placeholders), nil

	case AutoQueryUpdate:
		set := make([]string, len(names))
		for i, name := range names {
			set[i] = name + " = ?"
		}
		query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(set, ","))
		if where != "" {
			query += " WHERE " + where
		}
		return query, nil

	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidAutoQueryMode, mode)
	}
}

// AutoPrepare prepares the statement BuildManipSQL produces for names.
func (db *DB) AutoPrepare(
	ctx context.Context,
	table string,
	names []string,
	mode AutoQueryMode,
	where string,
) (*Stmt, error) {
	db.cfg.Usage.track("autoPrepare")

	query, err := BuildManipSQL(table, names, mode, where)
	if err != nil {
		return nil, err
	}
	return db.Prepare(ctx, query)
}

// AutoExecute builds an INSERT or UPDATE for table from fields, binds the
// field values positionally in the same order and executes it. It returns
// nil once the statement has run.
//
// where is appended verbatim in update mode; see BuildManipSQL. A mode other
// than AutoQueryInsert or AutoQueryUpdate fails with ErrInvalidAutoQueryMode
// before any SQL is sent.
//
// Example:
//
//	err := db.AutoExecute(ctx, "users", []peardb.Field{
//	    {Name: "name", Value: "alice"},
//	    {Name: "team", Value: "core"},
//	}, peardb.AutoQueryUpdate, "id = 5")
//	// UPDATE users SET name = ?,team = ? WHERE id = 5
func (db *DB) AutoExecute(
	ctx context.Context,
	table string,
	fields []Field,
	mode AutoQueryMode,
	where string,
) (err error) {
	names := make([]string, len(fields))
	values := make([]any, len(fields))
	for i, f := range fields {
		names[i] = f.Name
		values[i] = f.Value
	}

	query, err := BuildManipSQL(table, names, mode, where)
	if err != nil {
		return err
	}

	ctx, o := db.cfg.startCall(ctx, "autoExecute", query)
	defer func() { o.end(ctx, err) }()

	stmt, err := db.execute(ctx, query, values)
	if err != nil {
		return err
	}

	return stmt.Close()
}
