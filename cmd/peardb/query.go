package main

import (
	"github.com/spf13/cobra"

	"github.com/kroma-labs/peardb-go/peardb"
)

// queryArgs splits positional arguments into the query and its parameters.
func queryArgs(args []string) (string, []any) {
	params := make([]any, len(args)-1)
	for i, p := range args[1:] {
		params[i] = p
	}
	return args[0], params
}

func (a *app) newOneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "one QUERY [PARAMS...]",
		Short: "Print the first column of the first row (getOne)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, params := queryArgs(args)
			return a.withDB(cmd.Context(), func(db *peardb.DB) error {
				value, err := db.GetOne(cmd.Context(), query, params...)
				if err != nil {
					return err
				}
				return writeJSON(a.out, value)
			})
		},
	}
}

func (a *app) newRowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "row QUERY [PARAMS...]",
		Short: "Print the first row (getRow)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, params := queryArgs(args)
			return a.withDB(cmd.Context(), func(db *peardb.DB) error {
				row, err := db.GetRow(cmd.Context(), query, params...)
				if err != nil {
					return err
				}
				return writeJSON(a.out, row.Value())
			})
		},
	}
}

func (a *app) newAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "all QUERY [PARAMS...]",
		Short: "Print every row (getAll)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, params := queryArgs(args)
			return a.withDB(cmd.Context(), func(db *peardb.DB) error {
				rows, err := db.GetAll(cmd.Context(), query, params...)
				if err != nil {
					return err
				}
				return writeJSON(a.out, rowValues(rows))
			})
		},
	}
}

func (a *app) newColCommand() *cobra.Command {
	var column int

	cmd := &cobra.Command{
		Use:   "col QUERY [PARAMS...]",
		Short: "Print one column of every row (getCol)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, params := queryArgs(args)
			return a.withDB(cmd.Context(), func(db *peardb.DB) error {
				values, err := db.GetCol(cmd.Context(), query, column, params...)
				if err != nil {
					return err
				}
				return writeJSON(a.out, values)
			})
		},
	}

	cmd.Flags().IntVar(&column, "column", 0, "zero based column index")

	return cmd
}

func (a *app) newAssocCommand() *cobra.Command {
	var forceArray bool

	cmd := &cobra.Command{
		Use:   "assoc QUERY [PARAMS...]",
		Short: "Print rows keyed by their first column (getAssoc)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, params := queryArgs(args)
			return a.withDB(cmd.Context(), func(db *peardb.DB) error {
				assoc, err := db.GetAssoc(cmd.Context(), query, forceArray, params...)
				if err != nil {
					return err
				}
				return writeJSON(a.out, stringKeys(assoc))
			})
		},
	}

	cmd.Flags().BoolVar(&forceArray, "force-array", false, "always map keys to arrays")

	return cmd
}

// runResult is the JSON shape printed by the run command.
type runResult struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	NumRows int64  `json:"num_rows"`
	Rows    []any  `json:"rows,omitempty"`
}

func (a *app) newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run QUERY [PARAMS...]",
		Short: "Execute a statement and print its status (runQuery)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, params := queryArgs(args)
			return a.withDB(cmd.Context(), func(db *peardb.DB) error {
				stmt := db.RunQuery(cmd.Context(), query, params...)
				defer stmt.Close()

				if db.IsError(stmt) {
					if err := writeJSON(a.out, runResult{
						Code:    stmt.GetCode(),
						Message: stmt.GetMessage(),
					}); err != nil {
						return err
					}
					return &peardb.Error{Info: stmt.ErrorInfo()}
				}

				res := runResult{Code: stmt.GetCode()}
				if stmt.ColumnCount() > 0 {
					rows, err := stmt.FetchAll(peardb.FetchModeDefault)
					if err != nil {
						return err
					}
					res.Rows = rowValues(rows)
				}
				res.NumRows = stmt.NumRows()

				return writeJSON(a.out, res)
			})
		},
	}
}
