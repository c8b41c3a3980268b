package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kroma-labs/peardb-go/peardb"
)

var errInvalidAssignment = errors.New("assignment must have the form column=value")

// parseAssignments turns repeated --set column=value flags into fields, in
// flag order.
func parseAssignments(sets []string) ([]peardb.Field, error) {
	fields := make([]peardb.Field, 0, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidAssignment, s)
		}
		fields = append(fields, peardb.Field{Name: name, Value: value})
	}
	return fields, nil
}

func (a *app) newAutoExecuteCommand(use, short string) (*cobra.Command, *[]string) {
	var sets []string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "column=value to write (repeatable)")
	_ = cmd.MarkFlagRequired("set")

	return cmd, &sets
}

func (a *app) newInsertCommand() *cobra.Command {
	cmd, sets := a.newAutoExecuteCommand("insert TABLE --set column=value...", "Insert a row (autoExecute)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.autoExecute(cmd, args[0], *sets, peardb.AutoQueryInsert, "")
	}

	return cmd
}

func (a *app) newUpdateCommand() *cobra.Command {
	var where string

	cmd, sets := a.newAutoExecuteCommand("update TABLE --set column=value... [--where CLAUSE]", "Update rows (autoExecute)")
	cmd.Flags().StringVar(&where, "where", "", "raw WHERE clause, appended unescaped")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.autoExecute(cmd, args[0], *sets, peardb.AutoQueryUpdate, where)
	}

	return cmd
}

func (a *app) autoExecute(cmd *cobra.Command, table string, sets []string, mode peardb.AutoQueryMode, where string) error {
	fields, err := parseAssignments(sets)
	if err != nil {
		return err
	}

	return a.withDB(cmd.Context(), func(db *peardb.DB) error {
		if err := db.AutoExecute(cmd.Context(), table, fields, mode, where); err != nil {
			return err
		}
		return writeJSON(a.out, runResult{Code: peardb.SuccessState})
	})
}
