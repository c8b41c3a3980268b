package database

import (
	"context"
	"fmt"

	"github.com/kroma-labs/peardb-go/peardb"
)

// CreateTable creates the users table if it doesn't exist
func (db *DB) CreateTable(ctx context.Context) error {
	stmt := db.RunQuery(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) UNIQUE,
			email VARCHAR(100)
		)
	`)
	defer stmt.Close()

	if db.IsError(stmt) {
		return fmt.Errorf("create table: %s %s", stmt.GetCode(), stmt.GetMessage())
	}
	return nil
}

// InsertUsers inserts sample users with autoExecute. Duplicates are reported
// through the statement status instead of aborting the loop.
func (db *DB) InsertUsers(ctx context.Context) error {
	for _, name := range []string{"Alice", "Bob", "Charlie"} {
		err := db.AutoExecute(ctx, "users", peardb.FieldsFromMap(map[string]any{
			"name":  name,
			"email": fmt.Sprintf("%s@example.com", name),
		}), peardb.AutoQueryInsert, "")

		if info, ok := peardb.AsErrorInfo(err); ok && info.SQLState == "23505" {
			db.logger.Debug().Str("name", name).Msg("user already exists")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// QueryUsers lists users with getAll.
func (db *DB) QueryUsers(ctx context.Context) error {
	rows, err := db.GetAll(ctx, "SELECT id, name, email FROM users ORDER BY id LIMIT 10")
	if err != nil {
		return err
	}
	db.logger.Info().Int("count", len(rows)).Msg("queried users via getAll")
	return nil
}

// EmailsByName maps user names to emails with getAssoc.
func (db *DB) EmailsByName(ctx context.Context) (map[any]any, error) {
	return db.GetAssoc(ctx, "SELECT name, email FROM users", false)
}

// GetUser fetches one user with getRow.
func (db *DB) GetUser(ctx context.Context, name string) (*peardb.Row, error) {
	row, err := db.GetRow(ctx, "SELECT id, name, email FROM users WHERE name = ?", name)
	if err != nil {
		return nil, err
	}
	if row != nil {
		db.logger.Info().Interface("user", row.Assoc).Msg("got user via getRow")
	}
	return row, nil
}

// UpdateEmailWithTransaction switches autocommit off, updates a user and
// reads the change back before committing.
func (db *DB) UpdateEmailWithTransaction(ctx context.Context, id int64, email string) error {
	if err := db.AutoCommit(ctx, false); err != nil {
		return err
	}

	err := db.AutoExecute(ctx, "users", []peardb.Field{
		{Name: "email", Value: email},
	}, peardb.AutoQueryUpdate, fmt.Sprintf("id = %d", id))
	if err != nil {
		_ = db.Rollback(ctx)
		return err
	}

	got, err := db.GetOne(ctx, "SELECT email FROM users WHERE id = ?", id)
	if err != nil {
		_ = db.Rollback(ctx)
		return err
	}

	if err := db.Commit(ctx); err != nil {
		return err
	}
	db.logger.Info().Interface("email", got).Int64("id", id).Msg("transaction committed")
	return nil
}
