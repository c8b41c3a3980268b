package peardb

import (
	"context"
)

// AutoCommit mirrors the legacy autoCommit switch. AutoCommit(false) turns
// autocommit off by beginning a transaction that every following statement
// joins. AutoCommit(true) does nothing: it neither commits nor rolls back an
// open transaction, which stays the caller's job (see Commit and Rollback).
func (db *DB) AutoCommit(ctx context.Context, enable bool) error {
	db.cfg.Usage.track("autoCommit")

	if enable {
		return nil
	}
	return db.Begin(ctx)
}

// Begin starts the DB's transaction.
func (db *DB) Begin(ctx context.Context) error {
	if db.tx != nil {
		return ErrTransactionActive
	}

	ctx, o := db.cfg.startOperation(ctx, "BEGIN", "BEGIN", db.cfg.baseAttributes())

	tx, err := db.db.BeginTxx(ctx, nil)
	if perr := db.record(err); perr != nil {
		o.end(ctx, perr)
		return perr
	}

	o.end(ctx, nil)
	db.tx = tx
	return nil
}

// InTransaction reports whether a transaction is open.
func (db *DB) InTransaction() bool {
	return db.tx != nil
}

// Commit commits the open transaction and returns the DB to autocommit.
func (db *DB) Commit(ctx context.Context) error {
	return db.finish(ctx, "COMMIT")
}

// Rollback rolls back the open transaction and returns the DB to autocommit.
func (db *DB) Rollback(ctx context.Context) error {
	return db.finish(ctx, "ROLLBACK")
}

func (db *DB) finish(ctx context.Context, op string) error {
	if db.tx == nil {
		return ErrNoTransaction
	}

	ctx, o := db.cfg.startOperation(ctx, op, op, db.cfg.baseAttributes())

	tx := db.tx
	db.tx = nil

	var err error
	if op == "COMMIT" {
		err = tx.Commit()
	} else {
		err = tx.Rollback()
	}

	if perr := db.record(err); perr != nil {
		o.end(ctx, perr)
		return perr
	}

	o.end(ctx, nil)
	return nil
}
