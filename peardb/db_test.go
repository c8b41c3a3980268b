package peardb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockDB returns a DB over sqlmock with exact query matching.
func newMockDB(t *testing.T, driverName string, opts ...Option) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewDB(mockDB, driverName, opts...), mock
}

func TestOpen(t *testing.T) {
	t.Run("given unknown driver, then returns error unmodified", func(t *testing.T) {
		db, err := Open("nonexistent_driver", "some_dsn", "", "")

		require.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), "unknown driver")
	})

	t.Run("given malformed mysql dsn with credentials, then returns error", func(t *testing.T) {
		db, err := Open("mysql", "not a dsn", "app", "secret")

		require.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestNewDB(t *testing.T) {
	type args struct {
		driverName string
		opts       []Option
	}

	tests := []struct {
		name          string
		args          args
		wantSystem    string
		wantFetchMode FetchMode
	}{
		{
			name: "given options, then applies them",
			args: args{
				driverName: "postgres",
				opts: []Option{
					WithDBSystem("postgresql"),
					WithFetchMode(FetchModeAssoc),
				},
			},
			wantSystem:    "postgresql",
			wantFetchMode: FetchModeAssoc,
		},
		{
			name:          "given no options, then fetch mode defaults to both",
			args:          args{driverName: "mysql"},
			wantFetchMode: FetchModeBoth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := newMockDB(t, tt.args.driverName, tt.args.opts...)

			require.NotNil(t, db.cfg)
			assert.Equal(t, tt.wantSystem, db.cfg.DBSystem)
			assert.Equal(t, tt.wantFetchMode, db.FetchMode())
			assert.Equal(t, tt.args.driverName, db.DriverName())
			assert.NotNil(t, db.Underlying())
		})
	}
}

func TestDB_GetOne(t *testing.T) {
	const query = "SELECT name FROM users WHERE id = ?"

	tests := []struct {
		name    string
		mockFn  func(sqlmock.Sqlmock)
		want    any
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name: "given single row, then returns first column",
			mockFn: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"name", "team"}).
					AddRow("alice", "core").
					AddRow("bob", "infra")
				mock.ExpectPrepare(query).ExpectQuery().WithArgs(1).WillReturnRows(rows)
			},
			want:    "alice",
			wantErr: assert.NoError,
		},
		{
			name: "given no rows, then returns nil without error",
			mockFn: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"name"})
				mock.ExpectPrepare(query).ExpectQuery().WithArgs(1).WillReturnRows(rows)
			},
			want:    nil,
			wantErr: assert.NoError,
		},
		{
			name: "given byte slice value, then returns string",
			mockFn: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"name"}).AddRow([]byte("carol"))
				mock.ExpectPrepare(query).ExpectQuery().WithArgs(1).WillReturnRows(rows)
			},
			want:    "carol",
			wantErr: assert.NoError,
		},
		{
			name: "given query failure, then returns classified error",
			mockFn: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare(query).ExpectQuery().WithArgs(1).
					WillReturnError(&pq.Error{Code: "42P01", Message: "relation \"users\" does not exist"})
			},
			want: nil,
			wantErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				info, ok := AsErrorInfo(err)
				return assert.True(t, ok) && assert.Equal(t, "42P01", info.SQLState)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t, "mysql")
			tt.mockFn(mock)

			got, err := db.GetOne(context.Background(), query, 1)

			tt.wantErr(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("given leading comments, then still fetches rows", func(t *testing.T) {
		for _, q := range []string{
			"/* report */ SELECT name FROM users WHERE id = ?",
			"-- tag\nSELECT name FROM users WHERE id = ?",
		} {
			db, mock := newMockDB(t, "mysql")
			mock.ExpectPrepare(q).ExpectQuery().WithArgs(1).
				WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("alice"))

			got, err := db.GetOne(context.Background(), q, 1)

			require.NoError(t, err, q)
			assert.Equal(t, "alice", got, q)
			require.NoError(t, mock.ExpectationsWereMet())
		}
	})

	t.Run("given stored procedure call, then fetches its result set", func(t *testing.T) {
		const call = "CALL user_count(?)"
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare(call).ExpectQuery().WithArgs("core").
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(4)))

		got, err := db.GetOne(context.Background(), call, "core")

		require.NoError(t, err)
		assert.Equal(t, int64(4), got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("given statement without result set, then returns nil without error", func(t *testing.T) {
		const update = "UPDATE users SET active = ? WHERE id = ?"
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare(update).ExpectQuery().WithArgs(false, 1).
			WillReturnRows(sqlmock.NewRows(nil))

		got, err := db.GetOne(context.Background(), update, false, 1)

		require.NoError(t, err)
		assert.Nil(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDB_GetAssoc(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		forceArray bool
		rows       func() *sqlmock.Rows
		want       map[any]any
	}{
		{
			name:       "given two columns without forceArray, then maps key to scalar",
			query:      "SELECT k, v FROM t",
			forceArray: false,
			rows: func() *sqlmock.Rows {
				return sqlmock.NewRows([]string{"k", "v"}).
					AddRow("a", int64(1)).
					AddRow("b", int64(2))
			},
			want: map[any]any{"a": int64(1), "b": int64(2)},
		},
		{
			name:       "given two columns with forceArray, then maps key to slice",
			query:      "SELECT k, v FROM t",
			forceArray: true,
			rows: func() *sqlmock.Rows {
				return sqlmock.NewRows([]string{"k", "v"}).
					AddRow("a", int64(1)).
					AddRow("b", int64(2))
			},
			want: map[any]any{"a": []any{int64(1)}, "b": []any{int64(2)}},
		},
		{
			name:       "given three columns without forceArray, then maps key to remaining columns",
			query:      "SELECT k, v, w FROM t",
			forceArray: false,
			rows: func() *sqlmock.Rows {
				return sqlmock.NewRows([]string{"k", "v", "w"}).
					AddRow("a", int64(1), "x")
			},
			want: map[any]any{"a": []any{int64(1), "x"}},
		},
		{
			name:       "given three columns with forceArray, then shape is unchanged",
			query:      "SELECT k, v, w FROM t",
			forceArray: true,
			rows: func() *sqlmock.Rows {
				return sqlmock.NewRows([]string{"k", "v", "w"}).
					AddRow("a", int64(1), "x")
			},
			want: map[any]any{"a": []any{int64(1), "x"}},
		},
		{
			name:  "given duplicate keys, then later rows overwrite earlier ones",
			query: "SELECT k, v FROM t",
			rows: func() *sqlmock.Rows {
				return sqlmock.NewRows([]string{"k", "v"}).
					AddRow("a", int64(1)).
					AddRow("a", int64(9))
			},
			want: map[any]any{"a": int64(9)},
		},
		{
			name:  "given single column, then maps key to empty slice",
			query: "SELECT k FROM t",
			rows: func() *sqlmock.Rows {
				return sqlmock.NewRows([]string{"k"}).AddRow("a")
			},
			want: map[any]any{"a": []any{}},
		},
		{
			name:  "given no rows, then returns empty map",
			query: "SELECT k, v FROM t",
			rows: func() *sqlmock.Rows {
				return sqlmock.NewRows([]string{"k", "v"})
			},
			want: map[any]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t, "mysql")
			mock.ExpectPrepare(tt.query).ExpectQuery().WillReturnRows(tt.rows())

			got, err := db.GetAssoc(context.Background(), tt.query, tt.forceArray)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDB_GetCol(t *testing.T) {
	const query = "SELECT id, name FROM users WHERE team = ?"

	tests := []struct {
		name    string
		column  int
		want    []any
		wantErr assert.ErrorAssertionFunc
	}{
		{
			name:    "given column 1, then returns second column in row order",
			column:  1,
			want:    []any{"alice", "bob", "carol"},
			wantErr: assert.NoError,
		},
		{
			name:    "given column 0, then returns first column",
			column:  0,
			want:    []any{int64(1), int64(2), int64(3)},
			wantErr: assert.NoError,
		},
		{
			name:   "given out of range column, then returns invalid column error",
			column: 5,
			want:   nil,
			wantErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, ErrInvalidColumn)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t, "mysql")
			rows := sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(1), "alice").
				AddRow(int64(2), "bob").
				AddRow(int64(3), "carol")
			mock.ExpectPrepare(query).ExpectQuery().WithArgs("core").WillReturnRows(rows)

			got, err := db.GetCol(context.Background(), query, tt.column, "core")

			tt.wantErr(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDB_GetAll(t *testing.T) {
	const query = "SELECT id, name FROM users"

	tests := []struct {
		name string
		mode FetchMode
		want []*Row
	}{
		{
			name: "given ordered fetch mode, then returns positional rows",
			mode: FetchModeOrdered,
			want: []*Row{
				{Ordered: []any{int64(1), "alice"}},
				{Ordered: []any{int64(2), "bob"}},
			},
		},
		{
			name: "given assoc fetch mode, then returns keyed rows",
			mode: FetchModeAssoc,
			want: []*Row{
				{Assoc: map[string]any{"id": int64(1), "name": "alice"}},
				{Assoc: map[string]any{"id": int64(2), "name": "bob"}},
			},
		},
		{
			name: "given both fetch mode, then returns both shapes",
			mode: FetchModeBoth,
			want: []*Row{
				{
					Ordered: []any{int64(1), "alice"},
					Assoc:   map[string]any{"id": int64(1), "name": "alice"},
				},
				{
					Ordered: []any{int64(2), "bob"},
					Assoc:   map[string]any{"id": int64(2), "name": "bob"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t, "mysql")
			db.SetFetchMode(tt.mode)

			rows := sqlmock.NewRows([]string{"id", "name"}).
				AddRow(int64(1), "alice").
				AddRow(int64(2), "bob")
			mock.ExpectPrepare(query).ExpectQuery().WillReturnRows(rows)

			got, err := db.GetAll(context.Background(), query)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("given no rows, then returns empty slice", func(t *testing.T) {
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare(query).ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		got, err := db.GetAll(context.Background(), query)

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})
}

func TestDB_GetRow(t *testing.T) {
	const query = "SELECT id, name FROM users WHERE id = ?"

	t.Run("given rows, then returns only the first", func(t *testing.T) {
		db, mock := newMockDB(t, "mysql", WithFetchMode(FetchModeAssoc))
		rows := sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(7), "alice").
			AddRow(int64(8), "bob")
		mock.ExpectPrepare(query).ExpectQuery().WithArgs(7).WillReturnRows(rows)

		got, err := db.GetRow(context.Background(), query, 7)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, map[string]any{"id": int64(7), "name": "alice"}, got.Assoc)
		assert.Nil(t, got.Ordered)
	})

	t.Run("given no rows, then returns nil", func(t *testing.T) {
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare(query).ExpectQuery().WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		got, err := db.GetRow(context.Background(), query, 7)

		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestDB_RunQuery(t *testing.T) {
	t.Run("given successful select, then returns live statement", func(t *testing.T) {
		const query = "SELECT id FROM users"
		db, mock := newMockDB(t, "mysql")
		rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2))
		mock.ExpectPrepare(query).ExpectQuery().WillReturnRows(rows)

		stmt := db.RunQuery(context.Background(), query)
		require.NotNil(t, stmt)
		defer stmt.Close()

		assert.False(t, db.IsError(stmt))
		assert.Equal(t, SuccessState, stmt.GetCode())

		first, err := stmt.FetchRow(FetchModeOrdered, CurrentRow)
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1)}, first.Ordered)

		second, err := stmt.FetchRow(FetchModeOrdered, CurrentRow)
		require.NoError(t, err)
		assert.Equal(t, []any{int64(2)}, second.Ordered)

		done, err := stmt.FetchRow(FetchModeOrdered, CurrentRow)
		require.NoError(t, err)
		assert.Nil(t, done)
	})

	t.Run("given execute failure, then statement carries error status", func(t *testing.T) {
		const query = "INSERT INTO users (id) VALUES (?)"
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare(query).ExpectExec().WithArgs(1).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

		stmt := db.RunQuery(context.Background(), query, 1)
		require.NotNil(t, stmt)

		assert.True(t, db.IsError(stmt))
		assert.Equal(t, "23505", stmt.GetCode())
		assert.Equal(t, "duplicate key value", stmt.GetMessage())
	})

	t.Run("given returning inside a string literal, then executes without cursor", func(t *testing.T) {
		const query = "UPDATE notes SET body = 'returning soon' WHERE id = ?"
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare(query).ExpectExec().WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		stmt := db.RunQuery(context.Background(), query, 1)
		require.NotNil(t, stmt)
		defer stmt.Close()

		assert.False(t, db.IsError(stmt))
		assert.Equal(t, int64(1), stmt.NumRows())

		row, err := stmt.FetchRow(FetchModeOrdered, CurrentRow)
		require.NoError(t, err)
		assert.Nil(t, row)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("given prepare failure, then statement carries error status", func(t *testing.T) {
		const query = "SELEC broken"
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare(query).WillReturnError(&pq.Error{Code: "42601", Message: "syntax error"})

		stmt := db.Run_query(context.Background(), query)
		require.NotNil(t, stmt)

		assert.True(t, db.IsError(stmt))
		assert.Equal(t, "42601", stmt.GetCode())
		assert.Equal(t, "syntax error", db.GetMessage())

		err := stmt.Execute(context.Background())
		assert.Error(t, err)
	})
}

func TestDB_IsError(t *testing.T) {
	db, _ := newMockDB(t, "mysql")

	failed := &Stmt{db: db, info: ErrorInfo{SQLState: "42000", Message: "boom"}}
	succeeded := &Stmt{db: db, info: ErrorInfo{SQLState: SuccessState}}
	fresh := &Stmt{db: db}

	tests := []struct {
		name      string
		candidate any
		want      bool
	}{
		{name: "given failed statement, then returns true", candidate: failed, want: true},
		{name: "given successful statement, then returns false", candidate: succeeded, want: false},
		{name: "given unexecuted statement, then returns false", candidate: fresh, want: false},
		{name: "given nil statement, then returns false", candidate: (*Stmt)(nil), want: false},
		{name: "given Go error, then returns false", candidate: &Error{Info: failed.info}, want: false},
		{name: "given string, then returns false", candidate: "42000", want: false},
		{name: "given nil, then returns false", candidate: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.IsError(tt.candidate))
		})
	}
}

func TestDB_GetMessage(t *testing.T) {
	t.Run("given no operation, then returns empty string", func(t *testing.T) {
		db, _ := newMockDB(t, "mysql")

		assert.Equal(t, "", db.GetMessage())
		assert.False(t, db.ErrorInfo().Present())
	})

	t.Run("given successful prepare after failure, then message is cleared", func(t *testing.T) {
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare("SELECT 1").WillReturnError(assert.AnError)
		mock.ExpectPrepare("SELECT 2")

		_, err := db.Prepare(context.Background(), "SELECT 1")
		require.Error(t, err)
		assert.Equal(t, assert.AnError.Error(), db.GetMessage())
		assert.Equal(t, "HY000", db.ErrorInfo().SQLState)

		stmt, err := db.Prepare(context.Background(), "SELECT 2")
		require.NoError(t, err)
		defer stmt.Close()

		assert.Equal(t, "", db.GetMessage())
		assert.Equal(t, SuccessState, db.ErrorInfo().SQLState)
	})
}

func TestDB_Prepare_Rebind(t *testing.T) {
	t.Run("given postgres driver, then rebinds placeholders to dollar style", func(t *testing.T) {
		db, mock := newMockDB(t, "postgres")
		rows := sqlmock.NewRows([]string{"name"}).AddRow("alice")
		mock.ExpectPrepare("SELECT name FROM users WHERE id = $1 AND team = $2").
			ExpectQuery().WithArgs(1, "core").WillReturnRows(rows)

		got, err := db.GetOne(context.Background(), "SELECT name FROM users WHERE id = ? AND team = ?", 1, "core")

		require.NoError(t, err)
		assert.Equal(t, "alice", got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDB_Execute(t *testing.T) {
	t.Run("given prepared statement, then executes it with data", func(t *testing.T) {
		const query = "UPDATE users SET name = ? WHERE id = ?"
		db, mock := newMockDB(t, "mysql")
		mock.ExpectPrepare(query).ExpectExec().WithArgs("alice", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		stmt, err := db.Prepare(context.Background(), query)
		require.NoError(t, err)

		err = db.Execute(context.Background(), stmt, "alice", 1)

		require.NoError(t, err)
		assert.Equal(t, int64(1), stmt.NumRows())
		db.FreePrepared(stmt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("given nil statement, then returns nil statement error", func(t *testing.T) {
		db, _ := newMockDB(t, "mysql")

		err := db.Execute(context.Background(), nil, "alice")

		assert.ErrorIs(t, err, ErrNilStatement)
	})
}

func TestDB_Close(t *testing.T) {
	t.Run("given open transaction, then rolls back before closing", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)

		db := NewDB(mockDB, "mysql")
		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectClose()

		require.NoError(t, db.AutoCommit(context.Background(), false))
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDB_Ping(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	db := NewDB(mockDB, "mysql")
	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	err = db.Ping(context.Background())

	assert.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}
