// Package testutil provides a stub database/sql driver so tests can hand out
// real *sqlx.Tx values without a running database. Statements succeed and
// return no rows; transactions commit and roll back trivially.
package testutil

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"

	"github.com/jmoiron/sqlx"
)

var registerOnce sync.Once

type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) { return &stubConn{}, nil }

type stubConn struct{}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) { return stubStmt{}, nil }
func (c *stubConn) Close() error                              { return nil }
func (c *stubConn) Begin() (driver.Tx, error)                 { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubStmt struct{}

func (stubStmt) Close() error  { return nil }
func (stubStmt) NumInput() int { return -1 }
func (stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	return driver.RowsAffected(1), nil
}
func (stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	return &stubRows{}, nil
}

type stubRows struct{}

func (*stubRows) Columns() []string              { return nil }
func (*stubRows) Close() error                   { return nil }
func (*stubRows) Next(dest []driver.Value) error { return io.EOF }

// NewDB opens a sqlx handle backed by the stub driver.
func NewDB() *sqlx.DB {
	registerOnce.Do(func() {
		sql.Register("stub", stubDriver{})
	})
	return sqlx.MustOpen("stub", "stub")
}

// NewTx begins a throwaway transaction on a stub connection.
func NewTx() *sqlx.Tx {
	return NewDB().MustBegin()
}
