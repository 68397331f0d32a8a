package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

type operationType int

const (
	opExec operationType = iota
	opQuery
)

type mockOperation struct {
	typ    operationType
	query  string
	args   []driver.Value
	result mockResult
	rows   mockRowsData
	err    error
}

type mockResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r mockResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r mockResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type mockRowsData struct {
	columns []string
	values  [][]driver.Value
}

type queueDriver struct {
	mu   sync.Mutex
	ops  []mockOperation
	idx  int
	open atomic.Int32
}

var driverSeq atomic.Int32

// newMockPool 返回只允许一个连接的池，便于验证连接在错误路径上被归还。
func newMockPool(t *testing.T, ops []mockOperation) (*Pool, *queueDriver) {
	t.Helper()

	drv := &queueDriver{ops: ops}
	name := fmt.Sprintf("mock-sqlstore-%d", driverSeq.Add(1))
	sql.Register(name, drv)

	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open mock db failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return NewPool(sqlx.NewDb(db, "mysql"), 50*time.Millisecond), drv
}

func execOp(query string, args []driver.Value, result mockResult) mockOperation {
	return mockOperation{typ: opExec, query: query, args: args, result: result}
}

func queryOp(query string, args []driver.Value, rows mockRowsData) mockOperation {
	return mockOperation{typ: opQuery, query: query, args: args, rows: rows}
}

func (d *queueDriver) assertConsumed(t *testing.T) {
	t.Helper()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idx != len(d.ops) {
		t.Fatalf("not all operations consumed: %d/%d", d.idx, len(d.ops))
	}
}

func (d *queueDriver) Open(string) (driver.Conn, error) {
	d.open.Add(1)
	return &mockConn{driver: d}, nil
}

type mockConn struct {
	driver *queueDriver
}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("transactions are not used")
}

func (c *mockConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	op, err := c.next(opExec, query, args)
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return op.result, nil
}

func (c *mockConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	op, err := c.next(opQuery, query, args)
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return &mockRows{columns: op.rows.columns, values: op.rows.values}, nil
}

func (c *mockConn) Ping(context.Context) error { return nil }

func (c *mockConn) next(expected operationType, query string, args []driver.NamedValue) (*mockOperation, error) {
	d := c.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.idx >= len(d.ops) {
		return nil, fmt.Errorf("unexpected operation: %v %q", expected, query)
	}
	op := &d.ops[d.idx]
	d.idx++
	if op.typ != expected {
		return nil, fmt.Errorf("expected operation %v, got %v", op.typ, expected)
	}
	if want, got := normalizeSQL(op.query), normalizeSQL(query); want != got {
		return nil, fmt.Errorf("unexpected query. want %q got %q", want, got)
	}
	if op.args != nil {
		got := make([]driver.Value, len(args))
		for i, a := range args {
			got[i] = a.Value
		}
		if !reflect.DeepEqual(op.args, got) {
			return nil, fmt.Errorf("unexpected args. want %v got %v", op.args, got)
		}
	}
	return op, nil
}

type mockRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *mockRows) Columns() []string { return r.columns }
func (r *mockRows) Close() error      { return nil }

func (r *mockRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

func normalizeSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
