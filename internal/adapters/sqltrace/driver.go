// Package sqltrace wraps database/sql drivers so that every executed
// statement is measured and recorded into the request-scoped accumulator
// carried by the query's context. Requests without an accumulator run at
// full speed with no recording.
package sqltrace

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"
)

// ---------------- Driver registration ----------------

const tracedSuffix = "-sqlsmell"

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]driver.Driver)
)

// Register wraps the provided driver with capture logic and registers it in
// database/sql under the given name. Typical usage:
//
//	import "github.com/mattn/go-sqlite3"
//	sqltrace.Register("sqlite3-sqlsmell", &sqlite3.SQLiteDriver{})
//	db, _ := sql.Open("sqlite3-sqlsmell", dsn)
//
// Panics if the driver is nil or the name is already taken.
func Register(name string, d driver.Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if d == nil {
		panic("sqltrace: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("sqltrace: Register called twice for driver " + name)
	}

	drivers[name] = d
	sql.Register(name, &tracedDriver{parent: d})
}

// Open opens a database through a traced copy of an already-registered
// driver, e.g. Open("sqlite3", ":memory:"). The traced driver is
// registered lazily under "<driverName>-sqlsmell" on first use.
func Open(driverName, dsn string) (*sql.DB, error) {
	tracedName, err := wrapDriver(driverName)
	if err != nil {
		return nil, err
	}
	return sql.Open(tracedName, dsn)
}

func wrapDriver(driverName string) (string, error) {
	tracedName := driverName + tracedSuffix

	driversMu.Lock()
	defer driversMu.Unlock()
	if _, ok := drivers[tracedName]; ok {
		return tracedName, nil
	}

	// sql.Open does not connect, it only resolves the driver.
	probe, err := sql.Open(driverName, "")
	if err != nil {
		return "", fmt.Errorf("sqltrace: resolve driver %q: %w", driverName, err)
	}
	parent := probe.Driver()
	_ = probe.Close()

	drivers[tracedName] = parent
	sql.Register(tracedName, &tracedDriver{parent: parent})
	return tracedName, nil
}

// ---------------- Driver wrappers ----------------

type tracedDriver struct{ parent driver.Driver }

func (d *tracedDriver) Open(name string) (driver.Conn, error) {
	conn, err := d.parent.Open(name)
	if err != nil {
		return nil, err
	}
	return &tracedConn{parent: conn}, nil
}

type tracedConn struct{ parent driver.Conn }

func (c *tracedConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.parent.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &tracedStmt{parent: stmt, query: query}, nil
}

func (c *tracedConn) Close() error              { return c.parent.Close() }
func (c *tracedConn) Begin() (driver.Tx, error) { return c.parent.Begin() }

func (c *tracedConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if cp, ok := c.parent.(driver.ConnPrepareContext); ok {
		stmt, err := cp.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &tracedStmt{parent: stmt, query: query}, nil
	}
	return c.Prepare(query)
}

func (c *tracedConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if cb, ok := c.parent.(driver.ConnBeginTx); ok {
		return cb.BeginTx(ctx, opts)
	}
	return c.parent.Begin()
}

func (c *tracedConn) Ping(ctx context.Context) error {
	if p, ok := c.parent.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *tracedConn) ResetSession(ctx context.Context) error {
	if rs, ok := c.parent.(driver.SessionResetter); ok {
		return rs.ResetSession(ctx)
	}
	return nil
}

// Context-aware exec/query
func (c *tracedConn) QueryContext(ctx context.Context, q string, a []driver.NamedValue) (driver.Rows, error) {
	if qx, ok := c.parent.(driver.QueryerContext); ok {
		start := time.Now()
		rows, err := qx.QueryContext(ctx, q, a)
		recordQuery(ctx, q, start, time.Since(start))
		return rows, err
	}
	return nil, driver.ErrSkip
}

func (c *tracedConn) ExecContext(ctx context.Context, q string, a []driver.NamedValue) (driver.Result, error) {
	if ex, ok := c.parent.(driver.ExecerContext); ok {
		start := time.Now()
		res, err := ex.ExecContext(ctx, q, a)
		recordQuery(ctx, q, start, time.Since(start))
		return res, err
	}
	return nil, driver.ErrSkip
}

type tracedStmt struct {
	parent driver.Stmt
	query  string
}

func (s *tracedStmt) Close() error  { return s.parent.Close() }
func (s *tracedStmt) NumInput() int { return s.parent.NumInput() }

func (s *tracedStmt) Exec(args []driver.Value) (driver.Result, error) { return s.parent.Exec(args) }
func (s *tracedStmt) Query(args []driver.Value) (driver.Rows, error) { return s.parent.Query(args) }

func (s *tracedStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if ex, ok := s.parent.(driver.StmtExecContext); ok {
		start := time.Now()
		res, err := ex.ExecContext(ctx, args)
		recordQuery(ctx, s.query, start, time.Since(start))
		return res, err
	}
	values := namedValueToValue(args)
	start := time.Now()
	res, err := s.parent.Exec(values)
	recordQuery(ctx, s.query, start, time.Since(start))
	return res, err
}

func (s *tracedStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if qx, ok := s.parent.(driver.StmtQueryContext); ok {
		start := time.Now()
		rows, err := qx.QueryContext(ctx, args)
		recordQuery(ctx, s.query, start, time.Since(start))
		return rows, err
	}
	values := namedValueToValue(args)
	start := time.Now()
	rows, err := s.parent.Query(values)
	recordQuery(ctx, s.query, start, time.Since(start))
	return rows, err
}

func namedValueToValue(named []driver.NamedValue) []driver.Value {
	vs := make([]driver.Value, len(named))
	for i, nv := range named {
		vs[i] = nv.Value
	}
	return vs
}
