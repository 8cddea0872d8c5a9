// Package sqlprovider exposes a database/sql query as a row provider.
package sqlprovider

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/provider"
)

// Row holds the column values of one result row, in column order
type Row []any

// QueryError is the translation of a driver failure
type QueryError struct {
	Op    provider.Op
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("sql %s %q: %v", e.Op, e.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Provider runs a query and walks its rows. database/sql cursors are forward
// only: Reset executes the query again, and Absolute is only available with
// scroll emulation, which replays the query up to the requested row.
//
// Driver failures are reported as checked errors and translated into
// *QueryError by HandleCheckedError.
type Provider struct {
	db    *sql.DB
	ctx   context.Context
	query string
	args  []any

	countQuery string
	scroll     bool
	processors map[string]func(any) any
	logger     log.Logger

	rows    *sql.Rows
	columns []string
	pos     int
	done    bool
	current Row
	onRow   bool
	state   provider.State
}

// Option configures a Provider
type Option func(*Provider)

// WithArgs sets the query arguments
func WithArgs(args ...any) Option {
	return func(p *Provider) {
		p.args = args
	}
}

// WithCountQuery sets a query returning the number of rows, used by Size. It
// receives the same arguments as the main query.
func WithCountQuery(query string) Option {
	return func(p *Provider) {
		p.countQuery = query
	}
}

// WithScrollEmulation makes the provider report random access support
func WithScrollEmulation() Option {
	return func(p *Provider) {
		p.scroll = true
	}
}

// WithTypeProcessor converts values of the given database type name
func WithTypeProcessor(typ string, fn func(any) any) Option {
	return func(p *Provider) {
		p.processors[strings.ToLower(typ)] = fn
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New creates a provider for query. ctx bounds every statement the provider
// executes.
func New(ctx context.Context, db *sql.DB, query string, opts ...Option) *Provider {
	p := &Provider{
		db:         db,
		ctx:        ctx,
		query:      query,
		processors: make(map[string]func(any) any),
		pos:        -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.WithField("component", "sqlprovider")
	}
	return p
}

// Columns returns the column names of the result, once opened
func (p *Provider) Columns() []string {
	return p.columns
}

func (p *Provider) SupportsRandomAccess() bool {
	return p.scroll
}

func (p *Provider) Open() error {
	if err := p.state.CheckOpenable(); err != nil {
		return err
	}
	if err := p.execute(); err != nil {
		return err
	}
	p.state = provider.StateOpen
	return nil
}

func (p *Provider) execute() error {
	rows, err := p.db.QueryContext(p.ctx, p.query, p.args...)
	if err != nil {
		return provider.Checked(err)
	}

	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return provider.Checked(err)
	}

	p.rows = rows
	p.columns = columns
	p.pos = -1
	p.done = false
	p.onRow = false
	p.current = nil
	return nil
}

func (p *Provider) Next() (bool, error) {
	if err := p.state.CheckReadable(); err != nil {
		return false, err
	}
	p.onRow = false
	if p.done {
		return false, nil
	}

	if !p.rows.Next() {
		// later result sets continue the same sequence
		if !p.rows.NextResultSet() || !p.rows.Next() {
			p.done = true
			if err := p.rows.Err(); err != nil {
				return false, provider.Checked(err)
			}
			return false, nil
		}
	}

	row, err := p.scan()
	if err != nil {
		return false, provider.Checked(err)
	}

	p.pos++
	p.current = row
	p.onRow = true
	return true, nil
}

func (p *Provider) scan() (Row, error) {
	types, err := p.rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(types))
	pointers := make([]any, len(types))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := p.rows.Scan(pointers...); err != nil {
		return nil, err
	}

	row := make(Row, len(values))
	for i, typ := range types {
		row[i] = p.processor(typ.DatabaseTypeName())(values[i])
	}
	return row, nil
}

func (p *Provider) processor(typ string) func(any) any {
	if proc, ok := p.processors[strings.ToLower(typ)]; ok {
		return proc
	}
	return func(val any) any {
		if b, ok := val.([]byte); ok {
			return string(b)
		}
		return val
	}
}

// Absolute replays the query up to pos when it lies behind the cursor.
func (p *Provider) Absolute(pos int) (bool, error) {
	if !p.scroll {
		return false, provider.ErrRandomAccessUnsupported
	}
	if err := p.state.CheckReadable(); err != nil {
		return false, err
	}
	if pos < 0 {
		p.onRow = false
		return false, nil
	}

	if pos == p.pos && p.onRow {
		return true, nil
	}
	if pos <= p.pos {
		p.logger.Debug("rewinding query to reach row %d", pos)
		if err := p.Reset(); err != nil {
			return false, err
		}
	}

	for p.pos < pos {
		ok, err := p.Next()
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (p *Provider) Current() (Row, error) {
	if err := p.state.CheckReadable(); err != nil {
		return nil, err
	}
	if !p.onRow {
		return nil, provider.ErrNoCurrentRow
	}
	return p.current, nil
}

// Size runs the count query, or reports Unbounded without one
func (p *Provider) Size() (int, error) {
	if err := p.state.CheckReadable(); err != nil {
		return 0, err
	}
	if p.countQuery == "" {
		return provider.Unbounded, nil
	}

	var n int64
	if err := p.db.QueryRowContext(p.ctx, p.countQuery, p.args...).Scan(&n); err != nil {
		return 0, provider.Checked(err)
	}
	return int(n), nil
}

func (p *Provider) Reset() error {
	if err := p.state.CheckReadable(); err != nil {
		return err
	}
	if err := p.rows.Close(); err != nil {
		p.logger.Warn("closing rows before re-executing: %v", err)
	}
	return p.execute()
}

func (p *Provider) Close() error {
	if p.state == provider.StateClosed {
		return nil
	}
	wasOpen := p.state == provider.StateOpen
	p.state = provider.StateClosed
	p.onRow = false

	if wasOpen && p.rows != nil {
		if err := p.rows.Close(); err != nil {
			return provider.Checked(err)
		}
	}
	return nil
}

// HandleCheckedError wraps driver failures with the query they came from
func (p *Provider) HandleCheckedError(op provider.Op, err error) error {
	return &QueryError{Op: op, Query: p.query, Err: provider.Cause(err)}
}

var _ provider.RowProvider[Row] = (*Provider)(nil)
