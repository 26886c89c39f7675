package discovery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/reloquent/schemair/internal/config"
	"github.com/reloquent/schemair/internal/dialect"
	"github.com/reloquent/schemair/internal/typemap"
)

// maxLength bounds the character length taken from a result-set descriptor;
// drivers report unbounded types (text, varchar(max)) with huge values.
const maxLength = 1<<31 - 1

// maxNumericPrecision is the largest declarable numeric precision (1000 on
// PostgreSQL). pgx reports an unconstrained NUMERIC as precision 65535,
// scale 65531; anything above the bound is treated as unknown.
const maxNumericPrecision = 1000

// ColumnMetadata describes one column as reported by the driver.
type ColumnMetadata struct {
	Name          string
	TypeName      string
	TypeCode      typemap.Code
	Precision     int
	Scale         int
	Nullable      bool
	AutoIncrement bool
}

// TableDescriptor is the metadata of one table, columns in driver order.
type TableDescriptor struct {
	Name    string
	Schema  string
	Columns []ColumnMetadata
}

// Reader reads table metadata over a single database connection.
type Reader struct {
	dialect dialect.Dialect
	source  config.SourceConfig
	schema  string
	db      *sql.DB
	logger  *slog.Logger

	maxRetries      int
	initialInterval time.Duration
	open            func(driverName, dsn string) (*sql.DB, error)
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for connection retries.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// WithRetry bounds connection attempts: maxRetries retries after the first
// attempt, with exponential backoff starting at initial.
func WithRetry(maxRetries int, initial time.Duration) Option {
	return func(r *Reader) {
		r.maxRetries = maxRetries
		r.initialInterval = initial
	}
}

// NewReader creates a Reader for the given dialect and source. The schema
// defaults to the dialect's default schema for the source.
func NewReader(d dialect.Dialect, src config.SourceConfig, opts ...Option) *Reader {
	r := &Reader{
		dialect:         d,
		source:          src,
		schema:          d.DefaultSchema(src),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		initialInterval: time.Second,
		open:            sql.Open,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schema returns the schema (or owner) tables are read from.
func (r *Reader) Schema() string { return r.schema }

// Connect opens the connection and verifies it with a ping, retrying with
// backoff. Only connection establishment is retried.
func (r *Reader) Connect(ctx context.Context) error {
	dsn, err := r.dialect.DSN(r.source)
	if err != nil {
		return &ConnectionError{Dialect: r.dialect.Name(), Err: err}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(r.maxRetries, 0))), ctx)

	attempt := 0
	op := func() error {
		attempt++
		db, err := r.open(r.dialect.DriverName(), dsn)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("opening connection: %w", err))
		}
		// Every table is read over the same session.
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return fmt.Errorf("ping: %w", err)
		}
		r.db = db
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("connection attempt failed",
			"dialect", r.dialect.Name(), "attempt", attempt, "retry_in", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return &ConnectionError{Dialect: r.dialect.Name(), Err: err}
	}
	return nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

// ListTables returns explicit verbatim, in the given order, when it is
// non-empty. Otherwise it lists every table of the schema ordered by name.
func (r *Reader) ListTables(ctx context.Context, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return append([]string(nil), explicit...), nil
	}
	if r.db == nil {
		return nil, &EnumerationError{Schema: r.schema, Err: ErrNotConnected}
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.ListTablesQuery(), r.schema)
	if err != nil {
		return nil, &EnumerationError{Schema: r.schema, Err: err}
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &EnumerationError{Schema: r.schema, Err: err}
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &EnumerationError{Schema: r.schema, Err: err}
	}
	return tables, nil
}

// DescribeTable reads column metadata for one table. Types, precision and
// scale come from the result-set descriptor of a zero-row probe query;
// nullability and auto-increment come from the catalog. When the server
// cannot report identity columns, no column is marked auto-increment.
func (r *Reader) DescribeTable(ctx context.Context, name string) (*TableDescriptor, error) {
	if r.db == nil {
		return nil, &TableIntrospectionError{Table: name, Stage: "probe", Err: ErrNotConnected}
	}
	table := r.dialect.CatalogName(name)

	cols, err := r.probeColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, &TableIntrospectionError{Table: table, Stage: "columns", Err: errors.New("probe returned no columns")}
	}

	nullable, err := r.columnNullability(ctx, table)
	if err != nil {
		return nil, &TableIntrospectionError{Table: table, Stage: "attributes", Err: err}
	}
	identity, err := r.identityColumns(ctx, table)
	if err != nil {
		r.logger.Warn("identity column lookup failed, treating no column as auto-increment",
			"table", table, "error", err)
	}
	for i := range cols {
		if n, ok := nullable[cols[i].Name]; ok {
			cols[i].Nullable = n
		}
		cols[i].AutoIncrement = identity[cols[i].Name]
	}

	return &TableDescriptor{Name: table, Schema: r.schema, Columns: cols}, nil
}

func (r *Reader) probeColumns(ctx context.Context, table string) ([]ColumnMetadata, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.ProbeQuery(r.schema, table))
	if err != nil {
		return nil, &TableIntrospectionError{Table: table, Stage: "probe", Err: err}
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, &TableIntrospectionError{Table: table, Stage: "columns", Err: err}
	}

	cols := make([]ColumnMetadata, 0, len(types))
	for _, ct := range types {
		col := ColumnMetadata{
			Name:     ct.Name(),
			TypeName: ct.DatabaseTypeName(),
			Nullable: true,
		}
		col.TypeCode = r.dialect.TypeCode(col.TypeName)
		if p, s, ok := ct.DecimalSize(); ok {
			if p <= maxNumericPrecision {
				col.Precision = int(p)
				col.Scale = int(s)
			}
		} else if l, ok := ct.Length(); ok && l > 0 && l < maxLength {
			col.Precision = int(l)
		}
		if n, ok := ct.Nullable(); ok {
			col.Nullable = n
		}
		cols = append(cols, col)
	}

	if err := rows.Err(); err != nil {
		return nil, &TableIntrospectionError{Table: table, Stage: "probe", Err: err}
	}
	return cols, nil
}

func (r *Reader) columnNullability(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.ColumnAttributesQuery(), r.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nullable := make(map[string]bool)
	for rows.Next() {
		var name, isNullable string
		if err := rows.Scan(&name, &isNullable); err != nil {
			return nil, err
		}
		nullable[name] = isNullable == "YES"
	}
	return nullable, rows.Err()
}

func (r *Reader) identityColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.IdentityColumnsQuery(), r.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	identity := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		identity[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return identity, nil
}

// FetchPrimaryKey returns the primary-key columns of a table in key ordinal
// order. A failed catalog query is reported as LookupFailed, never as an
// error, so the caller can continue without primary-key information.
func (r *Reader) FetchPrimaryKey(ctx context.Context, name string) PrimaryKeyResult {
	table := r.dialect.CatalogName(name)
	if r.db == nil {
		return lookupFailed(table, ErrNotConnected)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.PrimaryKeyQuery(), r.schema, table)
	if err != nil {
		return lookupFailed(table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return lookupFailed(table, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return lookupFailed(table, err)
	}
	if len(cols) == 0 {
		return PrimaryKeyResult{Status: PKNotFound}
	}
	return PrimaryKeyResult{Status: PKFound, Columns: cols}
}

func lookupFailed(table string, err error) PrimaryKeyResult {
	return PrimaryKeyResult{Status: PKLookupFailed, Err: &PrimaryKeyLookupError{Table: table, Err: err}}
}
