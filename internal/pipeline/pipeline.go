package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/reloquent/schemair/internal/artifact"
	"github.com/reloquent/schemair/internal/dialect"
	"github.com/reloquent/schemair/internal/discovery"
	"github.com/reloquent/schemair/internal/generator"
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/schema"
)

// RunState is the state of a whole run.
type RunState string

const (
	RunConnecting        RunState = "connecting"
	RunConnected         RunState = "connected"
	RunConnectFailed     RunState = "connect_failed"
	RunEnumerating       RunState = "enumerating"
	RunEnumerationFailed RunState = "enumeration_failed"
	RunTables            RunState = "tables"
	RunCancelled         RunState = "cancelled"
	RunDone              RunState = "done"
)

// TableState is the state of one table within a run.
type TableState string

const (
	TableDescribing TableState = "describing"
	TableMapping    TableState = "mapping"
	TableWriting    TableState = "writing"
	TableInvoking   TableState = "invoking"
	TableSuccess    TableState = "success"
	TableFailed     TableState = "failed"
)

// Reader is the metadata source a run reads from. *discovery.Reader
// implements it.
type Reader interface {
	Connect(ctx context.Context) error
	Schema() string
	ListTables(ctx context.Context, explicit []string) ([]string, error)
	DescribeTable(ctx context.Context, name string) (*discovery.TableDescriptor, error)
	FetchPrimaryKey(ctx context.Context, name string) discovery.PrimaryKeyResult
	Close() error
}

// ArtifactWriter persists one table artifact and returns its path.
type ArtifactWriter interface {
	Write(t *schema.Table) (string, error)
}

// TableOutcome records how far one table got.
type TableOutcome struct {
	Table      string     `json:"table"`
	State      TableState `json:"state"`
	FailedAt   TableState `json:"failed_at,omitempty"`
	PrimaryKey string     `json:"primary_key,omitempty"`
	Artifact   string     `json:"artifact,omitempty"`
	Error      string     `json:"error,omitempty"`
	Err        error      `json:"-"`
}

// Summary is the result of a run.
type Summary struct {
	Dialect    string         `json:"dialect"`
	Schema     string         `json:"schema"`
	State      RunState       `json:"state"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Tables     []TableOutcome `json:"tables"`
}

// Succeeded returns the number of tables that reached TableSuccess.
func (s *Summary) Succeeded() int {
	n := 0
	for _, t := range s.Tables {
		if t.State == TableSuccess {
			n++
		}
	}
	return n
}

// Failed returns the number of tables that did not.
func (s *Summary) Failed() int {
	return len(s.Tables) - s.Succeeded()
}

// Driver runs the introspection pipeline over one connection.
type Driver struct {
	reader  Reader
	dialect dialect.Dialect
	policy  *naming.Policy
	writer  ArtifactWriter
	invoker generator.Invoker
	logger  *slog.Logger
	notify  func(RunState)
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithStateCallback registers fn to be called on every run state change.
func WithStateCallback(fn func(RunState)) Option {
	return func(d *Driver) { d.notify = fn }
}

// New creates a Driver.
func New(r Reader, dl dialect.Dialect, policy *naming.Policy, w ArtifactWriter, inv generator.Invoker, opts ...Option) *Driver {
	d := &Driver{
		reader:  r,
		dialect: dl,
		policy:  policy,
		writer:  w,
		invoker: inv,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes the given tables, or every table of the schema when tables
// is empty. Tables are processed one at a time in enumeration order. A
// failing table is recorded and skipped; only connection and enumeration
// failures, or cancellation, end the run early with an error.
func (d *Driver) Run(ctx context.Context, tables []string) (*Summary, error) {
	s := &Summary{
		Dialect:   d.dialect.Name(),
		Schema:    d.reader.Schema(),
		StartedAt: time.Now().UTC(),
	}
	defer func() { s.FinishedAt = time.Now().UTC() }()

	d.transition(s, RunConnecting)
	if err := d.reader.Connect(ctx); err != nil {
		d.transition(s, RunConnectFailed)
		d.logger.Error("connection failed", "dialect", s.Dialect, "error", err)
		return s, err
	}
	defer func() {
		if err := d.reader.Close(); err != nil {
			d.logger.Warn("closing connection", "error", err)
		}
	}()
	d.transition(s, RunConnected)

	d.transition(s, RunEnumerating)
	names, err := d.reader.ListTables(ctx, tables)
	if err != nil {
		d.transition(s, RunEnumerationFailed)
		d.logger.Error("listing tables failed", "schema", s.Schema, "error", err)
		return s, err
	}
	names = d.dedupe(names)
	d.logger.Info("tables to process", "schema", s.Schema, "count", len(names))

	d.transition(s, RunTables)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			d.transition(s, RunCancelled)
			return s, fmt.Errorf("run cancelled after %d of %d tables: %w", len(s.Tables), len(names), err)
		}
		s.Tables = append(s.Tables, d.processTable(ctx, name))
	}

	d.transition(s, RunDone)
	d.logger.Info("run complete", "succeeded", s.Succeeded(), "failed", s.Failed())
	return s, nil
}

func (d *Driver) processTable(ctx context.Context, name string) TableOutcome {
	o := TableOutcome{Table: name, State: TableDescribing}
	log := d.logger.With("table", name)

	desc, err := d.reader.DescribeTable(ctx, name)
	if err != nil {
		return d.fail(log, o, err)
	}
	o.Table = desc.Name
	log = d.logger.With("table", desc.Name)

	pk := d.reader.FetchPrimaryKey(ctx, desc.Name)
	o.PrimaryKey = pk.Status.String()
	switch pk.Status {
	case discovery.PKNotFound:
		log.Warn("table has no primary key")
	case discovery.PKLookupFailed:
		log.Warn("primary key lookup failed, continuing without primary key", "error", pk.Err)
	}

	o.State = TableMapping
	tbl := artifact.Build(desc, pk, d.policy, d.dialect)

	o.State = TableWriting
	path, err := d.writer.Write(tbl)
	if err != nil {
		return d.fail(log, o, err)
	}
	o.Artifact = path
	log.Debug("artifact written", "path", path, "summary", tbl.Summary())

	o.State = TableInvoking
	if err := d.invoker.Invoke(ctx, tbl.Name, path); err != nil {
		return d.fail(log, o, err)
	}

	o.State = TableSuccess
	log.Info("table processed", "artifact", path, "primary_key", o.PrimaryKey)
	return o
}

func (d *Driver) fail(log *slog.Logger, o TableOutcome, err error) TableOutcome {
	o.FailedAt = o.State
	o.State = TableFailed
	o.Err = err
	o.Error = err.Error()
	log.Error("table failed", "stage", o.FailedAt, "error", err)
	return o
}

// dedupe drops names that resolve to a catalog name already listed, keeping
// the first occurrence.
func (d *Driver) dedupe(names []string) []string {
	seen := make(map[string]string, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := d.dialect.CatalogName(n)
		if first, ok := seen[key]; ok {
			d.logger.Warn("skipping duplicate table name", "table", n, "same_as", first, "catalog_name", key)
			continue
		}
		seen[key] = n
		out = append(out, n)
	}
	return out
}

func (d *Driver) transition(s *Summary, st RunState) {
	s.State = st
	d.logger.Debug("run state", "state", st)
	if d.notify != nil {
		d.notify(st)
	}
}
