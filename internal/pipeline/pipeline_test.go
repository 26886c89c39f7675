package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reloquent/schemair/internal/artifact"
	"github.com/reloquent/schemair/internal/dialect"
	"github.com/reloquent/schemair/internal/discovery"
	"github.com/reloquent/schemair/internal/generator"
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/schema"
	"github.com/reloquent/schemair/internal/typemap"
)

type fakeReader struct {
	connectErr error
	listErr    error
	all        []string
	tables     map[string]*discovery.TableDescriptor
	describe   map[string]error
	pks        map[string]discovery.PrimaryKeyResult
	described  []string
	closed     bool
}

func (f *fakeReader) Connect(context.Context) error { return f.connectErr }
func (f *fakeReader) Schema() string                { return "APP" }
func (f *fakeReader) Close() error                  { f.closed = true; return nil }

func (f *fakeReader) ListTables(_ context.Context, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if f.listErr != nil {
		return nil, &discovery.EnumerationError{Schema: "APP", Err: f.listErr}
	}
	return f.all, nil
}

func (f *fakeReader) DescribeTable(_ context.Context, name string) (*discovery.TableDescriptor, error) {
	f.described = append(f.described, name)
	if err, ok := f.describe[name]; ok {
		return nil, &discovery.TableIntrospectionError{Table: name, Stage: "probe", Err: err}
	}
	d, ok := f.tables[name]
	if !ok {
		return nil, &discovery.TableIntrospectionError{Table: name, Stage: "probe", Err: errors.New("no such table")}
	}
	return d, nil
}

func (f *fakeReader) FetchPrimaryKey(_ context.Context, name string) discovery.PrimaryKeyResult {
	return f.pks[name]
}

func scenarioReader() *fakeReader {
	return &fakeReader{
		all: []string{"LOGS", "USERS"},
		tables: map[string]*discovery.TableDescriptor{
			"USERS": {Name: "USERS", Schema: "APP", Columns: []discovery.ColumnMetadata{
				{Name: "ID", TypeCode: typemap.Numeric, Precision: 7},
				{Name: "ENTERDATE", TypeCode: typemap.Timestamp, Nullable: true},
				{Name: "NAME", TypeCode: typemap.Varchar, Precision: 50, Nullable: true},
			}},
			"LOGS": {Name: "LOGS", Schema: "APP", Columns: []discovery.ColumnMetadata{
				{Name: "ID", TypeCode: typemap.Numeric, Precision: 10, AutoIncrement: true},
				{Name: "MSG", TypeCode: typemap.Varchar, Precision: 200, Nullable: true},
			}},
		},
		pks: map[string]discovery.PrimaryKeyResult{
			"USERS": {Status: discovery.PKFound, Columns: []string{"ID"}},
			"LOGS":  {Status: discovery.PKFound, Columns: []string{"ID"}},
		},
	}
}

func newDriver(t *testing.T, r Reader, inv generator.Invoker, opts ...Option) (*Driver, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ir")
	d := New(r, dialect.Oracle{}, naming.New(naming.FoldUpper), artifact.NewWriter(dir), inv, opts...)
	return d, dir
}

func TestRunScenario(t *testing.T) {
	r := scenarioReader()
	rec := &generator.Recorder{}
	var states []RunState
	d, dir := newDriver(t, r, rec, WithStateCallback(func(s RunState) { states = append(states, s) }))

	s, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.State != RunDone || s.Succeeded() != 2 || s.Failed() != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
	want := []RunState{RunConnecting, RunConnected, RunEnumerating, RunTables, RunDone}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state %d = %s, want %s", i, states[i], want[i])
		}
	}
	if !r.closed {
		t.Error("connection not closed")
	}

	users, err := schema.LoadYAML(filepath.Join(dir, "USERS.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if c := users.Column("ENTERDATE"); c.InsertDirective != naming.ServerDefault || c.UpdateDirective != naming.None {
		t.Errorf("ENTERDATE = %+v", c)
	}
	if !users.Column("ID").PrimaryKey {
		t.Error("USERS.ID should be primary key")
	}

	logs, err := schema.LoadYAML(filepath.Join(dir, "LOGS.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if c := logs.Column("ID"); !c.AutoIncrement || !c.PrimaryKey {
		t.Errorf("LOGS.ID = %+v", c)
	}

	if len(rec.Calls) != 2 || rec.Calls[0].Table != "LOGS" || rec.Calls[1].Table != "USERS" {
		t.Errorf("generator calls = %+v", rec.Calls)
	}
	if rec.Calls[1].Artifact != filepath.Join(dir, "USERS.yaml") {
		t.Errorf("generator artifact = %s", rec.Calls[1].Artifact)
	}
}

func TestRunExplicitOrder(t *testing.T) {
	r := scenarioReader()
	rec := &generator.Recorder{}
	d, _ := newDriver(t, r, rec)

	s, err := d.Run(context.Background(), []string{"USERS", "LOGS"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Tables[0].Table != "USERS" || s.Tables[1].Table != "LOGS" {
		t.Errorf("outcome order = %+v", s.Tables)
	}
	if r.described[0] != "USERS" || rec.Calls[0].Table != "USERS" {
		t.Errorf("tables not processed in the given order")
	}
}

func TestRunIsolatesTableFailures(t *testing.T) {
	r := scenarioReader()
	r.all = []string{"GONE", "LOGS", "USERS"}
	r.describe = map[string]error{"GONE": errors.New("table dropped")}
	rec := &generator.Recorder{Errors: map[string]error{
		"LOGS": &generator.InvocationError{Table: "LOGS", ExitCode: 2, Err: errors.New("exit status 2")},
	}}

	var logs bytes.Buffer
	d, dir := newDriver(t, r, rec, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	s, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("table failures must not fail the run: %v", err)
	}
	if s.State != RunDone || len(s.Tables) != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}

	gone := s.Tables[0]
	if gone.State != TableFailed || gone.FailedAt != TableDescribing {
		t.Errorf("GONE = %+v", gone)
	}
	var tie *discovery.TableIntrospectionError
	if !errors.As(gone.Err, &tie) {
		t.Errorf("GONE error = %v", gone.Err)
	}

	lg := s.Tables[1]
	if lg.State != TableFailed || lg.FailedAt != TableInvoking || lg.Artifact == "" {
		t.Errorf("LOGS = %+v", lg)
	}
	if _, err := os.Stat(filepath.Join(dir, "LOGS.yaml")); err != nil {
		t.Errorf("artifact should stay written when the generator fails: %v", err)
	}

	if s.Tables[2].State != TableSuccess {
		t.Errorf("USERS = %+v", s.Tables[2])
	}
	if s.Succeeded() != 1 || s.Failed() != 2 {
		t.Errorf("succeeded=%d failed=%d", s.Succeeded(), s.Failed())
	}
	for _, want := range []string{"table=GONE", "table dropped", "table=LOGS", "stage=invoking"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q", want)
		}
	}
}

func TestRunWriteFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &generator.Recorder{}
	d := New(scenarioReader(), dialect.Oracle{}, naming.New(naming.FoldUpper),
		artifact.NewWriter(filepath.Join(blocker, "ir")), rec)

	s, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range s.Tables {
		if o.State != TableFailed || o.FailedAt != TableWriting {
			t.Errorf("%s = %+v", o.Table, o)
		}
		var we *artifact.WriteError
		if !errors.As(o.Err, &we) {
			t.Errorf("%s error = %v", o.Table, o.Err)
		}
	}
	if len(rec.Calls) != 0 {
		t.Errorf("generator must not run without an artifact, got %+v", rec.Calls)
	}
}

func TestRunPrimaryKeyLookupFailureContinues(t *testing.T) {
	r := scenarioReader()
	r.pks["USERS"] = discovery.PrimaryKeyResult{
		Status: discovery.PKLookupFailed,
		Err:    &discovery.PrimaryKeyLookupError{Table: "USERS", Err: errors.New("timeout")},
	}
	delete(r.pks, "LOGS")

	var logs bytes.Buffer
	d, dir := newDriver(t, r, generator.Noop{}, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	s, err := d.Run(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Succeeded() != 2 {
		t.Fatalf("both tables should succeed: %+v", s.Tables)
	}
	if s.Tables[0].PrimaryKey != "not_found" || s.Tables[1].PrimaryKey != "lookup_failed" {
		t.Errorf("primary key status = %s, %s", s.Tables[0].PrimaryKey, s.Tables[1].PrimaryKey)
	}

	users, err := schema.LoadYAML(filepath.Join(dir, "USERS.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(users.PrimaryKeyColumns) != 0 || users.Column("ID").PrimaryKey {
		t.Errorf("USERS should have no primary key: %+v", users)
	}
	if !strings.Contains(logs.String(), "primary key lookup failed") || !strings.Contains(logs.String(), "no primary key") {
		t.Errorf("missing primary key warnings in %s", logs.String())
	}
}

func TestRunConnectFailure(t *testing.T) {
	r := scenarioReader()
	r.connectErr = &discovery.ConnectionError{Dialect: "oracle", Err: errors.New("ORA-12541: no listener")}
	rec := &generator.Recorder{}
	d, _ := newDriver(t, r, rec)

	s, err := d.Run(context.Background(), nil)
	var ce *discovery.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if s.State != RunConnectFailed || len(s.Tables) != 0 || len(r.described) != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestRunEnumerationFailure(t *testing.T) {
	r := scenarioReader()
	r.listErr = errors.New("permission denied")
	d, _ := newDriver(t, r, generator.Noop{})

	s, err := d.Run(context.Background(), nil)
	var ee *discovery.EnumerationError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EnumerationError, got %v", err)
	}
	if s.State != RunEnumerationFailed {
		t.Errorf("state = %s", s.State)
	}
	if !r.closed {
		t.Error("connection not closed")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	r := scenarioReader()
	d, dir := newDriver(t, r, generator.Noop{})

	if _, err := d.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "USERS.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "USERS.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("artifacts differ between identical runs")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, _ := newDriver(t, scenarioReader(), generator.Noop{})

	s, err := d.Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if s.State != RunCancelled || len(s.Tables) != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestRunSkipsNamesFoldingToSameTable(t *testing.T) {
	r := &fakeReader{
		tables: map[string]*discovery.TableDescriptor{
			"USERS": {Name: "users", Schema: "public", Columns: []discovery.ColumnMetadata{{Name: "id", TypeCode: typemap.Integer}}},
			"users": {Name: "users", Schema: "public", Columns: []discovery.ColumnMetadata{{Name: "id", TypeCode: typemap.Integer}}},
		},
	}
	rec := &generator.Recorder{}
	var logs bytes.Buffer
	dir := filepath.Join(t.TempDir(), "ir")
	d := New(r, dialect.Postgres{}, naming.New(naming.FoldNone), artifact.NewWriter(dir), rec,
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	s, err := d.Run(context.Background(), []string{"USERS", "users"})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tables) != 1 || len(r.described) != 1 || r.described[0] != "USERS" {
		t.Errorf("expected one table processed, got %+v (described %v)", s.Tables, r.described)
	}
	if len(rec.Calls) != 1 {
		t.Errorf("generator calls = %+v", rec.Calls)
	}
	if !strings.Contains(logs.String(), "skipping duplicate table name") {
		t.Errorf("missing duplicate warning in %s", logs.String())
	}
}

func TestRunLogsArtifactSummary(t *testing.T) {
	var logs bytes.Buffer
	d, _ := newDriver(t, scenarioReader(), generator.Noop{},
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	if _, err := d.Run(context.Background(), []string{"USERS"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(logs.String(), "USERS: 3 columns, 1 primary key, 0 auto-increment, 1 with directives") {
		t.Errorf("artifact summary not logged:\n%s", logs.String())
	}
}
