package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Invoker runs the downstream generation step for one table whose
// artifact has been written.
type Invoker interface {
	Invoke(ctx context.Context, table, artifactPath string) error
}

// InvocationError is returned when the downstream step fails to launch,
// exits non-zero or times out. The artifact is kept either way.
type InvocationError struct {
	Table    string
	TimedOut bool
	ExitCode int // -1 when the process did not exit normally
	Err      error
}

func (e *InvocationError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("generator for %s timed out: %v", e.Table, e.Err)
	case e.ExitCode > 0:
		return fmt.Sprintf("generator for %s exited with status %d", e.Table, e.ExitCode)
	default:
		return fmt.Sprintf("generator for %s: %v", e.Table, e.Err)
	}
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Command runs an external program once per table. Args may contain the
// placeholders {table} and {artifact}.
type Command struct {
	Args    []string
	Timeout time.Duration
	Dir     string
	Logger  *slog.Logger
}

// NewCommand returns a Command for args bounded by timeout.
func NewCommand(args []string, timeout time.Duration, logger *slog.Logger) *Command {
	return &Command{Args: args, Timeout: timeout, Logger: logger}
}

// Invoke starts the program and waits for it to finish or time out. Its
// output is copied to the log line by line and not interpreted.
func (c *Command) Invoke(ctx context.Context, table, artifactPath string) error {
	if len(c.Args) == 0 {
		return &InvocationError{Table: table, ExitCode: -1, Err: errors.New("no generator command configured")}
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := Expand(c.Args, table, artifactPath)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = 5 * time.Second

	logger := c.logger().With("table", table, "command", args[0])
	stdout := &lineLogger{logger: logger, stream: "stdout"}
	stderr := &lineLogger{logger: logger, stream: "stderr"}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &InvocationError{Table: table, TimedOut: true, ExitCode: -1, Err: ctx.Err()}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &InvocationError{Table: table, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &InvocationError{Table: table, ExitCode: -1, Err: err}
}

func (c *Command) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Expand substitutes {table} and {artifact} in every argument.
func Expand(args []string, table, artifactPath string) []string {
	r := strings.NewReplacer("{table}", table, "{artifact}", artifactPath)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// lineLogger writes each complete output line as a debug log record.
type lineLogger struct {
	logger *slog.Logger
	stream string
	mu     sync.Mutex
	buf    []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(string(l.buf[:i]))
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buf) > 0 {
		l.emit(string(l.buf))
		l.buf = nil
	}
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r")
	l.logger.Debug("generator output", "stream", l.stream, "line", line)
}

// Noop is an Invoker that does nothing. It is used when no generator
// command is configured.
type Noop struct{}

func (Noop) Invoke(context.Context, string, string) error { return nil }

// Call is one recorded invocation.
type Call struct {
	Table    string
	Artifact string
}

// Recorder is an Invoker that records calls and returns a configured error
// per table.
type Recorder struct {
	mu     sync.Mutex
	Calls  []Call
	Errors map[string]error
}

func (r *Recorder) Invoke(_ context.Context, table, artifactPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, Call{Table: table, Artifact: artifactPath})
	if err, ok := r.Errors[table]; ok {
		return err
	}
	return nil
}

var (
	_ Invoker = (*Command)(nil)
	_ Invoker = Noop{}
	_ Invoker = (*Recorder)(nil)
)
