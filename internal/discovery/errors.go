package discovery

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a Reader is used before Connect.
var ErrNotConnected = errors.New("not connected; call Connect first")

// ConnectionError is returned when the database connection cannot be
// established. It is fatal for a run.
type ConnectionError struct {
	Dialect string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Dialect, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// EnumerationError is returned when the table list cannot be read from the
// catalog. It is fatal for a run.
type EnumerationError struct {
	Schema string
	Err    error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("listing tables in schema %s: %v", e.Schema, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// TableIntrospectionError is returned when a single table cannot be
// described. The run skips the table and continues.
type TableIntrospectionError struct {
	Table string
	Stage string // probe, columns or attributes
	Err   error
}

func (e *TableIntrospectionError) Error() string {
	return fmt.Sprintf("describing table %s (%s): %v", e.Table, e.Stage, e.Err)
}

func (e *TableIntrospectionError) Unwrap() error { return e.Err }

// PrimaryKeyLookupError records a failed primary-key catalog query. The
// table is still processed, without primary-key columns.
type PrimaryKeyLookupError struct {
	Table string
	Err   error
}

func (e *PrimaryKeyLookupError) Error() string {
	return fmt.Sprintf("looking up primary key of %s: %v", e.Table, e.Err)
}

func (e *PrimaryKeyLookupError) Unwrap() error { return e.Err }
