package dialect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/reloquent/schemair/internal/config"
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/typemap"
)

// Dialect holds the catalog and query conventions of one database vendor.
//
// Catalog queries take positional arguments in the dialect's placeholder
// style:
//   - ListTablesQuery(schema) returns table_name, ordered by name.
//   - PrimaryKeyQuery(schema, table) returns column_name in key ordinal order.
//   - ColumnAttributesQuery(schema, table) returns column_name and
//     is_nullable ('YES'/'NO').
//   - IdentityColumnsQuery(schema, table) returns the column_name of every
//     auto-increment column. Servers without identity metadata may reject
//     it; callers then treat no column as auto-increment.
type Dialect interface {
	Name() string
	DriverName() string
	DSN(src config.SourceConfig) (string, error)
	DefaultSchema(src config.SourceConfig) string

	ListTablesQuery() string
	PrimaryKeyQuery() string
	ColumnAttributesQuery() string
	IdentityColumnsQuery() string
	// ProbeQuery returns a statement selecting no rows from the table, used
	// to read the result-set column descriptors.
	ProbeQuery(schema, table string) string

	// CatalogName maps a user-supplied table name to the spelling stored in
	// the catalog.
	CatalogName(table string) string
	TypeCode(databaseTypeName string) typemap.Code
	Fold() naming.Fold
	// ServerNow is the SQL expression for the current server timestamp.
	ServerNow() string
}

var registry = map[string]Dialect{
	"postgresql": Postgres{},
	"oracle":     Oracle{},
	"sqlserver":  SQLServer{},
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	d, ok := registry[name]
	if !ok {
		return nil, &UnsupportedDialectError{Name: name}
	}
	return d, nil
}

// Names returns the registered dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UnsupportedDialectError is returned for an unknown dialect name.
type UnsupportedDialectError struct {
	Name string
}

func (e *UnsupportedDialectError) Error() string {
	return "unsupported database dialect: " + e.Name
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*$`)

// isPlainIdent reports whether s would be case-folded by the server when
// written unquoted.
func isPlainIdent(s string) bool {
	return plainIdent.MatchString(s)
}

// typeName normalizes a driver type name for table lookup: upper case,
// without any "(n)" suffix.
func typeName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

func lookupCode(table map[string]typemap.Code, name string) typemap.Code {
	n := typeName(name)
	if c, ok := table[n]; ok {
		return c
	}
	switch {
	case strings.HasPrefix(n, "TIMESTAMP") && strings.Contains(n, "TZ"),
		strings.HasPrefix(n, "TIMESTAMP") && strings.Contains(n, "ZONE"):
		return typemap.TimestampTZ
	case strings.HasPrefix(n, "TIMESTAMP"):
		return typemap.Timestamp
	}
	return typemap.Other
}
