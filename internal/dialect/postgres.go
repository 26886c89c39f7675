package dialect

import (
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/reloquent/schemair/internal/config"
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/typemap"
)

// Postgres is the PostgreSQL dialect, using pgx through database/sql.
type Postgres struct{}

var postgresTypes = map[string]typemap.Code{
	"INT2":              typemap.SmallInt,
	"SMALLINT":          typemap.SmallInt,
	"INT4":              typemap.Integer,
	"INTEGER":           typemap.Integer,
	"INT":               typemap.Integer,
	"SERIAL":            typemap.Integer,
	"INT8":              typemap.BigInt,
	"BIGINT":            typemap.BigInt,
	"BIGSERIAL":         typemap.BigInt,
	"NUMERIC":           typemap.Numeric,
	"DECIMAL":           typemap.Decimal,
	"FLOAT4":            typemap.Real,
	"REAL":              typemap.Real,
	"FLOAT8":            typemap.Double,
	"DOUBLE PRECISION":  typemap.Double,
	"BOOL":              typemap.Boolean,
	"BOOLEAN":           typemap.Boolean,
	"BPCHAR":            typemap.Char,
	"CHAR":              typemap.Char,
	"CHARACTER":         typemap.Char,
	"VARCHAR":           typemap.Varchar,
	"CHARACTER VARYING": typemap.Varchar,
	"TEXT":              typemap.LongVarchar,
	"NAME":              typemap.Varchar,
	"UUID":              typemap.Varchar,
	"JSON":              typemap.LongVarchar,
	"JSONB":             typemap.LongVarchar,
	"DATE":              typemap.Date,
	"TIME":              typemap.Time,
	"TIMETZ":            typemap.Time,
	"TIMESTAMP":         typemap.Timestamp,
	"TIMESTAMPTZ":       typemap.TimestampTZ,
	"BYTEA":             typemap.Binary,
}

func (Postgres) Name() string       { return "postgresql" }
func (Postgres) DriverName() string { return "pgx" }

// DSN builds a keyword/value connection string unless a URL is configured.
func (Postgres) DSN(src config.SourceConfig) (string, error) {
	if src.URL != "" {
		return src.URL, nil
	}
	port := src.Port
	if port == 0 {
		port = 5432
	}
	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		src.Host, port, src.Database, src.Username, src.Password)
	if src.SSL {
		connStr += " sslmode=require"
	} else {
		connStr += " sslmode=disable"
	}
	return connStr, nil
}

func (Postgres) DefaultSchema(src config.SourceConfig) string {
	if src.Schema != "" {
		return src.Schema
	}
	return "public"
}

func (Postgres) ListTablesQuery() string {
	return `
		SELECT c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind IN ('r', 'p')
		ORDER BY c.relname`
}

func (Postgres) PrimaryKeyQuery() string {
	return `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		  AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`
}

func (Postgres) ColumnAttributesQuery() string {
	return `
		SELECT column_name, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position`
}

func (Postgres) IdentityColumnsQuery() string {
	return `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		  AND (column_default LIKE 'nextval(%' OR is_identity = 'YES')
		ORDER BY ordinal_position`
}

func (Postgres) ProbeQuery(schema, table string) string {
	return fmt.Sprintf("SELECT * FROM %s.%s WHERE 1 = 0", quoteDouble(schema), quoteDouble(table))
}

// CatalogName lower-cases plain identifiers, as the server does.
func (Postgres) CatalogName(table string) string {
	if isPlainIdent(table) {
		return strings.ToLower(table)
	}
	return table
}

func (Postgres) TypeCode(name string) typemap.Code {
	return lookupCode(postgresTypes, name)
}

func (Postgres) Fold() naming.Fold { return naming.FoldNone }
func (Postgres) ServerNow() string { return "now()" }

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

var _ Dialect = Postgres{}
