package dialect

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/reloquent/schemair/internal/config"
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/typemap"
)

// SQLServer is the Microsoft SQL Server dialect, using go-mssqldb.
type SQLServer struct{}

var sqlServerTypes = map[string]typemap.Code{
	"BIT":              typemap.Bit,
	"TINYINT":          typemap.TinyInt,
	"SMALLINT":         typemap.SmallInt,
	"INT":              typemap.Integer,
	"BIGINT":           typemap.BigInt,
	"DECIMAL":          typemap.Decimal,
	"NUMERIC":          typemap.Numeric,
	"MONEY":            typemap.Decimal,
	"SMALLMONEY":       typemap.Decimal,
	"FLOAT":            typemap.Double,
	"REAL":             typemap.Real,
	"CHAR":             typemap.Char,
	"NCHAR":            typemap.NChar,
	"VARCHAR":          typemap.Varchar,
	"NVARCHAR":         typemap.NVarchar,
	"TEXT":             typemap.LongVarchar,
	"NTEXT":            typemap.LongVarchar,
	"XML":              typemap.LongVarchar,
	"UNIQUEIDENTIFIER": typemap.Char,
	"DATE":             typemap.Date,
	"TIME":             typemap.Time,
	"DATETIME":         typemap.Timestamp,
	"DATETIME2":        typemap.Timestamp,
	"SMALLDATETIME":    typemap.Timestamp,
	"DATETIMEOFFSET":   typemap.TimestampTZ,
	"BINARY":           typemap.Binary,
	"VARBINARY":        typemap.Binary,
	"IMAGE":            typemap.Blob,
}

func (SQLServer) Name() string       { return "sqlserver" }
func (SQLServer) DriverName() string { return "sqlserver" }

// DSN builds a sqlserver:// URL and validates it with the driver's parser.
func (SQLServer) DSN(src config.SourceConfig) (string, error) {
	dsn := src.URL
	if dsn == "" {
		port := src.Port
		if port == 0 {
			port = 1433
		}
		q := url.Values{}
		q.Set("database", src.Database)
		if src.SSL {
			q.Set("encrypt", "true")
		} else {
			q.Set("encrypt", "disable")
		}
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(src.Username, src.Password),
			Host:     net.JoinHostPort(src.Host, strconv.Itoa(port)),
			RawQuery: q.Encode(),
		}
		dsn = u.String()
	}
	if _, err := msdsn.Parse(dsn); err != nil {
		return "", fmt.Errorf("sqlserver dsn: %w", err)
	}
	return dsn, nil
}

func (SQLServer) DefaultSchema(src config.SourceConfig) string {
	if src.Schema != "" {
		return src.Schema
	}
	return "dbo"
}

func (SQLServer) ListTablesQuery() string {
	return `
		SELECT t.name
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1
		ORDER BY t.name`
}

func (SQLServer) PrimaryKeyQuery() string {
	return `
		SELECT c.name
		FROM sys.indexes i
		JOIN sys.index_columns ic
		  ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c
		  ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE i.is_primary_key = 1
		  AND s.name = @p1
		  AND t.name = @p2
		ORDER BY ic.key_ordinal`
}

func (SQLServer) ColumnAttributesQuery() string {
	return `
		SELECT
			c.name,
			CASE c.is_nullable WHEN 1 THEN 'YES' ELSE 'NO' END
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1
		  AND t.name = @p2
		ORDER BY c.column_id`
}

func (SQLServer) IdentityColumnsQuery() string {
	return `
		SELECT c.name
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1
		  AND t.name = @p2
		  AND c.is_identity = 1
		ORDER BY c.column_id`
}

func (SQLServer) ProbeQuery(schema, table string) string {
	return fmt.Sprintf("SELECT TOP 0 * FROM %s.%s", quoteBracket(schema), quoteBracket(table))
}

// CatalogName returns the name unchanged; lookups follow the database
// collation.
func (SQLServer) CatalogName(table string) string { return table }

func (SQLServer) TypeCode(name string) typemap.Code {
	return lookupCode(sqlServerTypes, name)
}

func (SQLServer) Fold() naming.Fold { return naming.FoldUpper }
func (SQLServer) ServerNow() string { return "GETDATE()" }

func quoteBracket(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

var _ Dialect = SQLServer{}
