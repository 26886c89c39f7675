package dialect

import (
	"fmt"
	"net/url"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/reloquent/schemair/internal/config"
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/typemap"
)

// Oracle is the Oracle dialect, using go-ora (pure Go, no Instant Client).
type Oracle struct{}

var oracleTypes = map[string]typemap.Code{
	"NUMBER":        typemap.Numeric,
	"INTEGER":       typemap.Numeric,
	"FLOAT":         typemap.Float,
	"BINARY_FLOAT":  typemap.Real,
	"BINARY_DOUBLE": typemap.Double,
	"CHAR":          typemap.Char,
	"NCHAR":         typemap.NChar,
	"VARCHAR":       typemap.Varchar,
	"VARCHAR2":      typemap.Varchar,
	"NVARCHAR2":     typemap.NVarchar,
	"LONG":          typemap.LongVarchar,
	"CLOB":          typemap.Clob,
	"NCLOB":         typemap.NClob,
	"DATE":          typemap.Date,
	"RAW":           typemap.Binary,
	"LONG RAW":      typemap.Binary,
	"BLOB":          typemap.Blob,
	"ROWID":         typemap.Varchar,
}

func (Oracle) Name() string       { return "oracle" }
func (Oracle) DriverName() string { return "oracle" }

func (Oracle) DSN(src config.SourceConfig) (string, error) {
	if src.URL != "" {
		return src.URL, nil
	}
	port := src.Port
	if port == 0 {
		port = 1521
	}
	var opts map[string]string
	if src.SSL {
		opts = map[string]string{"SSL": "enable"}
	}
	return go_ora.BuildUrl(src.Host, port, src.Database, src.Username, src.Password, opts), nil
}

// DefaultSchema is the connecting user, upper-cased, unless configured.
func (Oracle) DefaultSchema(src config.SourceConfig) string {
	if src.Schema != "" {
		return src.Schema
	}
	user := src.Username
	if user == "" && src.URL != "" {
		if u, err := url.Parse(src.URL); err == nil && u.User != nil {
			user = u.User.Username()
		}
	}
	return strings.ToUpper(user)
}

func (Oracle) ListTablesQuery() string {
	return `
		SELECT TABLE_NAME
		FROM ALL_TABLES
		WHERE OWNER = :1
		ORDER BY TABLE_NAME`
}

func (Oracle) PrimaryKeyQuery() string {
	return `
		SELECT cc.COLUMN_NAME
		FROM ALL_CONSTRAINTS c
		JOIN ALL_CONS_COLUMNS cc
		  ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
		  AND c.OWNER = cc.OWNER
		WHERE c.CONSTRAINT_TYPE = 'P'
		  AND c.OWNER = :1
		  AND c.TABLE_NAME = :2
		ORDER BY cc.POSITION`
}

func (Oracle) ColumnAttributesQuery() string {
	return `
		SELECT
			COLUMN_NAME,
			CASE NULLABLE WHEN 'Y' THEN 'YES' ELSE 'NO' END
		FROM ALL_TAB_COLUMNS
		WHERE OWNER = :1
		  AND TABLE_NAME = :2
		ORDER BY COLUMN_ID`
}

// IdentityColumnsQuery needs 12c or later; IDENTITY_COLUMN does not exist
// before that.
func (Oracle) IdentityColumnsQuery() string {
	return `
		SELECT COLUMN_NAME
		FROM ALL_TAB_COLUMNS
		WHERE OWNER = :1
		  AND TABLE_NAME = :2
		  AND IDENTITY_COLUMN = 'YES'
		ORDER BY COLUMN_ID`
}

func (Oracle) ProbeQuery(schema, table string) string {
	return fmt.Sprintf("SELECT * FROM %s.%s WHERE 1 = 0", quoteDouble(schema), quoteDouble(table))
}

// CatalogName upper-cases plain identifiers, as the server does.
func (Oracle) CatalogName(table string) string {
	if isPlainIdent(table) {
		return strings.ToUpper(table)
	}
	return table
}

func (Oracle) TypeCode(name string) typemap.Code {
	return lookupCode(oracleTypes, name)
}

func (Oracle) Fold() naming.Fold { return naming.FoldUpper }
func (Oracle) ServerNow() string { return "SYSDATE" }

var _ Dialect = Oracle{}
