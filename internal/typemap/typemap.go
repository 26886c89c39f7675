package typemap

import "fmt"

// Code is a dialect-neutral vendor type code. Dialect adapters resolve the
// driver's database type name to one of these.
type Code int

const (
	Other Code = iota
	Bit
	Boolean
	TinyInt
	SmallInt
	Integer
	BigInt
	Float
	Real
	Double
	Numeric
	Decimal
	Char
	Varchar
	NChar
	NVarchar
	LongVarchar
	Clob
	NClob
	Date
	Time
	Timestamp
	TimestampTZ
	Binary
	Blob
)

var codeNames = map[Code]string{
	Other:       "OTHER",
	Bit:         "BIT",
	Boolean:     "BOOLEAN",
	TinyInt:     "TINYINT",
	SmallInt:    "SMALLINT",
	Integer:     "INTEGER",
	BigInt:      "BIGINT",
	Float:       "FLOAT",
	Real:        "REAL",
	Double:      "DOUBLE",
	Numeric:     "NUMERIC",
	Decimal:     "DECIMAL",
	Char:        "CHAR",
	Varchar:     "VARCHAR",
	NChar:       "NCHAR",
	NVarchar:    "NVARCHAR",
	LongVarchar: "LONGVARCHAR",
	Clob:        "CLOB",
	NClob:       "NCLOB",
	Date:        "DATE",
	Time:        "TIME",
	Timestamp:   "TIMESTAMP",
	TimestampTZ: "TIMESTAMP_WITH_TIMEZONE",
	Binary:      "BINARY",
	Blob:        "BLOB",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// LanguageType is the canonical language-level type of a column.
type LanguageType string

const (
	LangInteger LanguageType = "Integer"
	LangLong    LanguageType = "Long"
	LangDecimal LanguageType = "Decimal"
	LangDate    LanguageType = "Date"
	LangString  LanguageType = "String"
)

// AllLanguageTypes lists every canonical language type.
var AllLanguageTypes = []LanguageType{LangInteger, LangLong, LangDecimal, LangDate, LangString}

// longPrecision is the first integral precision that no longer fits Integer.
const longPrecision = 8

// Mapping is the canonical result of mapping one vendor column type.
type Mapping struct {
	Language LanguageType
	Storage  string
}

// Map translates a vendor type code with its precision and scale to the
// canonical language and storage types. Every code maps to something;
// unrecognized codes fall back to String/varchar.
func Map(code Code, precision, scale int) Mapping {
	switch code {
	case Numeric, Decimal:
		return Mapping{Language: numericLanguage(precision, scale), Storage: numberStorage(precision, scale)}
	case TinyInt, SmallInt, Integer:
		// Integer codes keep their natural width; drivers report a display
		// precision for them that says nothing about the value range.
		return Mapping{Language: LangInteger, Storage: "integer"}
	case BigInt:
		return Mapping{Language: LangLong, Storage: "bigint"}
	case Float, Real, Double:
		return Mapping{Language: LangDecimal, Storage: "float"}
	case Bit, Boolean:
		return Mapping{Language: LangInteger, Storage: "number(1)"}
	case Char, NChar:
		return Mapping{Language: LangString, Storage: sized("char", precision)}
	case Varchar, NVarchar:
		return Mapping{Language: LangString, Storage: sized("varchar", precision)}
	case LongVarchar, Clob, NClob:
		return Mapping{Language: LangString, Storage: "clob"}
	case Date:
		return Mapping{Language: LangDate, Storage: "date"}
	case Time:
		return Mapping{Language: LangDate, Storage: "time"}
	case Timestamp, TimestampTZ:
		return Mapping{Language: LangDate, Storage: "timestamp"}
	case Binary, Blob:
		return Mapping{Language: LangString, Storage: "blob"}
	default:
		return Mapping{Language: LangString, Storage: "varchar"}
	}
}

func numericLanguage(precision, scale int) LanguageType {
	switch {
	case scale != 0:
		// Negative scale (Oracle) rounds to the left of the decimal point
		// but is still not integral storage.
		return LangDecimal
	case precision <= 0:
		// Unconstrained: any value the server accepts, fractions included.
		return LangDecimal
	case precision < longPrecision:
		return LangInteger
	default:
		return LangLong
	}
}

func numberStorage(precision, scale int) string {
	switch {
	case precision <= 0:
		return "number"
	case scale == 0:
		return fmt.Sprintf("number(%d)", precision)
	default:
		return fmt.Sprintf("number(%d,%d)", precision, scale)
	}
}

func sized(base string, length int) string {
	if length <= 0 {
		return base
	}
	return fmt.Sprintf("%s(%d)", base, length)
}
