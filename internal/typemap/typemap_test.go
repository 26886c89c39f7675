package typemap

import "testing"

func TestMapNumericBoundary(t *testing.T) {
	tests := []struct {
		name      string
		code      Code
		precision int
		scale     int
		want      Mapping
	}{
		{"precision 7", Numeric, 7, 0, Mapping{LangInteger, "number(7)"}},
		{"precision 8", Numeric, 8, 0, Mapping{LangLong, "number(8)"}},
		{"precision 18", Decimal, 18, 0, Mapping{LangLong, "number(18)"}},
		{"scale 2", Numeric, 10, 2, Mapping{LangDecimal, "number(10,2)"}},
		{"scale 2 small precision", Decimal, 3, 2, Mapping{LangDecimal, "number(3,2)"}},
		{"negative scale", Numeric, 5, -2, Mapping{LangDecimal, "number(5,-2)"}},
		{"oracle unconstrained number", Numeric, 0, -127, Mapping{LangDecimal, "number"}},
		{"unknown precision", Numeric, 0, 0, Mapping{LangDecimal, "number"}},
		{"unknown precision decimal", Decimal, 0, 0, Mapping{LangDecimal, "number"}},
		{"precision 1", Numeric, 1, 0, Mapping{LangInteger, "number(1)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Map(tt.code, tt.precision, tt.scale)
			if got != tt.want {
				t.Errorf("Map(%s, %d, %d) = %+v, want %+v", tt.code, tt.precision, tt.scale, got, tt.want)
			}
		})
	}
}

func TestMapIntegerCodes(t *testing.T) {
	for _, code := range []Code{TinyInt, SmallInt, Integer} {
		got := Map(code, 10, 0)
		if got.Language != LangInteger {
			t.Errorf("Map(%s) language = %s, want Integer", code, got.Language)
		}
	}
	if got := Map(BigInt, 19, 0); got.Language != LangLong {
		t.Errorf("Map(BIGINT) language = %s, want Long", got.Language)
	}
}

func TestMapTemporalCodesToDate(t *testing.T) {
	tests := []struct {
		code    Code
		storage string
	}{
		{Date, "date"},
		{Time, "time"},
		{Timestamp, "timestamp"},
		{TimestampTZ, "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			got := Map(tt.code, 0, 0)
			if got.Language != LangDate {
				t.Errorf("language = %s, want Date", got.Language)
			}
			if got.Storage != tt.storage {
				t.Errorf("storage = %q, want %q", got.Storage, tt.storage)
			}
		})
	}
}

func TestMapCharacterTypes(t *testing.T) {
	if got := Map(Varchar, 50, 0); got != (Mapping{LangString, "varchar(50)"}) {
		t.Errorf("varchar(50) = %+v", got)
	}
	if got := Map(NChar, 3, 0); got != (Mapping{LangString, "char(3)"}) {
		t.Errorf("nchar(3) = %+v", got)
	}
	if got := Map(Varchar, 0, 0); got.Storage != "varchar" {
		t.Errorf("unsized varchar storage = %q", got.Storage)
	}
	if got := Map(Clob, 0, 0); got != (Mapping{LangString, "clob"}) {
		t.Errorf("clob = %+v", got)
	}
}

func TestMapIsTotal(t *testing.T) {
	valid := make(map[LanguageType]bool, len(AllLanguageTypes))
	for _, l := range AllLanguageTypes {
		valid[l] = true
	}

	// Every declared code plus a few out-of-range values.
	codes := []Code{Code(-1), Code(999)}
	for c := range codeNames {
		codes = append(codes, c)
	}

	for _, c := range codes {
		for _, ps := range [][2]int{{0, 0}, {7, 0}, {8, 0}, {10, 2}, {38, -127}} {
			got := Map(c, ps[0], ps[1])
			if !valid[got.Language] {
				t.Errorf("Map(%s, %d, %d) returned undefined language %q", c, ps[0], ps[1], got.Language)
			}
			if got.Storage == "" {
				t.Errorf("Map(%s, %d, %d) returned empty storage type", c, ps[0], ps[1])
			}
		}
	}
}

func TestUnknownCodeFallsBackToString(t *testing.T) {
	got := Map(Other, 0, 0)
	if got != (Mapping{LangString, "varchar"}) {
		t.Errorf("expected String/varchar fallback, got %+v", got)
	}
}

func TestCodeString(t *testing.T) {
	if Numeric.String() != "NUMERIC" {
		t.Errorf("Numeric.String() = %q", Numeric.String())
	}
	if Code(999).String() != "Code(999)" {
		t.Errorf("Code(999).String() = %q", Code(999).String())
	}
}
