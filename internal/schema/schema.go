package schema

import (
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/typemap"
)

// Table is the dialect-neutral description of one table that the
// downstream generator consumes. Field order is the serialized order.
type Table struct {
	Name              string   `yaml:"name"`
	SchemaOwner       string   `yaml:"schemaOwner"`
	Dialect           string   `yaml:"dialect"`
	ServerNow         string   `yaml:"serverNow"`
	PrimaryKeyColumns []string `yaml:"primaryKeyColumns,omitempty"`
	Columns           []Column `yaml:"columns"`
}

// Column is one column of a Table.
type Column struct {
	Name            string               `yaml:"name"`
	LanguageType    typemap.LanguageType `yaml:"languageType"`
	StorageType     string               `yaml:"storageType"`
	NotNull         bool                 `yaml:"notNull"`
	PrimaryKey      bool                 `yaml:"primaryKey,omitempty"`
	AutoIncrement   bool                 `yaml:"autoIncrement,omitempty"`
	InsertDirective naming.Directive     `yaml:"insertDirective,omitempty"`
	UpdateDirective naming.Directive     `yaml:"updateDirective,omitempty"`
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
