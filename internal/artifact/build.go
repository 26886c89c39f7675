package artifact

import (
	"github.com/reloquent/schemair/internal/dialect"
	"github.com/reloquent/schemair/internal/discovery"
	"github.com/reloquent/schemair/internal/naming"
	"github.com/reloquent/schemair/internal/schema"
	"github.com/reloquent/schemair/internal/typemap"
)

// Build assembles the artifact for a described table. Column order follows
// the descriptor. Primary-key columns come from pk only when its status is
// PKFound.
func Build(desc *discovery.TableDescriptor, pk discovery.PrimaryKeyResult, policy *naming.Policy, d dialect.Dialect) *schema.Table {
	t := &schema.Table{
		Name:        desc.Name,
		SchemaOwner: desc.Schema,
		Dialect:     d.Name(),
		ServerNow:   d.ServerNow(),
		Columns:     make([]schema.Column, 0, len(desc.Columns)),
	}
	if pk.Status == discovery.PKFound {
		t.PrimaryKeyColumns = append([]string(nil), pk.Columns...)
	}

	for _, c := range desc.Columns {
		m := typemap.Map(c.TypeCode, c.Precision, c.Scale)
		col := schema.Column{
			Name:          c.Name,
			LanguageType:  m.Language,
			StorageType:   m.Storage,
			NotNull:       !c.Nullable,
			PrimaryKey:    pk.Status == discovery.PKFound && pk.Contains(c.Name),
			AutoIncrement: c.AutoIncrement,
		}

		dir := policy.Classify(c.Name)
		// The server assigns auto-increment values; a timestamp default
		// on insert would contradict that.
		if col.AutoIncrement && dir.Insert == naming.ServerDefault {
			dir.Insert = naming.Unset
		}
		col.InsertDirective = dir.Insert
		col.UpdateDirective = dir.Update

		t.Columns = append(t.Columns, col)
	}
	return t
}
