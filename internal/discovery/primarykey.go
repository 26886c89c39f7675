package discovery

// PKStatus is the outcome of a primary-key lookup.
type PKStatus int

const (
	PKNotFound PKStatus = iota
	PKFound
	PKLookupFailed
)

func (s PKStatus) String() string {
	switch s {
	case PKFound:
		return "found"
	case PKNotFound:
		return "not_found"
	case PKLookupFailed:
		return "lookup_failed"
	default:
		return "unknown"
	}
}

// PrimaryKeyResult keeps "the table has no primary key" distinct from
// "the lookup broke". Columns is empty unless Status is PKFound; Err is set
// only for PKLookupFailed.
type PrimaryKeyResult struct {
	Status  PKStatus
	Columns []string
	Err     error
}

// Contains reports whether column is part of the key.
func (r PrimaryKeyResult) Contains(column string) bool {
	for _, c := range r.Columns {
		if c == column {
			return true
		}
	}
	return false
}
