package orm

// Table provides table-level metadata
type Table struct {
	Name        string   `json:"name"`
	PrimaryKeys []string `json:"primary_keys"`
	Schema      string   `json:"schema,omitempty"`
}

// FullName returns the full table name including schema if set
func (t Table) FullName() string {
	if t.Schema != "" {
		return t.Schema + "." + t.Name
	}
	return t.Name
}

// Qualify prefixes each column with the table name.
func (t Table) Qualify(columns ...string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = t.FullName() + "." + c
	}
	return out
}

// HasPrimaryKey checks if a column is a primary key
func (t Table) HasPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKeys {
		if pk == column {
			return true
		}
	}
	return false
}
