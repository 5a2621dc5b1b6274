package core

import "database/sql"

// HostConfig holds configuration for connecting to a host query engine.
type HostConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
	Params   map[string]any
}

// Column describes one output column of a query.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Schema is the ordered output shape of a query.
type Schema struct {
	Columns []Column
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Types returns the column types in order.
func (s *Schema) Types() []string {
	if s == nil {
		return nil
	}
	types := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		types[i] = c.Type
	}
	return types
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
