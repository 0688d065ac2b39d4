// Package warehouse defines the data warehouse collaborator boundary: listing
// tables, describing their schemas, and executing finalized queries. The core
// treats the warehouse as an opaque external data source; implementations own
// connection details.
package warehouse

import (
	"context"
	"errors"
)

// ErrNotConnected is returned when an operation requires an active warehouse
// connection and none exists.
var ErrNotConnected = errors.New("warehouse: not connected")

// TableInfo is a catalog entry returned by ListTables.
type TableInfo struct {
	Name     string `json:"name"`
	Schema   string `json:"schema"`
	Database string `json:"database"`
	RowCount *int64 `json:"rowCount,omitempty"`
}

// ColumnInfo describes a single column of a table.
type ColumnInfo struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"defaultValue"`
	Comment      *string `json:"comment"`
}

// TableSchema is the full description of one table, optionally with a handful
// of sample rows for generation context.
type TableSchema struct {
	TableName  string           `json:"tableName"`
	Database   string           `json:"database"`
	Schema     string           `json:"schema"`
	Columns    []ColumnInfo     `json:"columns"`
	SampleRows []map[string]any `json:"sampleRows,omitempty"`
}

// QueryResult carries the rows of an executed statement.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Data    []map[string]any `json:"data"`
}

// Warehouse is the external data source contract. DescribeTable fetches up to
// SampleRowLimit sample rows best-effort: a failed sample fetch must not fail
// the describe.
type Warehouse interface {
	ListTables(ctx context.Context) ([]TableInfo, error)
	DescribeTable(ctx context.Context, tableName string) (*TableSchema, error)
	RunQuery(ctx context.Context, sql string) (*QueryResult, error)
	Close() error
}

// SampleRowLimit caps the sample rows attached to a described table.
const SampleRowLimit = 5
