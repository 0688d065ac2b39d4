// Package schemactx renders selected table metadata into the textual context
// blob consumed by the generation capability. The exact formatting is a
// contract the generation prompts were tuned against; change it deliberately,
// not incidentally.
package schemactx

import (
	"fmt"
	"strings"

	"github.com/sqlpilot/sqlpilot/internal/warehouse"
)

// EmptyContext is returned when no tables are selected.
const EmptyContext = "No tables selected. Please select a table to analyze."

// Build renders the selected table schemas as a numbered list of fully
// qualified names, columns and sample-row availability.
func Build(schemas []warehouse.TableSchema) string {
	if len(schemas) == 0 {
		return EmptyContext
	}

	var b strings.Builder
	b.WriteString("Available Warehouse Tables:\n")

	for i, table := range schemas {
		fmt.Fprintf(&b, "\n%d. %s.%s.%s\n", i+1, table.Database, table.Schema, table.TableName)
		b.WriteString("   Columns:\n")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "   - %s (%s", col.Name, col.Type)
			if col.Nullable {
				b.WriteString(", nullable")
			}
			b.WriteString(")")
			if col.Comment != nil && *col.Comment != "" {
				fmt.Fprintf(&b, " -- %s", *col.Comment)
			}
			b.WriteString("\n")
		}
		if len(table.SampleRows) > 0 {
			fmt.Fprintf(&b, "   Sample data available (%d rows)\n", len(table.SampleRows))
		}
	}

	return b.String()
}
