// Package access resolves role-based data access policy for generated
// queries: which columns are masked, which tables are off limits, and which
// row-level filters apply. The policy table is fixed; roles are labels chosen
// at query time, not authenticated principals.
package access

import "strings"

// Role is one of the three supported policy selectors.
type Role string

const (
	RoleAnalyst      Role = "analyst"
	RoleDataEngineer Role = "data_engineer"
	RoleAdmin        Role = "admin"
)

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAnalyst, RoleDataEngineer, RoleAdmin:
		return true
	}
	return false
}

// sensitiveColumns are masked for analysts wherever they appear.
var sensitiveColumns = map[string]bool{
	"email":        true,
	"phone_number": true,
	"phone":        true,
	"ssn":          true,
}

// Decision describes the policy applied to one query.
type Decision struct {
	Role             string   `json:"role"`
	MaskedColumns    []string `json:"maskedColumns"`
	RestrictedTables []string `json:"restrictedTables"`
	RowFilters       []string `json:"rowFilters"`
}

// Resolve looks up the policy for a role against the tables and columns the
// generation step reported. Pure lookup, no state.
func Resolve(role Role, tablesUsed, columnsUsed []string) Decision {
	d := Decision{
		Role:             strings.ToUpper(string(role)),
		MaskedColumns:    []string{},
		RestrictedTables: []string{},
		RowFilters:       []string{},
	}

	switch role {
	case RoleAnalyst:
		for _, c := range columnsUsed {
			if sensitiveColumns[strings.ToLower(c)] {
				d.MaskedColumns = append(d.MaskedColumns, c)
			}
		}
		// Restricted regardless of whether the query touches them.
		d.RestrictedTables = append(d.RestrictedTables, "hr.salaries", "finance.expenses")
		d.RowFilters = append(d.RowFilters, "region IN ('NA', 'US', 'CA')")
	case RoleDataEngineer:
		d.RowFilters = append(d.RowFilters, "No row filters applied")
	case RoleAdmin:
		// Full access.
	}

	return d
}
