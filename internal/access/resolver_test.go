package access

import (
	"reflect"
	"testing"
)

func TestResolveAnalyst(t *testing.T) {
	d := Resolve(RoleAnalyst, []string{}, []string{"email", "ssn"})

	if d.Role != "ANALYST" {
		t.Errorf("role = %q, want ANALYST", d.Role)
	}
	if !reflect.DeepEqual(d.MaskedColumns, []string{"email", "ssn"}) {
		t.Errorf("maskedColumns = %v", d.MaskedColumns)
	}
	if !reflect.DeepEqual(d.RestrictedTables, []string{"hr.salaries", "finance.expenses"}) {
		t.Errorf("restrictedTables = %v", d.RestrictedTables)
	}
	if len(d.RowFilters) != 1 || d.RowFilters[0] != "region IN ('NA', 'US', 'CA')" {
		t.Errorf("rowFilters = %v", d.RowFilters)
	}
}

func TestResolveAnalystMasksAllSensitiveMatches(t *testing.T) {
	// The full sensitive-set intersection is masked, case-insensitively, and
	// the caller's original casing is preserved.
	d := Resolve(RoleAnalyst, []string{"analytics.customers"}, []string{"customer_name", "EMAIL", "phone", "segment"})
	if !reflect.DeepEqual(d.MaskedColumns, []string{"EMAIL", "phone"}) {
		t.Errorf("maskedColumns = %v", d.MaskedColumns)
	}
}

func TestResolveDataEngineer(t *testing.T) {
	d := Resolve(RoleDataEngineer, []string{"analytics.orders"}, []string{"email"})
	if len(d.MaskedColumns) != 0 || len(d.RestrictedTables) != 0 {
		t.Errorf("data_engineer should have no masking or restrictions: %+v", d)
	}
	if len(d.RowFilters) != 1 || d.RowFilters[0] != "No row filters applied" {
		t.Errorf("rowFilters = %v", d.RowFilters)
	}
}

func TestResolveAdmin(t *testing.T) {
	d := Resolve(RoleAdmin, []string{"hr.salaries"}, []string{"ssn", "email"})
	if len(d.MaskedColumns) != 0 || len(d.RestrictedTables) != 0 || len(d.RowFilters) != 0 {
		t.Errorf("admin should get all-empty lists: %+v", d)
	}
	if d.Role != "ADMIN" {
		t.Errorf("role = %q, want ADMIN", d.Role)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAnalyst, RoleDataEngineer, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Role("superuser").Valid() {
		t.Error("unknown role should be invalid")
	}
}
