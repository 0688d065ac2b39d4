package warehouse

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func newMockWarehouse(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")
	return newPostgresFromDB(db, "analytics", "public", zap.NewNop()), mock
}

func TestListTables(t *testing.T) {
	wh, mock := newMockWarehouse(t)

	mock.ExpectQuery("SELECT table_name").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("customers").
			AddRow("orders"))

	tables, err := wh.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	if tables[0].Name != "customers" || tables[0].Database != "analytics" || tables[0].Schema != "public" {
		t.Errorf("unexpected table info: %+v", tables[0])
	}
}

func TestDescribeTableSampleFailureIsNotFatal(t *testing.T) {
	wh, mock := newMockWarehouse(t)

	comment := "customer email address"
	mock.ExpectQuery("SELECT c.column_name").
		WithArgs("public", "customers").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "nullable", "column_default", "comment"}).
			AddRow("id", "integer", false, nil, nil).
			AddRow("email", "text", true, nil, comment))

	mock.ExpectQuery(`SELECT \* FROM "public"\."customers" LIMIT 5`).
		WillReturnError(errors.New("permission denied"))

	schema, err := wh.DescribeTable(context.Background(), "customers")
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}
	if len(schema.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(schema.Columns))
	}
	if schema.Columns[1].Comment == nil || *schema.Columns[1].Comment != comment {
		t.Errorf("comment not carried through: %+v", schema.Columns[1])
	}
	if len(schema.SampleRows) != 0 {
		t.Errorf("sample rows should be empty after a failed fetch, got %v", schema.SampleRows)
	}
}

func TestRunQuery(t *testing.T) {
	wh, mock := newMockWarehouse(t)

	mock.ExpectQuery("SELECT region, total FROM t LIMIT 2").
		WillReturnRows(sqlmock.NewRows([]string{"region", "total"}).
			AddRow("NA", 100).
			AddRow("EU", 250))

	res, err := wh.RunQuery(context.Background(), "SELECT region, total FROM t LIMIT 2")
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "region" {
		t.Errorf("columns = %v", res.Columns)
	}
	if len(res.Data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Data))
	}
	if res.Data[0]["region"] != "NA" {
		t.Errorf("row 0 = %v", res.Data[0])
	}
}
