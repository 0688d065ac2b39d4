package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Credentials identify a warehouse connection target.
type Credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Schema   string `json:"schema"`
	SSLMode  string `json:"sslMode"`
}

// Postgres implements Warehouse against a PostgreSQL-compatible warehouse.
type Postgres struct {
	db       *sqlx.DB
	database string
	schema   string
	logger   *zap.Logger
}

// Connect opens a warehouse connection and verifies it with a ping.
func Connect(ctx context.Context, creds Credentials, logger *zap.Logger) (*Postgres, error) {
	if creds.Port == 0 {
		creds.Port = 5432
	}
	if creds.Schema == "" {
		creds.Schema = "public"
	}
	if creds.SSLMode == "" {
		creds.SSLMode = "require"
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		creds.Host, creds.Port, creds.User, creds.Password, creds.Database, creds.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	logger.Info("Connected to warehouse",
		zap.String("host", creds.Host),
		zap.String("database", creds.Database),
		zap.String("schema", creds.Schema),
	)

	return &Postgres{db: db, database: creds.Database, schema: creds.Schema, logger: logger}, nil
}

// newPostgresFromDB wires an existing connection; used by tests.
func newPostgresFromDB(db *sqlx.DB, database, schema string, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, database: database, schema: schema, logger: logger}
}

// ListTables returns the tables of the connected schema.
func (p *Postgres) ListTables(ctx context.Context) ([]TableInfo, error) {
	rows, err := p.db.QueryxContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, p.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, TableInfo{Name: name, Schema: p.schema, Database: p.database})
	}
	return tables, rows.Err()
}

// DescribeTable returns column metadata plus up to SampleRowLimit sample
// rows. Sample fetch failures are logged and swallowed.
func (p *Postgres) DescribeTable(ctx context.Context, tableName string) (*TableSchema, error) {
	rows, err := p.db.QueryxContext(ctx, `
		SELECT c.column_name,
		       c.data_type,
		       c.is_nullable = 'YES',
		       c.column_default,
		       col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position)
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, p.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", tableName, err)
	}
	defer rows.Close()

	schema := &TableSchema{TableName: tableName, Database: p.database, Schema: p.schema}
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.DefaultValue, &col.Comment); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sampleSQL := fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d",
		pq.QuoteIdentifier(p.schema), pq.QuoteIdentifier(tableName), SampleRowLimit)
	if result, err := p.RunQuery(ctx, sampleSQL); err != nil {
		p.logger.Warn("Failed to fetch sample rows",
			zap.String("table", tableName),
			zap.Error(err),
		)
	} else {
		schema.SampleRows = result.Data
	}

	return schema, nil
}

// RunQuery executes a statement and materializes all rows.
func (p *Postgres) RunQuery(ctx context.Context, sql string) (*QueryResult, error) {
	rows, err := p.db.QueryxContext(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &QueryResult{Columns: cols, Data: []map[string]any{}}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result.Data = append(result.Data, row)
	}
	return result, rows.Err()
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
