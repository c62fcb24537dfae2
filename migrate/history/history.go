// Package history tracks applied migrations in a ledger table on the
// target database. The differ and the introspectors skip the table.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/schema"
)

// TableName is the ledger table.
const TableName = "_schemaforge_migrations"

// Record is one applied migration.
type Record struct {
	ID            int64
	Name          string
	AppliedAt     time.Time
	Checksum      string
	ExecutionTime time.Duration
	RolledBack    bool
	// Snapshot holds the serialized schema state before the migration
	// was applied, empty when none was captured.
	Snapshot string
}

// Manager reads and writes the ledger.
type Manager struct {
	db   *sql.DB
	conn connector.Connector
}

// NewManager creates a ledger manager for the connector's backend.
func NewManager(db *sql.DB, conn connector.Connector) *Manager {
	return &Manager{db: db, conn: conn}
}

// Init creates the ledger table when it does not exist yet.
func (m *Manager) Init(ctx context.Context) error {
	ddl, err := m.createTableSQL()
	if err != nil {
		return err
	}
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating ledger table: %w", err)
	}
	return nil
}

// Record appends an applied migration to the ledger.
func (m *Manager) Record(ctx context.Context, rec *Record) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (migration_name, applied_at, checksum, execution_time_ms, rolled_back, schema_snapshot) VALUES (%s, %s, %s, %s, %s, %s)",
		TableName,
		m.placeholder(1), m.placeholder(2), m.placeholder(3),
		m.placeholder(4), m.placeholder(5), m.placeholder(6))

	_, err := m.db.ExecContext(ctx, query,
		rec.Name, rec.AppliedAt, rec.Checksum,
		rec.ExecutionTime.Milliseconds(), rec.RolledBack, rec.Snapshot)
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", rec.Name, err)
	}
	return nil
}

// RecordWithSnapshot serializes the given schema into the record before
// appending it.
func (m *Manager) RecordWithSnapshot(ctx context.Context, rec *Record, s *schema.Schema) error {
	if s != nil {
		snapshot, err := SerializeSnapshot(s)
		if err != nil {
			return err
		}
		rec.Snapshot = snapshot
	}
	return m.Record(ctx, rec)
}

// All returns every ledger entry in application order.
func (m *Manager) All(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT id, migration_name, applied_at, checksum, execution_time_ms, rolled_back, schema_snapshot FROM %s ORDER BY applied_at ASC, id ASC",
		TableName)

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var executionMs int64
		var snapshot sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.AppliedAt, &rec.Checksum,
			&executionMs, &rec.RolledBack, &snapshot); err != nil {
			return nil, err
		}
		rec.ExecutionTime = time.Duration(executionMs) * time.Millisecond
		rec.Snapshot = snapshot.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// AppliedNames returns the names of applied, not rolled back migrations.
func (m *Manager) AppliedNames(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT migration_name FROM %s WHERE rolled_back = %s ORDER BY applied_at ASC, id ASC",
		TableName, m.boolLiteral(false))

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// Pending filters the available migration names down to those not yet in
// the ledger, preserving their order.
func (m *Manager) Pending(ctx context.Context, available []string) ([]string, error) {
	applied, err := m.AppliedNames(ctx)
	if err != nil {
		return nil, err
	}

	appliedSet := make(map[string]bool, len(applied))
	for _, name := range applied {
		appliedSet[name] = true
	}

	var pending []string
	for _, name := range available {
		if !appliedSet[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// MarkRolledBack flags a ledger entry as rolled back. The entry stays in
// the ledger so the rollback itself remains visible.
func (m *Manager) MarkRolledBack(ctx context.Context, name string) error {
	query := fmt.Sprintf("UPDATE %s SET rolled_back = %s WHERE migration_name = %s",
		TableName, m.boolLiteral(true), m.placeholder(1))
	_, err := m.db.ExecContext(ctx, query, name)
	return err
}

// Snapshot returns the schema snapshot stored for a migration, or nil when
// none was captured.
func (m *Manager) Snapshot(ctx context.Context, name string) (*schema.Schema, error) {
	query := fmt.Sprintf("SELECT schema_snapshot FROM %s WHERE migration_name = %s",
		TableName, m.placeholder(1))

	var snapshot sql.NullString
	err := m.db.QueryRowContext(ctx, query, name).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("migration %s is not in the ledger", name)
	}
	if err != nil {
		return nil, err
	}
	if !snapshot.Valid || snapshot.String == "" {
		return nil, nil
	}
	return DeserializeSnapshot(snapshot.String)
}

// Checksum hashes rendered migration SQL for drift detection.
func Checksum(migrationSQL string) string {
	sum := sha256.Sum256([]byte(migrationSQL))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) createTableSQL() (string, error) {
	switch m.conn.Flavour() {
	case connector.FlavourPostgres, connector.FlavourCockroach:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id SERIAL PRIMARY KEY,
    migration_name VARCHAR(255) NOT NULL UNIQUE,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    checksum VARCHAR(64) NOT NULL,
    execution_time_ms BIGINT,
    rolled_back BOOLEAN NOT NULL DEFAULT FALSE,
    schema_snapshot TEXT
)`, TableName), nil
	case connector.FlavourMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INT AUTO_INCREMENT PRIMARY KEY,
    migration_name VARCHAR(255) NOT NULL UNIQUE,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    checksum VARCHAR(64) NOT NULL,
    execution_time_ms BIGINT,
    rolled_back TINYINT(1) NOT NULL DEFAULT 0,
    schema_snapshot TEXT
)`, TableName), nil
	case connector.FlavourSQLite:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    migration_name TEXT NOT NULL UNIQUE,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    checksum TEXT NOT NULL,
    execution_time_ms INTEGER,
    rolled_back INTEGER NOT NULL DEFAULT 0,
    schema_snapshot TEXT
)`, TableName), nil
	case connector.FlavourSQLServer:
		return fmt.Sprintf(`IF OBJECT_ID('%s') IS NULL CREATE TABLE %s (
    id INT IDENTITY(1,1) PRIMARY KEY,
    migration_name NVARCHAR(255) NOT NULL UNIQUE,
    applied_at DATETIME2 NOT NULL DEFAULT GETDATE(),
    checksum NVARCHAR(64) NOT NULL,
    execution_time_ms BIGINT,
    rolled_back BIT NOT NULL DEFAULT 0,
    schema_snapshot NVARCHAR(MAX)
)`, TableName, TableName), nil
	default:
		return "", fmt.Errorf("no ledger DDL for %s", m.conn.Name())
	}
}

func (m *Manager) placeholder(n int) string {
	switch m.conn.Flavour() {
	case connector.FlavourPostgres, connector.FlavourCockroach:
		return fmt.Sprintf("$%d", n)
	case connector.FlavourSQLServer:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

func (m *Manager) boolLiteral(v bool) string {
	isPg := m.conn.Flavour() == connector.FlavourPostgres ||
		m.conn.Flavour() == connector.FlavourCockroach
	if isPg {
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	if v {
		return "1"
	}
	return "0"
}
