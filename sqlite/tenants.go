// Package sqlite provides a SQLite-backed implementation of the tenant
// existence oracle. The relational master-data store owns the tenant
// records; the engine only ever asks whether a tenant id is known.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// TenantDirectory answers tenant existence checks against a tenants table
// in a SQLite database.
type TenantDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTenantDirectory creates a tenant directory over an open database
// handle. The caller owns the handle's lifecycle.
func NewTenantDirectory(db *sql.DB, logger *zap.Logger) *TenantDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantDirectory{db: db, logger: logger}
}

// Init creates the tenants table if it does not exist.
func (d *TenantDirectory) Init(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS tenants (
			tenant_id  TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create tenants table: %w", err)
	}
	return nil
}

// TenantExists reports whether a tenant id is known.
func (d *TenantDirectory) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, "SELECT 1 FROM tenants WHERE tenant_id = ?", tenantID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up tenant %s: %w", tenantID, err)
	}
	return true, nil
}

// AddTenant registers a tenant. Used by operational tooling and tests; the
// master-data CRUD layer is the production writer of this table.
func (d *TenantDirectory) AddTenant(ctx context.Context, tenantID, name string) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO tenants (tenant_id, name) VALUES (?, ?)", tenantID, name)
	if err != nil {
		return fmt.Errorf("failed to add tenant %s: %w", tenantID, err)
	}
	d.logger.Info("registered tenant", zap.String("tenant_id", tenantID), zap.String("name", name))
	return nil
}
