package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertProfile inserts or replaces a tenant profile in one statement.
func (db *DB) UpsertProfile(ctx context.Context, p *TenantProfile) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO tenant_profile (tenant_id, name, number, avatar, is_valid, is_logged_in, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			name = excluded.name,
			number = excluded.number,
			avatar = excluded.avatar,
			is_valid = excluded.is_valid,
			is_logged_in = excluded.is_logged_in,
			updated_at = excluded.updated_at`,
		p.TenantID, p.Name, p.Number, p.Avatar, p.IsValid, p.IsLoggedIn, now)
	return err
}

// SetLoggedIn flips is_logged_in on an existing profile. Unknown tenants
// are left without a row.
func (db *DB) SetLoggedIn(ctx context.Context, tenantID string, loggedIn bool) error {
	_, err := db.ExecContext(ctx, `
		UPDATE tenant_profile SET is_logged_in = ?, updated_at = ?
		WHERE tenant_id = ?`,
		loggedIn, time.Now().UnixMilli(), tenantID)
	return err
}

// InvalidateProfile marks an existing tenant's credentials as rejected.
// Unknown tenants are left without a row.
func (db *DB) InvalidateProfile(ctx context.Context, tenantID string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE tenant_profile SET is_valid = 0, is_logged_in = 0, updated_at = ?
		WHERE tenant_id = ?`,
		time.Now().UnixMilli(), tenantID)
	return err
}

// GetProfile returns a tenant profile, or nil if the tenant is unknown.
func (db *DB) GetProfile(ctx context.Context, tenantID string) (*TenantProfile, error) {
	var p TenantProfile
	err := db.QueryRowContext(ctx, `
		SELECT tenant_id, name, number, avatar, is_valid, is_logged_in, updated_at
		FROM tenant_profile WHERE tenant_id = ?`, tenantID).
		Scan(&p.TenantID, &p.Name, &p.Number, &p.Avatar, &p.IsValid, &p.IsLoggedIn, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns every known tenant ordered by id.
func (db *DB) ListProfiles(ctx context.Context) ([]TenantProfile, error) {
	return db.queryProfiles(ctx, `
		SELECT tenant_id, name, number, avatar, is_valid, is_logged_in, updated_at
		FROM tenant_profile ORDER BY tenant_id`)
}

// ValidProfiles returns tenants whose credentials were last known good.
func (db *DB) ValidProfiles(ctx context.Context) ([]TenantProfile, error) {
	return db.queryProfiles(ctx, `
		SELECT tenant_id, name, number, avatar, is_valid, is_logged_in, updated_at
		FROM tenant_profile WHERE is_valid = 1 ORDER BY tenant_id`)
}

func (db *DB) queryProfiles(ctx context.Context, query string, args ...any) ([]TenantProfile, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var profiles []TenantProfile
	for rows.Next() {
		var p TenantProfile
		if err := rows.Scan(&p.TenantID, &p.Name, &p.Number, &p.Avatar, &p.IsValid, &p.IsLoggedIn, &p.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
