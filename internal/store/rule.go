package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const ruleColumns = `id, tenant_id, from_jid, to_jid, from_display_name, to_display_name, timestamp`

// CreateRule stores r, assigning an id and timestamp when unset. A rule whose
// endpoints match an existing rule of the same tenant in either direction is
// rejected with ErrDuplicateRule.
func (db *DB) CreateRule(ctx context.Context, r *ForwardingRule) error {
	if r.TenantID == "" || r.FromJID == "" || r.ToJID == "" || r.FromJID == r.ToJID {
		return ErrInvalidRule
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
	lo, hi := r.FromJID, r.ToJID
	if hi < lo {
		lo, hi = hi, lo
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO forwarding_rule (`+ruleColumns+`, pair_lo, pair_hi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, pair_lo, pair_hi) DO NOTHING`,
		r.ID, r.TenantID, r.FromJID, r.ToJID, r.FromDisplayName, r.ToDisplayName, r.Timestamp, lo, hi)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicateRule
	}
	return nil
}

// ListRules returns a tenant's rules, newest first.
func (db *DB) ListRules(ctx context.Context, tenantID string) ([]ForwardingRule, error) {
	return db.queryRules(ctx, `
		SELECT `+ruleColumns+` FROM forwarding_rule
		WHERE tenant_id = ?
		ORDER BY timestamp DESC`, tenantID)
}

// RulesFrom returns the tenant's rules whose source is fromJID.
func (db *DB) RulesFrom(ctx context.Context, tenantID, fromJID string) ([]ForwardingRule, error) {
	return db.queryRules(ctx, `
		SELECT `+ruleColumns+` FROM forwarding_rule
		WHERE tenant_id = ? AND from_jid = ?
		ORDER BY timestamp`, tenantID, fromJID)
}

// GetRule returns a rule by id, or nil if absent. An empty tenantID matches any tenant.
func (db *DB) GetRule(ctx context.Context, tenantID, id string) (*ForwardingRule, error) {
	var r ForwardingRule
	err := db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM forwarding_rule
		WHERE id = ? AND (? = '' OR tenant_id = ?)`, id, tenantID, tenantID).
		Scan(&r.ID, &r.TenantID, &r.FromJID, &r.ToJID, &r.FromDisplayName, &r.ToDisplayName, &r.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRule removes a rule by id. An empty tenantID matches any tenant.
func (db *DB) DeleteRule(ctx context.Context, tenantID, id string) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM forwarding_rule
		WHERE id = ? AND (? = '' OR tenant_id = ?)`, id, tenantID, tenantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) queryRules(ctx context.Context, query string, args ...any) ([]ForwardingRule, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rules []ForwardingRule
	for rows.Next() {
		var r ForwardingRule
		if err := rows.Scan(&r.ID, &r.TenantID, &r.FromJID, &r.ToJID, &r.FromDisplayName, &r.ToDisplayName, &r.Timestamp); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
