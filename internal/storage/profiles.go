package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) GetProfile(ctx context.Context, id string) (core.UserProfile, error) {
	var (
		p         core.UserProfile
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, company_name, phone, created_at
		FROM user_profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CompanyName, &p.Phone, &createdAt)
	if err != nil {
		return core.UserProfile{}, notFound(err, "profile", id)
	}
	p.CreatedAt = parseTimestamp(createdAt)
	return p, nil
}

func (r *SQLiteRepository) CreateProfile(ctx context.Context, p core.UserProfile) (core.UserProfile, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (id, email, full_name, role, company_name, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.FullName, p.Role, p.CompanyName, p.Phone, r.timestamp(),
	)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("insert profile: %w", err)
	}
	return r.GetProfile(ctx, p.ID)
}

func (r *SQLiteRepository) SaveInsight(ctx context.Context, in core.Insight) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ai_insights (id, user_id, kind, query, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, string(in.Kind), in.Query, in.Response, in.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

// ListInsights returns a user's most recent insights, newest first.
func (r *SQLiteRepository) ListInsights(ctx context.Context, userID string, limit int) ([]core.Insight, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, query, response, created_at
		FROM ai_insights WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	insights := []core.Insight{}
	for rows.Next() {
		var (
			in              core.Insight
			kind, createdAt string
		)
		if err := rows.Scan(&in.ID, &in.UserID, &kind, &in.Query, &in.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		in.Kind = core.InsightKind(kind)
		in.CreatedAt = parseTimestamp(createdAt)
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

// CreateCategory registers a transaction category.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.CategoryRef) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transaction_categories (id, name, color_code, is_gst_applicable, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.ColorCode, c.IsGSTApplicable, r.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.CategoryRef, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color_code, is_gst_applicable FROM transaction_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.CategoryRef{}
	for rows.Next() {
		var c core.CategoryRef
		if err := rows.Scan(&c.ID, &c.Name, &c.ColorCode, &c.IsGSTApplicable); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) CreateVendor(ctx context.Context, v core.VendorRef) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO vendors (id, name, category, created_at) VALUES (?, ?, ?, ?)",
		v.ID, v.Name, v.Category, r.timestamp())
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.ProjectRef) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)",
		p.ID, p.Name, r.timestamp())
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}
