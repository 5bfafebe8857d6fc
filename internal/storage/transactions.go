package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"
)

const transactionColumns = `
	t.id, t.transaction_type, t.amount, t.gst_amount, t.tds_amount, t.description,
	t.reference_number, t.transaction_date, t.category_id, t.vendor_id, t.project_id,
	t.invoice_url, t.created_by, t.created_at, t.updated_at,
	c.name, c.color_code, c.is_gst_applicable,
	v.name, v.category,
	p.name`

const transactionFrom = `
	FROM transactions t
	LEFT JOIN transaction_categories c ON c.id = t.category_id
	LEFT JOIN vendors v ON v.id = t.vendor_id
	LEFT JOIN projects p ON p.id = t.project_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                                       core.Transaction
		typ, amount, gst, tds, day               string
		createdAt, updatedAt                     string
		categoryID, vendorID, projectID          sql.NullString
		catName, catColor, vendorName, vendorCat sql.NullString
		projectName                              sql.NullString
		catGST                                   sql.NullBool
	)
	err := row.Scan(
		&tx.ID, &typ, &amount, &gst, &tds, &tx.Description,
		&tx.ReferenceNumber, &day, &categoryID, &vendorID, &projectID,
		&tx.InvoiceURL, &tx.CreatedBy, &createdAt, &updatedAt,
		&catName, &catColor, &catGST,
		&vendorName, &vendorCat,
		&projectName,
	)
	if err != nil {
		return tx, err
	}

	tx.Type = core.TransactionType(typ)
	tx.Amount = core.ParseAmount(amount)
	tx.GSTAmount = core.ParseAmount(gst)
	tx.TDSAmount = core.ParseAmount(tds)
	tx.TransactionDate = parseDay(day)
	tx.CategoryID = categoryID.String
	tx.VendorID = vendorID.String
	tx.ProjectID = projectID.String
	tx.CreatedAt = parseTimestamp(createdAt)
	tx.UpdatedAt = parseTimestamp(updatedAt)

	if categoryID.Valid && catName.Valid {
		tx.Category = &core.CategoryRef{
			ID:              categoryID.String,
			Name:            catName.String,
			ColorCode:       catColor.String,
			IsGSTApplicable: catGST.Bool,
		}
	}
	if vendorID.Valid && vendorName.Valid {
		tx.Vendor = &core.VendorRef{ID: vendorID.String, Name: vendorName.String, Category: vendorCat.String}
	}
	if projectID.Valid && projectName.Valid {
		tx.Project = &core.ProjectRef{ID: projectID.String, Name: projectName.String}
	}
	return tx, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// ListTransactions returns the transactions matching f, newest transaction date first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var w where
	if f.StartDate != nil {
		w.add("t.transaction_date >= ?", f.StartDate.String())
	}
	if f.EndDate != nil {
		w.add("t.transaction_date <= ?", f.EndDate.String())
	}
	if f.Type != "" {
		w.add("t.transaction_type = ?", string(f.Type))
	}
	if f.CategoryID != "" {
		w.add("t.category_id = ?", f.CategoryID)
	}
	if f.VendorID != "" {
		w.add("t.vendor_id = ?", f.VendorID)
	}
	if f.ProjectID != "" {
		w.add("t.project_id = ?", f.ProjectID)
	}

	query := "SELECT" + transactionColumns + transactionFrom + w.String() +
		" ORDER BY t.transaction_date DESC, t.created_at DESC"
	txs, err := r.queryTransactions(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// RecentTransactions returns the most recently recorded transactions.
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	query := "SELECT" + transactionColumns + transactionFrom + " ORDER BY t.created_at DESC LIMIT ?"
	txs, err := r.queryTransactions(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, "SELECT"+transactionColumns+transactionFrom+" WHERE t.id = ?", id)
	tx, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return tx, nil
}

// CreateTransaction inserts tx and returns it with its references resolved.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	now := r.timestamp()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, transaction_type, amount, gst_amount, tds_amount, description,
			reference_number, transaction_date, category_id, vendor_id, project_id,
			invoice_url, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.Type), tx.Amount.String(), tx.GSTAmount.String(), tx.TDSAmount.String(), tx.Description,
		tx.ReferenceNumber, tx.TransactionDate.String(), nullable(tx.CategoryID), nullable(tx.VendorID), nullable(tx.ProjectID),
		tx.InvoiceURL, tx.CreatedBy, now, now,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return r.GetTransaction(ctx, tx.ID)
}

// UpdateTransaction overwrites the mutable columns of tx.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			transaction_type = ?, amount = ?, gst_amount = ?, tds_amount = ?, description = ?,
			reference_number = ?, transaction_date = ?, category_id = ?, vendor_id = ?, project_id = ?,
			invoice_url = ?, updated_at = ?
		WHERE id = ?`,
		string(tx.Type), tx.Amount.String(), tx.GSTAmount.String(), tx.TDSAmount.String(), tx.Description,
		tx.ReferenceNumber, tx.TransactionDate.String(), nullable(tx.CategoryID), nullable(tx.VendorID), nullable(tx.ProjectID),
		tx.InvoiceURL, r.timestamp(), tx.ID,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := requireAffected(res, "transaction", tx.ID); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, tx.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res, "transaction", id)
}
