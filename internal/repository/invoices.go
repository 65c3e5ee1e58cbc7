package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/admjesusia/fiscaloliv/internal/common"
	"github.com/admjesusia/fiscaloliv/internal/entity"
)

type InvoiceRepository interface {
	// SaveInvoice upserts one invoice and its items. Saving the same
	// invoice ID twice replaces the previous row.
	SaveInvoice(ctx context.Context, inv entity.Invoice, fp entity.Fingerprint) error
	// FindByFingerprint returns the ID of the invoice previously saved
	// with the fingerprint, or common.ErrNotFound.
	FindByFingerprint(ctx context.Context, fp entity.Fingerprint) (string, error)
	// ListInvoices returns all stored invoices ordered by document ID.
	ListInvoices(ctx context.Context) ([]entity.Invoice, error)
}

type invoiceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *sql.DB, logger *slog.Logger) InvoiceRepository {
	return &invoiceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *invoiceRepository) SaveInvoice(ctx context.Context, inv entity.Invoice, fp entity.Fingerprint) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return common.WrapError(err, "encode invoice")
	}
	var grand string
	if inv.Computed.GrandTotal.Valid {
		grand = inv.Computed.GrandTotal.Decimal.String()
	}
	issueDate := ""
	if !inv.IssueDate.IsZero() {
		issueDate = inv.IssueDate.Format("2006-01-02")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(err, "begin save invoice")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, inv.ID.String()); err != nil {
		return common.WrapError(err, "replace invoice")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID.String()); err != nil {
		return common.WrapError(err, "replace invoice items")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, document_id, fingerprint, status, issuer, number, series,
			issue_date, grand_total, confidence, duplicate, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inv.ID.String(), inv.DocumentID, string(fp), string(inv.Status),
		inv.Issuer.Value, inv.Number, inv.Series,
		issueDate, grand, inv.Confidence, inv.Duplicate, string(payload),
	)
	if err != nil {
		r.logger.Error("failed to save invoice", "invoice_id", inv.ID, "error", err)
		return common.WrapError(err, "save invoice")
	}

	for i, it := range inv.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_items (invoice_id, position, code, description, quantity, unit_price, subtotal, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			inv.ID.String(), i, it.Code, it.Description,
			it.Quantity.String(), it.UnitPrice.String(), it.Subtotal.String(), string(it.Status),
		)
		if err != nil {
			r.logger.Error("failed to save invoice item", "invoice_id", inv.ID, "position", i, "error", err)
			return common.WrapError(err, "save invoice item")
		}
	}
	return tx.Commit()
}

func (r *invoiceRepository) FindByFingerprint(ctx context.Context, fp entity.Fingerprint) (string, error) {
	if fp == "" {
		return "", common.NewAppError("FINGERPRINT_EMPTY", "invoice has no fingerprint", common.ErrNotFound)
	}
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM invoices WHERE fingerprint = $1 ORDER BY created_at LIMIT 1`,
		string(fp),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", common.WrapError(err, "find by fingerprint")
	}
	return id, nil
}

func (r *invoiceRepository) ListInvoices(ctx context.Context) ([]entity.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM invoices ORDER BY document_id, id`)
	if err != nil {
		return nil, common.WrapError(err, "list invoices")
	}
	defer rows.Close()

	var out []entity.Invoice
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, common.WrapError(err, "scan invoice")
		}
		var inv entity.Invoice
		if err := json.Unmarshal([]byte(payload), &inv); err != nil {
			return nil, common.WrapError(err, "decode invoice payload")
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
