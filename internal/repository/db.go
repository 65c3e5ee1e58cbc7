// Package repository persists assembled invoices. The store speaks plain
// database/sql so batches can run against an embedded SQLite file locally
// and Postgres in shared deployments; the SQL sticks to the overlap.
package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/admjesusia/fiscaloliv/internal/common"
)

// Open connects to the invoice store and verifies the connection. Postgres
// DSNs go through pgx; anything else is treated as a SQLite location.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		driver = "pgx"
	}
	logger.Info("connecting to database", "driver", driver)

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil, common.NewAppError("DB_OPEN", "open database", common.ErrDatabase)
	}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		_ = db.Close()
		return nil, common.WrapError(err, "ping database")
	}
	return db, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS invoices (
	id            TEXT PRIMARY KEY,
	document_id   TEXT NOT NULL,
	fingerprint   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	issuer        TEXT NOT NULL DEFAULT '',
	number        TEXT NOT NULL DEFAULT '',
	series        TEXT NOT NULL DEFAULT '',
	issue_date    TEXT NOT NULL DEFAULT '',
	grand_total   TEXT NOT NULL DEFAULT '',
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	duplicate     BOOLEAN NOT NULL DEFAULT FALSE,
	payload       TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_invoices_fingerprint ON invoices (fingerprint);

CREATE TABLE IF NOT EXISTS invoice_items (
	invoice_id  TEXT NOT NULL,
	position    INTEGER NOT NULL,
	code        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	quantity    TEXT NOT NULL DEFAULT '',
	unit_price  TEXT NOT NULL DEFAULT '',
	subtotal    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (invoice_id, position)
);
`

// Migrate creates the store tables when missing. Statements are idempotent;
// running it on every startup is the intended use.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return common.WrapError(err, "migrate invoice store")
		}
	}
	return nil
}
