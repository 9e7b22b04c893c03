// Package sqlite is the default storage backend: ledger directory, model
// persistence, receipt log, count reports and stock snapshots in one file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

const timeLayout = time.RFC3339Nano

var schema = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS models (
		code       TEXT PRIMARY KEY,
		price      TEXT NOT NULL DEFAULT '0',
		updated_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS model_stock (
		model_code    TEXT NOT NULL,
		location_code TEXT NOT NULL,
		quantity      INTEGER NOT NULL CHECK(quantity >= 0),
		PRIMARY KEY (model_code, location_code),
		FOREIGN KEY (model_code) REFERENCES models(code) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS receipts (
		id               TEXT PRIMARY KEY,
		kind             TEXT NOT NULL CHECK(kind IN ('STOCK_IN','STOCK_OUT')),
		source           TEXT NOT NULL,
		destination      TEXT NOT NULL,
		actor            TEXT NOT NULL,
		total_quantity   INTEGER NOT NULL,
		committed_at     TEXT NOT NULL,
		body             TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS receipt_lines (
		receipt_id TEXT NOT NULL,
		line_no    INTEGER NOT NULL,
		model_code TEXT NOT NULL,
		quantity   INTEGER NOT NULL,
		PRIMARY KEY (receipt_id, line_no),
		FOREIGN KEY (receipt_id) REFERENCES receipts(id)
	);`,
	`CREATE TABLE IF NOT EXISTS count_reports (
		session_id TEXT PRIMARY KEY,
		location   TEXT NOT NULL,
		type       TEXT NOT NULL,
		started_at TEXT NOT NULL,
		total      INTEGER NOT NULL,
		matches    INTEGER NOT NULL,
		mismatches INTEGER NOT NULL,
		uncounted  INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS count_results (
		session_id   TEXT NOT NULL,
		model_code   TEXT NOT NULL,
		system_qty   INTEGER NOT NULL,
		physical_qty INTEGER NOT NULL,
		counted      INTEGER NOT NULL,
		diff         INTEGER NOT NULL,
		PRIMARY KEY (session_id, model_code),
		FOREIGN KEY (session_id) REFERENCES count_reports(session_id)
	);`,
	`CREATE TABLE IF NOT EXISTS stock_snapshots (
		location   TEXT NOT NULL,
		taken_at   TEXT NOT NULL,
		model_code TEXT NOT NULL,
		quantity   INTEGER NOT NULL,
		PRIMARY KEY (location, taken_at, model_code)
	);`,
}

// Repository implements the storage collaborators on top of SQLite.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database file and applies the schema.
func Open(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection keeps transactions serialized.
	db.SetMaxOpenConns(1)

	r := &Repository{db: db}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit()
}

// UpsertLocation creates or renames a location.
func (r *Repository) UpsertLocation(ctx context.Context, loc models.Location) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (code, name) VALUES (?, ?)
		 ON CONFLICT(code) DO UPDATE SET name = excluded.name`, loc.Code, loc.Name)
	if err != nil {
		return fmt.Errorf("upsert location %s: %w", loc.Code, err)
	}
	return nil
}

// ListLocations returns every location ordered by code.
func (r *Repository) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name FROM locations ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var loc models.Location
		if err := rows.Scan(&loc.Code, &loc.Name); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// ListModels returns every model with its per-location stock.
func (r *Repository) ListModels(ctx context.Context) ([]models.Model, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, price FROM models ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}

	var (
		items []models.Model
		index = map[string]int{}
	)
	for rows.Next() {
		var code, price string
		if err := rows.Scan(&code, &price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan model: %w", err)
		}
		parsed, err := decimal.NewFromString(price)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("model %s has invalid price %q: %w", code, price, err)
		}
		index[code] = len(items)
		items = append(items, models.Model{Code: code, Price: parsed, Stock: map[string]int{}})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	stockRows, err := r.db.QueryContext(ctx, `SELECT model_code, location_code, quantity FROM model_stock`)
	if err != nil {
		return nil, fmt.Errorf("query model stock: %w", err)
	}
	defer stockRows.Close()

	for stockRows.Next() {
		var (
			code, location string
			qty            int
		)
		if err := stockRows.Scan(&code, &location, &qty); err != nil {
			return nil, fmt.Errorf("scan model stock: %w", err)
		}
		if i, ok := index[code]; ok {
			items[i].Stock[location] = qty
		}
	}
	return items, stockRows.Err()
}

// PersistModel replaces the stored price and stock rows of one model.
func (r *Repository) PersistModel(ctx context.Context, m models.Model) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persist %s: %w", m.Code, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO models (code, price, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`,
		m.Code, m.Price.String(), time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("upsert model %s: %w", m.Code, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM model_stock WHERE model_code = ?`, m.Code); err != nil {
		return fmt.Errorf("clear stock of %s: %w", m.Code, err)
	}
	for _, location := range models.SortedCodes(m.Stock) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_stock (model_code, location_code, quantity) VALUES (?, ?, ?)`,
			m.Code, location, m.Stock[location]); err != nil {
			return fmt.Errorf("insert stock of %s at %s: %w", m.Code, location, err)
		}
	}
	return tx.Commit()
}

// AppendReceipt inserts a receipt and its lines. Re-appending a known id is a no-op.
func (r *Repository) AppendReceipt(ctx context.Context, receipt models.Receipt) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append receipt: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO receipts (id, kind, source, destination, actor, total_quantity, committed_at, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		receipt.ID, string(receipt.Kind), receipt.Source, receipt.Destination, receipt.Actor,
		receipt.TotalQuantity, receipt.CommittedAt.UTC().Format(timeLayout), receipt.Text())
	if err != nil {
		return fmt.Errorf("insert receipt %s: %w", receipt.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	for i, line := range receipt.Lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO receipt_lines (receipt_id, line_no, model_code, quantity) VALUES (?, ?, ?, ?)`,
			receipt.ID, i+1, line.ModelCode, line.Quantity); err != nil {
			return fmt.Errorf("insert receipt line %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// SaveCountReport inserts a finalized count report with its rows.
func (r *Repository) SaveCountReport(ctx context.Context, report models.CountReport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save count report: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO count_reports (session_id, location, type, started_at, total, matches, mismatches, uncounted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(session_id) DO NOTHING`,
		report.SessionID, report.Location, string(report.Type), report.StartedAt.UTC().Format(timeLayout),
		report.Total, report.Matches, report.Mismatches, report.Uncounted)
	if err != nil {
		return fmt.Errorf("insert count report %s: %w", report.SessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	for _, result := range report.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO count_results (session_id, model_code, system_qty, physical_qty, counted, diff)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			report.SessionID, result.ModelCode, result.SystemQty, result.PhysicalQty, result.Counted, result.Diff); err != nil {
			return fmt.Errorf("insert count result %s: %w", result.ModelCode, err)
		}
	}
	return tx.Commit()
}

// SaveStockSnapshot stores one row per model for the snapshot.
func (r *Repository) SaveStockSnapshot(ctx context.Context, snapshot models.StockSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	takenAt := snapshot.TakenAt.UTC().Format(timeLayout)
	for _, code := range models.SortedCodes(snapshot.Quantities) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stock_snapshots (location, taken_at, model_code, quantity) VALUES (?, ?, ?, ?)`,
			snapshot.Location, takenAt, code, snapshot.Quantities[code]); err != nil {
			return fmt.Errorf("insert snapshot row %s: %w", code, err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (r *Repository) Close(context.Context) error {
	return r.db.Close()
}
