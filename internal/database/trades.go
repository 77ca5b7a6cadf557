package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/trade-journal/internal/models"
)

const tradeColumns = `
	t.id, t.symbol, t.side, t.open_date, t.close_date, t.entry_time, t.exit_time,
	t.entry_price, t.exit_price, t.net_pnl, t.contracts_traded,
	t.planned_stop, t.planned_target, t.planned_r_multiple, t.realized_r_multiple,
	t.imported_at`

// CreateTrade inserts an imported trade
func (db *DB) CreateTrade(ctx context.Context, t *models.Trade) error {
	query := `
		INSERT INTO trades (
			id, symbol, side, open_date, close_date, entry_time, exit_time,
			entry_price, exit_price, net_pnl, contracts_traded,
			planned_stop, planned_target, planned_r_multiple, realized_r_multiple,
			imported_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`
	importedAt := t.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, query,
		t.ID, t.Symbol, t.Side, t.OpenDate,
		nullString(t.CloseDate), nullString(t.EntryTime), nullString(t.ExitTime),
		t.EntryPrice, t.ExitPrice, t.NetPnl, t.ContractsTraded,
		nullDecimal(t.PlannedStop), nullDecimal(t.PlannedTarget),
		nullDecimal(t.PlannedRMultiple), nullDecimal(t.RealizedRMultiple),
		importedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	t.ImportedAt = importedAt
	return nil
}

// TradeExists checks whether a trade with the given id was already imported
func (db *DB) TradeExists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trades WHERE id = $1)`
	var exists bool
	if err := db.conn.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check trade existence: %w", err)
	}
	return exists, nil
}

// GetTrade retrieves a trade by id
func (db *DB) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades t WHERE t.id = $1`

	t, err := scanTrade(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// ListTrades returns every trade ordered by open date
func (db *DB) ListTrades(ctx context.Context) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades t ORDER BY t.open_date, t.entry_time, t.id`
	return collectTrades(db.conn.QueryContext(ctx, query))
}

// ListTradesByModel returns the trades whose metadata assigns them to model
func (db *DB) ListTradesByModel(ctx context.Context, model string) ([]models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades t
		JOIN trade_metadata m ON m.trade_id = t.id
		WHERE m.model = $1
		ORDER BY t.open_date, t.entry_time, t.id
	`
	return collectTrades(db.conn.QueryContext(ctx, query, model))
}

// DeleteTrade removes a trade and its metadata
func (db *DB) DeleteTrade(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM trades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrTradeNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	var t models.Trade
	var closeDate, entryTime, exitTime sql.NullString
	var plannedStop, plannedTarget, plannedR, realizedR decimal.NullDecimal

	err := row.Scan(
		&t.ID, &t.Symbol, &t.Side, &t.OpenDate, &closeDate, &entryTime, &exitTime,
		&t.EntryPrice, &t.ExitPrice, &t.NetPnl, &t.ContractsTraded,
		&plannedStop, &plannedTarget, &plannedR, &realizedR,
		&t.ImportedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CloseDate = closeDate.String
	t.EntryTime = entryTime.String
	t.ExitTime = exitTime.String
	t.PlannedStop = decimalPtr(plannedStop)
	t.PlannedTarget = decimalPtr(plannedTarget)
	t.PlannedRMultiple = decimalPtr(plannedR)
	t.RealizedRMultiple = decimalPtr(realizedR)
	return &t, nil
}

func collectTrades(rows *sql.Rows, err error) ([]models.Trade, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}
	return trades, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
