package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/trade-journal/internal/models"
)

// UpsertTradeMetadata stores the rule checks and model assignment of a
// trade, replacing any previous annotation.
func (db *DB) UpsertTradeMetadata(ctx context.Context, md *models.TradeMetadata) error {
	checks := md.RuleChecks
	if checks == nil {
		checks = map[string]bool{}
	}
	ruleChecks, err := json.Marshal(checks)
	if err != nil {
		return fmt.Errorf("failed to encode rule checks: %w", err)
	}

	query := `
		INSERT INTO trade_metadata (
			trade_id, rule_checks, model, planned_r_multiple, realized_r_multiple, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (trade_id) DO UPDATE SET
			rule_checks = EXCLUDED.rule_checks,
			model = EXCLUDED.model,
			planned_r_multiple = EXCLUDED.planned_r_multiple,
			realized_r_multiple = EXCLUDED.realized_r_multiple,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx, query,
		md.TradeID, string(ruleChecks), nullString(md.Model),
		nullDecimal(md.PlannedRMultiple), nullDecimal(md.RealizedRMultiple), now,
	)
	if isForeignKeyViolation(err) {
		return ErrTradeNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to upsert trade metadata: %w", err)
	}
	md.UpdatedAt = now
	return nil
}

// GetTradeMetadata returns a trade's annotation. A trade that was never
// annotated yields empty metadata rather than an error.
func (db *DB) GetTradeMetadata(ctx context.Context, tradeID string) (*models.TradeMetadata, error) {
	query := `
		SELECT trade_id, rule_checks, model, planned_r_multiple, realized_r_multiple, updated_at
		FROM trade_metadata
		WHERE trade_id = $1
	`
	md, err := scanTradeMetadata(db.conn.QueryRowContext(ctx, query, tradeID))
	if errors.Is(err, sql.ErrNoRows) {
		return &models.TradeMetadata{TradeID: tradeID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade metadata: %w", err)
	}
	return md, nil
}

// ListTradeMetadata returns all annotations keyed by trade id
func (db *DB) ListTradeMetadata(ctx context.Context) (map[string]models.TradeMetadata, error) {
	query := `
		SELECT trade_id, rule_checks, model, planned_r_multiple, realized_r_multiple, updated_at
		FROM trade_metadata
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade metadata: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.TradeMetadata)
	for rows.Next() {
		md, err := scanTradeMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade metadata: %w", err)
		}
		out[md.TradeID] = *md
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trade metadata: %w", err)
	}
	return out, nil
}

func scanTradeMetadata(row rowScanner) (*models.TradeMetadata, error) {
	var md models.TradeMetadata
	var ruleChecks []byte
	var model sql.NullString
	var plannedR, realizedR decimal.NullDecimal

	if err := row.Scan(&md.TradeID, &ruleChecks, &model, &plannedR, &realizedR, &md.UpdatedAt); err != nil {
		return nil, err
	}
	if len(ruleChecks) > 0 {
		if err := json.Unmarshal(ruleChecks, &md.RuleChecks); err != nil {
			return nil, fmt.Errorf("failed to decode rule checks: %w", err)
		}
	}
	md.Model = model.String
	md.PlannedRMultiple = decimalPtr(plannedR)
	md.RealizedRMultiple = decimalPtr(realizedR)
	return &md, nil
}
