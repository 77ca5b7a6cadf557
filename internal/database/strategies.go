package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/trade-journal/internal/models"
)

// UpsertStrategy creates or updates a strategy together with its rule
// groups in one transaction. Group and rule positions follow slice order.
func (db *DB) UpsertStrategy(ctx context.Context, s *models.Strategy) error {
	autoRules, err := json.Marshal(s.AutoRules)
	if err != nil {
		return fmt.Errorf("failed to encode auto rules: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO strategies (id, name, description, auto_rules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			auto_rules = EXCLUDED.auto_rules,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`
	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx, query,
		s.ID, s.Name, nullString(s.Description), string(autoRules), now,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert strategy: %w", err)
	}

	if err := replaceRuleGroups(ctx, tx, s.ID, s.RuleGroups); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceRuleGroups swaps the playbook of a strategy for groups
func (db *DB) ReplaceRuleGroups(ctx context.Context, strategyID string, groups []models.RuleGroup) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM strategies WHERE id = $1)`, strategyID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check strategy existence: %w", err)
	}
	if !exists {
		return ErrStrategyNotFound
	}

	if err := replaceRuleGroups(ctx, tx, strategyID, groups); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func replaceRuleGroups(ctx context.Context, tx *sql.Tx, strategyID string, groups []models.RuleGroup) error {
	// rules go with their groups via ON DELETE CASCADE
	if _, err := tx.ExecContext(ctx, `DELETE FROM rule_groups WHERE strategy_id = $1`, strategyID); err != nil {
		return fmt.Errorf("failed to delete existing rule groups: %w", err)
	}

	for gi := range groups {
		g := &groups[gi]
		g.Position = gi
		_, err := tx.ExecContext(ctx,
			`INSERT INTO rule_groups (strategy_id, id, title, position) VALUES ($1, $2, $3, $4)`,
			strategyID, g.ID, g.Title, g.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert rule group %s: %w", g.ID, err)
		}

		for ri := range g.Rules {
			r := &g.Rules[ri]
			r.Position = ri
			_, err := tx.ExecContext(ctx,
				`INSERT INTO rules (strategy_id, group_id, id, text, frequency, position) VALUES ($1, $2, $3, $4, $5, $6)`,
				strategyID, g.ID, r.ID, r.Text, nullString(r.Frequency), r.Position,
			)
			if err != nil {
				return fmt.Errorf("failed to insert rule %s: %w", r.ID, err)
			}
		}
	}
	return nil
}

// GetStrategy retrieves a strategy with its rule groups in display order
func (db *DB) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	query := `
		SELECT id, name, description, auto_rules, created_at, updated_at
		FROM strategies
		WHERE id = $1
	`
	s, err := scanStrategy(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStrategyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}

	groups, err := db.loadRuleGroups(ctx, `WHERE g.strategy_id = $1`, id)
	if err != nil {
		return nil, err
	}
	s.RuleGroups = groups[s.ID]
	if s.RuleGroups == nil {
		s.RuleGroups = []models.RuleGroup{}
	}
	return s, nil
}

// ListStrategies returns every strategy with its rule groups
func (db *DB) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	query := `
		SELECT id, name, description, auto_rules, created_at, updated_at
		FROM strategies
		ORDER BY name, id
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	strategies := []models.Strategy{}
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategies: %w", err)
	}

	groups, err := db.loadRuleGroups(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range strategies {
		strategies[i].RuleGroups = groups[strategies[i].ID]
		if strategies[i].RuleGroups == nil {
			strategies[i].RuleGroups = []models.RuleGroup{}
		}
	}
	return strategies, nil
}

// UpdateAutoRules replaces the auto-rule configuration of a strategy
func (db *DB) UpdateAutoRules(ctx context.Context, strategyID string, cfg models.AutoRulesConfig) error {
	autoRules, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode auto rules: %w", err)
	}

	query := `UPDATE strategies SET auto_rules = $2, updated_at = $3 WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, strategyID, string(autoRules), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update auto rules: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrStrategyNotFound
	}
	return nil
}

// DeleteStrategy removes a strategy and its playbook
func (db *DB) DeleteStrategy(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrStrategyNotFound
	}
	return nil
}

func scanStrategy(row rowScanner) (*models.Strategy, error) {
	var s models.Strategy
	var description sql.NullString
	var autoRules []byte

	if err := row.Scan(&s.ID, &s.Name, &description, &autoRules, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Description = description.String
	if len(autoRules) > 0 {
		if err := json.Unmarshal(autoRules, &s.AutoRules); err != nil {
			return nil, fmt.Errorf("failed to decode auto rules: %w", err)
		}
	}
	return &s, nil
}

// loadRuleGroups reads groups and their rules, keyed by strategy id.
// where filters rule_groups aliased as g.
func (db *DB) loadRuleGroups(ctx context.Context, where string, args ...any) (map[string][]models.RuleGroup, error) {
	query := `
		SELECT g.strategy_id, g.id, g.title, g.position,
		       r.id, r.text, r.frequency, r.position
		FROM rule_groups g
		LEFT JOIN rules r ON r.strategy_id = g.strategy_id AND r.group_id = g.id
		` + where + `
		ORDER BY g.strategy_id, g.position, g.id, r.position, r.id
	`
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule groups: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.RuleGroup)
	for rows.Next() {
		var strategyID string
		var g models.RuleGroup
		var ruleID, text, frequency sql.NullString
		var rulePosition sql.NullInt64

		if err := rows.Scan(&strategyID, &g.ID, &g.Title, &g.Position,
			&ruleID, &text, &frequency, &rulePosition); err != nil {
			return nil, fmt.Errorf("failed to scan rule group: %w", err)
		}

		groups := out[strategyID]
		if n := len(groups); n == 0 || groups[n-1].ID != g.ID {
			g.Rules = []models.Rule{}
			groups = append(groups, g)
		}
		if ruleID.Valid {
			last := &groups[len(groups)-1]
			last.Rules = append(last.Rules, models.Rule{
				ID:        ruleID.String,
				Text:      text.String,
				Frequency: frequency.String,
				Position:  int(rulePosition.Int64),
			})
		}
		out[strategyID] = groups
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rule groups: %w", err)
	}
	return out, nil
}
