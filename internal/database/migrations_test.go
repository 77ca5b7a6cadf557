package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		expectedTables := []string{
			"trades",
			"trade_metadata",
			"strategies",
			"rule_groups",
			"rules",
		}

		for _, tableName := range expectedTables {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("trades table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":                  "text",
			"symbol":              "character varying",
			"side":                "character varying",
			"open_date":           "character varying",
			"close_date":          "character varying",
			"entry_time":          "character varying",
			"exit_time":           "character varying",
			"entry_price":         "numeric",
			"exit_price":          "numeric",
			"net_pnl":             "numeric",
			"contracts_traded":    "numeric",
			"planned_stop":        "numeric",
			"planned_target":      "numeric",
			"planned_r_multiple":  "numeric",
			"realized_r_multiple": "numeric",
			"imported_at":         "timestamp with time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'trades' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in trades table", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("jsonb columns", func(t *testing.T) {
		for table, column := range map[string]string{
			"trade_metadata": "rule_checks",
			"strategies":     "auto_rules",
		} {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = $1 AND column_name = $2
			`, table, column).Scan(&actualType)

			require.NoError(t, err)
			assert.Equal(t, "jsonb", actualType, "%s.%s should be jsonb", table, column)
		}
	})

	t.Run("indexes exist", func(t *testing.T) {
		expectedIndexes := []struct {
			table string
			index string
		}{
			{"trades", "idx_trades_symbol"},
			{"trades", "idx_trades_open_date"},
			{"trade_metadata", "idx_trade_metadata_model"},
			{"rule_groups", "idx_rule_groups_position"},
			{"rules", "idx_rules_position"},
		}

		for _, idx := range expectedIndexes {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_indexes
					WHERE tablename = $1 AND indexname = $2
				)
			`, idx.table, idx.index).Scan(&exists)

			require.NoError(t, err)
			assert.True(t, exists, "index %s should exist on table %s", idx.index, idx.table)
		}
	})

	t.Run("foreign keys exist", func(t *testing.T) {
		for _, table := range []string{"trade_metadata", "rule_groups", "rules"} {
			var hasFK bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_constraint c
					JOIN pg_class t ON c.conrelid = t.oid
					WHERE t.relname = $1
					AND c.contype = 'f'
				)
			`, table).Scan(&hasFK)
			require.NoError(t, err)
			assert.True(t, hasFK, "%s should have a foreign key", table)
		}
	})

	t.Run("running migrations twice is a no-op", func(t *testing.T) {
		require.NoError(t, testDB.RunMigrations(migrationsDir()))
	})
}
