package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/trade-journal/internal/models"
)

func sampleStrategy() *models.Strategy {
	offset := -300
	return &models.Strategy{
		ID:          "orb",
		Name:        "Opening Range Breakout",
		Description: "First 15 minute range",
		AutoRules: models.AutoRulesConfig{
			MaxLossPerTrade: models.LimitRule{Enabled: true, Value: decimal.NewFromInt(250)},
			MaxTradesPerDay: models.CountRule{Enabled: true, Value: 3},
			Session: models.SessionRule{
				Enabled:  true,
				Start:    "09:30",
				End:      "11:00",
				Timezone: models.Timezone{OffsetMinutes: &offset},
			},
			AllowedWeekdays: models.WeekdayRule{Enabled: true, Value: []int{1, 2, 3, 4, 5}},
		},
		RuleGroups: []models.RuleGroup{
			{ID: "prep", Title: "Preparation", Rules: []models.Rule{
				{ID: "levels", Text: "Mark overnight levels", Frequency: models.FrequencyDaily},
				{ID: "news", Text: "Check economic calendar", Frequency: models.FrequencyDaily},
			}},
			{ID: "exec", Title: "Execution", Rules: []models.Rule{
				{ID: "wait", Text: "Wait for the range to close", Frequency: models.FrequencyEveryTrade},
			}},
		},
	}
}

func TestStrategiesRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	t.Run("UpsertStrategy round trips the playbook", func(t *testing.T) {
		testDB.TruncateAll(t)

		s := sampleStrategy()
		require.NoError(t, testDB.UpsertStrategy(ctx, s))
		assert.False(t, s.CreatedAt.IsZero())

		got, err := testDB.GetStrategy(ctx, "orb")
		require.NoError(t, err)
		assert.Equal(t, "Opening Range Breakout", got.Name)
		assert.Equal(t, s.AutoRules.MaxTradesPerDay, got.AutoRules.MaxTradesPerDay)
		assert.True(t, got.AutoRules.MaxLossPerTrade.Value.Equal(decimal.NewFromInt(250)))
		require.NotNil(t, got.AutoRules.Session.Timezone.OffsetMinutes)
		assert.Equal(t, -300, *got.AutoRules.Session.Timezone.OffsetMinutes)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, got.AutoRules.AllowedWeekdays.Value)

		require.Len(t, got.RuleGroups, 2)
		assert.Equal(t, "prep", got.RuleGroups[0].ID)
		require.Len(t, got.RuleGroups[0].Rules, 2)
		assert.Equal(t, "levels", got.RuleGroups[0].Rules[0].ID)
		assert.Equal(t, 1, got.RuleGroups[0].Rules[1].Position)
		assert.Equal(t, "exec", got.RuleGroups[1].ID)
	})

	t.Run("UpsertStrategy again replaces groups", func(t *testing.T) {
		testDB.TruncateAll(t)

		s := sampleStrategy()
		require.NoError(t, testDB.UpsertStrategy(ctx, s))
		createdAt := s.CreatedAt

		s.Name = "ORB v2"
		s.RuleGroups = []models.RuleGroup{s.RuleGroups[1], s.RuleGroups[0]}
		require.NoError(t, testDB.UpsertStrategy(ctx, s))

		got, err := testDB.GetStrategy(ctx, "orb")
		require.NoError(t, err)
		assert.Equal(t, "ORB v2", got.Name)
		assert.WithinDuration(t, createdAt, got.CreatedAt, time.Millisecond)
		require.Len(t, got.RuleGroups, 2)
		assert.Equal(t, "exec", got.RuleGroups[0].ID)
	})

	t.Run("ReplaceRuleGroups", func(t *testing.T) {
		testDB.TruncateAll(t)
		require.NoError(t, testDB.UpsertStrategy(ctx, sampleStrategy()))

		err := testDB.ReplaceRuleGroups(ctx, "orb", []models.RuleGroup{
			{ID: "risk", Title: "Risk", Rules: []models.Rule{{ID: "stop", Text: "Hard stop in"}}},
		})
		require.NoError(t, err)

		got, err := testDB.GetStrategy(ctx, "orb")
		require.NoError(t, err)
		require.Len(t, got.RuleGroups, 1)
		assert.Equal(t, "stop", got.RuleGroups[0].Rules[0].ID)

		assert.ErrorIs(t, testDB.ReplaceRuleGroups(ctx, "nope", nil), ErrStrategyNotFound)
	})

	t.Run("UpdateAutoRules", func(t *testing.T) {
		testDB.TruncateAll(t)
		require.NoError(t, testDB.UpsertStrategy(ctx, sampleStrategy()))

		cfg := models.AutoRulesConfig{MaxDailyLoss: models.LimitRule{Enabled: true, Value: decimal.NewFromInt(500)}}
		require.NoError(t, testDB.UpdateAutoRules(ctx, "orb", cfg))

		got, err := testDB.GetStrategy(ctx, "orb")
		require.NoError(t, err)
		assert.True(t, got.AutoRules.MaxDailyLoss.Enabled)
		assert.False(t, got.AutoRules.Session.Enabled)

		assert.ErrorIs(t, testDB.UpdateAutoRules(ctx, "nope", cfg), ErrStrategyNotFound)
	})

	t.Run("ListStrategies and DeleteStrategy", func(t *testing.T) {
		testDB.TruncateAll(t)
		require.NoError(t, testDB.UpsertStrategy(ctx, sampleStrategy()))
		require.NoError(t, testDB.UpsertStrategy(ctx, &models.Strategy{ID: "fade", Name: "Afternoon fade"}))

		all, err := testDB.ListStrategies(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "fade", all[0].ID)
		assert.Empty(t, all[0].RuleGroups)
		assert.Len(t, all[1].RuleGroups, 2)

		require.NoError(t, testDB.DeleteStrategy(ctx, "orb"))
		assert.ErrorIs(t, testDB.DeleteStrategy(ctx, "orb"), ErrStrategyNotFound)
		_, err = testDB.GetStrategy(ctx, "orb")
		assert.ErrorIs(t, err, ErrStrategyNotFound)
	})
}

func TestUpsertStrategy_Success(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}
	s := sampleStrategy()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO strategies").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("DELETE FROM rule_groups").WithArgs("orb").WillReturnResult(sqlmock.NewResult(0, 2))

	// one insert per group, then one per rule of that group
	mock.ExpectExec("INSERT INTO rule_groups").WithArgs("orb", "prep", "Preparation", 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO rules").WithArgs("orb", "prep", "levels", sqlmock.AnyArg(), sqlmock.AnyArg(), 0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO rules").WithArgs("orb", "prep", "news", sqlmock.AnyArg(), sqlmock.AnyArg(), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO rule_groups").WithArgs("orb", "exec", "Execution", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO rules").WithArgs("orb", "exec", "wait", sqlmock.AnyArg(), sqlmock.AnyArg(), 0).WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()
	// the deferred Rollback is a no-op after Commit, so sqlmock never sees it

	err = db.UpsertStrategy(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, 1, s.RuleGroups[1].Position)
	assert.Equal(t, 1, s.RuleGroups[0].Rules[1].Position)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertStrategy_ReturnsErrorIfBeginFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}
	mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

	err = db.UpsertStrategy(context.Background(), sampleStrategy())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRuleGroups_RollsBackIfDeleteFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("orb").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("DELETE FROM rule_groups").WillReturnError(errors.New("delete failed"))
	mock.ExpectRollback()

	err = db.ReplaceRuleGroups(context.Background(), "orb", []models.RuleGroup{{ID: "g"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete existing rule groups")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRuleGroups_UnknownStrategy(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err = db.ReplaceRuleGroups(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrStrategyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAutoRules_NotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}
	mock.ExpectExec("UPDATE strategies SET auto_rules").
		WithArgs("nope", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = db.UpdateAutoRules(context.Background(), "nope", models.AutoRulesConfig{})
	assert.ErrorIs(t, err, ErrStrategyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
