package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/trade-journal/internal/analytics"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/logger"
	"github.com/trogers1052/trade-journal/internal/models"
)

// ErrRuleNotFound is returned when a rule id is not part of a strategy
var ErrRuleNotFound = errors.New("rule not found")

// cacheVersion is bumped whenever the Report shape changes
const cacheVersion = "v1"

// TradeStore lists stored trades
type TradeStore interface {
	ListTrades(ctx context.Context) ([]models.Trade, error)
	ListTradesByModel(ctx context.Context, model string) ([]models.Trade, error)
}

// MetadataStore lists trade annotations keyed by trade id
type MetadataStore interface {
	ListTradeMetadata(ctx context.Context) (map[string]models.TradeMetadata, error)
}

// StrategyStore loads strategy configuration
type StrategyStore interface {
	GetStrategy(ctx context.Context, id string) (*models.Strategy, error)
	ListStrategies(ctx context.Context) ([]models.Strategy, error)
}

// Cache memoizes serialized reports
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Invalidator is implemented by caches that can drop keys by prefix
type Invalidator interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Service composes the stores, the analytics engine and the cache
type Service struct {
	Trades     TradeStore
	Metadata   MetadataStore
	Strategies StrategyStore
	Cache      Cache
	Logger     *zap.Logger
	// Timezone buckets series when a strategy has no session timezone
	Timezone analytics.TimezoneSpec

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// StrategyReport computes the report of one strategy over the trades
// whose metadata assigns them to it.
func (s *Service) StrategyReport(ctx context.Context, strategyID string) (*Report, error) {
	strategy, err := s.Strategies.GetStrategy(ctx, strategyID)
	if err != nil {
		return nil, err
	}

	trades, err := s.Trades.ListTradesByModel(ctx, strategy.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for strategy %s: %w", strategy.ID, err)
	}
	metadata, err := s.Metadata.ListTradeMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade metadata: %w", err)
	}

	rules := strategy.AutoRules
	return s.compute(ctx, Input{
		StrategyID: strategy.ID,
		Name:       strategy.Name,
		Trades:     trades,
		Metadata:   forTrades(metadata, trades),
		AutoRules:  &rules,
		RuleGroups: strategy.RuleGroups,
		Timezone:   s.Timezone,
	})
}

// Overview computes the report over every stored trade, without auto
// rules or playbook groups.
func (s *Service) Overview(ctx context.Context) (*Report, error) {
	trades, err := s.Trades.ListTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	metadata, err := s.Metadata.ListTradeMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade metadata: %w", err)
	}

	return s.compute(ctx, Input{
		Name:     "overview",
		Trades:   trades,
		Metadata: forTrades(metadata, trades),
		Timezone: s.Timezone,
	})
}

// RuleMetrics scores a single playbook rule of a strategy
func (s *Service) RuleMetrics(ctx context.Context, strategyID, ruleID string) (*analytics.RuleMetrics, error) {
	strategy, err := s.Strategies.GetStrategy(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	rule, ok := findRule(strategy.RuleGroups, ruleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
	}

	trades, err := s.Trades.ListTradesByModel(ctx, strategy.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades for strategy %s: %w", strategy.ID, err)
	}
	metadata, err := s.Metadata.ListTradeMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade metadata: %w", err)
	}

	m := analytics.ComputeRuleMetrics(rule.ID, trades, metadata)
	m.Text = rule.Text
	return &m, nil
}

// StrategyIDs lists the ids of all configured strategies
func (s *Service) StrategyIDs(ctx context.Context) ([]string, error) {
	strategies, err := s.Strategies.ListStrategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	ids := make([]string, 0, len(strategies))
	for _, st := range strategies {
		ids = append(ids, st.ID)
	}
	return ids, nil
}

// Invalidate drops the cached reports of a strategy after its
// configuration changed. Cache failures are logged, not returned.
func (s *Service) Invalidate(ctx context.Context, strategyID string) {
	inv, ok := s.Cache.(Invalidator)
	if !ok {
		return
	}
	log := logger.OrNop(s.Logger).With(zap.String("strategy_id", strategyID))
	n, err := inv.DeletePrefix(ctx, keyPrefix(strategyID))
	if err != nil {
		log.Warn("failed to invalidate cached reports", zap.Error(err))
		return
	}
	log.Debug("invalidated cached reports", zap.Int("count", n))
}

func (s *Service) compute(ctx context.Context, in Input) (*Report, error) {
	log := logger.OrNop(s.Logger).With(zap.String("strategy_id", in.StrategyID))

	key, err := cacheKey(in)
	if err != nil {
		log.Warn("failed to fingerprint report input", zap.Error(err))
	}
	if key != "" && s.Cache != nil {
		if cached, ok := s.fromCache(ctx, log, key); ok {
			return cached, nil
		}
	}

	r := Build(in)
	r.GeneratedAt = s.clock().UTC()
	WarnFlags(log, r)

	if key != "" && s.Cache != nil && !placedAtNow(r) {
		body, err := json.Marshal(r)
		if err != nil {
			log.Warn("failed to encode report for cache", zap.Error(err))
		} else if err := s.Cache.Set(ctx, key, body); err != nil {
			log.Warn("failed to cache report", zap.String("key", key), zap.Error(err))
		}
	}
	return &r, nil
}

func (s *Service) fromCache(ctx context.Context, log *zap.Logger, key string) (*Report, bool) {
	body, err := s.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn("report cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var r Report
	if err := json.Unmarshal(body, &r); err != nil {
		log.Warn("discarding unreadable cached report", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	log.Debug("report cache hit", zap.String("key", key))
	return &r, true
}

// WarnFlags logs the data-quality flags the engine raised while building r
func WarnFlags(log *zap.Logger, r Report) {
	if r.AutoRules == nil {
		return
	}
	log = logger.OrNop(log)
	if r.AutoRules.ParseFallbacks > 0 {
		log.Warn("trades with unreadable timestamps were placed at the current time",
			zap.Int("count", r.AutoRules.ParseFallbacks))
	}
	if r.AutoRules.SessionWindowInverted {
		log.Warn("session window ends before it starts; no trade can pass the session rule")
	}
}

// placedAtNow reports whether some trade was placed at the current time
// because none of its dates parsed. Such a report changes with the clock
// and is not cached.
func placedAtNow(r Report) bool {
	return r.AutoRules != nil && r.AutoRules.ParseFallbacks > 0
}

// forTrades keeps only the annotations of trades, so edits to unrelated
// trades do not invalidate a cached report.
func forTrades(metadata map[string]models.TradeMetadata, trades []models.Trade) map[string]models.TradeMetadata {
	out := make(map[string]models.TradeMetadata, len(trades))
	for _, t := range trades {
		if md, ok := metadata[t.ID]; ok {
			out[t.ID] = md
		}
	}
	return out
}

// cacheKey fingerprints the report input. The host zone is part of the
// fingerprint because "local" specs resolve against it.
func cacheKey(in Input) (string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(body)
	h.Write([]byte(hostZone(time.Local)))
	sum := h.Sum(nil)
	return keyPrefix(in.StrategyID) + hex.EncodeToString(sum), nil
}

func keyPrefix(strategyID string) string {
	if strategyID == "" {
		strategyID = "overview"
	}
	return fmt.Sprintf("report:%s:%s:", cacheVersion, strategyID)
}

// hostZone describes loc by its abbreviation and offset in January and
// July, which tells apart zones that share a name such as "Local".
func hostZone(loc *time.Location) string {
	jan, janOffset := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC).In(loc).Zone()
	jul, julOffset := time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC).In(loc).Zone()
	return fmt.Sprintf("%s%d/%s%d", jan, janOffset, jul, julOffset)
}
