package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/trogers1052/trade-journal/internal/logger"
	"github.com/trogers1052/trade-journal/internal/models"
)

// TradeRepository defines the trade storage operations the consumer needs
type TradeRepository interface {
	CreateTrade(ctx context.Context, t *models.Trade) error
	TradeExists(ctx context.Context, id string) (bool, error)
}

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer ingests TRADE_IMPORTED events published by the CSV importer
// and stores each trade once.
type Consumer struct {
	reader messageReader
	repo   TradeRepository
	logger *zap.Logger
}

// NewConsumer creates a new Kafka consumer for trade events
func NewConsumer(brokers []string, topic, groupID string, repo TradeRepository, log *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return newConsumer(reader, repo, log)
}

func newConsumer(reader messageReader, repo TradeRepository, log *zap.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		repo:   repo,
		logger: logger.OrNop(log).Named("trade-consumer"),
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("error reading message", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error("error processing message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.logger.Debug("received message",
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.ByteString("key", msg.Key))

	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	if event.EventType != models.EventTypeTradeImported {
		c.logger.Debug("ignoring event", zap.String("event_type", event.EventType))
		return nil
	}

	trade, err := c.convertEventToTrade(event)
	if err != nil {
		return fmt.Errorf("failed to convert event to trade: %w", err)
	}

	exists, err := c.repo.TradeExists(ctx, trade.ID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate trade: %w", err)
	}
	if exists {
		c.logger.Info("trade already imported, skipping", zap.String("trade_id", trade.ID))
		return nil
	}

	if err := c.repo.CreateTrade(ctx, trade); err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}

	c.logger.Info("saved trade",
		zap.String("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("side", trade.Side),
		zap.String("net_pnl", trade.NetPnl.String()))

	return nil
}

// convertEventToTrade maps a TradeEvent to a Trade. The trade id, side and
// net P&L are required; other numeric fields degrade to zero (or nil for
// the optional planning fields) with a warning.
func (c *Consumer) convertEventToTrade(event models.TradeEvent) (*models.Trade, error) {
	data := event.Data

	id := strings.TrimSpace(data.TradeID)
	if id == "" {
		return nil, errors.New("missing trade id")
	}

	side := strings.ToUpper(strings.TrimSpace(data.Side))
	switch side {
	case "BUY":
		side = models.SideLong
	case "SELL":
		side = models.SideShort
	}
	if side != models.SideLong && side != models.SideShort {
		return nil, fmt.Errorf("invalid trade side: %s", data.Side)
	}

	netPnl, err := parseAmount(data.NetPnl)
	if err != nil {
		return nil, fmt.Errorf("invalid net_pnl %s: %w", data.NetPnl, err)
	}

	log := c.logger.With(zap.String("trade_id", id))
	return &models.Trade{
		ID:                id,
		Symbol:            strings.ToUpper(strings.TrimSpace(data.Symbol)),
		Side:              side,
		OpenDate:          strings.TrimSpace(data.OpenDate),
		CloseDate:         strings.TrimSpace(data.CloseDate),
		EntryTime:         strings.TrimSpace(data.EntryTime),
		ExitTime:          strings.TrimSpace(data.ExitTime),
		EntryPrice:        requiredAmount(log, "entry_price", data.EntryPrice),
		ExitPrice:         requiredAmount(log, "exit_price", data.ExitPrice),
		NetPnl:            netPnl,
		ContractsTraded:   requiredAmount(log, "contracts_traded", data.ContractsTraded),
		PlannedStop:       optionalAmount(log, "planned_stop", data.PlannedStop),
		PlannedTarget:     optionalAmount(log, "planned_target", data.PlannedTarget),
		PlannedRMultiple:  optionalAmount(log, "planned_r_multiple", data.PlannedRMultiple),
		RealizedRMultiple: optionalAmount(log, "realized_r_multiple", data.RealizedRMultiple),
	}, nil
}

// parseAmount accepts broker formatted numbers: "$1,234.50", "(50.00)"
// for negatives, and plain decimals.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func requiredAmount(log *zap.Logger, field, raw string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero
	}
	d, err := parseAmount(raw)
	if err != nil {
		log.Warn("unparsable amount, using zero", zap.String("field", field), zap.String("value", raw))
		return decimal.Zero
	}
	return d
}

func optionalAmount(log *zap.Logger, field, raw string) *decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := parseAmount(raw)
	if err != nil {
		log.Warn("unparsable amount, ignoring", zap.String("field", field), zap.String("value", raw))
		return nil
	}
	return &d
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
