// Package events publishes executed ledger operations to Kafka so downstream
// consumers (audit, analytics) can follow the account without polling.
// Publishing is best-effort: a broker outage never fails the operation that
// already committed.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

type Kind string

const (
	KindTrade   Kind = "trade"
	KindDeposit Kind = "deposit"
)

type Event struct {
	EventID string           `json:"event_id"`
	Kind    Kind             `json:"kind"`
	UserID  int64            `json:"user_id"`
	Symbol  string           `json:"symbol,omitempty"`
	Shares  int64            `json:"shares,omitempty"`
	Price   *decimal.Decimal `json:"price,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	TS      time.Time        `json:"ts"`
}

func TradeEvent(tx models.Transaction) Event {
	price := tx.Price
	return Event{
		EventID: uuid.NewString(),
		Kind:    KindTrade,
		UserID:  tx.UserID,
		Symbol:  tx.Symbol,
		Shares:  tx.Shares,
		Price:   &price,
		TS:      tx.TS,
	}
}

func DepositEvent(userID int64, amount decimal.Decimal, ts time.Time) Event {
	return Event{
		EventID: uuid.NewString(),
		Kind:    KindDeposit,
		UserID:  userID,
		Amount:  &amount,
		TS:      ts,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

// KafkaPublisher writes one JSON message per event, keyed by user so a
// user's events stay ordered within a partition.
type KafkaPublisher struct {
	w      *kafka.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})
	return &KafkaPublisher{w: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	val, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("event marshal", zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.UserID, 10)),
		Value: val,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("event publish", zap.String("event_id", e.EventID), zap.Error(err))
		return
	}
	p.logger.Debug("event published", zap.String("event_id", e.EventID), zap.String("kind", string(e.Kind)))
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
