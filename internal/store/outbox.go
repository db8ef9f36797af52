package store

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"github.com/fundkeep/wallet-service/internal/model"
)

// OutboxStore persists domain events in the same transaction as the state
// change that produced them; a separate process drains them to Kafka.
type OutboxStore interface {
	CreateEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	Poll(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uint64) error
	Publish(ctx context.Context, evt model.OutboxEvent) error
}

type outboxStore struct {
	db     *gorm.DB
	writer *kafka.Writer
}

func NewOutboxStore(db *gorm.DB, w *kafka.Writer) OutboxStore {
	return &outboxStore{db: db, writer: w}
}

func (s *outboxStore) CreateEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	if err := tx.WithContext(ctx).Create(evt).Error; err != nil {
		return classify(err)
	}
	return nil
}

func (s *outboxStore) Poll(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := s.db.WithContext(ctx).
		Where("processed = false").
		Order("created_at").
		Limit(limit).
		Find(&evts).Error
	return evts, classify(err)
}

func (s *outboxStore) MarkProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return classify(s.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error)
}

func (s *outboxStore) Publish(ctx context.Context, evt model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", evt.ID)),
		Value: []byte(evt.Payload),
		Time:  time.Now(),
	}
	return s.writer.WriteMessages(ctx, msg)
}
