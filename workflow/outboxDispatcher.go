package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
	"bitbucket.org/mmdatafocus/wealth_backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxDispatcher publishes committed notification events to Pub/Sub.
// Mutations only ever write outbox rows inside their own transaction; this
// loop is the sole publisher, so a publish failure can never poke a hole
// in a ledger mutation.
type OutboxDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	DispatcherID string

	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:           db,
		Logger:       logger,
		DispatcherID: uuid.NewString(),
		BatchSize:    50,
		PollInterval: 2 * time.Second,
		MaxAttempts:  20,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) {
	db := d.DB
	if db == nil {
		return
	}

	var claimed []models.OutboxMessage
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("status IN ?", []models.OutboxStatus{models.OutboxStatusPending, models.OutboxStatusFailed}).
			Where("attempts < ?", d.MaxAttempts).
			Order("created_at ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			if err := tx.Model(&models.OutboxMessage{}).
				Where("id = ?", claimed[i].ID).
				Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(d.Logger, "workflow", "dispatchOnce", "claim", nil, err)
		return
	}
	if len(claimed) == 0 {
		return
	}

	for _, rec := range claimed {
		msg := config.NotificationMessage{
			ID:            rec.ID,
			UserId:        rec.UserId,
			EventType:     string(rec.EventType),
			OccurredAt:    rec.CreatedAt,
			Payload:       rec.Payload,
			CorrelationId: rec.CorrelationId,
		}
		_, pubErr := config.PublishNotificationWithResult(ctx, msg)
		if pubErr != nil {
			d.markFailed(ctx, rec.ID, pubErr)
			continue
		}
		d.markPublished(ctx, rec.ID)
	}
}

func (d *OutboxDispatcher) markPublished(ctx context.Context, id string) {
	now := time.Now().UTC()
	err := d.DB.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.OutboxStatusPublished,
			"published_at": &now,
			"last_error":   "",
		}).Error
	if err != nil {
		config.LogError(d.Logger, "workflow", "markPublished", id, nil, err)
	}
}

func (d *OutboxDispatcher) markFailed(ctx context.Context, id string, pubErr error) {
	err := d.DB.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.OutboxStatusFailed,
			"last_error": fmt.Sprintf("publish: %v", pubErr),
		}).Error
	if err != nil {
		config.LogError(d.Logger, "workflow", "markFailed", id, nil, err)
	}
}
