package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transactional outbox for the notification side channel: the event record
// is written inside the caller's DB transaction and published to Pub/Sub
// after commit by the dispatcher (workflow package). A crash between
// commit and publish re-delivers, never drops.

type NotificationEvent string

const (
	NotificationEventBudgetAlert   NotificationEvent = "BudgetAlert"
	NotificationEventMonthlyReport NotificationEvent = "MonthlyReport"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusPublished OutboxStatus = "PUBLISHED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

type OutboxMessage struct {
	ID            string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserId        string            `gorm:"type:varchar(36);index;not null" json:"user_id"`
	EventType     NotificationEvent `gorm:"size:64;not null" json:"event_type"`
	Payload       json.RawMessage   `gorm:"type:json" json:"payload"`
	Status        OutboxStatus      `gorm:"size:16;index;not null;default:'PENDING'" json:"status"`
	Attempts      int               `gorm:"not null;default:0" json:"attempts"`
	LastError     string            `gorm:"type:text" json:"last_error"`
	CorrelationId string            `gorm:"size:64" json:"correlation_id"`
	PublishedAt   *time.Time        `json:"published_at"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *OutboxMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// EnqueueNotification writes the event record using the caller's open
// transaction. It never publishes; publishing happens after commit.
func EnqueueNotification(ctx context.Context, tx *gorm.DB, userId string, eventType NotificationEvent, payload json.RawMessage) error {
	record := OutboxMessage{
		UserId:        userId,
		EventType:     eventType,
		Payload:       payload,
		Status:        OutboxStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
