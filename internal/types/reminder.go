package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReminderActive    = "active"
	ReminderCancelled = "cancelled"
	ReminderFired     = "fired"
)

// Reminder creation is a side effect of requalification; delivery belongs
// to a downstream consumer.
type Reminder struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CustomerID     int64     `gorm:"not null;index;column:customer_id" json:"customer_id"`
	ScheduledAt    time.Time `gorm:"not null;column:scheduled_at" json:"scheduled_at"`
	ContextSummary string    `gorm:"column:context_summary" json:"context_summary"`
	Status         string    `gorm:"not null;default:active;column:status" json:"status"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Reminder) TableName() string { return "reminders" }
