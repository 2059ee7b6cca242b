package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleCustomer  = "customer"
	RoleAssistant = "assistant"
	RoleOperator  = "operator"
)

// DialogueMessage rows are append-only; they are never mutated, only
// deleted in bulk by the retention policy after a merge cycle.
type DialogueMessage struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CustomerID int64     `gorm:"not null;index;column:customer_id" json:"customer_id"`
	Role       string    `gorm:"not null;column:role" json:"role"`
	Message    string    `gorm:"not null;column:message" json:"message"`
	CreatedAt  time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (DialogueMessage) TableName() string { return "dialogues" }
