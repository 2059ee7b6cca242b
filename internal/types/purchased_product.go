package types

import (
	"time"

	"github.com/google/uuid"
)

// PurchasedProduct is a child row of CustomerProfile; append-only,
// deduplicated by exact product-name match per customer.
type PurchasedProduct struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CustomerID  int64     `gorm:"not null;uniqueIndex:idx_customer_product;column:customer_id" json:"customer_id"`
	ProductName string    `gorm:"not null;uniqueIndex:idx_customer_product;column:product_name" json:"product_name"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PurchasedProduct) TableName() string { return "purchased_products" }
