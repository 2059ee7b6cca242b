package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

type ProductRepo interface {
	ListNames(ctx context.Context, tx *gorm.DB, customerID int64) ([]string, error)
	ListNamesByCustomer(ctx context.Context, tx *gorm.DB) (map[int64][]string, error)
	Append(ctx context.Context, tx *gorm.DB, customerID int64, names []string) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	repoLog := baseLog.With("repo", "ProductRepo")
	return &productRepo{db: db, log: repoLog}
}

func (pr *productRepo) ListNames(ctx context.Context, tx *gorm.DB, customerID int64) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var names []string
	if err := transaction.WithContext(ctx).
		Model(&types.PurchasedProduct{}).
		Where("customer_id = ?", customerID).
		Order("product_name ASC").
		Pluck("product_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (pr *productRepo) ListNamesByCustomer(ctx context.Context, tx *gorm.DB) (map[int64][]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var rows []*types.PurchasedProduct
	if err := transaction.WithContext(ctx).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[int64][]string, len(rows))
	for _, row := range rows {
		out[row.CustomerID] = append(out[row.CustomerID], row.ProductName)
	}
	return out, nil
}

func (pr *productRepo) Append(ctx context.Context, tx *gorm.DB, customerID int64, names []string) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(names) == 0 {
		return nil
	}

	rows := make([]*types.PurchasedProduct, 0, len(names))
	for _, name := range names {
		rows = append(rows, &types.PurchasedProduct{
			CustomerID:  customerID,
			ProductName: name,
		})
	}

	// Concurrent cycles may race on the same product; the composite unique
	// index plus DoNothing keeps the table append-only and deduplicated.
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}
