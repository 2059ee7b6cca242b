package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

type ProfileRepo interface {
	GetByCustomerID(ctx context.Context, tx *gorm.DB, customerID int64) (*types.CustomerProfile, error)
	// GetByCustomerIDForUpdate fetches the row under an exclusive row lock.
	// Must be called inside a transaction; blocks concurrent writers for the
	// same customer only.
	GetByCustomerIDForUpdate(ctx context.Context, tx *gorm.DB, customerID int64) (*types.CustomerProfile, error)
	Create(ctx context.Context, tx *gorm.DB, profiles []*types.CustomerProfile) ([]*types.CustomerProfile, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, customerID int64, updates map[string]interface{}) error
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CustomerProfile, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	repoLog := baseLog.With("repo", "ProfileRepo")
	return &profileRepo{db: db, log: repoLog}
}

func (pr *profileRepo) GetByCustomerID(ctx context.Context, tx *gorm.DB, customerID int64) (*types.CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var row types.CustomerProfile
	err := transaction.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.CustomerID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (pr *profileRepo) GetByCustomerIDForUpdate(ctx context.Context, tx *gorm.DB, customerID int64) (*types.CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var row types.CustomerProfile
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.CustomerID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (pr *profileRepo) Create(ctx context.Context, tx *gorm.DB, profiles []*types.CustomerProfile) ([]*types.CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(profiles) == 0 {
		return []*types.CustomerProfile{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (pr *profileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, customerID int64, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(updates) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&types.CustomerProfile{}).
		Where("customer_id = ?", customerID).
		Updates(updates).Error
}

func (pr *profileRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.CustomerProfile
	if err := transaction.WithContext(ctx).
		Order("customer_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
