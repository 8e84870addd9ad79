package repository

import (
	"context"

	"pharmapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DistributorRepository keeps the per-store supplier ledger.
type DistributorRepository interface {
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.Distributor, error)

	// UpsertTx returns the (store, name) row, creating it with a zero total if missing.
	UpsertTx(tx *gorm.DB, storeID uuid.UUID, name string) (*model.Distributor, error)
	AddPurchaseTx(tx *gorm.DB, storeID uuid.UUID, name string, amount decimal.Decimal) error

	DB() *gorm.DB
}

type distributorRepo struct{ db *gorm.DB }

func NewDistributorRepository(db *gorm.DB) DistributorRepository {
	return &distributorRepo{db: db}
}

func (r *distributorRepo) DB() *gorm.DB { return r.db }

func (r *distributorRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.Distributor, error) {
	var list []model.Distributor
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("total_purchase DESC, name ASC").
		Find(&list).Error
	return list, err
}

func (r *distributorRepo) UpsertTx(tx *gorm.DB, storeID uuid.UUID, name string) (*model.Distributor, error) {
	d := &model.Distributor{StoreID: storeID, Name: name, TotalPurchase: decimal.Zero}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(d).Error
	if err != nil {
		return nil, err
	}
	var existing model.Distributor
	if err := tx.Where("store_id = ? AND name = ?", storeID, name).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func (r *distributorRepo) AddPurchaseTx(tx *gorm.DB, storeID uuid.UUID, name string, amount decimal.Decimal) error {
	return tx.Model(&model.Distributor{}).
		Where("store_id = ? AND name = ?", storeID, name).
		Update("total_purchase", gorm.Expr("total_purchase + ?", amount)).Error
}
