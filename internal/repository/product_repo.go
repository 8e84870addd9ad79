package repository

import (
	"context"
	"time"

	"pharmapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository is the inventory store: one row per received batch.
// Quantity only goes down through DecrementTx inside a sale transaction.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductBatch, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.ProductBatch, error)
	// ListExpiring returns in-stock batches whose expiry date is on or before the cutoff.
	ListExpiring(ctx context.Context, before time.Time) ([]model.ProductBatch, error)

	// Used inside transactions; callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.ProductBatch) error
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.ProductBatch, error)
	// DecrementTx returns false when the batch no longer holds qty units.
	DecrementTx(tx *gorm.DB, id uuid.UUID, qty int) (bool, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductBatch, error) {
	var p model.ProductBatch
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.ProductBatch, error) {
	var batches []model.ProductBatch
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&batches).Error
	return batches, err
}

func (r *productRepo) ListExpiring(ctx context.Context, before time.Time) ([]model.ProductBatch, error) {
	var batches []model.ProductBatch
	err := r.db.WithContext(ctx).
		Where("expiry_date IS NOT NULL AND expiry_date <= ? AND quantity > 0", before).
		Order("store_id, expiry_date ASC").
		Find(&batches).Error
	return batches, err
}

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.ProductBatch) error {
	return tx.Create(p).Error
}

// FindByIDForUpdate issues SELECT ... FOR UPDATE. sqlite drops the locking
// clause; its single writer connection gives the same exclusion.
func (r *productRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.ProductBatch, error) {
	var p model.ProductBatch
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) DecrementTx(tx *gorm.DB, id uuid.UUID, qty int) (bool, error) {
	res := tx.Model(&model.ProductBatch{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
