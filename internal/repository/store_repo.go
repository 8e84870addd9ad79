package repository

import (
	"context"

	"pharmapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StoreRepository interface {
	CreateTx(tx *gorm.DB, s *model.Store) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Store, error)
	Update(ctx context.Context, s *model.Store) error
	List(ctx context.Context) ([]model.Store, error)
	DB() *gorm.DB
}

type storeRepo struct{ db *gorm.DB }

func NewStoreRepository(db *gorm.DB) StoreRepository { return &storeRepo{db: db} }

func (r *storeRepo) DB() *gorm.DB { return r.db }

func (r *storeRepo) CreateTx(tx *gorm.DB, s *model.Store) error {
	return tx.Create(s).Error
}

func (r *storeRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	var s model.Store
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *storeRepo) Update(ctx context.Context, s *model.Store) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *storeRepo) List(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&stores).Error
	return stores, err
}
