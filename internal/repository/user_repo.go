package repository

import (
	"context"
	"strings"

	"pharmapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserQuery narrows List. Zero values mean "any".
type UserQuery struct {
	Role     string
	StoreID  *uuid.UUID
	IsActive *bool
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	List(ctx context.Context, q UserQuery) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Deactivate(ctx context.Context, id uuid.UUID) error

	// Used inside transactions; callers must pass the tx instance
	SetStoreTx(tx *gorm.DB, userID, storeID uuid.UUID) error

	DB() *gorm.DB
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) DB() *gorm.DB { return r.db }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Preload("Store").First(&u, "id = ?", id).Error
	return &u, err
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Preload("Store").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	return &u, err
}

func (r *userRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepo) List(ctx context.Context, q UserQuery) ([]model.User, error) {
	tx := r.db.WithContext(ctx).Preload("Store")
	if q.Role != "" {
		tx = tx.Where("role = ?", q.Role)
	}
	if q.StoreID != nil {
		tx = tx.Where("store_id = ?", *q.StoreID)
	}
	if q.IsActive != nil {
		tx = tx.Where("is_active = ?", *q.IsActive)
	}
	var users []model.User
	err := tx.Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return r.db.WithContext(ctx).Omit("Store").Save(u).Error
}

func (r *userRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) SetStoreTx(tx *gorm.DB, userID, storeID uuid.UUID) error {
	return tx.Model(&model.User{}).Where("id = ?", userID).Update("store_id", storeID).Error
}
