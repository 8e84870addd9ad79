package repository

import (
	"context"

	"pharmapos/internal/model"
	"pharmapos/internal/schema"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleScope restricts List to one store and/or one cashier. Both nil means all sales.
type SaleScope struct {
	StoreID   *uuid.UUID
	CashierID *uuid.UUID
}

// StoreSalesTotal is the per-store aggregate for the admin overview.
type StoreSalesTotal struct {
	StoreID    uuid.UUID
	SalesCount int64
	TotalSales decimal.Decimal
}

// SaleRepository reads and writes sales through the negotiated column set, so
// it keeps working against databases that predate the newer sales columns.
type SaleRepository interface {
	CreateTx(tx *gorm.DB, caps schema.Capabilities, s *model.Sale) error
	CreateItemsTx(tx *gorm.DB, items []model.SaleItem) error
	FindByID(ctx context.Context, caps schema.Capabilities, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, caps schema.Capabilities, scope SaleScope, page, limit int) ([]model.Sale, int64, error)
	TotalsByStore(ctx context.Context) ([]StoreSalesTotal, error)
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

// CreateTx inserts only the columns the database has. Absent optional fields
// are dropped; cashier_id is written here only for inline attribution.
func (r *saleRepo) CreateTx(tx *gorm.DB, caps schema.Capabilities, s *model.Sale) error {
	return tx.Select(caps.InsertColumns()).Create(s).Error
}

func (r *saleRepo) CreateItemsTx(tx *gorm.DB, items []model.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

func (r *saleRepo) FindByID(ctx context.Context, caps schema.Capabilities, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select(caps.SelectList(schema.SalesTable)).
		Preload("Items", orderedItems).
		Where(schema.SalesTable+".id = ?", id).
		Take(&s).Error
	return &s, err
}

func (r *saleRepo) List(ctx context.Context, caps schema.Capabilities, scope SaleScope, page, limit int) ([]model.Sale, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{})
	if scope.StoreID != nil {
		q = q.Where(schema.SalesTable+".store_id = ?", *scope.StoreID)
	}
	if scope.CashierID != nil {
		filter, ok := caps.AttributionFilter(schema.SalesTable)
		if !ok {
			return nil, 0, ErrNoAttribution
		}
		q = q.Where(filter, *scope.CashierID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sales []model.Sale
	err := q.Select(caps.SelectList(schema.SalesTable)).
		Preload("Items", orderedItems).
		Order(schema.SalesTable + ".created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) TotalsByStore(ctx context.Context) ([]StoreSalesTotal, error) {
	var rows []StoreSalesTotal
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("store_id, COUNT(*) AS sales_count, COALESCE(SUM(total_amount), 0) AS total_sales").
		Group("store_id").
		Scan(&rows).Error
	return rows, err
}
