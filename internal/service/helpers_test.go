package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"pharmapos/internal/config"
	"pharmapos/internal/infra"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"
	"pharmapos/internal/schema"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Fixtures ──────────────────────────────────────────────────────────────────

type testEnv struct {
	db           *gorm.DB
	users        repository.UserRepository
	stores       repository.StoreRepository
	products     repository.ProductRepository
	distributors repository.DistributorRepository
	sales        repository.SaleRepository
	detector     *schema.Detector
}

// newTestDB opens a private in-memory sqlite database named after the test.
func newTestDB(t *testing.T, autoMigrate bool) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	db, err := infra.NewDatabase(dsn, autoMigrate)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return envFor(newTestDB(t, true))
}

func envFor(db *gorm.DB) *testEnv {
	return &testEnv{
		db:           db,
		users:        repository.NewUserRepository(db),
		stores:       repository.NewStoreRepository(db),
		products:     repository.NewProductRepository(db),
		distributors: repository.NewDistributorRepository(db),
		sales:        repository.NewSaleRepository(db),
		detector:     schema.NewDetector(db),
	}
}

func (e *testEnv) saleService() *saleService {
	return NewSaleService(e.sales, e.products, e.users, e.stores, e.detector, nil, nil, nil).(*saleService)
}

func (e *testEnv) authService() AuthService {
	return NewAuthService(e.users, &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1})
}

func (e *testEnv) seedStore(t *testing.T, name string) *model.Store {
	t.Helper()
	s := &model.Store{Name: name, Address: "1 Main Road", Phone: "9800000000", LicenseNo: "LIC-" + uuid.NewString()[:8]}
	require.NoError(t, e.db.Create(s).Error)
	return s
}

func (e *testEnv) seedUser(t *testing.T, role string, storeID *uuid.UUID) *model.User {
	t.Helper()
	u := &model.User{
		Name:         strings.ToLower(role) + " user",
		Email:        uuid.NewString()[:8] + "@pharma.test",
		PasswordHash: "x",
		Role:         role,
		StoreID:      storeID,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) seedBatch(t *testing.T, storeID uuid.UUID, name string, qty int, mrp string) *model.ProductBatch {
	t.Helper()
	b := &model.ProductBatch{
		StoreID:   storeID,
		Name:      name,
		Quantity:  qty,
		CostPrice: decimal.RequireFromString(mrp).Div(decimal.NewFromInt(2)),
		MRP:       decimal.RequireFromString(mrp),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.db.Create(b).Error)
	return b
}

func (e *testEnv) quantityOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var b model.ProductBatch
	require.NoError(t, e.db.First(&b, "id = ?", id).Error)
	return b.Quantity
}

func (e *testEnv) countSales(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Table(schema.SalesTable).Count(&n).Error)
	return n
}

func (e *testEnv) countItems(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.SaleItem{}).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
