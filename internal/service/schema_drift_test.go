package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"pharmapos/internal/apierror"
	"pharmapos/internal/dto"
	"pharmapos/internal/model"
	"pharmapos/internal/schema"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newLegacyEnv migrates every table except sales, which is created from the
// given DDL to mimic an older deployment.
func newLegacyEnv(t *testing.T, salesDDL string) *testEnv {
	t.Helper()
	db := newTestDB(t, false)
	require.NoError(t, db.AutoMigrate(&model.Store{}, &model.User{}, &model.ProductBatch{}, &model.Distributor{}, &model.SaleItem{}))
	require.NoError(t, db.Exec(salesDDL).Error)
	return envFor(db)
}

const legacyCamelCaseSales = `CREATE TABLE sales (
	id             TEXT PRIMARY KEY,
	invoice_no     TEXT NOT NULL UNIQUE,
	store_id       TEXT NOT NULL,
	"cashierId"    TEXT,
	total_amount   NUMERIC NOT NULL,
	net_amount     NUMERIC NOT NULL,
	payment_method TEXT NOT NULL DEFAULT 'CASH',
	created_at     DATETIME
)`

const unattributedSales = `CREATE TABLE sales (
	id             TEXT PRIMARY KEY,
	invoice_no     TEXT NOT NULL UNIQUE,
	store_id       TEXT NOT NULL,
	total_amount   NUMERIC NOT NULL,
	net_amount     NUMERIC NOT NULL,
	payment_method TEXT NOT NULL DEFAULT 'CASH',
	customer_name  TEXT,
	created_at     DATETIME
)`

func TestCreateSale_LegacySchemaUsesFallbackAttribution(t *testing.T) {
	env := newLegacyEnv(t, legacyCamelCaseSales)
	ctx := context.Background()
	store := env.seedStore(t, "Old Town")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "Dolo 650", 6, "30")
	svc := env.saleService()

	resp, err := svc.CreateSale(ctx, cashier.ID, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(b.ID, "2", "30")},
		Customer: &dto.CustomerRequest{Name: ptr("Ravi"), DoctorName: ptr("Dr. Sen")},
	})
	require.NoError(t, err)

	// Customer columns do not exist here, so nothing about them is reported back.
	assert.Nil(t, resp.CustomerName)
	assert.Nil(t, resp.DoctorName)
	require.NotNil(t, resp.CashierID)
	assert.Equal(t, cashier.ID.String(), *resp.CashierID)
	assert.Equal(t, 4, env.quantityOf(t, b.ID))

	var stored string
	require.NoError(t, env.db.Raw(`SELECT "cashierId" FROM sales WHERE id = ?`, resp.ID).Scan(&stored).Error)
	assert.Equal(t, cashier.ID.String(), stored)

	list, err := svc.ListSales(ctx, cashier.ID, dto.SaleFilter{Page: dto.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Len(t, list.Sales, 1)
	assert.Equal(t, cashier.ID.String(), *list.Sales[0].CashierID)
	assert.Nil(t, list.Sales[0].CustomerName)
}

func TestCreateSale_NoAttributionColumnFailsBeforeTouchingStock(t *testing.T) {
	env := newLegacyEnv(t, unattributedSales)
	ctx := context.Background()
	store := env.seedStore(t, "Old Town")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	owner := env.seedUser(t, model.RoleMedicalOwner, &store.ID)
	b := env.seedBatch(t, store.ID, "Dolo 650", 6, "30")
	svc := env.saleService()

	_, err := svc.CreateSale(ctx, cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{item(b.ID, "2", "30")},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindStructuralMismatch))
	assert.Equal(t, 6, env.quantityOf(t, b.ID))
	assert.Zero(t, env.countSales(t))

	_, err = svc.ListSales(ctx, cashier.ID, dto.SaleFilter{Page: dto.Page{Page: 1, Limit: 10}})
	assert.True(t, apierror.IsKind(err, apierror.KindStructuralMismatch))

	// Store-wide listing needs no attribution.
	list, err := svc.ListSales(ctx, owner.ID, dto.SaleFilter{Page: dto.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Empty(t, list.Sales)
}

func TestCreateSale_RetriesOnceAfterColumnDisappears(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "Pantoprazole", 10, "15")
	svc := env.saleService()

	var minted atomic.Int32
	svc.newInvoiceNo = func() string {
		return fmt.Sprintf("INV-TEST-%d", minted.Add(1))
	}

	caps, err := env.detector.Get(ctx)
	require.NoError(t, err)
	require.True(t, caps.Has("doctor_name"))
	require.NoError(t, env.db.Exec(`ALTER TABLE sales DROP COLUMN doctor_name`).Error)

	resp, err := svc.CreateSale(ctx, cashier.ID, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{item(b.ID, "4", "15")},
		Customer: &dto.CustomerRequest{Name: ptr("Meera"), DoctorName: ptr("Dr. Iyer")},
	})
	require.NoError(t, err)

	assert.EqualValues(t, 2, minted.Load())
	assert.Equal(t, "INV-TEST-2", resp.InvoiceNo)
	assert.Equal(t, "Meera", *resp.CustomerName)
	assert.Nil(t, resp.DoctorName)
	assert.Equal(t, 6, env.quantityOf(t, b.ID))
	assert.EqualValues(t, 1, env.countSales(t))

	refreshed, err := env.detector.Get(ctx)
	require.NoError(t, err)
	assert.False(t, refreshed.Has("doctor_name"))
}

func TestReads_RefreshAfterColumnDisappears(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	svc := env.saleService()

	created, err := svc.CreateSale(ctx, cashier.ID, dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{{Name: ptr("Manual"), Quantity: dec("1"), Price: dec("5")}},
		Customer: &dto.CustomerRequest{Name: ptr("Meera"), DoctorName: ptr("Dr. Iyer")},
	})
	require.NoError(t, err)
	require.Equal(t, "Dr. Iyer", *created.DoctorName)

	require.NoError(t, env.db.Exec(`ALTER TABLE sales DROP COLUMN doctor_name`).Error)

	list, err := svc.ListSales(ctx, cashier.ID, dto.SaleFilter{Page: dto.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Len(t, list.Sales, 1)
	assert.Nil(t, list.Sales[0].DoctorName)
	assert.Equal(t, "Meera", *list.Sales[0].CustomerName)

	caps, err := env.detector.Get(ctx)
	require.NoError(t, err)
	assert.False(t, caps.Has("doctor_name"))

	require.NoError(t, env.db.Exec(`ALTER TABLE sales DROP COLUMN customer_name`).Error)
	invoiceNo, pdf, err := svc.InvoicePDF(ctx, cashier.ID, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Equal(t, created.InvoiceNo, invoiceNo)
	assert.NotEmpty(t, pdf)
}

func TestCreateSale_SecondMissingColumnIsStructural(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "Pantoprazole", 10, "15")
	svc := env.saleService()

	_, err := env.detector.Get(ctx)
	require.NoError(t, err)
	// Drop a column between the refresh and the retry by hooking the invoice minting.
	var calls int
	svc.newInvoiceNo = func() string {
		calls++
		switch calls {
		case 1:
			require.NoError(t, env.db.Exec(`ALTER TABLE sales DROP COLUMN doctor_mobile`).Error)
		case 2:
			require.NoError(t, env.db.Exec(`ALTER TABLE sales ADD COLUMN doctor_mobile TEXT`).Error)
			require.NoError(t, env.db.Exec(`ALTER TABLE sales DROP COLUMN customer_address`).Error)
		}
		return uuid.NewString()
	}

	_, err = svc.CreateSale(ctx, cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{item(b.ID, "1", "15")},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindStructuralMismatch))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 10, env.quantityOf(t, b.ID))
	assert.Zero(t, env.countSales(t))
}

func TestAttributeSaleToCashier_RefusesOtherUsers(t *testing.T) {
	env := newLegacyEnv(t, legacyCamelCaseSales)
	caps, err := env.detector.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, schema.AttributionFallback, caps.Attribution)

	err = env.db.Transaction(func(tx *gorm.DB) error {
		return schema.AttributeSaleToCashier(tx, caps, uuid.New(), uuid.New(), uuid.New())
	})
	assert.True(t, apierror.IsKind(err, apierror.KindAttributionConflict))
}
