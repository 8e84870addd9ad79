package service

import (
	"context"
	"sync"
	"testing"

	"pharmapos/internal/apierror"
	"pharmapos/internal/dto"
	"pharmapos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(productID uuid.UUID, qty, price string) dto.SaleItemRequest {
	return dto.SaleItemRequest{ProductID: ptr(productID.String()), Quantity: dec(qty), Price: dec(price)}
}

func TestCreateSale_DecrementsStockAndRecordsItems(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main Pharmacy")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	para := env.seedBatch(t, store.ID, "Paracetamol 500", 10, "12.50")
	amox := env.seedBatch(t, store.ID, "Amoxicillin 250", 4, "40")

	svc := env.saleService()
	resp, err := svc.CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			item(para.ID, "3", "12.50"),
			item(amox.ID, "1", "40"),
		},
		PaymentMethod: "ONLINE",
		Customer:      &dto.CustomerRequest{Name: ptr("  Asha  "), DoctorName: ptr("Dr. Rao")},
	})
	require.NoError(t, err)

	assert.Equal(t, "77.5", resp.TotalAmount.String())
	assert.True(t, resp.TotalAmount.Equal(resp.NetAmount))
	assert.Equal(t, "ONLINE", resp.PaymentMethod)
	assert.Equal(t, store.ID.String(), resp.StoreID)
	require.NotNil(t, resp.CashierID)
	assert.Equal(t, cashier.ID.String(), *resp.CashierID)
	require.NotNil(t, resp.Cashier)
	assert.Equal(t, cashier.Email, resp.Cashier.Email)
	assert.Equal(t, "Asha", *resp.CustomerName)
	assert.Equal(t, "Dr. Rao", *resp.DoctorName)
	assert.Nil(t, resp.CustomerMobile)
	assert.Regexp(t, `^INV-\d+-[0-9A-F]{16}$`, resp.InvoiceNo)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Paracetamol 500", *resp.Items[0].Name)
	assert.Equal(t, "37.5", resp.Items[0].Subtotal.String())
	assert.Equal(t, "Amoxicillin 250", *resp.Items[1].Name)

	assert.Equal(t, 7, env.quantityOf(t, para.ID))
	assert.Equal(t, 3, env.quantityOf(t, amox.ID))
	assert.EqualValues(t, 1, env.countSales(t))
	assert.EqualValues(t, 2, env.countItems(t))
}

func TestCreateSale_DefaultsToCash(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "ORS", 5, "20")

	resp, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{item(b.ID, "1", "20")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCash, resp.PaymentMethod)
}

func TestCreateSale_ManualItemLeavesInventoryUntouched(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "Cough Syrup", 2, "90")

	resp, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{Name: ptr("Cotton roll"), Quantity: dec("2"), Price: dec("15")},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Nil(t, resp.Items[0].ProductID)
	assert.Equal(t, "Cotton roll", *resp.Items[0].Name)
	assert.Equal(t, "30", resp.TotalAmount.String())
	assert.Equal(t, 2, env.quantityOf(t, b.ID))
}

func TestCreateSale_InsufficientStockRollsBackEverything(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	plenty := env.seedBatch(t, store.ID, "Vitamin C", 50, "5")
	scarce := env.seedBatch(t, store.ID, "Insulin", 1, "300")

	_, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			item(plenty.ID, "10", "5"),
			item(scarce.ID, "2", "300"),
		},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInsufficientStock))
	assert.Contains(t, err.Error(), "Insulin")

	assert.Equal(t, 50, env.quantityOf(t, plenty.ID))
	assert.Equal(t, 1, env.quantityOf(t, scarce.ID))
	assert.Zero(t, env.countSales(t))
	assert.Zero(t, env.countItems(t))
}

func TestCreateSale_SameBatchTwiceIsCheckedCumulatively(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "Aspirin", 5, "3")

	_, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{item(b.ID, "3", "3"), item(b.ID, "3", "3")},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindInsufficientStock))
	assert.Equal(t, 5, env.quantityOf(t, b.ID))
	assert.Zero(t, env.countSales(t))
}

func TestCreateSale_CrossTenantProductIsRejected(t *testing.T) {
	env := newEnv(t)
	mine := env.seedStore(t, "Mine")
	theirs := env.seedStore(t, "Theirs")
	cashier := env.seedUser(t, model.RoleCashier, &mine.ID)
	foreign := env.seedBatch(t, theirs.ID, "Cetirizine", 10, "8")

	_, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{item(foreign.ID, "1", "8")},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindTenantMismatch))
	assert.Equal(t, 10, env.quantityOf(t, foreign.ID))
	assert.Zero(t, env.countSales(t))
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)

	_, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{item(uuid.New(), "1", "8")},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestCreateSale_ValidationErrors(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	svc := env.saleService()

	tests := []struct {
		name  string
		req   dto.CreateSaleRequest
		field string
	}{
		{"empty cart", dto.CreateSaleRequest{}, "items"},
		{"negative quantity", dto.CreateSaleRequest{Items: []dto.SaleItemRequest{{Name: ptr("x"), Quantity: dec("-1"), Price: dec("1")}}}, "items[0].quantity"},
		{"fractional quantity", dto.CreateSaleRequest{Items: []dto.SaleItemRequest{{Name: ptr("x"), Quantity: dec("1.5"), Price: dec("1")}}}, "items[0].quantity"},
		{"negative price", dto.CreateSaleRequest{Items: []dto.SaleItemRequest{{Name: ptr("x"), Quantity: dec("1"), Price: dec("-2")}}}, "items[0].price"},
		{"neither product nor name", dto.CreateSaleRequest{Items: []dto.SaleItemRequest{{Quantity: dec("1"), Price: dec("2")}}}, "items[0]"},
		{"bad payment method", dto.CreateSaleRequest{Items: []dto.SaleItemRequest{{Name: ptr("x"), Quantity: dec("1"), Price: dec("1")}}, PaymentMethod: "CHEQUE"}, "paymentMethod"},
		{"lowercase payment method", dto.CreateSaleRequest{Items: []dto.SaleItemRequest{{Name: ptr("x"), Quantity: dec("1"), Price: dec("1")}}, PaymentMethod: "cash"}, "paymentMethod"},
		{"sub-cent price", dto.CreateSaleRequest{Items: []dto.SaleItemRequest{{Name: ptr("x"), Quantity: dec("3"), Price: dec("0.335")}}}, "items[0].price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSale(context.Background(), cashier.ID, tt.req)
			e, ok := apierror.As(err)
			require.True(t, ok)
			assert.Equal(t, apierror.KindValidation, e.Kind)
			assert.Contains(t, e.Fields, tt.field)
		})
	}
	assert.Zero(t, env.countSales(t))
}

func TestCreateSale_TotalMatchesPersistedSubtotals(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)

	resp, err := env.saleService().CreateSale(ctx, cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{Name: ptr("Syringe"), Quantity: dec("3"), Price: dec("0.05")},
			{Name: ptr("Gauze"), Quantity: dec("7"), Price: dec("19.99")},
			{Name: ptr("Swab"), Quantity: dec("1"), Price: dec("0.01")},
			{Name: ptr("Tape"), Quantity: dec("2"), Price: dec("2.500")},
		},
	})
	require.NoError(t, err)
	assert.True(t, dec("145.09").Equal(resp.TotalAmount), resp.TotalAmount.String())

	var items []model.SaleItem
	require.NoError(t, env.db.Where("sale_id = ?", resp.ID).Find(&items).Error)
	require.Len(t, items, 4)
	sum := decimal.Zero
	for _, it := range items {
		assert.True(t, it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.Subtotal), it.Subtotal.String())
		sum = sum.Add(it.Subtotal)
	}
	var stored decimal.Decimal
	require.NoError(t, env.db.Raw(`SELECT total_amount FROM sales WHERE id = ?`, resp.ID).Row().Scan(&stored))
	assert.True(t, sum.Equal(stored), "items %s, header %s", sum, stored)
	assert.True(t, resp.TotalAmount.Equal(stored))
}

func TestCreateSale_ZeroQuantityLineIsAllowed(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "Bandage", 3, "10")

	resp, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{item(b.ID, "0", "10")},
	})
	require.NoError(t, err)
	assert.True(t, resp.TotalAmount.IsZero())
	assert.Equal(t, 3, env.quantityOf(t, b.ID))
}

func TestCreateSale_CallerWithoutStore(t *testing.T) {
	env := newEnv(t)
	owner := env.seedUser(t, model.RoleMedicalOwner, nil)

	_, err := env.saleService().CreateSale(context.Background(), owner.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{Name: ptr("x"), Quantity: dec("1"), Price: dec("1")}},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindStoreNotAssigned))
}

func TestCreateSale_UnknownOrInactiveCaller(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	require.NoError(t, env.users.Deactivate(context.Background(), cashier.ID))
	req := dto.CreateSaleRequest{Items: []dto.SaleItemRequest{{Name: ptr("x"), Quantity: dec("1"), Price: dec("1")}}}

	_, err := env.saleService().CreateSale(context.Background(), uuid.New(), req)
	assert.True(t, apierror.IsKind(err, apierror.KindAuthenticationRequired))

	_, err = env.saleService().CreateSale(context.Background(), cashier.ID, req)
	assert.True(t, apierror.IsKind(err, apierror.KindAuthenticationRequired))
}

func TestCreateSale_ForeignCashierIDIsRejected(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	other := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "ORS", 5, "20")

	_, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items:     []dto.SaleItemRequest{item(b.ID, "1", "20")},
		CashierID: ptr(other.ID.String()),
	})
	assert.True(t, apierror.IsKind(err, apierror.KindAttributionConflict))
	assert.Equal(t, 5, env.quantityOf(t, b.ID))

	resp, err := env.saleService().CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
		Items:     []dto.SaleItemRequest{item(b.ID, "1", "20")},
		CashierID: ptr(cashier.ID.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, cashier.ID.String(), *resp.CashierID)
}

func TestCreateSale_ConcurrentBuyersNeverOversell(t *testing.T) {
	env := newEnv(t)
	store := env.seedStore(t, "Main")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	b := env.seedBatch(t, store.ID, "Azithromycin", 5, "60")
	svc := env.saleService()

	const buyers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		shortfall int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateSale(context.Background(), cashier.ID, dto.CreateSaleRequest{
				Items: []dto.SaleItemRequest{item(b.ID, "1", "60")},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apierror.IsKind(err, apierror.KindInsufficientStock):
				shortfall++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, buyers-5, shortfall)
	assert.Equal(t, 0, env.quantityOf(t, b.ID))
	assert.EqualValues(t, 5, env.countSales(t))
}

func TestListSales_Scoping(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	storeA := env.seedStore(t, "A")
	storeB := env.seedStore(t, "B")
	cashierA1 := env.seedUser(t, model.RoleCashier, &storeA.ID)
	cashierA2 := env.seedUser(t, model.RoleCashier, &storeA.ID)
	cashierB := env.seedUser(t, model.RoleCashier, &storeB.ID)
	ownerA := env.seedUser(t, model.RoleMedicalOwner, &storeA.ID)
	homeless := env.seedUser(t, model.RoleMedicalOwner, nil)
	admin := env.seedUser(t, model.RoleAdmin, nil)
	svc := env.saleService()

	sell := func(caller uuid.UUID) {
		_, err := svc.CreateSale(ctx, caller, dto.CreateSaleRequest{
			Items: []dto.SaleItemRequest{{Name: ptr("Manual"), Quantity: dec("1"), Price: dec("10")}},
		})
		require.NoError(t, err)
	}
	sell(cashierA1.ID)
	sell(cashierA1.ID)
	sell(cashierA2.ID)
	sell(cashierB.ID)

	page := dto.SaleFilter{Page: dto.Page{Page: 1, Limit: 50}}

	own, err := svc.ListSales(ctx, cashierA1.ID, page)
	require.NoError(t, err)
	assert.EqualValues(t, 2, own.Total)
	for _, s := range own.Sales {
		assert.Equal(t, cashierA1.ID.String(), *s.CashierID)
		require.NotNil(t, s.Cashier)
		assert.Equal(t, cashierA1.Name, s.Cashier.Name)
	}

	storeWide, err := svc.ListSales(ctx, ownerA.ID, page)
	require.NoError(t, err)
	assert.EqualValues(t, 3, storeWide.Total)

	all, err := svc.ListSales(ctx, admin.ID, page)
	require.NoError(t, err)
	assert.EqualValues(t, 4, all.Total)

	_, err = svc.ListSales(ctx, homeless.ID, page)
	assert.True(t, apierror.IsKind(err, apierror.KindStoreNotAssigned))

	paged, err := svc.ListSales(ctx, admin.ID, dto.SaleFilter{Page: dto.Page{Page: 2, Limit: 3}})
	require.NoError(t, err)
	assert.EqualValues(t, 4, paged.Total)
	assert.Len(t, paged.Sales, 1)
	assert.Equal(t, 2, paged.Page)
	assert.Equal(t, 3, paged.Limit)

	defaults, err := svc.ListSales(ctx, admin.ID, dto.SaleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 50, defaults.Limit)
	assert.Len(t, defaults.Sales, 4)
}

func TestInvoicePDF(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	store := env.seedStore(t, "Main")
	other := env.seedStore(t, "Other")
	cashier := env.seedUser(t, model.RoleCashier, &store.ID)
	colleague := env.seedUser(t, model.RoleCashier, &store.ID)
	outsider := env.seedUser(t, model.RoleMedicalOwner, &other.ID)
	svc := env.saleService()

	sale, err := svc.CreateSale(ctx, cashier.ID, dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{Name: ptr("Manual"), Quantity: dec("2"), Price: dec("10")}},
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(sale.ID)

	invoiceNo, pdf, err := svc.InvoicePDF(ctx, cashier.ID, saleID)
	require.NoError(t, err)
	assert.Equal(t, sale.InvoiceNo, invoiceNo)
	assert.Equal(t, "%PDF-", string(pdf[:5]))

	_, _, err = svc.InvoicePDF(ctx, outsider.ID, saleID)
	assert.True(t, apierror.IsKind(err, apierror.KindTenantMismatch))

	_, _, err = svc.InvoicePDF(ctx, colleague.ID, saleID)
	assert.True(t, apierror.IsKind(err, apierror.KindForbidden))

	_, _, err = svc.InvoicePDF(ctx, cashier.ID, uuid.New())
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestNewInvoiceNumber_UniqueUnderConcurrency(t *testing.T) {
	const n = 10000
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv := NewInvoiceNumber()
			mu.Lock()
			seen[inv] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
