package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"pharmapos/internal/apierror"
	"pharmapos/internal/cache"
	"pharmapos/internal/dto"
	"pharmapos/internal/infra"
	"pharmapos/internal/metrics"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"
	"pharmapos/internal/schema"
	"pharmapos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	CreateSale(ctx context.Context, callerID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, callerID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	// InvoicePDF renders the receipt of a sale the caller may see.
	InvoicePDF(ctx context.Context, callerID, saleID uuid.UUID) (invoiceNo string, pdf []byte, err error)
}

type saleService struct {
	repo       repository.SaleRepository
	products   repository.ProductRepository
	users      repository.UserRepository
	stores     repository.StoreRepository
	detector   *schema.Detector
	cache      cache.ProductCache
	dispatcher *worker.Dispatcher
	metrics    *metrics.Metrics

	newInvoiceNo func() string
}

// NewSaleService wires the sale transaction. productCache, dispatcher and m may be nil.
func NewSaleService(
	repo repository.SaleRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	stores repository.StoreRepository,
	detector *schema.Detector,
	productCache cache.ProductCache,
	dispatcher *worker.Dispatcher,
	m *metrics.Metrics,
) SaleService {
	if productCache == nil {
		productCache = cache.NoopProductCache{}
	}
	return &saleService{
		repo:         repo,
		products:     products,
		users:        users,
		stores:       stores,
		detector:     detector,
		cache:        productCache,
		dispatcher:   dispatcher,
		metrics:      m,
		newInvoiceNo: NewInvoiceNumber,
	}
}

// saleLine is a validated cart line with its subtotal computed.
type saleLine struct {
	productID *uuid.UUID
	name      *string
	quantity  int
	price     decimal.Decimal
	subtotal  decimal.Decimal
}

// ── CreateSale ────────────────────────────────────────────────────────────────
//   1. Validate the cart and any client-supplied cashierId
//   2. Resolve the caller and their store
//   3. Negotiate the sales columns (outside the TX)
//   4. BEGIN TX: lock + check + decrement each batch, insert sale, attribute, insert items
//   5. COMMIT, retrying once with fresh columns and a new invoice number on a missing-column error
//   6. (best effort) invalidate product cache, enqueue low-stock alerts, count

func (s *saleService) CreateSale(ctx context.Context, callerID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	resp, err := s.createSale(ctx, callerID, req)
	if err != nil {
		kind := apierror.KindInternal
		if e, ok := apierror.As(err); ok {
			kind = e.Kind
		}
		s.metrics.RecordSaleFailure(string(kind))
		return nil, err
	}
	return resp, nil
}

func (s *saleService) createSale(ctx context.Context, callerID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	lines, total, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}
	method := model.PaymentCash
	if req.PaymentMethod != "" {
		method = req.PaymentMethod
		if method != model.PaymentCash && method != model.PaymentOnline {
			return nil, apierror.Validation(map[string]string{"paymentMethod": "must be CASH or ONLINE"})
		}
	}

	// A client-supplied cashierId is only ever accepted when it names the caller.
	cashierID := callerID
	if req.CashierID != nil && strings.TrimSpace(*req.CashierID) != "" {
		requested, err := uuid.Parse(strings.TrimSpace(*req.CashierID))
		if err != nil {
			return nil, apierror.Validation(map[string]string{"cashierId": "must be a valid id"})
		}
		if requested != callerID {
			return nil, apierror.AttributionConflict("Provided cashierId does not match authenticated user")
		}
		cashierID = requested
	}

	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	storeID, err := callerStore(caller)
	if err != nil {
		return nil, err
	}

	caps, err := s.detector.Get(ctx)
	if err != nil {
		return nil, apierror.Internal(err)
	}

	draft := saleDraft{
		storeID:   storeID,
		cashierID: cashierID,
		callerID:  callerID,
		method:    method,
		total:     total,
		lines:     lines,
		customer:  req.Customer,
	}
	sale, touched, err := s.attempt(ctx, caps, draft)
	if schema.IsMissingColumn(err) {
		log.Warn().Err(err).Msg("sale: sales table rejected a column, re-detecting schema and retrying")
		s.metrics.RecordSchemaFallback("missing_column_retry")
		caps, err = s.detector.Refresh(ctx)
		if err != nil {
			return nil, apierror.Internal(err)
		}
		sale, touched, err = s.attempt(ctx, caps, draft)
		if schema.IsMissingColumn(err) {
			log.Error().Err(err).Str("capabilities", caps.String()).
				Msg("sale: sales table still rejects columns after refresh, schema migration required")
			return nil, apierror.StructuralMismatch("Sales storage schema does not match the application; cannot create sale").Wrap(err)
		}
	}
	if err != nil {
		return nil, internalOr(err)
	}

	s.afterCommit(ctx, sale, touched)

	resp := saleToResponse(sale, caller)
	return &resp, nil
}

type saleDraft struct {
	storeID   uuid.UUID
	cashierID uuid.UUID
	callerID  uuid.UUID
	method    string
	total     decimal.Decimal
	lines     []saleLine
	customer  *dto.CustomerRequest
}

// attempt runs one complete sale transaction against the given capabilities.
// Every call mints a fresh invoice number.
func (s *saleService) attempt(ctx context.Context, caps schema.Capabilities, d saleDraft) (*model.Sale, []*model.ProductBatch, error) {
	if caps.Attribution == schema.AttributionNone {
		log.Error().Str("table", schema.SalesTable).
			Msg("sale: sales table has no cashier attribution column, schema migration required")
		return nil, nil, apierror.StructuralMismatch("Server schema does not support cashier association; cannot create sale")
	}

	sale := &model.Sale{
		InvoiceNo:     s.newInvoiceNo(),
		StoreID:       d.storeID,
		TotalAmount:   d.total,
		NetAmount:     d.total,
		PaymentMethod: d.method,
		CreatedAt:     time.Now().UTC(),
	}
	if d.customer != nil {
		sale.CustomerName = trimmed(d.customer.Name)
		sale.CustomerMobile = trimmed(d.customer.Mobile)
		sale.CustomerAddress = trimmed(d.customer.Address)
		sale.DoctorName = trimmed(d.customer.DoctorName)
		sale.DoctorMobile = trimmed(d.customer.DoctorMobile)
	}
	dropUnsupported(sale, caps)
	if caps.Attribution == schema.AttributionInline {
		sale.CashierID = &d.cashierID
	}

	var touched []*model.ProductBatch
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		touched = touched[:0]
		touchedAt := make(map[uuid.UUID]int)
		items := make([]model.SaleItem, 0, len(d.lines))

		for i, line := range d.lines {
			name := line.name
			if line.productID != nil {
				batch, err := s.products.FindByIDForUpdate(tx, *line.productID)
				if err != nil {
					if repository.IsNotFound(err) {
						return apierror.NotFound("Product not found")
					}
					return err
				}
				if batch.StoreID != d.storeID {
					return apierror.TenantMismatch("Product does not belong to your store")
				}
				if batch.Quantity < line.quantity {
					return apierror.InsufficientStock(batch.Name)
				}
				ok, err := s.products.DecrementTx(tx, batch.ID, line.quantity)
				if err != nil {
					return err
				}
				if !ok {
					return apierror.InsufficientStock(batch.Name)
				}
				batch.Quantity -= line.quantity
				if idx, seen := touchedAt[batch.ID]; seen {
					touched[idx] = batch
				} else {
					touchedAt[batch.ID] = len(touched)
					touched = append(touched, batch)
				}
				if name == nil {
					name = &batch.Name
				}
			}
			items = append(items, model.SaleItem{
				LineNo:    i,
				ProductID: line.productID,
				Name:      name,
				Quantity:  line.quantity,
				Price:     line.price,
				Subtotal:  line.subtotal,
			})
		}

		if err := s.repo.CreateTx(tx, caps, sale); err != nil {
			return err
		}
		if caps.Attribution == schema.AttributionFallback {
			if err := schema.AttributeSaleToCashier(tx, caps, sale.ID, d.cashierID, d.callerID); err != nil {
				return err
			}
			sale.CashierID = &d.cashierID
			s.metrics.RecordSchemaFallback("legacy_attribution")
		}

		for i := range items {
			items[i].SaleID = sale.ID
		}
		if err := s.repo.CreateItemsTx(tx, items); err != nil {
			return err
		}
		sale.Items = items
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sale, touched, nil
}

// afterCommit runs the post-commit side effects. None of them can fail the sale.
func (s *saleService) afterCommit(ctx context.Context, sale *model.Sale, touched []*model.ProductBatch) {
	s.metrics.RecordSale(sale.TotalAmount.InexactFloat64())

	if err := s.cache.Invalidate(ctx, sale.StoreID); err != nil {
		log.Warn().Err(err).Str("store_id", sale.StoreID.String()).Msg("sale: product cache invalidation failed")
	}

	if s.dispatcher != nil {
		for _, b := range touched {
			if !b.BelowReorderLevel() {
				continue
			}
			payload := worker.LowStockPayload{
				StoreID:      b.StoreID.String(),
				ProductID:    b.ID.String(),
				Name:         b.Name,
				Quantity:     b.Quantity,
				ReorderLevel: *b.ReorderLevel,
			}
			if err := s.dispatcher.EnqueueLowStock(ctx, payload); err != nil {
				log.Warn().Err(err).Str("product_id", payload.ProductID).Msg("sale: failed to enqueue low-stock alert")
			}
		}
	}

	log.Info().
		Str("invoice_no", sale.InvoiceNo).
		Str("store_id", sale.StoreID.String()).
		Int("items", len(sale.Items)).
		Str("total", sale.TotalAmount.StringFixed(2)).
		Msg("sale created")
}

// dropUnsupported clears optional fields whose columns the sales table lacks,
// so the returned sale matches what was stored.
func dropUnsupported(sale *model.Sale, caps schema.Capabilities) {
	fields := map[string]**string{
		"customer_name":    &sale.CustomerName,
		"customer_mobile":  &sale.CustomerMobile,
		"customer_address": &sale.CustomerAddress,
		"doctor_name":      &sale.DoctorName,
		"doctor_mobile":    &sale.DoctorMobile,
	}
	for _, col := range caps.DroppedOptional() {
		if f, ok := fields[col]; ok && *f != nil {
			log.Debug().Str("column", col).Msg("sale: optional column absent, value dropped")
			*f = nil
		}
	}
}

var maxLineQuantity = decimal.NewFromInt(math.MaxInt32)

// moneyScale is the number of decimal places the money columns keep.
const moneyScale = 2

// normalizeItems validates the cart and computes subtotals in input order.
func normalizeItems(items []dto.SaleItemRequest) ([]saleLine, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, apierror.Validation(map[string]string{"items": "at least one item is required"})
	}
	fields := make(map[string]string)
	lines := make([]saleLine, 0, len(items))
	total := decimal.Zero

	for i, it := range items {
		key := fmt.Sprintf("items[%d]", i)
		line := saleLine{name: trimmed(it.Name)}

		if pid := trimmed(it.ProductID); pid != nil {
			id, err := uuid.Parse(*pid)
			if err != nil {
				fields[key+".productId"] = "must be a valid id"
			} else {
				line.productID = &id
			}
		} else if line.name == nil {
			fields[key] = "productId or name is required"
		}

		switch {
		case it.Quantity.IsNegative() || !it.Quantity.IsInteger():
			fields[key+".quantity"] = "must be a non-negative whole number"
		case it.Quantity.GreaterThan(maxLineQuantity):
			fields[key+".quantity"] = "is too large"
		default:
			line.quantity = int(it.Quantity.IntPart())
		}
		switch {
		case it.Price.IsNegative():
			fields[key+".price"] = "must not be negative"
		case !it.Price.Equal(it.Price.Round(moneyScale)):
			fields[key+".price"] = "must have at most 2 decimal places"
		}

		line.price = it.Price
		line.subtotal = it.Price.Mul(decimal.NewFromInt(int64(line.quantity)))
		total = total.Add(line.subtotal)
		lines = append(lines, line)
	}
	if len(fields) > 0 {
		return nil, decimal.Zero, apierror.Validation(fields)
	}
	return lines, total, nil
}

// ── ListSales ─────────────────────────────────────────────────────────────────
// CASHIER: own sales. Owner/admin with a store: the store's sales. Admin
// without a store: everything.

func (s *saleService) ListSales(ctx context.Context, callerID uuid.UUID, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Page.Page < 1 {
		filter.Page.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}

	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	scope, err := saleScopeFor(caller)
	if err != nil {
		return nil, err
	}
	var (
		sales []model.Sale
		total int64
	)
	err = s.withCapabilities(ctx, func(caps schema.Capabilities) error {
		var err error
		sales, total, err = s.repo.List(ctx, caps, scope, filter.Page.Page, filter.Limit)
		return err
	})
	if err != nil {
		if err == repository.ErrNoAttribution {
			return nil, apierror.StructuralMismatch("Server schema does not support cashier association; cannot list cashier sales")
		}
		return nil, apierror.Internal(err)
	}

	cashiers, err := s.cashiersFor(ctx, sales)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	out := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		var cashier *model.User
		if id := sales[i].CashierID; id != nil {
			cashier = cashiers[*id]
		}
		out = append(out, saleToResponse(&sales[i], cashier))
	}
	return &dto.SaleListResponse{Sales: out, Total: total, Page: filter.Page.Page, Limit: filter.Limit}, nil
}

// withCapabilities runs a read with the cached capabilities. A column that
// disappeared since detection triggers one refresh and a second read.
func (s *saleService) withCapabilities(ctx context.Context, read func(schema.Capabilities) error) error {
	caps, err := s.detector.Get(ctx)
	if err != nil {
		return err
	}
	err = read(caps)
	if !schema.IsMissingColumn(err) {
		return err
	}
	log.Warn().Err(err).Msg("sale: sales table rejected a column on read, re-detecting schema")
	s.metrics.RecordSchemaFallback("missing_column_read")
	if caps, err = s.detector.Refresh(ctx); err != nil {
		return err
	}
	return read(caps)
}

func saleScopeFor(caller *model.User) (repository.SaleScope, error) {
	switch {
	case caller.Role == model.RoleCashier:
		id := caller.ID
		return repository.SaleScope{StoreID: caller.StoreID, CashierID: &id}, nil
	case caller.StoreID != nil:
		return repository.SaleScope{StoreID: caller.StoreID}, nil
	case caller.Role == model.RoleAdmin:
		return repository.SaleScope{}, nil
	default:
		return repository.SaleScope{}, apierror.StoreNotAssigned()
	}
}

func (s *saleService) cashiersFor(ctx context.Context, sales []model.Sale) (map[uuid.UUID]*model.User, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, sale := range sales {
		if sale.CashierID != nil && !seen[*sale.CashierID] {
			seen[*sale.CashierID] = true
			ids = append(ids, *sale.CashierID)
		}
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	return byID, nil
}

// ── InvoicePDF ────────────────────────────────────────────────────────────────

func (s *saleService) InvoicePDF(ctx context.Context, callerID, saleID uuid.UUID) (string, []byte, error) {
	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return "", nil, err
	}
	var sale *model.Sale
	err = s.withCapabilities(ctx, func(caps schema.Capabilities) error {
		var err error
		sale, err = s.repo.FindByID(ctx, caps, saleID)
		return err
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return "", nil, apierror.NotFound("Sale not found")
		}
		return "", nil, apierror.Internal(err)
	}

	scope, err := saleScopeFor(caller)
	if err != nil {
		return "", nil, err
	}
	if scope.StoreID != nil && *scope.StoreID != sale.StoreID {
		return "", nil, apierror.TenantMismatch("Sale does not belong to your store")
	}
	if scope.CashierID != nil && (sale.CashierID == nil || *sale.CashierID != *scope.CashierID) {
		return "", nil, apierror.Forbidden("Sale was created by another cashier")
	}

	store, err := s.stores.FindByID(ctx, sale.StoreID)
	if err != nil && !repository.IsNotFound(err) {
		return "", nil, apierror.Internal(err)
	}
	if err != nil {
		store = nil
	}

	var buf bytes.Buffer
	if err := infra.WriteInvoicePDF(&buf, sale, store); err != nil {
		return "", nil, apierror.Internal(err)
	}
	return sale.InvoiceNo, buf.Bytes(), nil
}
