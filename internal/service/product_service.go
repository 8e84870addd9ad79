package service

import (
	"context"
	"math"
	"strings"
	"time"

	"pharmapos/internal/apierror"
	"pharmapos/internal/cache"
	"pharmapos/internal/dto"
	"pharmapos/internal/metrics"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductService interface {
	// Create registers a replenishment batch in the caller's store and credits
	// the supplier's ledger when one is named.
	Create(ctx context.Context, callerID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	List(ctx context.Context, callerID uuid.UUID) ([]dto.ProductResponse, error)
}

type productService struct {
	repo         repository.ProductRepository
	distributors repository.DistributorRepository
	users        repository.UserRepository
	cache        cache.ProductCache
	metrics      *metrics.Metrics
}

func NewProductService(
	repo repository.ProductRepository,
	distributors repository.DistributorRepository,
	users repository.UserRepository,
	productCache cache.ProductCache,
	m *metrics.Metrics,
) ProductService {
	if productCache == nil {
		productCache = cache.NoopProductCache{}
	}
	return &productService{repo: repo, distributors: distributors, users: users, cache: productCache, metrics: m}
}

func (s *productService) Create(ctx context.Context, callerID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	storeID, err := callerStore(caller)
	if err != nil {
		return nil, err
	}

	batch, err := batchFromRequest(storeID, req)
	if err != nil {
		return nil, err
	}
	supplier := trimmed(req.Supplier)

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, batch); err != nil {
			return err
		}
		if supplier == nil {
			return nil
		}
		if _, err := s.distributors.UpsertTx(tx, storeID, *supplier); err != nil {
			return err
		}
		purchase := batch.CostPrice.Mul(decimal.NewFromInt(int64(batch.Quantity)))
		return s.distributors.AddPurchaseTx(tx, storeID, *supplier, purchase)
	})
	if err != nil {
		return nil, internalOr(err)
	}

	if err := s.cache.Invalidate(ctx, storeID); err != nil {
		log.Warn().Err(err).Str("store_id", storeID.String()).Msg("product: cache invalidation failed")
	}
	log.Info().
		Str("product_id", batch.ID.String()).
		Str("store_id", storeID.String()).
		Int("quantity", batch.Quantity).
		Msg("product batch created")

	resp := productToResponse(batch)
	return &resp, nil
}

func batchFromRequest(storeID uuid.UUID, req dto.CreateProductRequest) (*model.ProductBatch, error) {
	fields := make(map[string]string)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		fields["name"] = "is required"
	}
	if req.Quantity.IsNegative() || !req.Quantity.IsInteger() {
		fields["quantity"] = "must be a non-negative whole number"
	} else if req.Quantity.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		fields["quantity"] = "is too large"
	}
	for key, v := range map[string]decimal.Decimal{"costPrice": req.CostPrice, "mrp": req.MRP, "discount": req.Discount} {
		switch {
		case v.IsNegative():
			fields[key] = "must not be negative"
		case !v.Equal(v.Round(moneyScale)):
			fields[key] = "must have at most 2 decimal places"
		}
	}
	if req.Discount.GreaterThan(decimal.NewFromInt(100)) {
		fields["discount"] = "must be at most 100"
	}

	var expiry *time.Time
	if e := trimmed(req.ExpiryDate); e != nil {
		t, err := time.Parse("2006-01-02", *e)
		if err != nil {
			fields["expiryDate"] = "must be a YYYY-MM-DD date"
		} else {
			expiry = &t
		}
	}
	if len(fields) > 0 {
		return nil, apierror.Validation(fields)
	}

	now := time.Now().UTC()
	return &model.ProductBatch{
		StoreID:      storeID,
		Name:         name,
		BatchNo:      trimmed(req.BatchNumber),
		ExpiryDate:   expiry,
		Quantity:     int(req.Quantity.IntPart()),
		CostPrice:    req.CostPrice,
		MRP:          req.MRP,
		Discount:     req.Discount,
		Manufacturer: trimmed(req.Supplier),
		ReorderLevel: req.ReorderLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *productService) List(ctx context.Context, callerID uuid.UUID) ([]dto.ProductResponse, error) {
	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	storeID, err := callerStore(caller)
	if err != nil {
		return nil, err
	}

	cached, ok, err := s.cache.Get(ctx, storeID)
	if err != nil {
		log.Warn().Err(err).Str("store_id", storeID.String()).Msg("product: cache read failed, falling back to DB")
	}
	s.metrics.RecordCacheLookup(ok)
	if ok {
		return cached, nil
	}

	batches, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	out := make([]dto.ProductResponse, 0, len(batches))
	for i := range batches {
		out = append(out, productToResponse(&batches[i]))
	}
	if err := s.cache.Set(ctx, storeID, out); err != nil {
		log.Warn().Err(err).Str("store_id", storeID.String()).Msg("product: cache write failed")
	}
	return out, nil
}
