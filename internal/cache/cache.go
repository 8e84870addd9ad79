// Package cache holds the per-store product list cache. Reads fall through
// to the database on any miss or error; writes to inventory invalidate.
package cache

import (
	"context"
	"time"

	"pharmapos/internal/dto"

	"github.com/google/uuid"
)

type ProductCache interface {
	Get(ctx context.Context, storeID uuid.UUID) ([]dto.ProductResponse, bool, error)
	Set(ctx context.Context, storeID uuid.UUID, products []dto.ProductResponse) error
	Invalidate(ctx context.Context, storeID uuid.UUID) error
}

// NoopProductCache is used when Redis is not configured.
type NoopProductCache struct{}

func (NoopProductCache) Get(_ context.Context, _ uuid.UUID) ([]dto.ProductResponse, bool, error) {
	return nil, false, nil
}

func (NoopProductCache) Set(_ context.Context, _ uuid.UUID, _ []dto.ProductResponse) error {
	return nil
}

func (NoopProductCache) Invalidate(_ context.Context, _ uuid.UUID) error { return nil }

const defaultTTL = 5 * time.Minute

func productsKey(storeID uuid.UUID) string { return "products:" + storeID.String() }
