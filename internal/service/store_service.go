package service

import (
	"context"
	"strings"
	"time"

	"pharmapos/internal/apierror"
	"pharmapos/internal/dto"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StoreService interface {
	// UpsertProfile creates the owner's store and links it, or updates the store they already own.
	UpsertProfile(ctx context.Context, callerID uuid.UUID, req dto.StoreProfileRequest) (*dto.StoreResponse, error)
	// GetProfile returns nil when the caller has no store yet.
	GetProfile(ctx context.Context, callerID uuid.UUID) (*dto.StoreResponse, error)
	ListWithSales(ctx context.Context) ([]dto.StoreWithSales, error)
}

type storeService struct {
	repo  repository.StoreRepository
	users repository.UserRepository
	sales repository.SaleRepository
}

func NewStoreService(repo repository.StoreRepository, users repository.UserRepository, sales repository.SaleRepository) StoreService {
	return &storeService{repo: repo, users: users, sales: sales}
}

func (s *storeService) UpsertProfile(ctx context.Context, callerID uuid.UUID, req dto.StoreProfileRequest) (*dto.StoreResponse, error) {
	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}

	if caller.StoreID != nil {
		store, err := s.repo.FindByID(ctx, *caller.StoreID)
		if err != nil {
			return nil, internalOr(notFoundAs(err, "Store not found"))
		}
		applyProfile(store, req)
		store.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, store); err != nil {
			if repository.IsDuplicate(err) {
				return nil, apierror.Conflict("A store with this licence number already exists")
			}
			return nil, apierror.Internal(err)
		}
		resp := storeToResponse(store)
		return &resp, nil
	}

	store := &model.Store{}
	applyProfile(store, req)
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, store); err != nil {
			return err
		}
		return s.users.SetStoreTx(tx, caller.ID, store.ID)
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			return nil, apierror.Conflict("A store with this licence number already exists")
		}
		return nil, internalOr(err)
	}
	log.Info().Str("store_id", store.ID.String()).Str("owner_id", caller.ID.String()).Msg("store created")
	resp := storeToResponse(store)
	return &resp, nil
}

func applyProfile(store *model.Store, req dto.StoreProfileRequest) {
	store.Name = strings.TrimSpace(req.Name)
	store.Address = strings.TrimSpace(req.Address)
	store.Phone = strings.TrimSpace(req.Phone)
	store.Email = trimmed(req.Email)
	store.LicenseNo = strings.TrimSpace(req.LicenseNo)
	store.GSTNo = trimmed(req.GSTNo)
}

func (s *storeService) GetProfile(ctx context.Context, callerID uuid.UUID) (*dto.StoreResponse, error) {
	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	if caller.StoreID == nil {
		return nil, nil
	}
	store, err := s.repo.FindByID(ctx, *caller.StoreID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, apierror.Internal(err)
	}
	resp := storeToResponse(store)
	return &resp, nil
}

func (s *storeService) ListWithSales(ctx context.Context) ([]dto.StoreWithSales, error) {
	stores, err := s.repo.List(ctx)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	totals, err := s.sales.TotalsByStore(ctx)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	byStore := make(map[uuid.UUID]repository.StoreSalesTotal, len(totals))
	for _, t := range totals {
		byStore[t.StoreID] = t
	}

	out := make([]dto.StoreWithSales, 0, len(stores))
	for i := range stores {
		row := dto.StoreWithSales{StoreResponse: storeToResponse(&stores[i]), TotalSales: decimal.Zero}
		if t, ok := byStore[stores[i].ID]; ok {
			row.SalesCount = t.SalesCount
			row.TotalSales = t.TotalSales
		}
		out = append(out, row)
	}
	return out, nil
}

// notFoundAs maps a record-not-found error to a NotFound apierror.
func notFoundAs(err error, msg string) error {
	if repository.IsNotFound(err) {
		return apierror.NotFound(msg)
	}
	return err
}
