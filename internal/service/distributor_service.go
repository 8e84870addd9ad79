package service

import (
	"context"
	"strings"

	"pharmapos/internal/apierror"
	"pharmapos/internal/dto"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DistributorService interface {
	Create(ctx context.Context, callerID uuid.UUID, req dto.CreateDistributorRequest) (*dto.DistributorResponse, error)
	List(ctx context.Context, callerID uuid.UUID) ([]dto.DistributorResponse, error)
}

type distributorService struct {
	repo  repository.DistributorRepository
	users repository.UserRepository
}

func NewDistributorService(repo repository.DistributorRepository, users repository.UserRepository) DistributorService {
	return &distributorService{repo: repo, users: users}
}

// Create is idempotent per (store, name): an existing ledger row is returned untouched.
func (s *distributorService) Create(ctx context.Context, callerID uuid.UUID, req dto.CreateDistributorRequest) (*dto.DistributorResponse, error) {
	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	storeID, err := callerStore(caller)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierror.Validation(map[string]string{"name": "is required"})
	}

	var d *model.Distributor
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		d, err = s.repo.UpsertTx(tx, storeID, name)
		return err
	})
	if err != nil {
		return nil, internalOr(err)
	}
	resp := distributorToResponse(d)
	return &resp, nil
}

func (s *distributorService) List(ctx context.Context, callerID uuid.UUID) ([]dto.DistributorResponse, error) {
	caller, err := resolveCaller(ctx, s.users, callerID)
	if err != nil {
		return nil, err
	}
	storeID, err := callerStore(caller)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	out := make([]dto.DistributorResponse, 0, len(rows))
	for i := range rows {
		out = append(out, distributorToResponse(&rows[i]))
	}
	return out, nil
}
