package service

import (
	"context"
	"strings"
	"time"

	"pharmapos/internal/apierror"
	"pharmapos/internal/config"
	"pharmapos/internal/dto"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
	Profile(ctx context.Context, callerID uuid.UUID) (*dto.UserResponse, error)

	ListUsers(ctx context.Context, filter dto.UserFilter) ([]dto.UserResponse, error)
	ListCashiers(ctx context.Context, callerID uuid.UUID) ([]dto.UserResponse, error)
	CreateUser(ctx context.Context, callerID uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error)
	GetUser(ctx context.Context, callerID, id uuid.UUID) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) error
}

type authService struct {
	repo repository.UserRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

// Register creates a MEDICAL_OWNER with no store; the store comes later through the profile endpoint.
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, model.RoleMedicalOwner, nil)
	if err != nil {
		return nil, err
	}
	token, err := s.generateToken(user)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return &dto.AuthResponse{User: userToResponse(user), Token: token}, nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.AuthenticationRequired("Invalid credentials")
		}
		return nil, apierror.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierror.AuthenticationRequired("Invalid credentials")
	}
	if !user.IsActive {
		return nil, apierror.AuthenticationRequired("Account is inactive. Please contact administrator.")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	log.Info().Str("user_id", user.ID.String()).Str("role", user.Role).Msg("user logged in")
	return &dto.AuthResponse{User: userToResponse(user), Token: token}, nil
}

func (s *authService) Profile(ctx context.Context, callerID uuid.UUID) (*dto.UserResponse, error) {
	caller, err := resolveCaller(ctx, s.repo, callerID)
	if err != nil {
		return nil, err
	}
	resp := userToResponse(caller)
	return &resp, nil
}

func (s *authService) ListUsers(ctx context.Context, filter dto.UserFilter) ([]dto.UserResponse, error) {
	users, err := s.repo.List(ctx, repository.UserQuery{Role: filter.Role, IsActive: filter.IsActive})
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return usersToResponse(users), nil
}

// ListCashiers returns every cashier for an ADMIN and the store's cashiers for anyone else.
func (s *authService) ListCashiers(ctx context.Context, callerID uuid.UUID) ([]dto.UserResponse, error) {
	caller, err := resolveCaller(ctx, s.repo, callerID)
	if err != nil {
		return nil, err
	}
	q := repository.UserQuery{Role: model.RoleCashier}
	if caller.Role != model.RoleAdmin {
		storeID, err := callerStore(caller)
		if err != nil {
			return nil, err
		}
		q.StoreID = &storeID
	}
	users, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return usersToResponse(users), nil
}

// CreateUser lets an ADMIN create any user. A MEDICAL_OWNER may only create
// cashiers, and they always land in the owner's store.
func (s *authService) CreateUser(ctx context.Context, callerID uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	caller, err := resolveCaller(ctx, s.repo, callerID)
	if err != nil {
		return nil, err
	}

	var storeID *uuid.UUID
	switch caller.Role {
	case model.RoleAdmin:
		if id := trimmed(req.StoreID); id != nil {
			parsed, err := uuid.Parse(*id)
			if err != nil {
				return nil, apierror.Validation(map[string]string{"storeId": "must be a valid id"})
			}
			storeID = &parsed
		}
	case model.RoleMedicalOwner:
		if req.Role != model.RoleCashier {
			return nil, apierror.Forbidden("Medical owners can only create cashiers")
		}
		owned, err := callerStore(caller)
		if err != nil {
			return nil, err
		}
		storeID = &owned
	default:
		return nil, apierror.Forbidden("Insufficient permissions")
	}
	if req.Role != model.RoleAdmin && storeID == nil {
		return nil, apierror.Validation(map[string]string{"storeId": "is required for this role"})
	}

	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, req.Role, storeID)
	if err != nil {
		return nil, err
	}
	resp := userToResponse(user)
	return &resp, nil
}

// GetUser is open to every role but only ADMIN can see users outside their own store.
func (s *authService) GetUser(ctx context.Context, callerID, id uuid.UUID) (*dto.UserResponse, error) {
	caller, err := resolveCaller(ctx, s.repo, callerID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internalOr(notFoundAs(err, "User not found"))
	}
	if caller.Role != model.RoleAdmin && caller.ID != user.ID {
		if caller.StoreID == nil || user.StoreID == nil || *caller.StoreID != *user.StoreID {
			return nil, apierror.TenantMismatch("User does not belong to your store")
		}
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) UpdateUser(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internalOr(notFoundAs(err, "User not found"))
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.StoreID != nil {
		if id := trimmed(req.StoreID); id == nil {
			user.StoreID = nil
		} else {
			parsed, err := uuid.Parse(*id)
			if err != nil {
				return nil, apierror.Validation(map[string]string{"storeId": "must be a valid id"})
			}
			user.StoreID = &parsed
		}
		user.Store = nil
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apierror.Conflict("User with this email already exists")
		}
		return nil, apierror.Internal(err)
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	resp := userToResponse(updated)
	return &resp, nil
}

// DeactivateUser is a soft delete: sales keep pointing at the user.
func (s *authService) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return internalOr(notFoundAs(err, "User not found"))
	}
	log.Info().Str("user_id", id.String()).Msg("user deactivated")
	return nil
}

func (s *authService) createUser(ctx context.Context, name, email, password, role string, storeID *uuid.UUID) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	now := time.Now().UTC()
	user := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		StoreID:      storeID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apierror.Conflict("User with this email already exists")
		}
		return nil, apierror.Internal(err)
	}
	log.Info().Str("user_id", user.ID.String()).Str("role", role).Msg("user created")
	return user, nil
}

func (s *authService) generateToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"exp":     now.Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func usersToResponse(users []model.User) []dto.UserResponse {
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, userToResponse(&users[i]))
	}
	return out
}
