package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmapos/internal/apierror"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// NewInvoiceNumber returns INV-<unix millis>-<16 upper-case hex chars>.
// The suffix is the random half of a v4 UUID, so two numbers minted in the
// same millisecond collide with negligible probability.
func NewInvoiceNumber() string {
	id := uuid.New()
	return fmt.Sprintf("INV-%d-%X", time.Now().UnixMilli(), id[8:])
}

// resolveCaller loads the authenticated user. A token whose user has since
// been removed or deactivated is treated as unauthenticated.
func resolveCaller(ctx context.Context, users repository.UserRepository, callerID uuid.UUID) (*model.User, error) {
	u, err := users.FindByID(ctx, callerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apierror.AuthenticationRequired("Authenticated user required")
		}
		return nil, apierror.Internal(err)
	}
	if !u.IsActive {
		return nil, apierror.AuthenticationRequired("Account is inactive. Please contact administrator.")
	}
	return u, nil
}

// callerStore returns the caller's store or StoreNotAssigned.
func callerStore(u *model.User) (uuid.UUID, error) {
	if u.StoreID == nil {
		return uuid.Nil, apierror.StoreNotAssigned()
	}
	return *u.StoreID, nil
}

// trimmed returns nil for nil or blank strings.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// internalOr passes typed errors through and wraps everything else as Internal.
func internalOr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierror.As(err); ok {
		return err
	}
	return apierror.Internal(err)
}
