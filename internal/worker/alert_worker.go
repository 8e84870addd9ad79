package worker

// alert_worker.go
// Turns low-stock and expiry jobs into plain-text emails to the store's owners.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pharmapos/internal/model"
	"pharmapos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LowStockPayload is enqueued after a sale leaves a batch at or below its reorder level.
type LowStockPayload struct {
	StoreID      string `json:"store_id"`
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorder_level"`
}

type ExpiringBatch struct {
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	BatchNo    *string `json:"batch_no,omitempty"`
	ExpiryDate string  `json:"expiry_date"` // YYYY-MM-DD
	Quantity   int     `json:"quantity"`
}

// ExpiryPayload is one store's digest from the expiry sweep.
type ExpiryPayload struct {
	StoreID string          `json:"store_id"`
	Batches []ExpiringBatch `json:"batches"`
}

// AlertSender is satisfied by infra.Mailer.
type AlertSender interface {
	Enabled() bool
	SendAlert(to, subject, body string) error
}

// AlertWorker resolves a store's active owners and mails each of them.
type AlertWorker struct {
	sender AlertSender
	users  repository.UserRepository
}

func NewAlertWorker(sender AlertSender, users repository.UserRepository) *AlertWorker {
	return &AlertWorker{sender: sender, users: users}
}

// Register wires the worker's handlers into the pool.
func (w *AlertWorker) Register(p *Pool) {
	p.Handle(JobLowStock, w.ProcessLowStock)
	p.Handle(JobExpiry, w.ProcessExpiry)
}

func (w *AlertWorker) ProcessLowStock(ctx context.Context, raw json.RawMessage) error {
	var payload LowStockPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("alert_worker: invalid low_stock payload: %w", err)
	}
	subject := fmt.Sprintf("Low stock: %s", payload.Name)
	body := fmt.Sprintf("%s is down to %d units (reorder level %d).\nPlease reorder from your distributor.",
		payload.Name, payload.Quantity, payload.ReorderLevel)
	return w.notifyOwners(ctx, payload.StoreID, subject, body)
}

func (w *AlertWorker) ProcessExpiry(ctx context.Context, raw json.RawMessage) error {
	var payload ExpiryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("alert_worker: invalid expiry payload: %w", err)
	}
	if len(payload.Batches) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d batch(es) are close to expiry:\n\n", len(payload.Batches))
	for _, batch := range payload.Batches {
		batchNo := "-"
		if batch.BatchNo != nil {
			batchNo = *batch.BatchNo
		}
		fmt.Fprintf(&b, "  %s (batch %s): %d units, expires %s\n", batch.Name, batchNo, batch.Quantity, batch.ExpiryDate)
	}
	subject := fmt.Sprintf("%d batch(es) expiring soon", len(payload.Batches))
	return w.notifyOwners(ctx, payload.StoreID, subject, b.String())
}

func (w *AlertWorker) notifyOwners(ctx context.Context, storeIDStr, subject, body string) error {
	storeID, err := uuid.Parse(storeIDStr)
	if err != nil {
		log.Error().Str("store_id", storeIDStr).Msg("alert_worker: invalid store_id, dropping")
		return nil
	}
	if !w.sender.Enabled() {
		log.Info().Str("store_id", storeIDStr).Str("subject", subject).Msg("alert_worker: SMTP disabled, alert logged only")
		return nil
	}

	active := true
	owners, err := w.users.List(ctx, repository.UserQuery{
		Role:     model.RoleMedicalOwner,
		StoreID:  &storeID,
		IsActive: &active,
	})
	if err != nil {
		return fmt.Errorf("alert_worker: load owners: %w", err)
	}
	if len(owners) == 0 {
		log.Warn().Str("store_id", storeIDStr).Msg("alert_worker: store has no active owner, skipping")
		return nil
	}
	for _, owner := range owners {
		if err := w.sender.SendAlert(owner.Email, subject, body); err != nil {
			return err
		}
		log.Info().Str("to", owner.Email).Str("subject", subject).Msg("alert_worker: alert sent")
	}
	return nil
}
