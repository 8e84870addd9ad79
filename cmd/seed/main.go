// cmd/seed/main.go: creates or refreshes the demo tenant.
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"os"
	"time"

	"pharmapos/internal/config"
	"pharmapos/internal/infra"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const demoPassword = "pharma123"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, true)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	ctx := context.Background()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := model.Store{Name: "Demo Pharmacy", Address: "1 Market Street", Phone: "9800000000", LicenseNo: "DEMO-LIC-001"}
		if err := tx.Where("license_no = ?", store.LicenseNo).FirstOrCreate(&store).Error; err != nil {
			return err
		}

		users := []model.User{
			{Name: "Admin Demo", Email: "admin@pharmapos.local", Role: model.RoleAdmin},
			{Name: "Owner Demo", Email: "owner@pharmapos.local", Role: model.RoleMedicalOwner, StoreID: &store.ID},
			{Name: "Cashier Demo", Email: "cashier@pharmapos.local", Role: model.RoleCashier, StoreID: &store.ID},
		}
		for i := range users {
			users[i].PasswordHash = string(hash)
			users[i].IsActive = true
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email"}},
				DoUpdates: clause.AssignmentColumns([]string{"password_hash", "name", "role", "store_id", "is_active"}),
			}).Create(&users[i]).Error
			if err != nil {
				return err
			}
		}

		var batches int64
		if err := tx.Model(&model.ProductBatch{}).Where("store_id = ?", store.ID).Count(&batches).Error; err != nil {
			return err
		}
		if batches > 0 {
			return nil
		}
		expiry := time.Now().UTC().AddDate(0, 6, 0).Truncate(24 * time.Hour)
		soon := time.Now().UTC().AddDate(0, 0, 20).Truncate(24 * time.Hour)
		reorder := 10
		samples := []model.ProductBatch{
			{Name: "Paracetamol 500mg", Quantity: 200, CostPrice: decimal.RequireFromString("0.80"), MRP: decimal.RequireFromString("1.50"), ExpiryDate: &expiry, ReorderLevel: &reorder},
			{Name: "Amoxicillin 250mg", Quantity: 60, CostPrice: decimal.RequireFromString("4.20"), MRP: decimal.RequireFromString("7.00"), ExpiryDate: &expiry, ReorderLevel: &reorder},
			{Name: "ORS Sachet", Quantity: 12, CostPrice: decimal.RequireFromString("9.00"), MRP: decimal.RequireFromString("15.00"), ExpiryDate: &soon, ReorderLevel: &reorder},
		}
		products := repository.NewProductRepository(tx)
		for i := range samples {
			samples[i].StoreID = store.ID
			if err := products.CreateTx(tx, &samples[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Str("password", demoPassword).Msg("demo tenant seeded: admin@, owner@, cashier@pharmapos.local")
}
