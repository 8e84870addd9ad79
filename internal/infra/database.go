package infra

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pharmapos/internal/model"
)

// NewDatabase opens a GORM connection. postgres:// URLs go through pgx; sqlite:
// and file: DSNs use the pure-Go sqlite driver (local development and tests).
// When autoMigrate is false the schema is left exactly as the operator
// provisioned it and the sales write path negotiates whatever columns exist.
func NewDatabase(dsn string, autoMigrate bool) (*gorm.DB, error) {
	dialector, isSQLite := dialectorFor(dsn)
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// sqlite has no row locks; a single connection serializes writers.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if autoMigrate {
		if err := RunMigrations(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:")), true
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return sqlite.Open(dsn), true
	default:
		return postgres.Open(dsn), false
	}
}

// RunMigrations creates / updates every table and then applies the idempotent
// patches AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Store{},
		&model.User{},
		&model.ProductBatch{},
		&model.Distributor{},
		&model.Sale{},
		&model.SaleItem{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs DDL that must be safe to re-run. Both postgres and
// sqlite understand partial indexes with IF NOT EXISTS.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"partial index for the expiry sweep",
			`CREATE INDEX IF NOT EXISTS idx_product_batches_expiry_in_stock
			   ON product_batches (expiry_date) WHERE quantity > 0`},
		{"sales history ordering",
			`CREATE INDEX IF NOT EXISTS idx_sales_store_created
			   ON sales (store_id, created_at)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
