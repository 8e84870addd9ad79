package schema

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Detector computes Capabilities from the live database once and caches them
// until Refresh is called. Callers must not hold an open transaction on a
// single-connection pool when calling Get or Refresh.
type Detector struct {
	db *gorm.DB

	mu     sync.Mutex
	cached *Capabilities
}

func NewDetector(db *gorm.DB) *Detector {
	return &Detector{db: db}
}

// Get returns the cached capabilities, detecting them on first use.
func (d *Detector) Get(ctx context.Context) (Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cached != nil {
		return *d.cached, nil
	}
	return d.detectLocked(ctx)
}

// Refresh discards the cache and re-reads the schema.
func (d *Detector) Refresh(ctx context.Context) (Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = nil
	return d.detectLocked(ctx)
}

func (d *Detector) detectLocked(ctx context.Context) (Capabilities, error) {
	columnTypes, err := d.db.WithContext(ctx).Migrator().ColumnTypes(SalesTable)
	if err != nil {
		return Capabilities{}, fmt.Errorf("schema: read %s columns: %w", SalesTable, err)
	}
	names := make([]string, 0, len(columnTypes))
	for _, ct := range columnTypes {
		names = append(names, ct.Name())
	}
	caps := FromColumns(names)
	if missing := caps.MissingRequired(); len(missing) > 0 {
		return Capabilities{}, fmt.Errorf("schema: %s is missing required columns %v", SalesTable, missing)
	}

	evt := log.Info()
	if caps.Attribution != AttributionInline || len(caps.DroppedOptional()) > 0 {
		evt = log.Warn()
	}
	evt.Str("attribution", caps.Attribution.String()).
		Str("attribution_column", caps.AttributionColumn).
		Strs("dropped_optional", caps.DroppedOptional()).
		Msg("schema: sales capabilities detected")

	d.cached = &caps
	return caps, nil
}
