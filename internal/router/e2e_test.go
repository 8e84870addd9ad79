//go:build integration

package router

// End-to-end tests against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"pharmapos/internal/config"
	"pharmapos/internal/infra"
	"pharmapos/internal/metrics"
	"pharmapos/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

func newPostgresAPI(t *testing.T) (*api, *gorm.DB) {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("pharmapos_test"),
		tcPostgres.WithUsername("pharmapos"),
		tcPostgres.WithPassword("pharmapos"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := infra.NewDatabase(pgURL, true)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(rdURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "e2e-secret",
		JWTExpirationHours: 1,
		CORSAllowedOrigins: "*",
	}
	engine := New(cfg, Deps{DB: db, Redis: rdb, Metrics: metrics.New(), Detector: schema.NewDetector(db)})
	return &api{t: t, engine: engine}, db
}

func (a *api) addProduct(token, name string, qty int) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/products", map[string]any{
		"name": name, "quantity": qty, "costPrice": 5, "mrp": 8,
	}, token)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Product struct {
			ID string `json:"id"`
		} `json:"product"`
	}
	a.decode(w, &created)
	return created.Product.ID
}

// Row locks serialize concurrent buyers of the last units of a batch.
func TestE2E_ConcurrentSalesNeverOversell(t *testing.T) {
	a, _ := newPostgresAPI(t)
	ownerToken, cashierToken := a.shop()
	productID := a.addProduct(ownerToken, "Amoxicillin 500", 5)

	const buyers = 12
	codes := make([]int, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := a.do(http.MethodPost, "/api/sales", map[string]any{
				"items": []map[string]any{{"productId": productID, "quantity": 1, "price": 8}},
			}, cashierToken)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 5, created)

	w := a.do(http.MethodGet, "/api/products", nil, cashierToken)
	var listed struct {
		Products []struct {
			Quantity int `json:"quantity"`
		} `json:"products"`
	}
	a.decode(w, &listed)
	require.Len(t, listed.Products, 1)
	assert.Zero(t, listed.Products[0].Quantity)
}

// An optional column dropped while the server runs is detected on the
// failing insert and the sale is retried without it.
func TestE2E_SchemaDriftRetry(t *testing.T) {
	a, db := newPostgresAPI(t)
	ownerToken, cashierToken := a.shop()
	productID := a.addProduct(ownerToken, "Cetirizine", 10)

	require.NoError(t, db.Exec(`ALTER TABLE sales DROP COLUMN doctor_mobile`).Error)

	w := a.do(http.MethodPost, "/api/sales", map[string]any{
		"items":    []map[string]any{{"productId": productID, "quantity": 2, "price": 8}},
		"customer": map[string]string{"name": "A. Rao", "doctorMobile": "9800000001"},
	}, cashierToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/api/sales", nil, cashierToken)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int64 `json:"total"`
	}
	a.decode(w, &page)
	assert.EqualValues(t, 1, page.Total)
}
