package router

import (
	"time"

	"pharmapos/internal/cache"
	"pharmapos/internal/config"
	"pharmapos/internal/handler"
	"pharmapos/internal/infra"
	"pharmapos/internal/metrics"
	"pharmapos/internal/middleware"
	"pharmapos/internal/model"
	"pharmapos/internal/repository"
	"pharmapos/internal/schema"
	"pharmapos/internal/service"
	"pharmapos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived resources built by the composition root.
// Redis may be nil: the product cache becomes a no-op and alerts are not queued.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Mailer   *infra.Mailer
	Metrics  *metrics.Metrics
	Detector *schema.Detector
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	db, rdb := deps.DB, deps.Redis
	detector := deps.Detector
	if detector == nil {
		detector = schema.NewDetector(db)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.ErrorHandler())
	if cfg.RateLimitPerMinute > 0 {
		r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))
	}

	// ── Infrastructure ───────────────────────────────────────────────────────
	var productCache cache.ProductCache = cache.NoopProductCache{}
	var dispatcher *worker.Dispatcher
	if rdb != nil {
		productCache = cache.NewRedisProductCache(rdb, cfg.ProductCacheTTL)
		dispatcher = worker.NewDispatcher(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	productRepo := repository.NewProductRepository(db)
	distributorRepo := repository.NewDistributorRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	saleSvc := service.NewSaleService(saleRepo, productRepo, userRepo, storeRepo, detector, productCache, dispatcher, deps.Metrics)
	productSvc := service.NewProductService(productRepo, distributorRepo, userRepo, productCache, deps.Metrics)
	distributorSvc := service.NewDistributorService(distributorRepo, userRepo)
	storeSvc := service.NewStoreService(storeRepo, userRepo, saleRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	productsH := handler.NewProductsHandler(productSvc)
	distributorsH := handler.NewDistributorsHandler(distributorSvc)
	storesH := handler.NewStoresHandler(storeSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	var smtp handler.BreakerReporter
	if deps.Mailer != nil {
		smtp = deps.Mailer
	}
	r.GET("/health", handler.Health(db, rdb, smtp))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		loginLimiter := middleware.LoginRateLimiter()
		auth.POST("/register", loginLimiter, authH.Register)
		auth.POST("/login", loginLimiter, authH.Login)
		auth.GET("/profile", jwtMW, authH.Profile)
		auth.POST("/logout", jwtMW, authH.Logout)
	}

	const (
		admin   = model.RoleAdmin
		owner   = model.RoleMedicalOwner
		cashier = model.RoleCashier
	)

	protected := api.Group("", jwtMW)
	{
		users := protected.Group("/users")
		{
			users.GET("", middleware.RequireRole(admin), usersH.List)
			users.GET("/cashiers", middleware.RequireRole(admin, owner), usersH.ListCashiers)
			users.POST("", middleware.RequireRole(admin, owner), usersH.Create)
			users.GET("/:id", usersH.Get)
			users.PUT("/:id", middleware.RequireRole(admin), usersH.Update)
			users.DELETE("/:id", middleware.RequireRole(admin), usersH.Deactivate)
		}

		sales := protected.Group("/sales", middleware.RequireRole(admin, owner, cashier))
		{
			sales.POST("", salesH.Create)
			sales.GET("", salesH.List)
			sales.GET("/:id/invoice", salesH.Invoice)
		}

		products := protected.Group("/products", middleware.RequireRole(admin, owner, cashier))
		{
			products.POST("", productsH.Create)
			products.GET("", productsH.List)
		}

		distributors := protected.Group("/distributors")
		{
			distributors.POST("", middleware.RequireRole(admin, owner), distributorsH.Create)
			distributors.GET("", middleware.RequireRole(admin, owner, cashier), distributorsH.List)
		}

		stores := protected.Group("/stores")
		{
			stores.POST("/profile", middleware.RequireRole(owner), storesH.UpsertProfile)
			stores.GET("/profile", middleware.RequireRole(owner), storesH.GetProfile)
			stores.GET("", middleware.RequireRole(admin), storesH.List)
		}

		if rdb != nil {
			jobsH := handler.NewJobsHandler(rdb)
			protected.POST("/admin/jobs/dlq/replay", middleware.RequireRole(admin), jobsH.ReplayDLQ)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
