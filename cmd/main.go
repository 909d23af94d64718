package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"staffhub/internal/caching"
	"staffhub/internal/config"
	"staffhub/internal/handlers"
	"staffhub/internal/jobs"
	"staffhub/internal/middleware"
	"staffhub/internal/repositories"
	"staffhub/internal/services"
	"staffhub/pkg/database"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: JWT_SECRET not set, using a generated secret; sessions will not survive a restart")
	}

	// Shared caches
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	directory := caching.NewDirectoryCache(cfg.DirectoryTTL)
	plans := caching.NewPlanCache()

	// Repositories
	tenantRepo := repositories.NewTenantRepo(pool)
	schemaRepo := repositories.NewSchemaRepo(pool)
	userRepo := repositories.NewUserRepo(pool, plans)
	roleRepo := repositories.NewRoleRepo(pool, plans)
	moduleRepo := repositories.NewModuleRepo(pool, plans)
	tokenRepo := repositories.NewTokenRepo(pool, plans)

	if err := schemaRepo.EnsureRegistry(context.Background()); err != nil {
		log.Fatalf("Failed to create tenant registry: %v", err)
	}

	// Services
	tenantSvc := services.NewTenantService(tenantRepo, schemaRepo, userRepo, roleRepo, moduleRepo, directory, plans)
	authSvc := services.NewAuthService(userRepo, tokenRepo, cacheSvc, jwtSecret, cfg.AccessTTL, cfg.RefreshTTL)

	// Background retention sweep
	retention, err := jobs.NewTokenRetention(tenantRepo, tokenRepo, cfg.TokenRetention)
	if err != nil {
		log.Fatalf("Failed to create retention job: %v", err)
	}
	retention.Start()
	defer retention.Stop()

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, cacheSvc)
	tenantHandlers := handlers.NewTenantHandlers(tenantSvc)
	rbacMiddleware := middleware.NewRBACMiddleware(roleRepo)

	e := echo.New()
	e.Validator = handlers.NewRequestValidator()

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no tenant required)
	e.GET("/health", handlers.HealthCheck)
	e.GET("/health/ready", func(c echo.Context) error {
		return handlers.ReadinessCheck(c, pool)
	})

	// Everything under /v1 is bound to exactly one tenant
	v1 := e.Group("/v1")
	v1.Use(middleware.TenantResolver(tenantSvc, cfg.TrustDev))

	auth := v1.Group("/auth")
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.Refresh)
	auth.POST("/logout", authHandlers.Logout)

	v1.GET("/modules", tenantHandlers.ListModules, middleware.JWTMiddleware(jwtSecret, cacheSvc))

	// Operator-only provisioning surface
	admin := v1.Group("/admin",
		middleware.JWTMiddleware(jwtSecret, cacheSvc),
		rbacMiddleware.RequireRole("SuperAdmin", "Admin"),
	)
	admin.POST("/tenants", tenantHandlers.CreateTenant)
	admin.GET("/tenants", tenantHandlers.ListTenants)
	admin.GET("/tenants/:id", tenantHandlers.GetTenant)
	admin.PUT("/tenants/:id/subdomain", tenantHandlers.RenameSubdomain)
	admin.DELETE("/tenants/:id", tenantHandlers.DeactivateTenant)

	if cfg.TrustDev {
		log.Printf("WARNING: development tenant overrides are enabled (TRUST_DEV=true)")
	}
	log.Printf("staffhub v%s starting on port %d", version, cfg.Port)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
