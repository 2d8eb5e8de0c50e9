package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"canopy/internal/auth"
	"canopy/internal/config"
	"canopy/internal/handler"
	"canopy/internal/middleware"
	"canopy/internal/repository/postgres"
	"canopy/internal/service"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	spaceRepo := postgres.NewSpaceRepository(repoConfig)
	pageRepo := postgres.NewPageRepository(repoConfig)
	hierarchyRepo := postgres.NewHierarchyRepository(repoConfig)
	permRepo := postgres.NewPermissionRepository(repoConfig)
	groupRepo := postgres.NewGroupRepository(repoConfig)
	lockManager := postgres.NewAdvisoryLockManager(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Create services
	hierarchyService := service.NewHierarchyService(pageRepo, hierarchyRepo, lockManager, txManager, logger)
	accessService := service.NewAccessService(pageRepo, permRepo, groupRepo, txManager, logger)
	pageService := service.NewPageService(pageRepo, spaceRepo, txManager, hierarchyService, logger)
	spaceService := service.NewSpaceService(spaceRepo, logger)
	groupService := service.NewGroupService(groupRepo, logger)

	// Create handlers
	spaceHandler := handler.NewSpaceHandler(spaceService, pageService, accessService, logger)
	pageHandler := handler.NewPageHandler(pageService, accessService, logger)
	hierarchyHandler := handler.NewHierarchyHandler(hierarchyService, logger)
	accessHandler := handler.NewAccessHandler(accessService, logger)
	groupHandler := handler.NewGroupHandler(groupService, logger)

	logger.Info("services initialized")

	// Scheduled integrity audit + repair. Contended spaces are skipped and
	// picked up on the next pass.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.RepairSchedule, func() {
		result, err := hierarchyService.Repair(context.Background())
		if err != nil {
			logger.Error("scheduled repair failed", "error", err)
			return
		}
		if result.RebuiltSpaces > 0 {
			logger.Info("scheduled repair completed", "rebuilt_spaces", result.RebuiltSpaces)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule repair: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("repair scheduler started", "schedule", cfg.RepairSchedule)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", spaceHandler.HealthCheck)

	// Space routes
	mux.HandleFunc("GET /api/spaces", spaceHandler.ListSpaces)
	mux.HandleFunc("POST /api/spaces", spaceHandler.CreateSpace)
	mux.HandleFunc("GET /api/spaces/{id}", spaceHandler.GetSpace)
	mux.HandleFunc("GET /api/spaces/{id}/pages", spaceHandler.ListSpacePages)

	// Page routes
	mux.HandleFunc("POST /api/pages", pageHandler.CreatePage)
	mux.HandleFunc("GET /api/pages/{id}", pageHandler.GetPage)
	mux.HandleFunc("POST /api/pages/{id}/move", pageHandler.MovePage)
	mux.HandleFunc("DELETE /api/pages/{id}", pageHandler.DeletePage)
	mux.HandleFunc("POST /api/pages/{id}/restore", pageHandler.RestorePage)

	// Ancestry routes
	mux.HandleFunc("GET /api/pages/{id}/ancestors", hierarchyHandler.GetAncestors)
	mux.HandleFunc("GET /api/pages/{id}/descendants", hierarchyHandler.GetDescendants)
	mux.HandleFunc("GET /api/pages/{id}/breadcrumbs", hierarchyHandler.GetBreadcrumbs)

	// Closure maintenance routes
	mux.HandleFunc("POST /api/hierarchy/rebuild", hierarchyHandler.Rebuild)
	mux.HandleFunc("GET /api/hierarchy/integrity", hierarchyHandler.CheckIntegrity)
	mux.HandleFunc("POST /api/hierarchy/repair", hierarchyHandler.Repair)

	// Access routes
	mux.HandleFunc("GET /api/pages/{id}/access", accessHandler.ResolveAccess)
	mux.HandleFunc("POST /api/access/resolve", accessHandler.ResolveAccessBatch)
	mux.HandleFunc("GET /api/users/me/pages", accessHandler.ListMyPages)

	// Grant routes
	mux.HandleFunc("GET /api/pages/{id}/permissions", accessHandler.ListGrants)
	mux.HandleFunc("POST /api/pages/{id}/permissions", accessHandler.GrantRole)
	mux.HandleFunc("DELETE /api/pages/{id}/permissions", accessHandler.RevokeRole)

	// Group routes
	mux.HandleFunc("POST /api/groups", groupHandler.CreateGroup)
	mux.HandleFunc("POST /api/groups/{id}/members", groupHandler.AddMember)
	mux.HandleFunc("DELETE /api/groups/{id}/members/{userID}", groupHandler.RemoveMember)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
