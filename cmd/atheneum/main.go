package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atheneum-lms/atheneum/internal/app"
	"github.com/atheneum-lms/atheneum/internal/audit"
	"github.com/atheneum-lms/atheneum/internal/auth"
	"github.com/atheneum-lms/atheneum/internal/collections"
	"github.com/atheneum-lms/atheneum/internal/courses"
	"github.com/atheneum-lms/atheneum/internal/courses/activities"
	"github.com/atheneum-lms/atheneum/internal/courses/chapters"
	"github.com/atheneum-lms/atheneum/internal/observability"
	"github.com/atheneum-lms/atheneum/internal/orgs"
	"github.com/atheneum-lms/atheneum/internal/platform/cache"
	"github.com/atheneum-lms/atheneum/internal/platform/db"
	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/roles"
	"github.com/atheneum-lms/atheneum/internal/search"
	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/internal/storage"
	"github.com/atheneum-lms/atheneum/internal/usergroups"
	"github.com/atheneum-lms/atheneum/internal/users"
	"github.com/atheneum-lms/atheneum/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "atheneum_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	store, err := storage.New(ctx, storage.Config{
		Backend:   cfg.StorageBackend,
		MediaRoot: cfg.MediaRoot,
		S3: storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
	}, logger)
	if err != nil {
		logger.Error("init storage", slog.Any("error", err))
		os.Exit(1)
	}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	resolver := rbac.NewResolver(rbac.NewRepository(pool), logger)

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersService := users.NewService(users.NewRepository(pool), resolver, store, jobClient, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService)

	orgsService := orgs.NewService(orgs.NewRepository(pool), resolver, store, jobClient, auditLogger, logger)
	orgsHandler := orgs.NewHandler(logger, orgsService)

	rolesService := roles.NewService(roles.NewRepository(pool), resolver, auditLogger)
	rolesHandler := roles.NewHandler(logger, rolesService)

	coursesService := courses.NewService(courses.NewRepository(pool), resolver, store, jobClient, idempotencyStore, auditLogger, logger)
	coursesHandler := courses.NewHandler(logger, coursesService)

	chaptersService := chapters.NewService(chapters.NewRepository(pool), resolver, logger)
	chaptersHandler := chapters.NewHandler(logger, chaptersService)

	activitiesService := activities.NewService(activities.NewRepository(pool), resolver, logger)
	activitiesHandler := activities.NewHandler(logger, activitiesService)

	collectionsService := collections.NewService(collections.NewRepository(pool), resolver, logger)
	collectionsHandler := collections.NewHandler(logger, collectionsService)

	usergroupsService := usergroups.NewService(usergroups.NewRepository(pool), resolver, logger)
	usergroupsHandler := usergroups.NewHandler(logger, usergroupsService)

	searchService := search.NewService(coursesService, collectionsService, search.NewRepository(pool), logger)
	searchHandler := search.NewHandler(logger, searchService)

	auditService := audit.NewService(audit.NewRepository(pool), resolver, logger)
	auditHandler := audit.NewHandler(logger, auditService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		OrgsHandler:        orgsHandler,
		RolesHandler:       rolesHandler,
		CoursesHandler:     coursesHandler,
		ChaptersHandler:    chaptersHandler,
		ActivitiesHandler:  activitiesHandler,
		CollectionsHandler: collectionsHandler,
		UserGroupsHandler:  usergroupsHandler,
		SearchHandler:      searchHandler,
		AuditHandler:       auditHandler,
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
