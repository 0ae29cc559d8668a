package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/admins"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/appointments"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/audit"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/auth"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/cache"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/config"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/db"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/health"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/memstore"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/middleware"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/outbox"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/telemetry"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/templates"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "booking-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With(slog.String("service", serviceName), slog.String("env", cfg.Env))

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	shutdownTracing, err := telemetry.Setup(rootCtx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Error("otel setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	var checks []health.Check

	var cacheStore cache.Cache = cache.NewMemory()
	redisCache, err := cache.Connect(ctx, cfg.RedisURL, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("redis connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if redisCache != nil {
		defer redisCache.Close()
		cacheStore = redisCache
		checks = append(checks, health.Check{Name: "redis", Check: redisCache.Ping})
		logger.Info("redis connected")
	} else {
		logger.Warn("redis not configured, using in-memory cache")
	}

	var (
		pool     *db.Pool
		events   *outbox.Repository
		slotRepo slots.Repository
		apptRepo appointments.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Migrate(ctx); err != nil {
			logger.Error("postgres migration failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		events = outbox.NewRepository()
		slotRepo = slots.NewRepository(pool, events)
		apptRepo = appointments.NewRepository(pool, events)
		checks = append(checks, health.Check{Name: "postgres", Check: db.ReadyCheck(pool)})
		logger.Info("postgres connected")
	} else {
		store := memstore.New()
		slotRepo = store.Slots()
		apptRepo = store.Appointments()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	var (
		users         admins.Repository
		auditRecorder middleware.AuditRecorder
		auditLister   audit.Lister
	)
	if cfg.MongoURI != "" {
		var client *mongo.Client
		var cols *db.Collections
		client, cols, err = db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Error("mongo connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Disconnect(context.Background())
		if err := db.EnsureIndexes(ctx, cols); err != nil {
			logger.Error("index creation failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		users = admins.NewMongoRepository(cols.Users)
		auditRepo := audit.NewMongoRepository(cols.AuditEvents)
		auditRecorder = auditRepo
		auditLister = auditRepo
		checks = append(checks, health.Check{Name: "mongo", Check: db.MongoReadyCheck(client)})
		logger.Info("mongo connected")
	} else {
		logger.Warn("mongo not configured, admin users and audit trail disabled")
	}

	if cfg.KafkaBrokers != "" {
		checks = append(checks, health.Check{Name: "kafka", Check: outbox.ReadyCheck(cfg.KafkaBrokers)})
	}

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     serviceName,
		}
	}

	val := validation.New()

	slotService := slots.NewService(slotRepo, cacheStore, cfg.Timezone, logger)
	slotHandler := slots.NewHandler(slotService, val, logger)

	templateService := templates.NewService(templates.NewStore(cacheStore), slotService)
	templateHandler := templates.NewHandler(templateService, val, logger)

	appointmentService := appointments.NewService(apptRepo, slotService, cacheStore, appointments.Config{
		Location:         cfg.Timezone,
		CacheTTL:         cfg.CacheTTL(),
		AvailabilityDays: cfg.AvailabilityDays,
	}, logger)
	appointmentHandler := appointments.NewHandler(appointmentService, val, logger)

	adminService := admins.NewService(users, jwtManager, auth.NewSessions(cacheStore), admins.Credentials{
		Username:     cfg.AdminUser,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
		SetupKey:     cfg.AdminSetupKey,
	}, cfg.Timezone)
	adminHandler := admins.NewHandler(adminService, val, logger, cfg.CookieSecure)
	auditHandler := audit.NewHandler(auditLister, logger)
	healthHandler := health.NewHandler(checks...)

	bookingLimit := middleware.NewRateLimiter(cfg.RateLimitBooking, cfg.RateLimitWindow()).Middleware
	if redisCache != nil {
		bookingLimit = middleware.NewRedisRateLimiter(redisCache.Client(), cfg.RateLimitBooking, cfg.RateLimitWindow(), "ratelimit:booking", logger).Middleware
	}
	adminOnly := middleware.AdminAuth(cfg.AdminAPIKey, jwtManager)
	audited := middleware.Audit(auditRecorder, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	registerRoutes := func(api chi.Router) {
		api.Get("/slot-templates", templateHandler.List)
		api.Get("/slot-templates/{day}", templateHandler.Get)

		api.Get("/slots", slotHandler.ListRange)
		api.Get("/slots/{date}", slotHandler.ListForDate)
		api.Get("/slots/{date}/{time}", slotHandler.Get)

		api.Get("/appointments/slots", appointmentHandler.Availability)
		api.With(bookingLimit).Post("/booking", appointmentHandler.Create)
		api.Get("/appointments/{id}", appointmentHandler.Get)
		api.Post("/appointments/{id}/book", appointmentHandler.Book)
		api.Post("/appointments/{id}/cancel", appointmentHandler.Cancel)

		api.Route("/admin", func(admin chi.Router) {
			admin.Post("/login", adminHandler.Login)
			admin.Post("/refresh", adminHandler.Refresh)
			admin.Post("/logout", adminHandler.Logout)
			admin.Post("/register", adminHandler.Register)

			admin.Group(func(protected chi.Router) {
				protected.Use(adminOnly)
				protected.Use(audited)
				protected.Post("/users", adminHandler.CreateUser)
				protected.Patch("/users/{id}/password", adminHandler.UpdatePassword)
				protected.Get("/audit", auditHandler.List)
			})
		})

		// chi requires middlewares before routes, so protected routes live in a group.
		api.Group(func(protected chi.Router) {
			protected.Use(adminOnly)
			protected.Use(audited)

			protected.Post("/slot-templates/{day}", templateHandler.Upsert)
			protected.Delete("/slot-templates/{day}", templateHandler.Empty)
			protected.Post("/slot-templates/{day}/apply", templateHandler.Apply)

			protected.Post("/slots/{date}", slotHandler.Create)
			protected.Delete("/slots/{date}", slotHandler.EmptyDate)
			protected.Delete("/slots/id/{id}", slotHandler.Delete)

			protected.Get("/appointments", appointmentHandler.List)
			protected.Post("/appointments", appointmentHandler.BookDirect)
			protected.Patch("/appointments/{id}", appointmentHandler.Update)
		})
	}

	r.Route("/api", registerRoutes)
	r.Route("/api/v1", registerRoutes)

	publisher := outbox.NewPublisher(pool, events, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: cfg.OutboxPollInterval(),
		BatchSize: cfg.OutboxBatchSize,
	})
	if publisher.Enabled() {
		go publisher.Run(rootCtx)
		logger.Info("outbox publisher started")
	} else {
		logger.Info("outbox publisher disabled")
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           otelhttp.NewHandler(r, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopRoot()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("otel shutdown error", slog.String("error", err.Error()))
	}
}
