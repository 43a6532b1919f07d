package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property_portal_backend/internal/conversations"
	"property_portal_backend/internal/directory"
	"property_portal_backend/internal/documents"
	docservice "property_portal_backend/internal/documents/service"
	"property_portal_backend/internal/documents/storage"
	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/email"
	"property_portal_backend/internal/events"
	apphttp "property_portal_backend/internal/http"
	"property_portal_backend/internal/http/router"
	"property_portal_backend/internal/interventions"
	"property_portal_backend/internal/notification"
	notifhandler "property_portal_backend/internal/notification/handler"
	"property_portal_backend/internal/notification/inapp"
	"property_portal_backend/internal/notification/mailer"
	"property_portal_backend/internal/notification/push"
	"property_portal_backend/internal/notification/sse"
	"property_portal_backend/internal/notification/throttle"
	"property_portal_backend/internal/quotes"
	"property_portal_backend/internal/scheduler"
	"property_portal_backend/migrations"
	"property_portal_backend/platform/config"
	"property_portal_backend/platform/db"
	"property_portal_backend/platform/httpkit"
	"property_portal_backend/platform/logger"
	"property_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Effects of committed operations run in the background, each isolated.
	runner := effects.NewRunner(log, cfg.GetEffectTimeout())

	// Shared validator instance for dependency injection
	val := validator.New()

	store := initDocumentStore(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	interventionsModule := interventions.NewModule(pool, eventBus, runner, val, log)
	ivService := interventionsModule.Service()
	ivRepo := interventionsModule.Repository()

	quotesModule := quotes.NewModule(pool, ivService, ivRepo, eventBus, runner, val, log)
	// accept_quote always settles the competition through the quotes module
	ivService.SetQuoteResolver(quotesModule.Service())

	conversationsModule := conversations.NewModule(pool, ivRepo, eventBus, runner, val)
	documentsModule := documents.NewModule(pool, store, docservice.Options{
		Bucket:  cfg.GetMinioBucketInterventionDocuments(),
		MaxSize: cfg.GetMinIOMaxFileSize(),
	}, ivRepo, eventBus, runner, log)

	// Notification module subscribes to domain events and owns the inbox endpoints
	stream := sse.New(log)
	defer stream.Close()

	inAppService := inapp.NewService(inapp.NewRepository(pool), log)
	inAppService.SetSSE(stream)

	devices := push.NewRepository(pool)
	fcm, err := push.NewFirebaseMessaging(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize push messaging", "error", err)
		panic("failed to initialize push messaging: " + err.Error())
	}
	pushService := push.NewService(devices, fcm, log)
	log.Info("push channel initialized", "enabled", pushService.Enabled())

	emailDelivery, closeDelivery := initEmailDelivery(cfg, log)
	if closeDelivery != nil {
		defer closeDelivery()
	}

	notificationModule := notification.New(
		notification.Readers{
			Interventions: ivRepo,
			Participants:  conversationsModule.Repository(),
			Directory:     directory.New(pool),
		},
		notification.Channels{
			InApp:        inAppService,
			Push:         pushService,
			Email:        emailDelivery,
			EmailEnabled: cfg.GetEmailEnabled(),
			Gate:         throttle.NewPostgresGate(pool, cfg.GetEmailThrottleCooldown()),
		},
		runner,
		cfg,
		log,
	)
	notificationModule.SetHTTPHandler(notifhandler.NewHTTPHandler(inAppService, devices, stream.Handler(streamIdentity), val))
	notificationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			interventionsModule,
			quotesModule,
			conversationsModule,
			documentsModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		stream.Close()
		err := srv.Shutdown(shutdownCtx)
		eventBus.Wait()
		runner.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// streamIdentity resolves the user of an SSE connection from the auth middleware.
func streamIdentity(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return uuid.Nil, uuid.Nil, false
	}
	return id.UserID(), id.TeamID(), true
}

// initDocumentStore connects to MinIO and makes sure the documents bucket
// exists. It returns nil when object storage is not configured.
func initDocumentStore(ctx context.Context, cfg *config.Config, log *logger.Logger) docservice.ObjectStore {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; document uploads disabled")
		return nil
	}
	client, err := storage.NewMinIO(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketInterventionDocuments()
	if err := withRetry(ctx, log, "ensure documents bucket", 5, 2*time.Second, func() error {
		return client.EnsureBucket(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "documentsBucket", bucket)
	return client
}

// initEmailDelivery picks inline sending or the asynq queue. Queued mode
// falls back to inline when Redis is not configured.
func initEmailDelivery(cfg *config.Config, log *logger.Logger) (mailer.Delivery, func()) {
	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	inline := mailer.NewInline(mailer.NewBatcher(sender, cfg.GetEmailSendInterval(), log))

	if cfg.GetEmailDeliveryMode() != mailer.ModeQueued {
		return inline, nil
	}
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sending notification emails inline")
		return inline, nil
	}
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize email queue client", "error", err)
		return inline, nil
	}
	log.Info("notification emails are queued for the worker")
	return mailer.NewQueued(client), func() { _ = client.Close() }
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
