package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticket-gate/config"
	"ticket-gate/internal/auth"
	"ticket-gate/internal/handlers"
	"ticket-gate/internal/services"
	"ticket-gate/internal/services/ticketstore"
	"ticket-gate/monitoring"
	"ticket-gate/security"
	"ticket-gate/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis, only when something uses it
	var redisClient *redis.Client
	if needsRedis(cfg) {
		redisClient, err = utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	// Initialize stores
	breaker := utils.NewCircuitBreaker("tickets")
	store, mirror := newTicketStore(app, cfg, redisClient, breaker)

	// Initialize services
	issuer := services.NewCredentialIssuer(cfg.Credential)
	validator := services.NewEntryValidator(store, cfg.Credential)
	if cfg.ScanAttemptLimit > 0 {
		validator.Limiter = security.NewScanAttemptLimiter(redisClient, cfg.ScanAttemptLimit, cfg.ScanAttemptWindow)
	}
	if cfg.PubNubPublishKey != "" {
		validator.Notifier = services.NewPubNubNotifier(newPubNub(cfg))
	}
	lifecycle := services.NewTicketLifecycle(store)

	provider, err := auth.NewProvider(cfg)
	if err != nil {
		return err
	}

	// Initialize handlers
	scanHandler := handlers.NewScanHandler(validator, provider)
	credentialHandler := handlers.NewCredentialHandler(store, issuer, cfg.Credential.QRSize)
	ticketHandler := handlers.NewTicketHandler(lifecycle)
	healthHandler := handlers.NewHealthHandler(redisClient, breaker)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})
	app.RootCmd.AddCommand(NewCredentialCommand(store, issuer, cfg.Credential.QRSize))

	handlers.RegisterTicketHooks(app, issuer, mirror)

	// Start background tasks
	go monitoring.NewMonitor(breaker).Run(ctx)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Scan endpoint
		scan := e.Router.POST("/api/v1/scan", scanHandler.Scan)
		if cfg.ScanRequestLimit > 0 {
			scan.BindFunc(security.NewRateLimiter(redisClient).ScanRequestLimit(cfg.ScanRequestLimit, time.Minute))
		}

		// Ticket endpoints
		e.Router.GET("/api/v1/tickets/{ticketId}/credential", credentialHandler.GetCredential).Bind(apis.RequireAuth())
		e.Router.POST("/api/v1/tickets/{ticketId}/refund", ticketHandler.RefundTicket).Bind(apis.RequireSuperuserAuth())
		e.Router.POST("/api/v1/tickets/{ticketId}/cancel", ticketHandler.CancelTicket).Bind(apis.RequireSuperuserAuth())

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		e.Router.GET("/health", healthHandler.Health)

		slog.Info("Server routes registered", "ticket_store", cfg.TicketStore, "auth_provider", cfg.AuthProvider)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func needsRedis(cfg *config.Config) bool {
	return cfg.TicketStore == "redis" || cfg.ScanAttemptLimit > 0 || cfg.ScanRequestLimit > 0
}

// newTicketStore returns the store the door reads from and, in Redis mode, the
// mirror that new tickets are copied into.
func newTicketStore(app core.App, cfg *config.Config, redisClient *redis.Client, breaker *utils.CircuitBreaker) (services.TicketStore, handlers.TicketMirror) {
	if cfg.TicketStore == "redis" {
		redisStore := ticketstore.NewRedisStore(redisClient)
		return ticketstore.NewBreakerStore(redisStore, breaker), redisStore
	}
	return ticketstore.NewBreakerStore(ticketstore.NewPocketBaseStore(app), breaker), nil
}

func newPubNub(cfg *config.Config) *pubnub.PubNub {
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	return pubnub.NewPubNub(pnConfig)
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
