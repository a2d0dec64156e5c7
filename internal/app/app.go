package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/luxe-store/internal/domain/auth"
	"github.com/xenking/luxe-store/internal/domain/cart"
	"github.com/xenking/luxe-store/internal/domain/checkout"
	"github.com/xenking/luxe-store/internal/domain/inventory"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/gateway"
	"github.com/xenking/luxe-store/internal/handler"
	"github.com/xenking/luxe-store/internal/storage/memory"
	"github.com/xenking/luxe-store/internal/storage/postgres"
	"github.com/xenking/luxe-store/internal/storage/redis"
	"github.com/xenking/luxe-store/pkg/health"
	"github.com/xenking/luxe-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadiness(health.Check{
		Name:    "postgres",
		Timeout: 5 * time.Second,
		Func:    health.PingCheck("postgres", pool),
	})
	healthSvc.AddLiveness(health.Check{
		Name: "goroutines",
		Func: health.GoroutineCountCheck(10000),
	})

	// Short-lived checkout state: Redis when configured, in-process otherwise.
	var (
		idem  checkout.IdempotencyStore
		carts cart.Store
	)
	if cfg.RedisURL != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = rdb.Close() }()

		healthSvc.AddReadiness(health.Check{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Func: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		})
		idem = redis.NewIdempotencyStore(rdb)
		carts = redis.NewCartStore(rdb, redis.DefaultCartTTL)
	} else {
		lg.Warn("Redis is not configured, using in-process idempotency and cart stores")
		idem = memory.NewIdempotencyStore()
		carts = memory.NewCartStore()
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	inventoryRepo := postgres.NewInventoryRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	quoteRepo := postgres.NewQuoteRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Payment adapters.
	adapters := []payment.Adapter{
		payment.CODAdapter{},
	}
	for _, method := range []payment.Method{payment.MethodUPI, payment.MethodNetBanking, payment.MethodWallet} {
		adapters = append(adapters, payment.NewSimulatedAdapter(method,
			cfg.Checkout.SimulatedPaymentDelay,
			cfg.Checkout.SimulatePlaceholders,
		))
	}
	var card *payment.CardAdapter
	if cfg.Gateway.SecretKey != "" {
		gw, err := gateway.New(gateway.Config{
			URL:            cfg.Gateway.URL,
			SecretKey:      cfg.Gateway.SecretKey,
			TracerProvider: m.TracerProvider(),
			MeterProvider:  m.MeterProvider(),
		})
		if err != nil {
			return errors.Wrap(err, "create payment gateway")
		}
		card = payment.NewCardAdapter(gw, cfg.Gateway.Timeout)
		adapters = append(adapters, card)
	} else {
		lg.Warn("Payment gateway secret key is not set, card payments are disabled")
	}

	// Domain services.
	codPolicy, err := inventory.ParseMode(cfg.Checkout.CODStockPolicy)
	if err != nil {
		return errors.Wrap(err, "parse cod stock policy")
	}
	orchestrator, err := checkout.New(checkout.Deps{
		Products:    productRepo,
		Ledger:      inventory.NewLedger(inventoryRepo),
		Builder:     order.NewBuilder(order.NewNumberGenerator()),
		Orders:      orderRepo,
		Adapters:    payment.NewAdapters(adapters...),
		Card:        card,
		Quotes:      quoteRepo,
		Idempotency: idem,
		Carts:       carts,
		Tracer:      m.TracerProvider(),
		Meter:       m.MeterProvider(),
	}, checkout.Config{
		CODStockPolicy: codPolicy,
		IdempotencyTTL: cfg.Checkout.IdempotencyTTL,
		ClaimTTL:       cfg.Checkout.ClaimTTL,
		Currency:       cfg.Gateway.Currency,
	})
	if err != nil {
		return errors.Wrap(err, "create checkout")
	}
	orderService := order.NewService(orderRepo)
	authn := auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper))

	// HTTP handlers.
	h := handler.NewHandler(
		handler.Config{Debug: cfg.Debug},
		orchestrator,
		orderService,
		carts,
		authn,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Checkout may wait on the gateway and simulated confirmations.
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader, handler.IdempotencyKeyHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("luxe-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening",
		zap.String("addr", cfg.Addr),
		zap.Bool("card_payments", card != nil),
		zap.Stringer("cod_stock_policy", codPolicy),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
