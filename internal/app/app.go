// Package app wires configuration, the row store backend, the domain
// services and the HTTP server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sekarjagad/batik-store/internal/domain/catalog"
	"github.com/sekarjagad/batik-store/internal/domain/checkout"
	"github.com/sekarjagad/batik-store/internal/handler"
	"github.com/sekarjagad/batik-store/internal/rowstore"
	"github.com/sekarjagad/batik-store/internal/storage/memory"
	"github.com/sekarjagad/batik-store/internal/storage/postgres"
	"github.com/sekarjagad/batik-store/internal/storage/sheets"
	"github.com/sekarjagad/batik-store/pkg/health"
	"github.com/sekarjagad/batik-store/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.Backend),
	)

	store, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "create row store")
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Health check service. Readiness reads the products table: it is the
	// single source of truth, so the service is ready iff it is reachable.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("row-store", 10*time.Second, func(ctx context.Context) error {
		_, err := store.ReadTable(ctx, catalog.TableProducts)
		return err
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 30*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	loader := catalog.NewLoader(store)
	checkoutSvc := checkout.NewService(loader, store)

	// HTTP routes: health endpoints + API on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.New(loader, checkoutSvc).Register(mux)

	instrumented := otelhttp.NewHandler(mux, "store-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
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

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newStore builds the configured row store backend. The returned cleanup
// closes backend resources and may be nil.
func newStore(ctx context.Context, cfg *Config) (rowstore.Store, func(), error) {
	switch cfg.Backend {
	case BackendSheets:
		store, err := sheets.New(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewStore(pool), pool.Close, nil

	case BackendMemory:
		store := memory.New()
		// Empty tables with the standard headers so the API is usable
		// out of the box; seed rows via the ingest CLI or AppendRow.
		store.SetTable(rowstore.Table{Name: catalog.TableProducts,
			Header: []string{"id", "name", "price", "sizes", "colors", "stock"}})
		store.SetTable(rowstore.Table{Name: catalog.TableVariants,
			Header: []string{"product_id", "size", "color", "stock"}})
		store.SetTable(rowstore.Table{Name: catalog.TableOrders,
			Header: []string{"id", "placed_at", "items", "total"}})
		return store, nil, nil

	default:
		return nil, nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
}
