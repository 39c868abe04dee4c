package merchant

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alovak/cardflow-paycharge/internal/gateway"
	"github.com/alovak/cardflow-paycharge/internal/middleware"
	"github.com/alovak/cardflow-paycharge/internal/paylog"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
)

// App is the main application, it wires the state backend, the gateway
// client and the diagnostic log into a Service and exposes it on the
// console or over HTTP.
type App struct {
	srv    *http.Server
	wg     *sync.WaitGroup
	Addr   string
	logger *slog.Logger
	config *Config
	stores *Stores
	svc    *Service
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "paycharge"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

// Start checks the configuration and opens the state backend. It must be
// called before RunConsole or Serve.
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("starting app...")

	if err := a.config.Validate(); err != nil {
		return err
	}

	stores, err := OpenStores(ctx, a.config)
	if err != nil {
		return err
	}
	a.stores = stores

	hc := &http.Client{Timeout: a.config.GatewayTimeout}
	gw := gateway.New(a.config.GatewayBase(), a.config.APIVersion, a.config.MerchantID, hc)

	a.svc = NewService(stores.Sequence, stores.Orders, gw, paylog.New(a.config.LogPath), a.logger)

	a.logger.Info("app started",
		slog.String("state_backend", a.config.StateBackend),
		slog.String("gateway", a.config.GatewayBase()),
		slog.String("log_path", a.config.LogPath),
	)
	return nil
}

func (a *App) Service() *Service { return a.svc }

// RunConsole runs the interactive operator loop until the operator quits or
// in is exhausted.
func (a *App) RunConsole(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	if a.svc == nil {
		return fmt.Errorf("app is not started")
	}
	return NewConsole(a.svc, in, out, errOut, a.logger).Run(ctx)
}

// Serve starts the HTTP API in the background. Addr is set once it listens.
func (a *App) Serve() error {
	if a.svc == nil {
		return fmt.Errorf("app is not started")
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(middleware.NewStructuredLogger(a.logger))

	api := NewAPI(a.svc)
	api.AppendRoutes(router)

	router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.svc.Ping(ctx); err != nil {
			http.Error(w, "state backend not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil && err != http.ErrServerClosed {
			a.logger.Error("starting http server", "err", err)
		}

		a.logger.Info("http server stopped")
	}()

	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	if a.srv != nil {
		a.srv.Shutdown(context.Background())
	}

	a.wg.Wait()

	if a.stores != nil {
		if err := a.stores.Close(); err != nil {
			a.logger.Error("closing state backend", "err", err)
		}
	}

	a.logger.Info("app stopped")
}
