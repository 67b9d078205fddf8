// Package app assembles the companion process: persisted record, identity provider, session
// store and observer, backend client, event hub and the drift routes on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/contesthub/contesthub/internal/api"
	"github.com/contesthub/contesthub/internal/config"
	"github.com/contesthub/contesthub/internal/database"
	"github.com/contesthub/contesthub/internal/handlers"
	"github.com/contesthub/contesthub/internal/identity"
	"github.com/contesthub/contesthub/internal/metrics"
	authmw "github.com/contesthub/contesthub/internal/middleware"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/oauth"
	"github.com/contesthub/contesthub/internal/services"
	"github.com/contesthub/contesthub/internal/session"
	"github.com/contesthub/contesthub/internal/sse"
	"github.com/contesthub/contesthub/internal/storage"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	tokenCleanupInterval = time.Hour
	shutdownTimeout      = 10 * time.Second
)

// RecordStore is a persisted record that also caches the provider's refresh token. Every
// storage driver satisfies it.
type RecordStore interface {
	storage.Store
	identity.CredentialCache
}

// Deps are the pieces New opens from configuration. Tests supply their own.
type Deps struct {
	Record   RecordStore
	Provider identity.Provider
	Popups   *oauth.PopupBroker
	// Tokens is set for the local provider, whose expired refresh tokens are purged hourly.
	Tokens *services.TokenService
	Close  func()
}

type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector

	deps     Deps
	client   *api.Client
	store    *session.Store
	observer *session.Observer
	hub      *sse.Hub
}

// New opens storage and the identity provider named by cfg and assembles the App.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	deps, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a, err := Assemble(ctx, cfg, logger, deps)
	if err != nil {
		deps.close()
		return nil, err
	}
	return a, nil
}

// Open builds the storage driver, the identity provider and the Google popup broker.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Deps, error) {
	var deps Deps
	var closers []func()
	deps.Close = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	record, closeRecord, err := OpenRecord(ctx, cfg, logger)
	if err != nil {
		return Deps{}, err
	}
	deps.Record = record
	closers = append(closers, closeRecord)

	var google oauth.Provider
	if cfg.GoogleEnabled() {
		google = oauth.NewGoogleProvider(cfg.Google)
		deps.Popups = oauth.NewPopupBroker(google, cfg.OAuthPopupTimeout)
	}

	switch cfg.IdentityProvider {
	case config.ProviderLocal:
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			deps.Close()
			return Deps{}, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db.Close)

		if err := db.Migrate(ctx); err != nil {
			deps.Close()
			return Deps{}, fmt.Errorf("failed to run migrations: %w", err)
		}

		jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
		deps.Tokens = services.NewTokenService(db)
		deps.Provider = identity.NewLocalProvider(
			services.NewAccountService(db),
			deps.Tokens,
			jwtService,
			google,
			record,
			logger,
		)
	default:
		deps.Provider = identity.NewFirebaseProvider(identity.FirebaseConfig{
			APIKey: cfg.FirebaseAPIKey,
		}, record, logger)
	}

	return deps, nil
}

// OpenRecord opens the persisted record for the configured storage driver.
func OpenRecord(ctx context.Context, cfg *config.Config, logger *zap.Logger) (RecordStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return storage.NewMemoryStore(), func() {}, nil
	case config.StorageRedis:
		s, err := storage.NewRedisStore(ctx, storage.RedisConfig{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			Prefix:   cfg.Storage.RedisPrefix,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := storage.NewSQLiteStore(ctx, cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	}
}

// Assemble wires the session layer over deps. Nothing runs until Start.
func Assemble(ctx context.Context, cfg *config.Config, logger *zap.Logger, deps Deps) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	hub := sse.NewHub(collector, logger)

	client := api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
	}, deps.Record, collector, logger)

	store, err := session.NewStore(ctx, session.Options{
		Provider: deps.Provider,
		Record:   deps.Record,
		Roles:    client,
		Notifier: hub,
		Popups:   deps.Popups,
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	store.Subscribe(hub.PublishSession)

	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  collector,
		deps:     deps,
		client:   client,
		store:    store,
		observer: session.NewObserver(store, deps.Provider, logger),
		hub:      hub,
	}, nil
}

func (d Deps) close() {
	if d.Close != nil {
		d.Close()
	}
}

func (a *App) Store() *session.Store {
	return a.store
}

func (a *App) Client() *api.Client {
	return a.client
}

// Start runs the event hub and the observer, then asks the provider to restore the previous
// session. The first auth state notification ends the loading phase.
func (a *App) Start(ctx context.Context) {
	go a.hub.Run(ctx)
	a.observer.Start(ctx)

	go func() {
		if err := a.deps.Provider.Restore(ctx); err != nil {
			a.logger.Warn("session restore failed", zap.Error(err))
		}
	}()

	if a.deps.Tokens != nil {
		go a.purgeExpiredTokens(ctx)
	}
}

func (a *App) purgeExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.deps.Tokens.CleanupExpired(ctx)
			if err != nil {
				a.logger.Warn("failed to purge expired refresh tokens", zap.Error(err))
				continue
			}
			a.metrics.TokensPurged(n)
		}
	}
}

// WaitLoaded blocks until the first auth state notification has been applied.
func (a *App) WaitLoaded(ctx context.Context) error {
	loaded := make(chan struct{})
	var once sync.Once
	unsubscribe := a.store.Subscribe(func(s session.Snapshot) {
		if !s.IsLoading {
			once.Do(func() { close(loaded) })
		}
	})
	defer unsubscribe()

	if !a.store.Snapshot().IsLoading {
		return nil
	}
	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session did not load: %w", ctx.Err())
	}
}

// Close stops the observer and releases storage and the database.
func (a *App) Close() {
	a.observer.Stop()
	a.deps.close()
}

// Handler builds the drift application. ctx bounds background sign-in work started by
// requests.
func (a *App) Handler(ctx context.Context) http.Handler {
	cfg := a.cfg
	logger := a.logger

	authHandler := handlers.NewAuthHandler(ctx, a.store, popupService(a.deps.Popups), cfg.DashboardPath, logger)
	sessionHandler := handlers.NewSessionHandler(a.store, a.hub)
	contestHandler := handlers.NewContestHandler(a.client, a.store, logger)
	paymentHandler := handlers.NewPaymentHandler(a.client, a.store, logger)
	adminHandler := handlers.NewAdminHandler(a.client, a.store, logger)
	userHandler := handlers.NewUserHandler(a.client, a.store, logger)
	healthHandler := handlers.NewHealthHandler(a.store)

	gate := authmw.GateConfig{
		Session:   a.store,
		LoginPath: cfg.LoginPath,
		Fallback:  cfg.DashboardPath,
		Metrics:   a.metrics,
		Logger:    logger,
	}

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(authmw.RequestLogger(logger))
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.BaseURL},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	auth := app.Group("/auth")
	auth.Post("/signin", authHandler.SignIn)
	auth.Post("/signup", authHandler.SignUp)
	auth.Post("/signout", authHandler.SignOut)
	auth.Patch("/profile", authHandler.UpdateProfile)
	auth.Post("/google", authHandler.StartGoogle)
	auth.Get("/google/callback", authHandler.GoogleCallback)
	auth.Post("/google/cancel", authHandler.CancelGoogle)

	app.Get("/session", sessionHandler.Get)
	app.Get("/session/events", sessionHandler.Events)

	public := app.Group("/api")
	public.Get("/contests", contestHandler.List)
	public.Get("/contests/:id", contestHandler.Get)
	public.Get("/winners", contestHandler.Winners)
	public.Get("/leaderboard", contestHandler.Leaderboard)

	me := app.Group("/api/me")
	me.Use(authmw.RequireAuth(gate))
	me.Get("", userHandler.Me)
	me.Get("/profile", userHandler.Profile)
	me.Patch("/profile", userHandler.UpdateProfile)
	me.Get("/registrations", contestHandler.MyRegistrations)
	me.Post("/contests/:id/register", contestHandler.Register)
	me.Post("/contests/:id/submit", contestHandler.Submit)
	me.Post("/payments/checkout", paymentHandler.Checkout)
	me.Patch("/payments/confirm", paymentHandler.Confirm)

	creator := app.Group("/api/creator")
	creator.Use(authmw.RequireRole(gate, models.RoleCreator))
	creator.Post("/contests", contestHandler.Create)
	creator.Patch("/contests/:id", contestHandler.Update)
	creator.Delete("/contests/:id", contestHandler.Delete)
	creator.Post("/contests/:id/winner", contestHandler.DeclareWinner)

	admin := app.Group("/api/admin")
	admin.Use(authmw.RequireRole(gate, models.RoleAdmin))
	admin.Get("/users", adminHandler.ListUsers)
	admin.Patch("/users/:id/role", adminHandler.UpdateUserRole)
	admin.Get("/creator-requests", adminHandler.ListCreatorRequests)
	admin.Patch("/creator-requests", adminHandler.ReviewCreatorRequest)

	dashboard := app.Group(cfg.DashboardPath)
	dashboard.Use(authmw.RequireAuth(gate))
	dashboard.Get("", userHandler.Dashboard("Dashboard"))
	dashboard.Get("/profile", userHandler.Dashboard("My Profile"))

	creatorDashboard := app.Group(cfg.DashboardPath + "/creator")
	creatorDashboard.Use(authmw.RequireRole(gate, models.RoleCreator))
	creatorDashboard.Get("", userHandler.Dashboard("Creator Dashboard"))

	adminDashboard := app.Group(cfg.DashboardPath + "/admin")
	adminDashboard.Use(authmw.RequireRole(gate, models.RoleAdmin))
	adminDashboard.Get("", userHandler.Dashboard("Admin Dashboard"))

	app.Get("/health", healthHandler.Health)
	app.Get("/metrics", handlers.Metrics(metrics.Handler(a.registry)))

	return app
}

// popupService keeps a nil broker from becoming a non-nil interface.
func popupService(b *oauth.PopupBroker) handlers.PopupServiceInterface {
	if b == nil {
		return noPopups{}
	}
	return b
}

type noPopups struct{}

func (noPopups) Complete(context.Context, string, string, string) error {
	return oauth.ErrUnknownState
}

func (noPopups) Cancel(string) bool {
	return false
}

// Serve starts the App and serves HTTP on cfg.Port until ctx ends, then shuts down.
func (a *App) Serve(ctx context.Context) error {
	a.Start(ctx)

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
