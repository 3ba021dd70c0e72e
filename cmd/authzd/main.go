// Command authzd is a small reference service showing how the authorization
// core is wired: the policy engine and policy registry are configured once
// at bootstrap, and a fresh authorization manager is built per request from
// the caller's claims.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kudeepakh/farm-authz/authz"
	"github.com/kudeepakh/farm-authz/authz/engine"
	"github.com/kudeepakh/farm-authz/config"
	"github.com/kudeepakh/farm-authz/middleware"
	"github.com/kudeepakh/farm-authz/usage"
	"github.com/kudeepakh/farm-authz/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	recorder := engine.NewAsyncRecorder(engine.NewZapRecorder(logger), logger, engine.DefaultRecorderConfig())
	if err := recorder.Start(); err != nil {
		logger.Fatal("failed to start audit recorder", zap.Error(err))
	}
	defer func() { _ = recorder.Stop(5 * time.Second) }()

	eng, err := buildEngine(cfg, logger, recorder)
	if err != nil {
		logger.Fatal("failed to configure policy engine", zap.Error(err))
	}

	factories := map[string]authz.PolicyFactory{
		"post": func(claims authz.Claims) authz.Policy {
			return &postPolicy{BasePolicy: authz.BasePolicy{Claims: claims}}
		},
	}

	newManager := func(claims authz.Claims) *authz.Manager {
		return authz.NewManager(claims,
			authz.WithEngine(eng),
			authz.WithLogger(logger),
			authz.WithPolicyFactories(factories))
	}
	authorizer := middleware.NewAuthorizer(newManager, logger)

	router := buildRouter(authorizer)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("authzd listening",
			zap.String("addr", cfg.Server.Addr()),
			zap.String("mode", string(eng.Mode())),
			zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// buildEngine registers the bootstrap rule set. Rule mutation stops here:
// the engine is read-only once traffic starts.
func buildEngine(cfg *config.Config, logger *zap.Logger, recorder engine.Recorder) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithRecorder(recorder),
	}
	if cfg.Engine.Strict {
		opts = append(opts, engine.WithStrict())
	}
	eng := engine.New(opts...)
	if err := eng.SetMode(cfg.Engine.Mode); err != nil {
		return nil, err
	}

	businessHours, err := engine.NewTimeWindowRule("business-hours", engine.TimeWindowConfig{
		Start:    "08:00",
		End:      "18:00",
		Weekdays: []int{1, 2, 3, 4, 5},
		Timezone: cfg.Engine.Timezone,
	})
	if err != nil {
		return nil, err
	}
	eng.AddRule(businessHours)

	// Quota enforcement is only wired when a usage database is available;
	// without one the quota rule is omitted rather than registered
	// half-configured.
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open usage database: %w", err)
		}
		counter := usage.NewPostgresCounter(db)
		eng.AddRule(engine.NewQuotaRule("posts", 100, "day", counter.Count))
		logger.Info("quota rule enabled", zap.String("resource_type", "posts"))
	}

	return eng, nil
}

func buildRouter(authorizer *middleware.Authorizer) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_ = utils.WriteOK(w, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(authorizer.ExtractClaims)

		r.With(authorizer.RequirePermission("posts:read")).
			Get("/api/posts", func(w http.ResponseWriter, _ *http.Request) {
				_ = utils.WriteOK(w, []map[string]any{samplePost})
			})

		r.With(authorizer.RequireAccess("update", loadPost)).
			Put("/api/posts/{postID}", func(w http.ResponseWriter, _ *http.Request) {
				_ = utils.WriteOK(w, samplePost)
			})
	})

	return r
}

// samplePost stands in for a real repository lookup.
var samplePost = map[string]any{
	"_type":   "posts",
	"id":      "1",
	"user_id": "42",
	"status":  "draft",
	"title":   "Harvest schedule",
}

func loadPost(_ *http.Request) (any, error) {
	return samplePost, nil
}

// postPolicy shows a concrete policy built on the shared helpers: authors
// may modify their own drafts, admins may modify anything.
type postPolicy struct {
	authz.BasePolicy
}

func (p *postPolicy) Can(action string, resource any) bool {
	switch action {
	case "read":
		return true
	case "update", "delete":
		if p.IsAdmin() {
			return true
		}
		return p.Owns(resource) && p.ResourceInState(resource, "draft", "pending")
	default:
		return false
	}
}
