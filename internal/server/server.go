// Package server is the composition root: it opens the stores, builds the
// services and handlers, mounts the routes and runs the HTTP server with its
// background jobs.
//
//	config.Config → sqlite.DB, redis (optional), docker detector (optional)
//	             → services → handlers → chi router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/ecocycle/internal/auth"
	"github.com/sakif/ecocycle/internal/classifier"
	"github.com/sakif/ecocycle/internal/config"
	"github.com/sakif/ecocycle/internal/detector"
	"github.com/sakif/ecocycle/internal/detector/docker"
	"github.com/sakif/ecocycle/internal/handler"
	"github.com/sakif/ecocycle/internal/jobs"
	"github.com/sakif/ecocycle/internal/middleware"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/repository"
	redisrepo "github.com/sakif/ecocycle/internal/repository/redis"
	sqliterepo "github.com/sakif/ecocycle/internal/repository/sqlite"
	"github.com/sakif/ecocycle/internal/service"
	"github.com/sakif/ecocycle/internal/valuation"
)

const shutdownTimeout = 30 * time.Second

// Server owns every long-lived resource. Close releases them.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	router *chi.Mux

	db       *sqliterepo.DB
	redis    *goredis.Client  // nil without Redis
	detector *docker.Detector // nil when detection is disabled or unavailable

	tokens      *auth.TokenService
	auth        *service.AuthService
	sessions    *service.SessionService
	challenges  *service.ChallengeService
	leaderboard *service.LeaderboardService
	rewards     *service.RewardService
	impact      *service.ImpactService
	users       *service.UserService
	demo        *service.DemoService
}

// New builds the server from a validated configuration. Redis and the
// detector are optional: when they cannot be reached the server logs a
// warning and runs without them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("server: creating database directory: %w", err)
		}
	}
	db, err := sqliterepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	tokens, err := auth.NewTokenServiceWithTTL(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		router: chi.NewRouter(),
		db:     db,
		tokens: tokens,
	}

	var cache repository.LeaderboardCache
	if cfg.Redis.Addr != "" {
		client, err := redisrepo.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, leaderboard served from SQLite",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()),
			)
		} else {
			s.redis = client
			cache = redisrepo.NewLeaderboard(client, cfg.Redis.Key)
		}
	}

	var det detector.Detector
	if cfg.Detector.Enabled {
		d, err := docker.New(cfg.Detector.Config, logger)
		if err != nil {
			logger.Warn("detector unavailable, images classified by dimensions",
				slog.String("error", err.Error()),
			)
		} else {
			s.detector = d
			det = d
		}
	}

	s.leaderboard = service.NewLeaderboardService(db, cache, logger)
	s.challenges = service.NewChallengeService(db, db, loc, logger)
	s.sessions = service.NewSessionService(service.SessionDeps{
		Classifier: classifier.New(cfg.Classifier, nil),
		Calculator: valuation.New(cfg.Valuation),
		Detector:   det,
		Store:      db,
		Progress:   s.challenges,
		Scores:     s.leaderboard,
		Location:   loc,
		Logger:     logger,
	})
	s.auth = service.NewAuthService(db, tokens, auth.NewPasswordService(), logger)
	s.rewards = service.NewRewardService(db, logger)
	s.impact = service.NewImpactService(db, loc)
	s.users = service.NewUserService(db)
	s.demo = service.NewDemoService(db, s.leaderboard, logger)

	if cache != nil {
		if _, err := s.leaderboard.RebuildCache(ctx); err != nil {
			logger.Warn("leaderboard cache rebuild failed", slog.String("error", err.Error()))
		}
	}

	s.setupRoutes()
	return s, nil
}

// Handler returns the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts every endpoint.
//
//	GET  /healthz
//	/auth/...          register, login, logout, GitHub OAuth
//	/api/leaderboard   public, caller's row when signed in
//	/api/bins/...      public
//	/api/...           everything else requires a token
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(s.logger))

	r.Get("/healthz", s.handleHealth)

	var github handler.GitHubLogin
	if s.cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(s.cfg.GitHub.ClientID, s.cfg.GitHub.ClientSecret, s.cfg.GitHub.CallbackURL)
	}
	authHandler := handler.NewAuthHandler(s.auth, s.sessions, github, handler.AuthOptions{
		TokenTTL:     s.tokens.TTL(),
		SecureCookie: s.cfg.CookieSecure,
	}, s.logger)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.With(auth.OptionalAuth(s.tokens)).Post("/logout", authHandler.HandleLogout)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	users := handler.NewUserHandler(s.users, s.demo, s.logger)
	scan := handler.NewScanHandler(s.sessions, s.logger)
	challenges := handler.NewChallengeHandler(s.challenges, s.logger)
	board := handler.NewLeaderboardHandler(s.leaderboard, s.logger)
	rewards := handler.NewRewardHandler(s.rewards, s.logger)
	impact := handler.NewImpactHandler(s.impact, s.logger)

	r.Route("/api", func(r chi.Router) {
		r.With(auth.OptionalAuth(s.tokens)).Get("/leaderboard", board.HandleGet)
		r.Get("/bins", handler.HandleBins)
		r.Get("/bins/{id}/route", handler.HandleRoute)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Get("/me", users.HandleMe)
			r.Get("/me/history", users.HandleHistory)
			r.Get("/me/badges", users.HandleBadges)
			r.Get("/me/settings", users.HandleGetSettings)
			r.Put("/me/settings", users.HandlePutSettings)
			r.Post("/me/demo", users.HandleSeedDemo)

			r.Get("/scan", scan.HandleState)
			r.Delete("/scan", scan.HandleReset)
			r.Post("/scan", scan.HandleScan)
			r.Post("/scan/image", scan.HandleScanImage)
			r.Put("/scan/condition", scan.HandleCondition)
			r.Post("/scan/confirm", scan.HandleConfirm)
			r.Post("/scan/complete", scan.HandleComplete)

			r.Get("/challenges", challenges.HandleList)
			r.Post("/challenges/{id}/claim", challenges.HandleClaim)

			r.Get("/rewards", rewards.HandleWallet)
			r.Post("/rewards/redeem", rewards.HandleRedeem)
			r.Post("/rewards/withdraw", rewards.HandleWithdraw)

			r.Get("/impact", impact.HandleGet)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// runJobs starts the background goroutines and returns a function that
// stops them and waits for them to exit.
func (s *Server) runJobs() (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sweep := jobs.NewChallengeSweep(s.challenges, s.cfg.SweepInterval, s.logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweep.Run(ctx)
	}()

	if s.detector != nil && s.cfg.Detector.FrameDir != "" {
		src, err := detector.NewDirSource(s.cfg.Detector.FrameDir)
		if err != nil {
			s.logger.Warn("frame directory unreadable, detection loop disabled",
				slog.String("dir", s.cfg.Detector.FrameDir),
				slog.String("error", err.Error()),
			)
		} else {
			loop := detector.NewLoop(s.detector, src, s.cfg.Detector.FrameInterval, s.logger, func(d model.Detection) {
				s.logger.Info("device detected",
					slog.String("class", d.Class),
					slog.Float64("score", d.Score),
				)
			})
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = loop.Run(ctx)
			}()
		}
	}

	return func() {
		cancel()
		wg.Wait()
	}
}

// Start serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
// for up to 30 seconds, stops the background jobs and closes the stores.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // detection can be slow
		IdleTimeout:  60 * time.Second,
	}

	stopJobs := s.runJobs()
	defer stopJobs()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
			slog.Bool("redis", s.redis != nil),
			slog.Bool("detector", s.detector != nil),
			slog.Bool("github", s.cfg.GitHub.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

// Close releases the detector containers, the Redis client and the
// database. It is safe to call after Start has returned.
func (s *Server) Close() error {
	var errs []error
	if s.detector != nil {
		errs = append(errs, s.detector.Close())
		s.detector = nil
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
		s.redis = nil
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}
	return errors.Join(errs...)
}
