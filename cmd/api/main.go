package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietlearn/backend-academy/internal/achievements"
	"github.com/vietlearn/backend-academy/internal/app"
	"github.com/vietlearn/backend-academy/internal/auth"
	"github.com/vietlearn/backend-academy/internal/cart"
	"github.com/vietlearn/backend-academy/internal/catalog"
	"github.com/vietlearn/backend-academy/internal/checkout"
	"github.com/vietlearn/backend-academy/internal/common"
	"github.com/vietlearn/backend-academy/internal/config"
	"github.com/vietlearn/backend-academy/internal/favorites"
	"github.com/vietlearn/backend-academy/internal/health"
	"github.com/vietlearn/backend-academy/internal/lock"
	"github.com/vietlearn/backend-academy/internal/obs"
	"github.com/vietlearn/backend-academy/internal/progress"
	"github.com/vietlearn/backend-academy/internal/quiz"
	"github.com/vietlearn/backend-academy/internal/ratelimit"
	"github.com/vietlearn/backend-academy/internal/reviews"
	"github.com/vietlearn/backend-academy/internal/security"
	"github.com/vietlearn/backend-academy/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "academy")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "academy-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := app.NewPgxPool(ctx, cfg.DatabaseURL, "academy-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise database")
	}
	defer pool.Close()

	redisClient, err := app.NewRedisClient(ctx, cfg.RedisURL, metricsEnabled)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	taskClient, err := app.NewTaskClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise task client")
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	enqueuer := achievements.Enqueuer{Client: taskClient}

	catalogRepo := &catalog.Repo{Pool: pool}
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      catalogRepo,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultPage:  cfg.CatalogDefaultPage,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)

	authService, err := auth.NewService(auth.Config{
		Queries:         &auth.Repo{Pool: pool},
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		Issuer:          cfg.JWTIssuer,
		Audience:        cfg.JWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Svc: authService, Log: logger}
	authMW := auth.Middleware{Service: authService}

	voucherRepo := &voucher.Repo{Pool: pool}
	voucherSvc := &voucher.Service{Q: voucherRepo, Catalog: catalogService}
	voucherAdmin := &voucher.Admin{Store: voucherRepo}
	voucherHandler := &voucher.Handler{Svc: voucherSvc, Admin: voucherAdmin, Log: logger}

	cartSvc := &cart.Service{
		Q:        &cart.Repo{Pool: pool},
		Courses:  catalogService,
		Vouchers: voucherSvc,
		TTL:      cfg.CartTTL,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Log: logger}

	checkoutSvc := &checkout.Service{
		Carts:    cartSvc.Q,
		Vouchers: voucherSvc,
		Store:    &checkout.Repo{Pool: pool},
		Locks:    lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		Notify:   enqueuer,
		LockTTL:  cfg.CheckoutLockTTL,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Log: logger}

	quizHandler := &quiz.Handler{
		Svc: &quiz.Service{Q: &quiz.Repo{Pool: pool}, Notify: enqueuer, Precision: cfg.QuizScorePrecision},
		Log: logger,
	}
	progressHandler := &progress.Handler{
		Svc: &progress.Service{Q: &progress.Repo{Pool: pool}},
		Log: logger,
	}
	reviewHandler := &reviews.Handler{
		Svc: &reviews.Service{Q: &reviews.Repo{Pool: pool}},
		Log: logger,
	}
	favoritesHandler := &favorites.Handler{Svc: &favorites.Service{R: redisClient}}
	achievementsHandler := &achievements.Handler{
		Svc: &achievements.Service{Q: &achievements.Repo{Pool: pool}},
		Log: logger,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	voucherLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:"},
		Config: ratelimit.Config{
			Key:    ratelimit.ByUser("voucher"),
			Window: cfg.VoucherApplyRateWindow,
			Max:    cfg.VoucherApplyRateMax,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("voucher rate limit") },
	}
	globalLimit, err := app.NewGlobalRateLimit(redisClient, cfg.GlobalRatePerMinute)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers)
	r.Use(security.MaxBody(int64(envInt("HTTP_MAX_BODY_BYTES", 1<<20))))
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(globalLimit)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Anon-Id"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.Probe{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(authMW.Authenticate)

		v.Get("/courses", catalogHandler.Courses)
		v.Get("/courses/{slug}", catalogHandler.CourseDetail)
		v.Get("/categories", catalogHandler.Categories)

		v.Mount("/auth", authHandler.Routes())
		v.With(authMW.RequireAuth).Get("/auth/me", authHandler.Me)

		v.Group(func(g chi.Router) {
			g.Use(voucherLimit.Middleware)
			g.Mount("/voucher", voucherHandler.Routes(
				authMW.RequireAuth,
				authMW.RequireRole(voucher.RoleAdmin, "instructor"),
			))
		})

		v.With(idem.Middleware).Mount("/cart", cartHandler.Routes())

		v.Group(func(g chi.Router) {
			g.Use(authMW.RequireAuth)
			g.With(idem.Middleware).Mount("/checkout", checkoutHandler.Routes())
			g.Mount("/orders", checkoutHandler.OrderRoutes())
			g.Mount("/quizzes", quizHandler.Routes())
			g.Mount("/progress", progressHandler.Routes())
			g.Mount("/achievements", achievementsHandler.Routes())
		})

		v.Mount("/favorites", favoritesHandler.Routes())

		v.Get("/courses/{courseId}/reviews", reviewHandler.List)
		v.With(authMW.RequireAuth).Put("/courses/{courseId}/reviews", reviewHandler.Write)
		v.With(authMW.RequireAuth).Delete("/reviews/{id}", reviewHandler.Delete)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
