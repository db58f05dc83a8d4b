// Command api starts the weather proxy HTTP server.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emmilcheung/weather-proxy/internal/cache"
	"github.com/emmilcheung/weather-proxy/internal/config"
	"github.com/emmilcheung/weather-proxy/internal/history"
	"github.com/emmilcheung/weather-proxy/internal/metrics"
	"github.com/emmilcheung/weather-proxy/internal/retry"
	"github.com/emmilcheung/weather-proxy/internal/stats"
	"github.com/emmilcheung/weather-proxy/internal/tracing"
	"github.com/emmilcheung/weather-proxy/internal/upstream"
	"github.com/emmilcheung/weather-proxy/internal/weather"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	// Initialize tracing.
	shutdownTracer, err := tracing.Init(ctx, "weather-proxy", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer shutdownTracer(ctx)
	}

	// Connect to Postgres for call history.
	pgConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("parse postgres config", zap.Error(err))
	}
	pgConfig.MaxConns = 20
	pgConfig.MinConns = 5
	pool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Fatal("connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Connect to Redis for the last-good fallback cache.
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		PoolSize:     50,
		MinIdleConns: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Assemble the upstream fetcher, optionally wrapped with failure
	// injection for resilience demos.
	var fetcher upstream.Fetcher = upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, logger)
	if cfg.SimulateFailures {
		logger.Info("failure simulation enabled", zap.Float64("rate", cfg.FailureRate))
		fetcher = upstream.NewSimulated(fetcher, cfg.FailureRate, logger)
	}

	policy := &retry.Policy{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Jitter:       cfg.Jitter,
	}

	register := stats.New(cfg.FailureRate, cfg.SimulateFailures)
	m := metrics.New(prometheus.DefaultRegisterer)
	lastGood := cache.NewRedisCache(rdb, cfg.CacheTTL, logger)
	callHistory := history.NewPostgresRepository(pool, logger)

	svc, err := weather.NewService(fetcher, lastGood, callHistory, register, m, policy, cfg.RetryEnabled, cfg.UpstreamTimeout, logger)
	if err != nil {
		logger.Fatal("create weather service", zap.Error(err))
	}

	handler := &apiHandler{
		service:  svc,
		register: register,
		history:  callHistory,
		logger:   logger,
	}

	// Set up routes.
	r := mux.NewRouter()
	r.HandleFunc("/health", handler.health).Methods("GET")
	r.HandleFunc("/api/v1/weather/current", handler.currentWeather).Methods("GET")
	r.HandleFunc("/api/v1/weather/forecast", handler.forecast).Methods("GET")
	r.HandleFunc("/api/v1/stats", handler.stats).Methods("GET")
	r.HandleFunc("/api/v1/stats/reset", handler.resetStats).Methods("POST")
	r.HandleFunc("/api/v1/history", handler.listHistory).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api server starting", zap.String("addr", cfg.APIAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
}

type apiHandler struct {
	service  *weather.Service
	register *stats.Register
	history  history.Repository
	logger   *zap.Logger
}

func (h *apiHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentWeather proxies the current-weather operation. Exhausted retries
// yield 503 with a fallback-flagged envelope when cached data exists, 502
// otherwise.
func (h *apiHandler) currentWeather(w http.ResponseWriter, r *http.Request) {
	lang := langParam(r)

	env, err := h.service.Current(r.Context(), lang)
	if err != nil {
		h.logger.Error("current weather failed", zap.String("lang", lang), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if env.FromFallback {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, env)
}

// forecast proxies the forecast operation. Terminal failures always
// surface as 502; forecasts have no fallback.
func (h *apiHandler) forecast(w http.ResponseWriter, r *http.Request) {
	lang := langParam(r)

	env, err := h.service.Forecast(r.Context(), lang)
	if err != nil {
		h.logger.Error("forecast failed", zap.String("lang", lang), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, env)
}

func (h *apiHandler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.register.Snapshot())
}

// resetStats zeroes the counters. Operator action, hence POST.
func (h *apiHandler) resetStats(w http.ResponseWriter, _ *http.Request) {
	h.register.Reset()
	h.logger.Info("statistics reset")
	writeJSON(w, http.StatusOK, h.register.Snapshot())
}

func (h *apiHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer within [1, 500]"})
			return
		}
		limit = n
	}

	records, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list history failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list history"})
		return
	}
	if records == nil {
		records = []*history.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

func langParam(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return "en"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
