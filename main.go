package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"energy-declaration/internal/declaration/application"
	declarationhttp "energy-declaration/internal/declaration/interfaces/http"
	"energy-declaration/internal/metering/infrastructure/eloverblik"
	"energy-declaration/internal/observability/logging"
	"energy-declaration/internal/observability/metrics"
	refdata "energy-declaration/internal/refdata/domain"
	"energy-declaration/internal/refdata/infrastructure/catalogue"
	"energy-declaration/internal/refdata/infrastructure/eds"
	"energy-declaration/internal/refdata/infrastructure/jsonfile"
	"energy-declaration/internal/refdata/infrastructure/memory"
	refpostgres "energy-declaration/internal/refdata/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	cfg := loadConfig()

	logger, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		logrus.Fatalf("logger error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	cat, err := catalogue.Load(cfg.CatalogueFile)
	if err != nil {
		logger.Fatalf("catalogue error: %v", err)
	}

	loader, closeLoader, err := buildLoader(cfg, cat, logger)
	if err != nil {
		logger.Fatalf("reference loader error: %v", err)
	}
	defer closeLoader()

	store := memory.NewStore(loader, cfg.RefdataYears, logger)
	if err := store.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("initial reference load incomplete")
	}
	if err := store.Schedule(ctx, cfg.RefdataRefreshCron); err != nil {
		logger.Fatalf("reference schedule error: %v", err)
	}
	defer store.Stop()

	client, err := eloverblik.NewClient(cfg.EloverblikBaseURL,
		eloverblik.WithTimeout(cfg.EloverblikTimeout),
		eloverblik.WithRateLimit(cfg.EloverblikRPS, cfg.EloverblikBurst),
	)
	if err != nil {
		logger.Fatalf("eloverblik client error: %v", err)
	}

	service, err := application.NewService(client, store, application.ServiceConfig{
		DefaultYear: cfg.DeclarationYear,
		ChunkSize:   cfg.ChunkSize,
		MaxInFlight: cfg.MaxInFlight,
	}, logger)
	if err != nil {
		logger.Fatalf("declaration service error: %v", err)
	}

	handler, err := declarationhttp.NewHandler(service, store, cat, logger)
	if err != nil {
		logger.Fatalf("declaration handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", handler.Routes(cfg.CORSAllowedOrigins))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.WithFields(logrus.Fields{
		"addr":    cfg.HTTPAddr,
		"source":  loader.Name(),
		"years":   store.Years(),
		"default": cfg.DeclarationYear,
	}).Info("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}
}

func buildLoader(cfg config, cat *refdata.Catalogue, logger logrus.FieldLogger) (memory.Loader, func(), error) {
	noop := func() {}
	switch cfg.RefdataSource {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, noop, errors.New("DATABASE_URL or PG_DSN is required for REFDATA_SOURCE=postgres")
		}
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, noop, err
		}
		loader, err := refpostgres.NewLoader(db, cat)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return loader, func() { _ = db.Close() }, nil
	case "eds":
		loader, err := eds.NewLoader(cfg.EDSBaseURL, cat, cfg.EDSTimeout, logger)
		return loader, noop, err
	case "file", "":
		loader, err := jsonfile.NewStore(cfg.RefdataDir, cat)
		return loader, noop, err
	default:
		return nil, noop, errors.New("unknown REFDATA_SOURCE " + strconv.Quote(cfg.RefdataSource))
	}
}

type config struct {
	HTTPAddr           string
	DeclarationYear    int
	ChunkSize          int
	MaxInFlight        int
	EloverblikBaseURL  string
	EloverblikTimeout  time.Duration
	EloverblikRPS      float64
	EloverblikBurst    int
	RefdataSource      string
	RefdataDir         string
	RefdataYears       []int
	RefdataRefreshCron string
	DatabaseURL        string
	EDSBaseURL         string
	EDSTimeout         time.Duration
	CatalogueFile      string
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
	LogFile            string
	LogMaxSizeMB       int
	LogMaxAgeDays      int
}

func loadConfig() config {
	cfg := config{
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		DeclarationYear:    getenvIntDefault("DECLARATION_YEAR", 2019),
		ChunkSize:          getenvIntDefault("CHUNK_SIZE", application.DefaultChunkSize),
		MaxInFlight:        getenvIntDefault("MAX_IN_FLIGHT", application.DefaultMaxInFlight),
		EloverblikBaseURL:  getenvDefault("ELOVERBLIK_BASE_URL", eloverblik.DefaultBaseURL),
		EloverblikTimeout:  getenvDuration("ELOVERBLIK_TIMEOUT", 60*time.Second),
		EloverblikRPS:      getenvFloatDefault("ELOVERBLIK_RPS", 2),
		EloverblikBurst:    getenvIntDefault("ELOVERBLIK_BURST", 4),
		RefdataSource:      strings.ToLower(getenvDefault("REFDATA_SOURCE", "file")),
		RefdataDir:         getenvDefault("REFDATA_DIR", "data"),
		RefdataRefreshCron: getenvDefault("REFDATA_REFRESH_CRON", ""),
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		EDSBaseURL:         getenvDefault("EDS_BASE_URL", eds.DefaultBaseURL),
		EDSTimeout:         getenvDuration("EDS_TIMEOUT", 2*time.Minute),
		CatalogueFile:      getenvDefault("CATALOGUE_FILE", ""),
		CORSAllowedOrigins: getenvList("CORS_ALLOWED_ORIGINS"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
		LogFormat:          getenvDefault("LOG_FORMAT", "json"),
		LogFile:            getenvDefault("LOG_FILE", ""),
		LogMaxSizeMB:       getenvIntDefault("LOG_MAX_SIZE_MB", 100),
		LogMaxAgeDays:      getenvIntDefault("LOG_MAX_AGE_DAYS", 14),
	}
	cfg.RefdataYears = getenvIntList("REFDATA_YEARS")
	if len(cfg.RefdataYears) == 0 {
		cfg.RefdataYears = []int{cfg.DeclarationYear}
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvIntList(key string) []int {
	var out []int
	for _, part := range getenvList(key) {
		if v, err := strconv.Atoi(part); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func loggingMiddleware(next http.Handler, logger logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   resp.status,
			"duration": time.Since(start).String(),
		}).Info("http request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the declaration stream upgrade through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("http: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
