// Command refdata fetches a year of declaration datasets from Energi Data
// Service and writes the files read by REFDATA_SOURCE=file. With -db it also
// upserts the year into Postgres.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"energy-declaration/internal/observability/logging"
	refdata "energy-declaration/internal/refdata/domain"
	"energy-declaration/internal/refdata/infrastructure/catalogue"
	"energy-declaration/internal/refdata/infrastructure/eds"
	"energy-declaration/internal/refdata/infrastructure/jsonfile"
	refpostgres "energy-declaration/internal/refdata/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	year      int
	outDir    string
	edsURL    string
	catalogue string
	dbURL     string
	timeout   time.Duration
	logLevel  string
}

func main() {
	_ = godotenv.Load()
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger, err := logging.New(logging.Config{Level: cfg.logLevel, Format: "text"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}

	cat, err := catalogue.Load(cfg.catalogue)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalogue:", err)
		os.Exit(2)
	}

	loader, err := eds.NewLoader(cfg.edsURL, cat, cfg.timeout, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "eds loader:", err)
		os.Exit(2)
	}

	ctx := context.Background()
	start := time.Now()
	ref, err := loader.Load(ctx, cfg.year)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		os.Exit(1)
	}

	store, err := jsonfile.NewStore(cfg.outDir, cat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "file store:", err)
		os.Exit(2)
	}
	if err := store.Save(ref); err != nil {
		fmt.Fprintln(os.Stderr, "write files:", err)
		os.Exit(1)
	}

	if cfg.dbURL != "" {
		if err := saveToPostgres(ctx, cfg.dbURL, ref, cat); err != nil {
			fmt.Fprintln(os.Stderr, "postgres:", err)
			os.Exit(1)
		}
	}

	logger.WithField("hours", ref.Hours()).WithField("duration", time.Since(start).String()).Infof(
		"wrote %s and %s", store.FuelPath(cfg.year), store.EmissionPath(cfg.year))
}

func saveToPostgres(ctx context.Context, dsn string, ref *refdata.ReferenceData, cat *refdata.Catalogue) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	loader, err := refpostgres.NewLoader(db, cat)
	if err != nil {
		return err
	}
	return loader.Save(ctx, ref)
}

func parseFlags() (config, error) {
	cfg := config{}
	flag.IntVar(&cfg.year, "year", time.Now().Year()-1, "declaration year")
	flag.StringVar(&cfg.outDir, "out", getenvDefault("REFDATA_DIR", "data"), "output directory")
	flag.StringVar(&cfg.edsURL, "eds-url", getenvDefault("EDS_BASE_URL", eds.DefaultBaseURL), "Energi Data Service base url")
	flag.StringVar(&cfg.catalogue, "catalogue", getenvDefault("CATALOGUE_FILE", ""), "catalogue file (yaml or toml, optional)")
	flag.StringVar(&cfg.dbURL, "db", "", "Postgres DSN to also upsert into (optional)")
	flag.DurationVar(&cfg.timeout, "timeout", 5*time.Minute, "request timeout per dataset")
	flag.StringVar(&cfg.logLevel, "log-level", getenvDefault("LOG_LEVEL", "info"), "log level")
	flag.Parse()

	if cfg.year < 2000 || cfg.year > 2099 {
		return cfg, fmt.Errorf("year %d out of range", cfg.year)
	}
	if cfg.outDir == "" {
		return cfg, errors.New("out is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
