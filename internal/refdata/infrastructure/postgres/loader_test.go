package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	refdata "energy-declaration/internal/refdata/domain"
	refpostgres "energy-declaration/internal/refdata/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const testYear = 2094

func TestYearBounds(t *testing.T) {
	start, end := refpostgres.YearBounds(2019)
	if !start.Equal(time.Date(2018, 12, 31, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", start)
	}
	if end.Sub(start) != 365*24*time.Hour {
		t.Fatalf("expected 8760 hours, got %v", end.Sub(start))
	}
}

func TestNewLoaderValidates(t *testing.T) {
	if _, err := refpostgres.NewLoader(nil, refdata.DefaultCatalogue()); err == nil {
		t.Fatalf("expected nil db error")
	}
}

func TestLoader_SaveAndLoad_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "declaration_coverage_hour") || !tableExists(db, "declaration_emission_hour") {
		t.Skip("declaration tables missing; run migrations")
	}

	ctx := context.Background()
	start, end := refpostgres.YearBounds(testYear)
	cleanup := func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM declaration_coverage_hour WHERE hour_utc >= $1 AND hour_utc < $2`, start, end)
		_, _ = db.ExecContext(ctx, `DELETE FROM declaration_emission_hour WHERE hour_utc >= $1 AND hour_utc < $2`, start, end)
	}
	cleanup()
	defer cleanup()

	cat := refdata.DefaultCatalogue()
	loader, err := refpostgres.NewLoader(db, cat)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	if _, err := loader.Load(ctx, testYear); !errors.Is(err, refdata.ErrReferenceNotLoaded) {
		t.Fatalf("expected ErrReferenceNotLoaded on empty tables, got %v", err)
	}

	b, _ := refdata.NewBuilder(cat, testYear)
	for h := 0; h < 4; h++ {
		hour := start.Add(time.Duration(h) * time.Hour)
		if err := b.AddFuelShare(hour, refdata.AreaDK1, "Vind", "DK1", 0.8); err != nil {
			t.Fatalf("add share: %v", err)
		}
		if err := b.AddFuelShare(hour, refdata.AreaDK1, "Naturgas", "DK2", 0.2); err != nil {
			t.Fatalf("add share: %v", err)
		}
		if err := b.AddEmission(hour, refdata.AreaDK1, refdata.SubstanceCO2, float64(100+h)); err != nil {
			t.Fatalf("add emission: %v", err)
		}
	}
	ref, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := loader.Save(ctx, ref); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A raw production-group row is folded into its fuel type.
	if _, err := db.ExecContext(ctx, `
INSERT INTO declaration_coverage_hour (hour_utc, price_area, production_group, connected_area, share)
VALUES ($1, 'DK2', 'Solceller', 'DK2', 1)`, start); err != nil {
		t.Fatalf("insert raw row: %v", err)
	}

	loaded, err := loader.Load(ctx, testYear)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Hours() != 4 || !loaded.Timeline()[0].Equal(start) {
		t.Fatalf("unexpected timeline: %v", loaded.Timeline())
	}
	gas, _ := loaded.LookupFuelSeries(refdata.AreaDK1, "Naturgas", "DK2")
	if gas[3].Share != 0.2 {
		t.Fatalf("unexpected gas series: %+v", gas)
	}
	co2, _ := loaded.LookupEmissionSeries(refdata.AreaDK1, refdata.SubstanceCO2)
	if co2[2].PerKWh != 102 {
		t.Fatalf("unexpected CO2 series: %+v", co2)
	}
	sol, _ := loaded.LookupFuelSeries(refdata.AreaDK2, "Sol", "DK2")
	if len(sol) != 1 || sol[0].Share != 1 {
		t.Fatalf("unexpected DK2 solar series: %+v", sol)
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
