package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	refdata "energy-declaration/internal/refdata/domain"
)

const (
	defaultCoverageTable = "declaration_coverage_hour"
	defaultEmissionTable = "declaration_emission_hour"
)

// Loader reads hourly declaration datasets from Postgres.
type Loader struct {
	db            *sql.DB
	catalogue     *refdata.Catalogue
	coverageTable string
	emissionTable string
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithTables overrides the default table names.
func WithTables(coverage, emission string) LoaderOption {
	return func(l *Loader) {
		if coverage != "" {
			l.coverageTable = coverage
		}
		if emission != "" {
			l.emissionTable = emission
		}
	}
}

// NewLoader creates a loader on an open database handle.
func NewLoader(db *sql.DB, catalogue *refdata.Catalogue, opts ...LoaderOption) (*Loader, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	if catalogue == nil {
		return nil, errors.New("postgres: nil catalogue")
	}
	l := &Loader{
		db:            db,
		catalogue:     catalogue,
		coverageTable: defaultCoverageTable,
		emissionTable: defaultEmissionTable,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Name identifies the source in logs and metrics.
func (l *Loader) Name() string { return "postgres" }

// YearBounds returns the UTC range of a Danish calendar year. January 1st is
// always CET, so the year starts at 23:00 UTC the day before.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Hour)
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Hour)
	return start, end
}

// Load reads one year of coverage and emission rows. Rows of price areas
// outside the catalogue are ignored.
func (l *Loader) Load(ctx context.Context, year int) (*refdata.ReferenceData, error) {
	b, err := refdata.NewBuilder(l.catalogue, year)
	if err != nil {
		return nil, err
	}
	start, end := YearBounds(year)

	coverageQuery := fmt.Sprintf(`
SELECT hour_utc, price_area, production_group, connected_area, share
FROM %s
WHERE hour_utc >= $1 AND hour_utc < $2
ORDER BY hour_utc`, l.coverageTable)

	rows, err := l.db.QueryContext(ctx, coverageQuery, start, end)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			hour      time.Time
			area      string
			group     string
			connected string
			share     float64
		)
		if err := rows.Scan(&hour, &area, &group, &connected, &share); err != nil {
			rows.Close()
			return nil, err
		}
		if !l.catalogue.HasPriceArea(refdata.PriceArea(area)) {
			continue
		}
		if err := l.addShare(b, hour, refdata.PriceArea(area), group, refdata.ConnectedArea(connected), share); err != nil {
			rows.Close()
			return nil, err
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	emissionQuery := fmt.Sprintf(`
SELECT hour_utc, price_area, substance, per_kwh
FROM %s
WHERE hour_utc >= $1 AND hour_utc < $2
ORDER BY hour_utc`, l.emissionTable)

	rows, err = l.db.QueryContext(ctx, emissionQuery, start, end)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			hour      time.Time
			area      string
			substance string
			perKWh    float64
		)
		if err := rows.Scan(&hour, &area, &substance, &perKWh); err != nil {
			rows.Close()
			return nil, err
		}
		if !l.catalogue.HasPriceArea(refdata.PriceArea(area)) {
			continue
		}
		if err := b.AddEmission(hour, refdata.PriceArea(area), refdata.Substance(substance), perKWh); err != nil {
			rows.Close()
			return nil, err
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	ref, err := b.Build()
	if errors.Is(err, refdata.ErrEmptyReference) {
		return nil, fmt.Errorf("%w: no rows for %d", refdata.ErrReferenceNotLoaded, year)
	}
	return ref, err
}

// Save upserts a snapshot. Shares are stored per fuel type, which Load
// accepts in place of a production group.
func (l *Loader) Save(ctx context.Context, ref *refdata.ReferenceData) error {
	if ref == nil {
		return errors.New("postgres: nil reference data")
	}
	cat := ref.Catalogue()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	coverageStmt := fmt.Sprintf(`
INSERT INTO %s (hour_utc, price_area, production_group, connected_area, share)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (hour_utc, price_area, production_group, connected_area)
DO UPDATE SET share = EXCLUDED.share`, l.coverageTable)
	emissionStmt := fmt.Sprintf(`
INSERT INTO %s (hour_utc, price_area, substance, per_kwh)
VALUES ($1, $2, $3, $4)
ON CONFLICT (hour_utc, price_area, substance)
DO UPDATE SET per_kwh = EXCLUDED.per_kwh`, l.emissionTable)

	for _, area := range cat.PriceAreas() {
		for fi := 0; fi < cat.NumFuels(); fi++ {
			fuel := string(cat.FuelAt(fi).Name)
			for ci := 0; ci < cat.NumConnectedAreas(); ci++ {
				connected := string(cat.ConnectedAreaAt(ci))
				for _, rec := range ref.FuelSeries(area, fi, ci) {
					if rec.Share == 0 {
						continue
					}
					if _, err := tx.ExecContext(ctx, coverageStmt, rec.Hour, string(area), fuel, connected, rec.Share); err != nil {
						return err
					}
				}
			}
		}
		for si := 0; si < cat.NumSubstances(); si++ {
			spec := cat.SubstanceAt(si)
			if spec.Composite {
				continue
			}
			for _, rec := range ref.EmissionSeries(area, si) {
				if _, err := tx.ExecContext(ctx, emissionStmt, rec.Hour, string(area), string(spec.Name), rec.PerKWh); err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit()
}

func (l *Loader) addShare(b *refdata.Builder, hour time.Time, area refdata.PriceArea, group string, connected refdata.ConnectedArea, share float64) error {
	if _, err := l.catalogue.FuelIndex(refdata.FuelType(group)); err == nil {
		return b.AddFuelShare(hour, area, refdata.FuelType(group), connected, share)
	}
	return b.AddCoverage(hour, area, group, connected, share)
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
