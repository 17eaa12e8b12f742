package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	refdata "energy-declaration/internal/refdata/domain"
)

// Files are named {year}_fuel_data.json and {year}_emission_data.json.
// Hours are compressed to YYMMDDHH integers in UTC.
type fuelFile map[string]map[string]map[string][]fuelPoint

type emissionFile map[string]map[string][]emissionPoint

type fuelPoint struct {
	T int64   `json:"T"`
	S float64 `json:"S"`
}

type emissionPoint struct {
	T int64   `json:"T"`
	P float64 `json:"P"`
}

// Store reads and writes reference data files in one directory.
type Store struct {
	dir       string
	catalogue *refdata.Catalogue
}

// NewStore constructs a file store.
func NewStore(dir string, catalogue *refdata.Catalogue) (*Store, error) {
	if dir == "" {
		return nil, errors.New("jsonfile: empty directory")
	}
	if catalogue == nil {
		return nil, errors.New("jsonfile: nil catalogue")
	}
	return &Store{dir: dir, catalogue: catalogue}, nil
}

// FuelPath returns the fuel file of a year.
func (s *Store) FuelPath(year int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d_fuel_data.json", year))
}

// EmissionPath returns the emission file of a year.
func (s *Store) EmissionPath(year int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d_emission_data.json", year))
}

// Name identifies the source in logs and metrics.
func (s *Store) Name() string { return "file" }

// Load reads both files of a year into a snapshot.
func (s *Store) Load(ctx context.Context, year int) (*refdata.ReferenceData, error) {
	b, err := refdata.NewBuilder(s.catalogue, year)
	if err != nil {
		return nil, err
	}

	var fuel fuelFile
	if err := readJSON(s.FuelPath(year), &fuel); err != nil {
		return nil, err
	}
	for area, fuels := range fuel {
		for fuelType, connected := range fuels {
			for ca, points := range connected {
				for _, p := range points {
					hour, err := DecodeHour(p.T)
					if err != nil {
						return nil, err
					}
					if err := b.AddFuelShare(hour, refdata.PriceArea(area), refdata.FuelType(fuelType), refdata.ConnectedArea(ca), p.S); err != nil {
						return nil, fmt.Errorf("jsonfile: %s: %w", s.FuelPath(year), err)
					}
				}
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var emission emissionFile
	if err := readJSON(s.EmissionPath(year), &emission); err != nil {
		return nil, err
	}
	for area, substances := range emission {
		for sub, points := range substances {
			for _, p := range points {
				hour, err := DecodeHour(p.T)
				if err != nil {
					return nil, err
				}
				if err := b.AddEmission(hour, refdata.PriceArea(area), refdata.Substance(sub), p.P); err != nil {
					return nil, fmt.Errorf("jsonfile: %s: %w", s.EmissionPath(year), err)
				}
			}
		}
	}
	return b.Build()
}

// Save writes a snapshot as the two files of its year.
func (s *Store) Save(ref *refdata.ReferenceData) error {
	if ref == nil {
		return errors.New("jsonfile: nil reference data")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	cat := ref.Catalogue()

	fuel := make(fuelFile)
	emission := make(emissionFile)
	for _, area := range cat.PriceAreas() {
		fuel[string(area)] = make(map[string]map[string][]fuelPoint)
		for fi := 0; fi < cat.NumFuels(); fi++ {
			byCA := make(map[string][]fuelPoint)
			for ci := 0; ci < cat.NumConnectedAreas(); ci++ {
				series := ref.FuelSeries(area, fi, ci)
				points := make([]fuelPoint, 0, len(series))
				for _, rec := range series {
					points = append(points, fuelPoint{T: EncodeHour(rec.Hour), S: rec.Share})
				}
				byCA[string(cat.ConnectedAreaAt(ci))] = points
			}
			fuel[string(area)][string(cat.FuelAt(fi).Name)] = byCA
		}

		emission[string(area)] = make(map[string][]emissionPoint)
		for si := 0; si < cat.NumSubstances(); si++ {
			if cat.SubstanceAt(si).Composite {
				continue
			}
			series := ref.EmissionSeries(area, si)
			points := make([]emissionPoint, 0, len(series))
			for _, rec := range series {
				points = append(points, emissionPoint{T: EncodeHour(rec.Hour), P: rec.PerKWh})
			}
			emission[string(area)][string(cat.SubstanceAt(si).Name)] = points
		}
	}

	if err := writeJSON(s.FuelPath(ref.Year()), fuel); err != nil {
		return err
	}
	return writeJSON(s.EmissionPath(ref.Year()), emission)
}

// EncodeHour compresses an hour to YYMMDDHH in UTC.
func EncodeHour(t time.Time) int64 {
	t = t.UTC()
	return int64(t.Year()%100)*1_000_000 + int64(t.Month())*10_000 + int64(t.Day())*100 + int64(t.Hour())
}

// DecodeHour expands YYMMDDHH; years are in the 2000s.
func DecodeHour(v int64) (time.Time, error) {
	if v < 0 || v > 99_12_31_23 {
		return time.Time{}, fmt.Errorf("jsonfile: invalid hour %d", v)
	}
	year := 2000 + int(v/1_000_000)
	month := int(v / 10_000 % 100)
	day := int(v / 100 % 100)
	hour := int(v % 100)
	t := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day || t.Hour() != hour {
		return time.Time{}, fmt.Errorf("jsonfile: invalid hour %d", v)
	}
	return t, nil
}

func readJSON(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", refdata.ErrReferenceNotLoaded, path)
		}
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(out); err != nil {
		return fmt.Errorf("jsonfile: decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
