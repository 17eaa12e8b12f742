package refdata

import (
	"fmt"
	"time"
)

// FuelRecord is the share of an area's consumption attributed to one
// (fuel type, connected area) pair during one hour.
type FuelRecord struct {
	Hour  time.Time
	Share float64
}

// EmissionRecord is the emission mass per kWh consumed during one hour.
type EmissionRecord struct {
	Hour   time.Time
	PerKWh float64
}

// ReferenceData is an immutable snapshot of one year of hourly fuel-mix and
// emission tables. All tables of one snapshot share a single timeline.
type ReferenceData struct {
	year      int
	catalogue *Catalogue
	// fuel[area][fuel][connectedArea] is the hourly share series.
	fuel map[PriceArea][][][]FuelRecord
	// emission[area][substance] is the hourly factor series; composites stay nil.
	emission map[PriceArea][][]EmissionRecord
	timeline []time.Time
}

// Year returns the calendar year covered.
func (r *ReferenceData) Year() int { return r.year }

// Catalogue returns the catalogue the tables are indexed by.
func (r *ReferenceData) Catalogue() *Catalogue { return r.catalogue }

// Timeline returns the ascending hour sequence of the representative series.
// Callers must not modify the returned slice.
func (r *ReferenceData) Timeline() []time.Time { return r.timeline }

// Hours returns the length of the timeline.
func (r *ReferenceData) Hours() int { return len(r.timeline) }

// FuelSeries returns the series for index positions; nil if absent.
func (r *ReferenceData) FuelSeries(area PriceArea, fuel, connected int) []FuelRecord {
	tables, ok := r.fuel[area]
	if !ok || fuel < 0 || fuel >= len(tables) || connected < 0 || connected >= len(tables[fuel]) {
		return nil
	}
	return tables[fuel][connected]
}

// EmissionSeries returns the series for a substance index; nil if absent.
func (r *ReferenceData) EmissionSeries(area PriceArea, substance int) []EmissionRecord {
	tables, ok := r.emission[area]
	if !ok || substance < 0 || substance >= len(tables) {
		return nil
	}
	return tables[substance]
}

// LookupFuelSeries resolves a series by name.
func (r *ReferenceData) LookupFuelSeries(area PriceArea, fuel FuelType, connected ConnectedArea) ([]FuelRecord, error) {
	if _, ok := r.fuel[area]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidArea, string(area))
	}
	fi, err := r.catalogue.FuelIndex(fuel)
	if err != nil {
		return nil, err
	}
	ci, err := r.catalogue.ConnectedAreaIndex(connected)
	if err != nil {
		return nil, err
	}
	return r.fuel[area][fi][ci], nil
}

// LookupEmissionSeries resolves a series by name.
func (r *ReferenceData) LookupEmissionSeries(area PriceArea, substance Substance) ([]EmissionRecord, error) {
	if _, ok := r.emission[area]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidArea, string(area))
	}
	si, err := r.catalogue.SubstanceIndex(substance)
	if err != nil {
		return nil, err
	}
	return r.emission[area][si], nil
}
