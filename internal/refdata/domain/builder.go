package refdata

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Builder accumulates raw hourly dataset rows and produces an immutable
// ReferenceData. Shares of production groups folded into the same fuel type
// are summed; (fuel, connected area) pairs absent for an hour are zero.
type Builder struct {
	catalogue *Catalogue
	year      int
	fuel      map[PriceArea]map[time.Time][]float64
	emission  map[PriceArea]map[time.Time][]float64
}

// NewBuilder starts a builder for one year.
func NewBuilder(catalogue *Catalogue, year int) (*Builder, error) {
	if catalogue == nil {
		return nil, fmt.Errorf("%w: nil catalogue", ErrInvalidCatalogue)
	}
	if year <= 0 {
		return nil, ErrInvalidYear
	}
	b := &Builder{
		catalogue: catalogue,
		year:      year,
		fuel:      make(map[PriceArea]map[time.Time][]float64),
		emission:  make(map[PriceArea]map[time.Time][]float64),
	}
	for _, area := range catalogue.priceAreas {
		b.fuel[area] = make(map[time.Time][]float64)
		b.emission[area] = make(map[time.Time][]float64)
	}
	return b, nil
}

// HourKey normalises a timestamp to the reference representation.
func HourKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// AddCoverage adds a share for a raw production group.
func (b *Builder) AddCoverage(hour time.Time, area PriceArea, group string, connected ConnectedArea, share float64) error {
	fuel, err := b.catalogue.FuelForGroup(group)
	if err != nil {
		return err
	}
	return b.AddFuelShare(hour, area, fuel, connected, share)
}

// AddFuelShare adds a share for a catalogue fuel type.
func (b *Builder) AddFuelShare(hour time.Time, area PriceArea, fuel FuelType, connected ConnectedArea, share float64) error {
	hours, ok := b.fuel[area]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidArea, string(area))
	}
	fi, err := b.catalogue.FuelIndex(fuel)
	if err != nil {
		return err
	}
	ci, err := b.catalogue.ConnectedAreaIndex(connected)
	if err != nil {
		return err
	}
	if math.IsNaN(share) || math.IsInf(share, 0) {
		return fmt.Errorf("refdata: non-finite share for %s/%s/%s", area, fuel, connected)
	}

	key := HourKey(hour)
	cell := hours[key]
	if cell == nil {
		cell = make([]float64, b.catalogue.NumFuels()*b.catalogue.NumConnectedAreas())
		hours[key] = cell
	}
	cell[fi*b.catalogue.NumConnectedAreas()+ci] += share
	return nil
}

// AddEmission sets the per-kWh factor of a substance for one hour.
// Composite substances are ignored.
func (b *Builder) AddEmission(hour time.Time, area PriceArea, substance Substance, perKWh float64) error {
	hours, ok := b.emission[area]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidArea, string(area))
	}
	si, err := b.catalogue.SubstanceIndex(substance)
	if err != nil {
		return err
	}
	if b.catalogue.substances[si].Composite {
		return nil
	}
	if math.IsNaN(perKWh) || math.IsInf(perKWh, 0) {
		return fmt.Errorf("refdata: non-finite factor for %s/%s", area, substance)
	}

	key := HourKey(hour)
	cell := hours[key]
	if cell == nil {
		cell = make([]float64, b.catalogue.NumSubstances())
		hours[key] = cell
	}
	cell[si] = perKWh
	return nil
}

// Build sorts every series by hour and freezes the snapshot.
func (b *Builder) Build() (*ReferenceData, error) {
	cat := b.catalogue
	nf, nc, ns := cat.NumFuels(), cat.NumConnectedAreas(), cat.NumSubstances()

	ref := &ReferenceData{
		year:      b.year,
		catalogue: cat,
		fuel:      make(map[PriceArea][][][]FuelRecord, len(cat.priceAreas)),
		emission:  make(map[PriceArea][][]EmissionRecord, len(cat.priceAreas)),
	}

	for _, area := range cat.priceAreas {
		hours := sortedHours(b.fuel[area])
		tables := make([][][]FuelRecord, nf)
		for fi := 0; fi < nf; fi++ {
			tables[fi] = make([][]FuelRecord, nc)
			for ci := 0; ci < nc; ci++ {
				series := make([]FuelRecord, len(hours))
				for h, hour := range hours {
					series[h] = FuelRecord{Hour: hour, Share: b.fuel[area][hour][fi*nc+ci]}
				}
				tables[fi][ci] = series
			}
		}
		ref.fuel[area] = tables
		if ref.timeline == nil && len(hours) > 0 {
			ref.timeline = hours
		}

		emissionHours := sortedHours(b.emission[area])
		subTables := make([][]EmissionRecord, ns)
		for si := 0; si < ns; si++ {
			if cat.substances[si].Composite {
				continue
			}
			series := make([]EmissionRecord, len(emissionHours))
			for h, hour := range emissionHours {
				series[h] = EmissionRecord{Hour: hour, PerKWh: b.emission[area][hour][si]}
			}
			subTables[si] = series
		}
		ref.emission[area] = subTables
	}

	if len(ref.timeline) == 0 {
		return nil, ErrEmptyReference
	}
	return ref, nil
}

func sortedHours(cells map[time.Time][]float64) []time.Time {
	hours := make([]time.Time, 0, len(cells))
	for hour := range cells {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })
	return hours
}
