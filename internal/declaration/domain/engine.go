package declaration

import (
	"errors"
	"fmt"

	refdata "energy-declaration/internal/refdata/domain"
)

// Engine apportions hourly consumption against one reference snapshot.
type Engine struct {
	ref *refdata.ReferenceData
	cat *refdata.Catalogue
}

// NewEngine binds an engine to a reference snapshot.
func NewEngine(ref *refdata.ReferenceData) (*Engine, error) {
	if ref == nil {
		return nil, errors.New("declaration: nil reference data")
	}
	return &Engine{ref: ref, cat: ref.Catalogue()}, nil
}

// Reference returns the snapshot the engine reads.
func (e *Engine) Reference() *refdata.ReferenceData { return e.ref }

// NewFuelStats creates a fuel accumulator for this engine's catalogue.
func (e *Engine) NewFuelStats() *FuelStats {
	s, _ := NewFuelStats(e.cat)
	return s
}

// NewEmissionStats creates an emission accumulator for this engine's catalogue.
func (e *Engine) NewEmissionStats() *EmissionStats {
	s, _ := NewEmissionStats(e.cat)
	return s
}

// Apportion walks hourly[i] against reference index i+offset and adds the
// weighted energy and emissions into the accumulators. Iteration stops at
// the shorter of the meter series and the remaining reference series. It
// returns the number of hours applied to the fuel tables.
func (e *Engine) Apportion(hourly []float64, area refdata.PriceArea, offset int, fuel *FuelStats, emission *EmissionStats) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeOffset, offset)
	}
	if !e.cat.HasPriceArea(area) {
		return 0, fmt.Errorf("%w: %q", refdata.ErrInvalidArea, string(area))
	}
	if fuel == nil || emission == nil {
		return 0, errors.New("declaration: nil accumulator")
	}
	if fuel.catalogue != e.cat || emission.catalogue != e.cat {
		return 0, ErrCatalogueMismatch
	}

	applied := 0
	for fi := 0; fi < e.cat.NumFuels(); fi++ {
		for ci := 0; ci < e.cat.NumConnectedAreas(); ci++ {
			series := e.ref.FuelSeries(area, fi, ci)
			n := span(len(hourly), len(series), offset)
			for i := 0; i < n; i++ {
				fuel.add(area, fi, ci, hourly[i]*series[i+offset].Share)
			}
			if n > applied {
				applied = n
			}
		}
	}

	for si := 0; si < e.cat.NumSubstances(); si++ {
		if e.cat.SubstanceAt(si).Composite {
			continue
		}
		series := e.ref.EmissionSeries(area, si)
		n := span(len(hourly), len(series), offset)
		var mass float64
		for i := 0; i < n; i++ {
			mass += hourly[i] * series[i+offset].PerKWh
		}
		emission.add(si, mass)
	}
	return applied, nil
}

// span is min(hours, refLen-offset), never negative.
func span(hours, refLen, offset int) int {
	n := refLen - offset
	if hours < n {
		n = hours
	}
	if n < 0 {
		return 0
	}
	return n
}
