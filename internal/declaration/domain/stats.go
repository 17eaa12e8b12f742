package declaration

import (
	"errors"
	"fmt"

	refdata "energy-declaration/internal/refdata/domain"
)

// FuelStats accumulates apportioned energy for one declaration run.
type FuelStats struct {
	catalogue *refdata.Catalogue
	totalKWh  float64
	area      map[refdata.PriceArea]float64
	// matrix[fuel*numConnected+connected]
	matrix []float64
}

// NewFuelStats creates an empty accumulator indexed by the catalogue.
func NewFuelStats(catalogue *refdata.Catalogue) (*FuelStats, error) {
	if catalogue == nil {
		return nil, errors.New("declaration: nil catalogue")
	}
	area := make(map[refdata.PriceArea]float64)
	for _, a := range catalogue.PriceAreas() {
		area[a] = 0
	}
	return &FuelStats{
		catalogue: catalogue,
		area:      area,
		matrix:    make([]float64, catalogue.NumFuels()*catalogue.NumConnectedAreas()),
	}, nil
}

// Catalogue returns the catalogue the accumulator is indexed by.
func (s *FuelStats) Catalogue() *refdata.Catalogue { return s.catalogue }

// TotalKWh returns the total apportioned consumption.
func (s *FuelStats) TotalKWh() float64 { return s.totalKWh }

// AreaKWh returns the consumption apportioned in a price area.
func (s *FuelStats) AreaKWh(area refdata.PriceArea) float64 { return s.area[area] }

// AreaShare returns the area's fraction of the total; zero for an empty run.
func (s *FuelStats) AreaShare(area refdata.PriceArea) float64 {
	if s.totalKWh == 0 {
		return 0
	}
	return s.area[area] / s.totalKWh
}

func (s *FuelStats) add(area refdata.PriceArea, fuel, connected int, kWh float64) {
	s.totalKWh += kWh
	s.area[area] += kWh
	s.matrix[fuel*s.catalogue.NumConnectedAreas()+connected] += kWh
}

// Cell returns the energy of one (fuel, connected area) pair by index.
func (s *FuelStats) Cell(fuel, connected int) float64 {
	return s.matrix[fuel*s.catalogue.NumConnectedAreas()+connected]
}

// Get returns the energy of one (fuel, connected area) pair by name.
func (s *FuelStats) Get(fuel refdata.FuelType, connected refdata.ConnectedArea) (float64, error) {
	fi, err := s.catalogue.FuelIndex(fuel)
	if err != nil {
		return 0, err
	}
	ci, err := s.catalogue.ConnectedAreaIndex(connected)
	if err != nil {
		return 0, err
	}
	return s.Cell(fi, ci), nil
}

// FuelKWh sums a fuel type over all connected areas.
func (s *FuelStats) FuelKWh(fuel int) float64 {
	var sum float64
	for ci := 0; ci < s.catalogue.NumConnectedAreas(); ci++ {
		sum += s.Cell(fuel, ci)
	}
	return sum
}

// ConnectedAreaKWh sums a connected area over all fuel types.
func (s *FuelStats) ConnectedAreaKWh(connected int) float64 {
	var sum float64
	for fi := 0; fi < s.catalogue.NumFuels(); fi++ {
		sum += s.Cell(fi, connected)
	}
	return sum
}

// MatrixSum sums every (fuel, connected area) cell.
func (s *FuelStats) MatrixSum() float64 {
	var sum float64
	for _, v := range s.matrix {
		sum += v
	}
	return sum
}

// Merge adds another accumulator built on the same catalogue.
func (s *FuelStats) Merge(other *FuelStats) error {
	if other == nil {
		return nil
	}
	if other.catalogue != s.catalogue {
		return ErrCatalogueMismatch
	}
	s.totalKWh += other.totalKWh
	for area, v := range other.area {
		s.area[area] += v
	}
	for i, v := range other.matrix {
		s.matrix[i] += v
	}
	return nil
}

// EmissionStats accumulates emitted mass per substance in its native unit.
// Composite substances are never accumulated.
type EmissionStats struct {
	catalogue *refdata.Catalogue
	values    []float64
}

// NewEmissionStats creates an empty accumulator indexed by the catalogue.
func NewEmissionStats(catalogue *refdata.Catalogue) (*EmissionStats, error) {
	if catalogue == nil {
		return nil, errors.New("declaration: nil catalogue")
	}
	return &EmissionStats{
		catalogue: catalogue,
		values:    make([]float64, catalogue.NumSubstances()),
	}, nil
}

// Catalogue returns the catalogue the accumulator is indexed by.
func (s *EmissionStats) Catalogue() *refdata.Catalogue { return s.catalogue }

func (s *EmissionStats) add(substance int, mass float64) {
	s.values[substance] += mass
}

// At returns the accumulated native-unit mass by index.
func (s *EmissionStats) At(substance int) float64 { return s.values[substance] }

// Mass returns the accumulated native-unit mass of a stored substance.
func (s *EmissionStats) Mass(sub refdata.Substance) (float64, error) {
	i, err := s.catalogue.SubstanceIndex(sub)
	if err != nil {
		return 0, err
	}
	if s.catalogue.SubstanceAt(i).Composite {
		return 0, fmt.Errorf("%w: %s is derived", refdata.ErrUnknownCategory, sub)
	}
	return s.values[i], nil
}

// Merge adds another accumulator built on the same catalogue.
func (s *EmissionStats) Merge(other *EmissionStats) error {
	if other == nil {
		return nil
	}
	if other.catalogue != s.catalogue {
		return ErrCatalogueMismatch
	}
	for i, v := range other.values {
		s.values[i] += v
	}
	return nil
}
