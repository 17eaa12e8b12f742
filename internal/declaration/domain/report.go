package declaration

import (
	"errors"
	"math"
	"sort"

	refdata "energy-declaration/internal/refdata/domain"
)

// FuelRow is one fuel type of the declaration.
type FuelRow struct {
	Fuel             refdata.FuelType `json:"fuel"`
	Color            string           `json:"color"`
	Image            string           `json:"image"`
	KWh              float64          `json:"kwh"`
	Consumption      Amount           `json:"consumption"`
	Percent          float64          `json:"percent"`
	ReferencePercent float64          `json:"reference_percent"`
	// ConnectedPercent follows Report.ConnectedAreas order.
	ConnectedPercent []float64 `json:"connected_percent"`
}

// ConnectedAreaRow is the share sourced from one connected area.
type ConnectedAreaRow struct {
	Area    refdata.ConnectedArea `json:"area"`
	KWh     float64               `json:"kwh"`
	Percent float64               `json:"percent"`
}

// EmissionRow is one substance expressed in g/kWh.
type EmissionRow struct {
	Substance refdata.Substance `json:"substance"`
	Label     string            `json:"label"`
	PerKWh    float64           `json:"per_kwh"`
	Reference float64           `json:"reference"`
	Decimals  int               `json:"decimals"`
	Derived   bool              `json:"derived"`
}

// MeterRow is the status of one metering point.
type MeterRow struct {
	ID     string            `json:"id"`
	Area   refdata.PriceArea `json:"area,omitempty"`
	Status MeterStatus       `json:"status"`
}

// Report is the presentation-ready numeric declaration.
type Report struct {
	Year              int                           `json:"year"`
	TotalKWh          float64                       `json:"total_kwh"`
	Consumption       Amount                        `json:"consumption"`
	AreaShares        map[refdata.PriceArea]float64 `json:"area_shares"`
	Fuels             []FuelRow                     `json:"fuels"`
	ConnectedAreas    []ConnectedAreaRow            `json:"connected_areas"`
	AirEmissions      []EmissionRow                 `json:"air_emissions"`
	ResidualEmissions []EmissionRow                 `json:"residual_emissions"`
	CO2Total          Amount                        `json:"co2_total"`
	CO2PerKWh         float64                       `json:"co2_per_kwh"`
	SustainablePct    float64                       `json:"sustainable_percent"`
	CO2Indicator      float64                       `json:"co2_indicator"`
	Meters            []MeterRow                    `json:"meters"`
}

// ReportInput bundles what a finished run hands to formatting.
type ReportInput struct {
	Year     int
	Fuel     *FuelStats
	Emission *EmissionStats
	Statuses map[string]MeterStatus
	Areas    map[string]refdata.PriceArea
}

// BuildReport derives every presentation figure from the accumulators.
func BuildReport(in ReportInput) (*Report, error) {
	if in.Fuel == nil || in.Emission == nil {
		return nil, errors.New("declaration: nil accumulator")
	}
	if in.Fuel.catalogue != in.Emission.catalogue {
		return nil, ErrCatalogueMismatch
	}
	cat := in.Fuel.catalogue
	total := in.Fuel.TotalKWh()

	r := &Report{
		Year:        in.Year,
		TotalKWh:    total,
		Consumption: EnergyAmount(total, total),
		AreaShares:  make(map[refdata.PriceArea]float64),
	}
	for _, area := range cat.PriceAreas() {
		r.AreaShares[area] = in.Fuel.AreaShare(area)
	}
	weighted := func(ref map[refdata.PriceArea]float64) float64 {
		var v float64
		for _, area := range cat.PriceAreas() {
			v += r.AreaShares[area] * ref[area]
		}
		return v
	}

	var sustainable float64
	for fi := 0; fi < cat.NumFuels(); fi++ {
		spec := cat.FuelAt(fi)
		kWh := in.Fuel.FuelKWh(fi)
		row := FuelRow{
			Fuel:             spec.Name,
			Color:            spec.Color,
			Image:            spec.Image,
			KWh:              kWh,
			Consumption:      EnergyAmount(kWh, total),
			Percent:          Percent(kWh, total),
			ReferencePercent: weighted(spec.Reference),
			ConnectedPercent: make([]float64, cat.NumConnectedAreas()),
		}
		for ci := range row.ConnectedPercent {
			row.ConnectedPercent[ci] = Percent(in.Fuel.Cell(fi, ci), total)
		}
		r.Fuels = append(r.Fuels, row)
		sustainable += kWh * spec.SustainableWeight
	}
	for ci := 0; ci < cat.NumConnectedAreas(); ci++ {
		kWh := in.Fuel.ConnectedAreaKWh(ci)
		r.ConnectedAreas = append(r.ConnectedAreas, ConnectedAreaRow{
			Area:    cat.ConnectedAreaAt(ci),
			KWh:     kWh,
			Percent: Percent(kWh, total),
		})
	}
	r.SustainablePct = math.Round(Percent(sustainable, total))

	for si := 0; si < cat.NumSubstances(); si++ {
		spec := cat.SubstanceAt(si)
		grams, err := Grams(in.Emission, spec.Name)
		if err != nil {
			return nil, err
		}
		row := EmissionRow{
			Substance: spec.Name,
			Label:     spec.Label,
			PerKWh:    PerKWh(grams, total),
			Reference: weighted(spec.Reference),
			Decimals:  spec.Decimals,
			Derived:   spec.Composite,
		}
		switch spec.Category {
		case refdata.CategoryAir:
			r.AirEmissions = append(r.AirEmissions, row)
		case refdata.CategoryResidual:
			r.ResidualEmissions = append(r.ResidualEmissions, row)
		default:
			return nil, refdata.ErrUnknownCategory
		}
	}

	co2, err := Grams(in.Emission, refdata.SubstanceCO2)
	if err != nil {
		return nil, err
	}
	co2Spec, err := cat.Substance(refdata.SubstanceCO2)
	if err != nil {
		return nil, err
	}
	r.CO2Total = MassAmount(co2)
	r.CO2PerKWh = PerKWh(co2, total)
	if ref := weighted(co2Spec.Reference); ref != 0 && total != 0 {
		r.CO2Indicator = 100 - r.CO2PerKWh/ref*100
	}

	r.Meters = make([]MeterRow, 0, len(in.Statuses))
	for id, status := range in.Statuses {
		r.Meters = append(r.Meters, MeterRow{ID: id, Area: in.Areas[id], Status: status})
	}
	sort.Slice(r.Meters, func(i, j int) bool { return r.Meters[i].ID < r.Meters[j].ID })
	return r, nil
}
