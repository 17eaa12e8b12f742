package declaration

import (
	refdata "energy-declaration/internal/refdata/domain"
)

// Global warming potentials relative to CO2 over 100 years.
const (
	GWPMethane       = 28
	GWPNitrousOxide  = 265
	gramsPerTonne    = 1e6
	gramsPerKilogram = 1e3
	kWhPerMWh        = 1e3
	// DisplayThreshold switches kWh to MWh and kg to t.
	DisplayThreshold = 1e6
)

// CO2Eqv derives the CO2-equivalent mass in grams from the accumulated
// CO2, CH4 and N2O. It is never stored.
func CO2Eqv(e *EmissionStats) (float64, error) {
	co2, err := accumulatedGrams(e, refdata.SubstanceCO2)
	if err != nil {
		return 0, err
	}
	ch4, err := accumulatedGrams(e, refdata.SubstanceCH4)
	if err != nil {
		return 0, err
	}
	n2o, err := accumulatedGrams(e, refdata.SubstanceN2O)
	if err != nil {
		return 0, err
	}
	return co2 + ch4*GWPMethane + n2o*GWPNitrousOxide, nil
}

// Grams returns the accumulated mass of a substance in grams, deriving
// composite substances.
func Grams(e *EmissionStats, sub refdata.Substance) (float64, error) {
	spec, err := e.catalogue.Substance(sub)
	if err != nil {
		return 0, err
	}
	if spec.Composite {
		return CO2Eqv(e)
	}
	return accumulatedGrams(e, sub)
}

// accumulatedGrams never derives; Mass rejects composites.
func accumulatedGrams(e *EmissionStats, sub refdata.Substance) (float64, error) {
	spec, err := e.catalogue.Substance(sub)
	if err != nil {
		return 0, err
	}
	mass, err := e.Mass(sub)
	if err != nil {
		return 0, err
	}
	return spec.Unit.Grams(mass)
}

// PerKWh divides by the total consumption; zero consumption yields zero.
func PerKWh(value, totalKWh float64) float64 {
	if totalKWh == 0 {
		return 0
	}
	return value / totalKWh
}

// Percent returns part as a percentage of total; zero total yields zero.
func Percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part * 100 / total
}

// Amount is a value with its display unit.
type Amount struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// EnergyAmount scales kWh to MWh when the run total reaches DisplayThreshold.
func EnergyAmount(kWh, totalKWh float64) Amount {
	if totalKWh >= DisplayThreshold {
		return Amount{Value: kWh / kWhPerMWh, Unit: "MWh"}
	}
	return Amount{Value: kWh, Unit: "kWh"}
}

// MassAmount renders grams as tonnes from DisplayThreshold upwards, else kilograms.
func MassAmount(grams float64) Amount {
	if grams >= DisplayThreshold {
		return Amount{Value: grams / gramsPerTonne, Unit: "t"}
	}
	return Amount{Value: grams / gramsPerKilogram, Unit: "kg"}
}
