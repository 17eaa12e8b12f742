package metering

import (
	"math"
	"strconv"
	"strings"
)

const (
	// BusinessTypeHourly is the business type of validated hourly consumption.
	BusinessTypeHourly = "A04"
	// ResolutionHour is the ISO 8601 duration of hourly periods.
	ResolutionHour = "PT1H"
	// MaxHours is the number of hours in a leap year.
	MaxHours = 8784
)

// HourlySeries is chronological kWh consumption, one value per hour.
type HourlySeries []float64

// Sum returns the total consumption of the series.
func (h HourlySeries) Sum() float64 {
	var total float64
	for _, v := range h {
		total += v
	}
	return total
}

// SeriesResult is the per-meter item of a time series response.
type SeriesResult struct {
	ID        string         `json:"id"`
	Success   bool           `json:"success"`
	ErrorCode FlexString     `json:"errorCode"`
	ErrorText string         `json:"errorText"`
	Document  MarketDocument `json:"MyEnergyData_MarketDocument"`
}

// MarketDocument wraps the time series of one metering point.
type MarketDocument struct {
	TimeSeries []TimeSeries `json:"TimeSeries"`
}

// TimeSeries is one business-typed series of periods.
type TimeSeries struct {
	BusinessType string   `json:"businessType"`
	Period       []Period `json:"Period"`
}

// Period is one day of readings.
type Period struct {
	Resolution   string       `json:"resolution"`
	TimeInterval TimeInterval `json:"timeInterval"`
	Point        []Point      `json:"Point"`
}

// TimeInterval bounds a period.
type TimeInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Point is one reading within a period.
type Point struct {
	Position string     `json:"position"`
	Quantity FlexString `json:"out_Quantity.quantity"`
	Quality  string     `json:"out_Quantity.quality"`
}

// Value parses the quantity. ok is false for missing, non-numeric,
// non-finite or negative readings.
func (p Point) Value() (float64, bool) {
	raw := strings.TrimSpace(string(p.Quantity))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// Primary returns the first time series of the result, if any.
func (r SeriesResult) Primary() (TimeSeries, bool) {
	if len(r.Document.TimeSeries) == 0 {
		return TimeSeries{}, false
	}
	return r.Document.TimeSeries[0], true
}

// IsHourlySettled reports whether the series carries validated hourly data.
func (t TimeSeries) IsHourlySettled() bool {
	if t.BusinessType != BusinessTypeHourly || len(t.Period) == 0 {
		return false
	}
	for _, p := range t.Period {
		if p.Resolution != "" && p.Resolution != ResolutionHour {
			return false
		}
	}
	return true
}

// PeriodStarts returns the raw start timestamp of every period.
func (t TimeSeries) PeriodStarts() []string {
	starts := make([]string, 0, len(t.Period))
	for _, p := range t.Period {
		starts = append(starts, p.TimeInterval.Start)
	}
	return starts
}

// Flatten concatenates the points of all periods. Invalid readings are
// dropped; hours are never invented. The result is capped at MaxHours.
func (t TimeSeries) Flatten() HourlySeries {
	out := make(HourlySeries, 0, len(t.Period)*24)
	for _, p := range t.Period {
		for _, point := range p.Point {
			v, ok := point.Value()
			if !ok {
				continue
			}
			if len(out) == MaxHours {
				return out
			}
			out = append(out, v)
		}
	}
	return out
}
