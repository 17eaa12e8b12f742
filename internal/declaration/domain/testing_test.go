package declaration

import (
	"math"
	"testing"
	"time"

	refdata "energy-declaration/internal/refdata/domain"
)

const epsilon = 1e-9

var yearStart = time.Date(2018, 12, 31, 23, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// testReference builds hours of reference data starting at yearStart:
// DK1 is 60% Vind/DK1 and 40% Kul og Olie/SE, DK2 is all Sol/DK2.
func testReference(t *testing.T, hours int) *refdata.ReferenceData {
	t.Helper()
	b, err := refdata.NewBuilder(refdata.DefaultCatalogue(), 2019)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	for h := 0; h < hours; h++ {
		hour := yearStart.Add(time.Duration(h) * time.Hour)
		must(b.AddFuelShare(hour, refdata.AreaDK1, "Vind", "DK1", 0.6))
		must(b.AddFuelShare(hour, refdata.AreaDK1, "Kul og Olie", "SE", 0.4))
		must(b.AddFuelShare(hour, refdata.AreaDK2, "Sol", "DK2", 1))
		must(b.AddEmission(hour, refdata.AreaDK1, refdata.SubstanceCO2, 100))
		must(b.AddEmission(hour, refdata.AreaDK1, refdata.SubstanceCH4, 10))
		must(b.AddEmission(hour, refdata.AreaDK1, refdata.SubstanceN2O, 2))
		must(b.AddEmission(hour, refdata.AreaDK2, refdata.SubstanceCO2, 50))
	}
	ref, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return ref
}

func newTestEngine(t *testing.T, hours int) *Engine {
	t.Helper()
	engine, err := NewEngine(testReference(t, hours))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func constantSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
