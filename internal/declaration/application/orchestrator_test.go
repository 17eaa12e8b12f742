package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	declaration "energy-declaration/internal/declaration/domain"
	metering "energy-declaration/internal/metering/domain"
	refdata "energy-declaration/internal/refdata/domain"
)

var yearStart = time.Date(2018, 12, 31, 23, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// testReference is 48 hours of DK1 = all Vind/DK1 at 100 g CO2/kWh and
// DK2 = all Sol/DK2 at 50 g CO2/kWh.
func testReference(t *testing.T) *refdata.ReferenceData {
	t.Helper()
	b, err := refdata.NewBuilder(refdata.DefaultCatalogue(), 2019)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	for h := 0; h < 48; h++ {
		hour := yearStart.Add(time.Duration(h) * time.Hour)
		for _, err := range []error{
			b.AddFuelShare(hour, refdata.AreaDK1, "Vind", "DK1", 1),
			b.AddFuelShare(hour, refdata.AreaDK2, "Sol", "DK2", 1),
			b.AddEmission(hour, refdata.AreaDK1, refdata.SubstanceCO2, 100),
			b.AddEmission(hour, refdata.AreaDK2, refdata.SubstanceCO2, 50),
		} {
			if err != nil {
				t.Fatalf("add: %v", err)
			}
		}
	}
	ref, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return ref
}

func hourlyResult(id string, start time.Time, kWh ...float64) metering.SeriesResult {
	points := make([]metering.Point, 0, len(kWh))
	for i, v := range kWh {
		points = append(points, metering.Point{
			Position: fmt.Sprint(i + 1),
			Quantity: metering.FlexString(fmt.Sprint(v)),
			Quality:  "A04",
		})
	}
	return metering.SeriesResult{
		ID:      id,
		Success: true,
		Document: metering.MarketDocument{TimeSeries: []metering.TimeSeries{{
			BusinessType: metering.BusinessTypeHourly,
			Period: []metering.Period{{
				Resolution:   metering.ResolutionHour,
				TimeInterval: metering.TimeInterval{Start: start.Format(time.RFC3339)},
				Point:        points,
			}},
		}}},
	}
}

// fakeSource serves canned results per metering point and records chunks.
type fakeSource struct {
	mu      sync.Mutex
	results map[string]metering.SeriesResult
	fail    map[string]bool
	chunks  [][]string
}

func (f *fakeSource) fetch(_ context.Context, ids []string) ([]metering.SeriesResult, error) {
	f.mu.Lock()
	f.chunks = append(f.chunks, append([]string(nil), ids...))
	f.mu.Unlock()
	out := make([]metering.SeriesResult, 0, len(ids))
	for _, id := range ids {
		if f.fail[id] {
			return nil, errors.New("connection reset")
		}
		if res, ok := f.results[id]; ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func newTestOrchestrator(t *testing.T, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()
	engine, err := declaration.NewEngine(testReference(t))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	o, err := NewOrchestrator(engine, opts...)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func TestOrchestratorStatusesAndTotals(t *testing.T) {
	src := &fakeSource{results: map[string]metering.SeriesResult{
		"x": hourlyResult("x", yearStart.Add(-24*time.Hour), 5, 5),
		"y": hourlyResult("y", yearStart, 1, 2, 3),
		"z": hourlyResult("z", yearStart.Add(10*time.Hour), 4),
		"profiled": func() metering.SeriesResult {
			r := hourlyResult("profiled", yearStart, 9)
			r.Document.TimeSeries[0].BusinessType = "A01"
			return r
		}(),
		"empty":    {ID: "empty", Success: true},
		"rejected": {ID: "rejected", Success: false, ErrorCode: "20000", ErrorText: "WrongNumberOfArguments"},
	}}
	points := []metering.ClassifiedPoint{
		{ID: "x", Area: refdata.AreaDK1},
		{ID: "y", Area: refdata.AreaDK1},
		{ID: "z", Area: refdata.AreaDK2},
		{ID: "profiled", Area: refdata.AreaDK1},
		{ID: "empty", Area: refdata.AreaDK1},
		{ID: "rejected", Area: refdata.AreaDK2},
		{ID: "missing", Area: refdata.AreaDK2},
	}

	o := newTestOrchestrator(t, WithChunkSize(3))
	res, err := o.Run(context.Background(), points, src.fetch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := map[string]declaration.MeterStatus{
		"x":        declaration.StatusAlignmentFailed,
		"y":        declaration.StatusIncluded,
		"z":        declaration.StatusIncluded,
		"profiled": declaration.StatusNotHourlySettled,
		"empty":    declaration.StatusNotHourlySettled,
		"rejected": declaration.StatusRejectedBySource,
		"missing":  declaration.StatusRejectedBySource,
	}
	for id, status := range want {
		if res.Statuses[id] != status {
			t.Fatalf("%s: expected %s, got %s", id, status, res.Statuses[id])
		}
	}

	// Meter x is excluded; y and z in the same chunk still contribute fully.
	if !almostEqual(res.Fuel.TotalKWh(), 10) {
		t.Fatalf("expected 10 kWh, got %v", res.Fuel.TotalKWh())
	}
	if !almostEqual(res.Fuel.AreaKWh(refdata.AreaDK1), 6) || !almostEqual(res.Fuel.AreaKWh(refdata.AreaDK2), 4) {
		t.Fatalf("unexpected area totals: %v / %v", res.Fuel.AreaKWh(refdata.AreaDK1), res.Fuel.AreaKWh(refdata.AreaDK2))
	}
	co2, _ := res.Emission.Mass(refdata.SubstanceCO2)
	if !almostEqual(co2, 6*100+4*50) {
		t.Fatalf("expected 800 g CO2, got %v", co2)
	}

	if len(src.chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(src.chunks))
	}
	for _, chunk := range src.chunks {
		if len(chunk) > 3 {
			t.Fatalf("chunk exceeds size: %v", chunk)
		}
	}
}

func TestOrchestratorIgnoresResultsFromOtherChunks(t *testing.T) {
	a := hourlyResult("a", yearStart, 1)
	b := hourlyResult("b", yearStart, 1)
	fetch := func(_ context.Context, ids []string) ([]metering.SeriesResult, error) {
		if ids[0] == "a" {
			// The source also answers for b, which has its own chunk.
			return []metering.SeriesResult{a, b}, nil
		}
		return []metering.SeriesResult{b}, nil
	}
	points := []metering.ClassifiedPoint{
		{ID: "a", Area: refdata.AreaDK1},
		{ID: "b", Area: refdata.AreaDK1},
	}
	o := newTestOrchestrator(t, WithChunkSize(1))
	res, err := o.Run(context.Background(), points, fetch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !almostEqual(res.Fuel.TotalKWh(), 2) {
		t.Fatalf("expected 2 kWh, got %v", res.Fuel.TotalKWh())
	}
	co2, _ := res.Emission.Mass(refdata.SubstanceCO2)
	if !almostEqual(co2, 200) {
		t.Fatalf("expected 200 g CO2, got %v", co2)
	}
	if res.Statuses["a"] != declaration.StatusIncluded || res.Statuses["b"] != declaration.StatusIncluded {
		t.Fatalf("unexpected statuses: %v", res.Statuses)
	}
}

func TestOrchestratorKeepsCancellationCause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetch := func(ctx context.Context, _ []string) ([]metering.SeriesResult, error) {
		return nil, ctx.Err()
	}
	o := newTestOrchestrator(t)
	_, err := o.Run(ctx, []metering.ClassifiedPoint{{ID: "a", Area: refdata.AreaDK1}}, fetch)
	if !errors.Is(err, ErrTransport) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrTransport wrapping context.Canceled, got %v", err)
	}
}

func TestOrchestratorChunkFailureIsGlobal(t *testing.T) {
	src := &fakeSource{
		results: map[string]metering.SeriesResult{
			"a": hourlyResult("a", yearStart, 1),
			"b": hourlyResult("b", yearStart, 1),
		},
		fail: map[string]bool{"c": true},
	}
	points := []metering.ClassifiedPoint{
		{ID: "a", Area: refdata.AreaDK1},
		{ID: "b", Area: refdata.AreaDK1},
		{ID: "c", Area: refdata.AreaDK2},
	}
	o := newTestOrchestrator(t, WithChunkSize(1))
	res, err := o.Run(context.Background(), points, src.fetch)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected no result on failure, got %+v", res)
	}
}

func TestOrchestratorUnmappedMeterIsFatal(t *testing.T) {
	fetch := func(_ context.Context, ids []string) ([]metering.SeriesResult, error) {
		return []metering.SeriesResult{hourlyResult("stranger", yearStart, 1)}, nil
	}
	o := newTestOrchestrator(t)
	_, err := o.Run(context.Background(), []metering.ClassifiedPoint{{ID: "a", Area: refdata.AreaDK1}}, fetch)
	if !errors.Is(err, ErrUnmappedMeter) {
		t.Fatalf("expected ErrUnmappedMeter, got %v", err)
	}
}

func TestOrchestratorIndependentOfCompletionOrder(t *testing.T) {
	results := map[string]metering.SeriesResult{}
	var points []metering.ClassifiedPoint
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("m%02d", i)
		area := refdata.AreaDK1
		if i%2 == 1 {
			area = refdata.AreaDK2
		}
		results[id] = hourlyResult(id, yearStart.Add(time.Duration(i)*time.Hour), 0.1*float64(i+1), 0.3, 0.7)
		points = append(points, metering.ClassifiedPoint{ID: id, Area: area})
	}

	run := func(delay func(first string) time.Duration) *Result {
		fetch := func(ctx context.Context, ids []string) ([]metering.SeriesResult, error) {
			select {
			case <-time.After(delay(ids[0])):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			out := make([]metering.SeriesResult, 0, len(ids))
			for _, id := range ids {
				out = append(out, results[id])
			}
			return out, nil
		}
		o := newTestOrchestrator(t, WithChunkSize(2), WithMaxInFlight(6))
		res, err := o.Run(context.Background(), points, fetch)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}

	forward := run(func(first string) time.Duration {
		return time.Duration(first[2]-'0') * time.Millisecond
	})
	backward := run(func(first string) time.Duration {
		return time.Duration('9'-first[2]) * time.Millisecond
	})
	if forward.Fuel.TotalKWh() != backward.Fuel.TotalKWh() {
		t.Fatalf("totals depend on completion order: %v vs %v", forward.Fuel.TotalKWh(), backward.Fuel.TotalKWh())
	}
	c1, _ := forward.Emission.Mass(refdata.SubstanceCO2)
	c2, _ := backward.Emission.Mass(refdata.SubstanceCO2)
	if c1 != c2 {
		t.Fatalf("emissions depend on completion order: %v vs %v", c1, c2)
	}
}

func TestOrchestratorProgress(t *testing.T) {
	src := &fakeSource{results: map[string]metering.SeriesResult{}}
	var points []metering.ClassifiedPoint
	for i := 0; i < 45; i++ {
		id := fmt.Sprint(i)
		src.results[id] = hourlyResult(id, yearStart, 1)
		points = append(points, metering.ClassifiedPoint{ID: id, Area: refdata.AreaDK2})
	}
	var (
		calls int
		last  Progress
	)
	o := newTestOrchestrator(t, WithProgress(func(p Progress) {
		calls++
		last = p
	}))
	if _, err := o.Run(context.Background(), points, src.fetch); err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 progress calls for 3 chunks, got %d", calls)
	}
	if last.Processed != 45 || last.Total != 45 {
		t.Fatalf("unexpected final progress: %+v", last)
	}
}

func TestOrchestratorRejectsEmptyInput(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.Run(context.Background(), nil, (&fakeSource{}).fetch)
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, metering.ErrNoEligiblePoints) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestPartition(t *testing.T) {
	ids := []string{"1", "2", "3", "4", "5"}
	chunks := partition(ids, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 || chunks[1][0] != "3" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
	if got := partition(nil, 2); len(got) != 0 {
		t.Fatalf("expected no chunks, got %v", got)
	}
}
