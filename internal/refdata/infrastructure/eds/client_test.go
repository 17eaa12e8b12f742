package eds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	refdata "energy-declaration/internal/refdata/domain"
)

const coverageBody = `{"total":4,"records":[
{"HourUTC":"2019-01-01T00:00:00","PriceArea":"DK1","ProductionGroup":"Onshore","ConnectedArea":"DK1","Share":0.5},
{"HourUTC":"2019-01-01T00:00:00","PriceArea":"DK1","ProductionGroup":"Offshore","ConnectedArea":"DK1","Share":0.25},
{"HourUTC":"2019-01-01T00:00:00","PriceArea":"DK1","ProductionGroup":"Kul","ConnectedArea":"SE","Share":0.25},
{"HourUTC":"2019-01-01T01:00:00","PriceArea":"DK1","ProductionGroup":"Solceller","ConnectedArea":"DK1","Share":1},
{"HourUTC":"2019-01-01T00:00:00","PriceArea":"SE3","ProductionGroup":"Onshore","ConnectedArea":"SE","Share":1}
]}`

const emissionBody = `{"total":2,"records":[
{"HourUTC":"2019-01-01T00:00:00","PriceArea":"DK1","CO2PerkWh":120.5,"CO2originPerkWh":300,"MercuryPerkWh":0.1,"SO2PerkWh":null},
{"HourUTC":"2019-01-01T01:00:00","PriceArea":"DK1","CO2PerkWh":80,"SO2PerkWh":0.02}
]}`

func newTestServer(t *testing.T, queries map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries[r.URL.Path] = r.URL.RawQuery
		switch r.URL.Path {
		case "/dataset/DeclarationCoverageHour":
			_, _ = w.Write([]byte(coverageBody))
		case "/dataset/DeclarationEmissionHour":
			_, _ = w.Write([]byte(emissionBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoaderLoad(t *testing.T) {
	queries := map[string]string{}
	srv := newTestServer(t, queries)
	loader, err := NewLoader(srv.URL, refdata.DefaultCatalogue(), time.Second, nil)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}

	ref, err := loader.Load(context.Background(), 2019)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ref.Year() != 2019 || ref.Hours() != 2 {
		t.Fatalf("unexpected snapshot: year %d hours %d", ref.Year(), ref.Hours())
	}
	if !ref.Timeline()[0].Equal(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first hour %v", ref.Timeline()[0])
	}

	wind, err := ref.LookupFuelSeries(refdata.AreaDK1, "Vind", "DK1")
	if err != nil {
		t.Fatalf("wind series: %v", err)
	}
	if wind[0].Share != 0.75 || wind[1].Share != 0 {
		t.Fatalf("expected onshore and offshore summed into Vind, got %+v", wind)
	}
	coal, _ := ref.LookupFuelSeries(refdata.AreaDK1, "Kul og Olie", "SE")
	if coal[0].Share != 0.25 {
		t.Fatalf("unexpected coal series: %+v", coal)
	}

	co2, _ := ref.LookupEmissionSeries(refdata.AreaDK1, refdata.SubstanceCO2)
	if co2[0].PerKWh != 120.5 || co2[1].PerKWh != 80 {
		t.Fatalf("unexpected CO2 series: %+v", co2)
	}
	so2, _ := ref.LookupEmissionSeries(refdata.AreaDK1, "SO2")
	if so2[0].PerKWh != 0 || so2[1].PerKWh != 0.02 {
		t.Fatalf("expected null SO2 to stay zero, got %+v", so2)
	}

	q := queries["/dataset/DeclarationCoverageHour"]
	if q == "" {
		t.Fatalf("coverage dataset not requested")
	}
	want := "end=2020-01-01T00%3A00&limit=0&offset=0&sort=HourUTC+ASC&start=2019-01-01T00%3A00&timezone=dk"
	if q != want {
		t.Fatalf("unexpected query %q", q)
	}
}

func TestLoaderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	loader, _ := NewLoader(srv.URL, refdata.DefaultCatalogue(), time.Second, nil)
	if _, err := loader.Load(context.Background(), 2019); err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestNewLoaderValidates(t *testing.T) {
	if _, err := NewLoader("", refdata.DefaultCatalogue(), 0, nil); err == nil {
		t.Fatalf("expected empty url error")
	}
	if _, err := NewLoader("http://x", nil, 0, nil); err == nil {
		t.Fatalf("expected nil catalogue error")
	}
}

func TestParseHour(t *testing.T) {
	for _, raw := range []string{"2019-03-01T05:00:00", "2019-03-01T05:00:00Z"} {
		got, err := parseHour(raw)
		if err != nil || !got.Equal(time.Date(2019, 3, 1, 5, 0, 0, 0, time.UTC)) {
			t.Fatalf("%s: got %v (%v)", raw, got, err)
		}
	}
	if _, err := parseHour("yesterday"); err == nil {
		t.Fatalf("expected parse error")
	}
}
