package eloverblik

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientFlow(t *testing.T) {
	var gotBody timeSeriesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/CustomerApi/api/Token":
			if r.Header.Get("Authorization") != "Bearer refresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"result":"access"}`)
		case "/CustomerApi/api/meteringpoints/meteringpoints":
			if r.Header.Get("Authorization") != "Bearer access" || r.URL.Query().Get("includeAll") != "false" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = io.WriteString(w, `{"result":[{"meteringPointId":"571","typeOfMP":"E17","postcode":"8000"}]}`)
		case "/CustomerApi/api/MeterData/GetTimeSeries/2019-01-01/2020-01-01/Hour":
			if r.Method != http.MethodPost || r.Header.Get("Authorization") != "Bearer access" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = io.WriteString(w, `{"result":[{"id":"571","success":true,"MyEnergyData_MarketDocument":{"TimeSeries":[{"businessType":"A04","Period":[]}]}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, WithRateLimit(100, 10))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	token, err := client.AccessToken(ctx, "refresh")
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if token != "access" {
		t.Fatalf("expected access token, got %q", token)
	}

	points, err := client.MeteringPoints(ctx, token)
	if err != nil {
		t.Fatalf("metering points: %v", err)
	}
	if len(points) != 1 || points[0].MeteringPointID != "571" {
		t.Fatalf("unexpected points: %+v", points)
	}

	results, err := client.TimeSeries(ctx, token, 2019, []string{"571", "572"})
	if err != nil {
		t.Fatalf("time series: %v", err)
	}
	if len(results) != 1 || results[0].ID != "571" || !results[0].Success {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(gotBody.MeteringPoints.MeteringPoint) != 2 {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
}

func TestClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.AccessToken(context.Background(), "refresh"); err == nil {
		t.Fatalf("expected error on 503")
	}
	if _, err := client.TimeSeries(context.Background(), "access", 2019, []string{"1"}); err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
