package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"energy-declaration/internal/observability/logging"
)

func TestGetenvLists(t *testing.T) {
	t.Setenv("REFDATA_YEARS", "2019, 2020,,x")
	years := getenvIntList("REFDATA_YEARS")
	if len(years) != 2 || years[0] != 2019 || years[1] != 2020 {
		t.Fatalf("unexpected years %v", years)
	}
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	if got := getenvList("CORS_ALLOWED_ORIGINS"); len(got) != 0 {
		t.Fatalf("expected no origins, got %v", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DECLARATION_YEAR", "2020")
	t.Setenv("REFDATA_YEARS", "")
	t.Setenv("REFDATA_SOURCE", "EDS")
	cfg := loadConfig()
	if cfg.DeclarationYear != 2020 || len(cfg.RefdataYears) != 1 || cfg.RefdataYears[0] != 2020 {
		t.Fatalf("unexpected years: %d %v", cfg.DeclarationYear, cfg.RefdataYears)
	}
	if cfg.RefdataSource != "eds" {
		t.Fatalf("expected lower-cased source, got %q", cfg.RefdataSource)
	}
}

func TestLoggingMiddlewareStatus(t *testing.T) {
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), logging.Discard())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
}

func TestStatusWriterHijackUnsupported(t *testing.T) {
	w := &statusWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, _, err := w.Hijack(); err == nil {
		t.Fatalf("expected hijack error on recorder")
	}
}
