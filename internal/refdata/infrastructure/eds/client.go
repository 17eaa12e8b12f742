package eds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"energy-declaration/internal/observability/logging"
	refdata "energy-declaration/internal/refdata/domain"
)

// DefaultBaseURL is the Energi Data Service API host.
const DefaultBaseURL = "https://api.energidataservice.dk"

const (
	datasetCoverage = "DeclarationCoverageHour"
	datasetEmission = "DeclarationEmissionHour"

	perKWhSuffix = "PerkWh"
	// CO2origin is the production-side factor, not a consumption emission.
	co2OriginColumn = "CO2originPerkWh"
	hourLayout      = "2006-01-02T15:04:05"
)

// Loader fetches declaration datasets from Energi Data Service.
type Loader struct {
	baseURL   string
	client    *http.Client
	catalogue *refdata.Catalogue
	logger    logrus.FieldLogger
}

// NewLoader constructs an EDS loader.
func NewLoader(baseURL string, catalogue *refdata.Catalogue, timeout time.Duration, logger logrus.FieldLogger) (*Loader, error) {
	if baseURL == "" {
		return nil, errors.New("eds: empty base url")
	}
	if catalogue == nil {
		return nil, errors.New("eds: nil catalogue")
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Loader{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		catalogue: catalogue,
		logger:    logging.Component(logger, "eds"),
	}, nil
}

// Name identifies the source in logs and metrics.
func (l *Loader) Name() string { return "eds" }

type coverageRecord struct {
	HourUTC         string  `json:"HourUTC"`
	PriceArea       string  `json:"PriceArea"`
	ProductionGroup string  `json:"ProductionGroup"`
	ConnectedArea   string  `json:"ConnectedArea"`
	Share           float64 `json:"Share"`
}

type datasetResponse[T any] struct {
	Total   int `json:"total"`
	Records []T `json:"records"`
}

// Load fetches one calendar year of coverage and emission records.
func (l *Loader) Load(ctx context.Context, year int) (*refdata.ReferenceData, error) {
	b, err := refdata.NewBuilder(l.catalogue, year)
	if err != nil {
		return nil, err
	}

	var coverage datasetResponse[coverageRecord]
	if err := l.fetch(ctx, datasetCoverage, year, &coverage); err != nil {
		return nil, err
	}
	for _, rec := range coverage.Records {
		area := refdata.PriceArea(strings.ToUpper(rec.PriceArea))
		if !l.catalogue.HasPriceArea(area) {
			continue
		}
		hour, err := parseHour(rec.HourUTC)
		if err != nil {
			return nil, err
		}
		if err := b.AddCoverage(hour, area, rec.ProductionGroup, refdata.ConnectedArea(rec.ConnectedArea), rec.Share); err != nil {
			return nil, fmt.Errorf("eds: coverage %s: %w", rec.HourUTC, err)
		}
	}

	var emission datasetResponse[map[string]json.RawMessage]
	if err := l.fetch(ctx, datasetEmission, year, &emission); err != nil {
		return nil, err
	}
	skipped := make(map[string]bool)
	for _, rec := range emission.Records {
		var hourRaw, areaRaw string
		if err := json.Unmarshal(rec["HourUTC"], &hourRaw); err != nil {
			return nil, fmt.Errorf("eds: emission record without HourUTC: %w", err)
		}
		if err := json.Unmarshal(rec["PriceArea"], &areaRaw); err != nil {
			return nil, fmt.Errorf("eds: emission record without PriceArea: %w", err)
		}
		area := refdata.PriceArea(strings.ToUpper(areaRaw))
		if !l.catalogue.HasPriceArea(area) {
			continue
		}
		hour, err := parseHour(hourRaw)
		if err != nil {
			return nil, err
		}
		for column, raw := range rec {
			if !strings.HasSuffix(column, perKWhSuffix) || column == co2OriginColumn {
				continue
			}
			sub := refdata.Substance(strings.TrimSuffix(column, perKWhSuffix))
			if _, err := l.catalogue.SubstanceIndex(sub); err != nil {
				skipped[column] = true
				continue
			}
			var value *float64
			if err := json.Unmarshal(raw, &value); err != nil {
				return nil, fmt.Errorf("eds: %s at %s: %w", column, hourRaw, err)
			}
			if value == nil {
				continue
			}
			if err := b.AddEmission(hour, area, sub, *value); err != nil {
				return nil, err
			}
		}
	}
	for column := range skipped {
		l.logger.WithField("column", column).Warn("emission column not in catalogue")
	}

	l.logger.WithFields(logrus.Fields{
		"year":      year,
		"coverage":  len(coverage.Records),
		"emissions": len(emission.Records),
	}).Info("reference data fetched")
	return b.Build()
}

func (l *Loader) fetch(ctx context.Context, dataset string, year int, out any) error {
	q := url.Values{}
	q.Set("offset", "0")
	q.Set("limit", "0")
	q.Set("start", fmt.Sprintf("%04d-01-01T00:00", year))
	q.Set("end", fmt.Sprintf("%04d-01-01T00:00", year+1))
	q.Set("sort", "HourUTC ASC")
	q.Set("timezone", "dk")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/dataset/"+dataset+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("eds: %s: http %d", dataset, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("eds: decode %s: %w", dataset, err)
	}
	return nil
}

func parseHour(raw string) (time.Time, error) {
	t, err := time.Parse(hourLayout, raw)
	if err != nil {
		if t, err2 := time.Parse(time.RFC3339, raw); err2 == nil {
			return t.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("eds: invalid HourUTC %q", raw)
	}
	return t, nil
}
