package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	declaration "energy-declaration/internal/declaration/domain"
	metering "energy-declaration/internal/metering/domain"
	"energy-declaration/internal/observability/logging"
	"energy-declaration/internal/observability/metrics"
	refdata "energy-declaration/internal/refdata/domain"
)

// MeteringClient is the metering API surface a declaration needs.
type MeteringClient interface {
	AccessToken(ctx context.Context, refreshToken string) (string, error)
	MeteringPoints(ctx context.Context, accessToken string) ([]metering.MeteringPoint, error)
	TimeSeries(ctx context.Context, accessToken string, year int, ids []string) ([]metering.SeriesResult, error)
}

// ReferenceProvider returns the reference snapshot of a year.
type ReferenceProvider interface {
	Get(year int) (*refdata.ReferenceData, error)
}

// Request starts one declaration run.
type Request struct {
	RefreshToken string
	Year         int
	Progress     ProgressFunc
}

// Declaration is the complete result of a run.
type Declaration struct {
	RunID      string
	Year       int
	Fuel       *declaration.FuelStats
	Emission   *declaration.EmissionStats
	Statuses   map[string]declaration.MeterStatus
	MasterData metering.MasterData
	Report     *declaration.Report
}

// ServiceConfig tunes chunking and the default year.
type ServiceConfig struct {
	DefaultYear int
	ChunkSize   int
	MaxInFlight int
}

// Service runs declarations end to end.
type Service struct {
	client    MeteringClient
	reference ReferenceProvider
	cfg       ServiceConfig
	logger    logrus.FieldLogger
	newID     func() string
}

// NewService constructs the declaration service.
func NewService(client MeteringClient, reference ReferenceProvider, cfg ServiceConfig, logger logrus.FieldLogger) (*Service, error) {
	if client == nil {
		return nil, errors.New("declaration service: nil metering client")
	}
	if reference == nil {
		return nil, errors.New("declaration service: nil reference provider")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		client:    client,
		reference: reference,
		cfg:       cfg,
		logger:    logging.Component(logger, "declaration"),
		newID:     uuid.NewString,
	}, nil
}

// Run computes the declaration for the request's year.
func (s *Service) Run(ctx context.Context, req Request) (*Declaration, error) {
	start := time.Now()
	decl, err := s.run(ctx, req)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveRun(result, time.Since(start))
	return decl, err
}

func (s *Service) run(ctx context.Context, req Request) (*Declaration, error) {
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		return nil, fmt.Errorf("%w: empty refresh token", ErrInvalidInput)
	}
	year := req.Year
	if year == 0 {
		year = s.cfg.DefaultYear
	}
	if year <= 0 {
		return nil, fmt.Errorf("%w: year %d", ErrInvalidInput, year)
	}
	ref, err := s.reference.Get(year)
	if err != nil {
		if errors.Is(err, refdata.ErrReferenceNotLoaded) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}

	runID := s.newID()
	log := s.logger.WithFields(logrus.Fields{"run_id": runID, "year": year})
	log.Info("declaration started")

	access, err := s.client.AccessToken(ctx, token)
	if err != nil {
		log.WithError(err).Warn("token exchange failed")
		return nil, fmt.Errorf("%w: access token: %w", ErrTransport, err)
	}
	points, err := s.client.MeteringPoints(ctx, access)
	if err != nil {
		log.WithError(err).Warn("metering point list failed")
		return nil, fmt.Errorf("%w: metering points: %w", ErrTransport, err)
	}
	masterData := metering.BuildMasterData(points)

	classified, err := metering.Classify(points)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if len(classified) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, metering.ErrNoEligiblePoints)
	}

	engine, err := declaration.NewEngine(ref)
	if err != nil {
		return nil, err
	}
	orchestrator, err := NewOrchestrator(engine,
		WithChunkSize(s.cfg.ChunkSize),
		WithMaxInFlight(s.cfg.MaxInFlight),
		WithProgress(req.Progress),
		WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	fetch := func(ctx context.Context, ids []string) ([]metering.SeriesResult, error) {
		return s.client.TimeSeries(ctx, access, year, ids)
	}
	result, err := orchestrator.Run(ctx, classified, fetch)
	if err != nil {
		log.WithError(err).Warn("declaration failed")
		return nil, err
	}

	report, err := declaration.BuildReport(declaration.ReportInput{
		Year:     year,
		Fuel:     result.Fuel,
		Emission: result.Emission,
		Statuses: result.Statuses,
		Areas:    result.Areas,
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"meters":    len(result.Statuses),
		"total_kwh": result.Fuel.TotalKWh(),
	}).Info("declaration finished")

	return &Declaration{
		RunID:      runID,
		Year:       year,
		Fuel:       result.Fuel,
		Emission:   result.Emission,
		Statuses:   result.Statuses,
		MasterData: masterData,
		Report:     report,
	}, nil
}
