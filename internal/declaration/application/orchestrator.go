package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	declaration "energy-declaration/internal/declaration/domain"
	metering "energy-declaration/internal/metering/domain"
	"energy-declaration/internal/observability/logging"
	"energy-declaration/internal/observability/metrics"
	refdata "energy-declaration/internal/refdata/domain"
)

const (
	DefaultChunkSize   = 20
	DefaultMaxInFlight = 4
)

// SeriesFetcher retrieves the time series of one chunk of metering points.
type SeriesFetcher func(ctx context.Context, ids []string) ([]metering.SeriesResult, error)

// Progress reports how many metering points have been processed.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// ProgressFunc observes run progress. Calls are serialised.
type ProgressFunc func(Progress)

// Result is the outcome of a successful run.
type Result struct {
	Fuel     *declaration.FuelStats
	Emission *declaration.EmissionStats
	Statuses map[string]declaration.MeterStatus
	Areas    map[string]refdata.PriceArea
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithChunkSize sets the number of metering points per retrieval.
func WithChunkSize(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithMaxInFlight bounds the number of concurrent chunk retrievals.
func WithMaxInFlight(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

// WithProgress installs a progress observer.
func WithProgress(fn ProgressFunc) OrchestratorOption {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger logrus.FieldLogger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator runs one declaration over chunked metering retrievals.
type Orchestrator struct {
	engine      *declaration.Engine
	chunkSize   int
	maxInFlight int
	progress    ProgressFunc
	logger      logrus.FieldLogger
}

// NewOrchestrator binds an orchestrator to the engine of one run.
func NewOrchestrator(engine *declaration.Engine, opts ...OrchestratorOption) (*Orchestrator, error) {
	if engine == nil {
		return nil, errors.New("declaration orchestrator: nil engine")
	}
	o := &Orchestrator{
		engine:      engine,
		chunkSize:   DefaultChunkSize,
		maxInFlight: DefaultMaxInFlight,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.Component(o.logger, "orchestrator")
	return o, nil
}

type shard struct {
	fuel     *declaration.FuelStats
	emission *declaration.EmissionStats
	statuses map[string]declaration.MeterStatus
}

// Run retrieves every chunk concurrently, apportions each meter into a
// per-chunk shard and merges the shards in chunk order once all chunks
// have succeeded. Any chunk failure fails the run and discards all shards.
func (o *Orchestrator) Run(ctx context.Context, points []metering.ClassifiedPoint, fetch SeriesFetcher) (*Result, error) {
	if fetch == nil {
		return nil, errors.New("declaration orchestrator: nil fetcher")
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, metering.ErrNoEligiblePoints)
	}

	areas := metering.AreaIndex(points)
	ids := uniqueIDs(points)
	chunks := partition(ids, o.chunkSize)
	shards := make([]*shard, len(chunks))

	var (
		mu        sync.Mutex
		processed int
	)
	report := func(n int) {
		if o.progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		processed += n
		o.progress(Progress{Processed: processed, Total: len(ids)})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxInFlight)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			start := time.Now()
			results, err := fetch(gctx, chunk)
			if err != nil {
				metrics.ObserveChunkFetch(metrics.ResultError, time.Since(start))
				return fmt.Errorf("%w: chunk %d: %w", ErrTransport, i, err)
			}
			metrics.ObserveChunkFetch(metrics.ResultSuccess, time.Since(start))

			sh, err := o.processChunk(chunk, results, areas)
			if err != nil {
				return err
			}
			shards[i] = sh
			report(len(chunk))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{
		Fuel:     o.engine.NewFuelStats(),
		Emission: o.engine.NewEmissionStats(),
		Statuses: make(map[string]declaration.MeterStatus, len(ids)),
		Areas:    areas,
	}
	for _, sh := range shards {
		if err := out.Fuel.Merge(sh.fuel); err != nil {
			return nil, err
		}
		if err := out.Emission.Merge(sh.emission); err != nil {
			return nil, err
		}
		for id, status := range sh.statuses {
			out.Statuses[id] = status
		}
	}
	return out, nil
}

func (o *Orchestrator) processChunk(chunk []string, results []metering.SeriesResult, areas map[string]refdata.PriceArea) (*shard, error) {
	sh := &shard{
		fuel:     o.engine.NewFuelStats(),
		emission: o.engine.NewEmissionStats(),
		statuses: make(map[string]declaration.MeterStatus, len(chunk)),
	}
	requested := make(map[string]bool, len(chunk))
	for _, id := range chunk {
		requested[id] = true
	}
	for _, res := range results {
		if _, dup := sh.statuses[res.ID]; dup {
			continue
		}
		if _, known := areas[res.ID]; known && !requested[res.ID] {
			// Belongs to another chunk, which accounts for it.
			o.logger.WithField("metering_point", res.ID).Warn("time series returned for unrequested metering point")
			continue
		}
		status, err := o.processMeter(res, areas, sh)
		if err != nil {
			return nil, err
		}
		sh.statuses[res.ID] = status
	}
	for _, id := range chunk {
		if _, ok := sh.statuses[id]; !ok {
			o.logger.WithField("metering_point", id).Warn("no time series returned")
			sh.statuses[id] = declaration.StatusRejectedBySource
		}
	}
	for _, status := range sh.statuses {
		metrics.IncMeterStatus(string(status))
	}
	return sh, nil
}

func (o *Orchestrator) processMeter(res metering.SeriesResult, areas map[string]refdata.PriceArea, sh *shard) (declaration.MeterStatus, error) {
	area, ok := areas[res.ID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnmappedMeter, res.ID)
	}
	log := o.logger.WithField("metering_point", res.ID)

	if !res.Success {
		log.WithFields(logrus.Fields{"error_code": res.ErrorCode, "error_text": res.ErrorText}).Info("metering point rejected by source")
		return declaration.StatusRejectedBySource, nil
	}
	ts, ok := res.Primary()
	if !ok || !ts.IsHourlySettled() {
		return declaration.StatusNotHourlySettled, nil
	}
	hourly := ts.Flatten()
	if len(hourly) == 0 {
		return declaration.StatusNotHourlySettled, nil
	}

	offset, err := declaration.ResolveOffsetRaw(ts.PeriodStarts(), o.engine.Reference().Timeline())
	if err != nil {
		if errors.Is(err, declaration.ErrAlignment) {
			log.WithError(err).Warn("metering point excluded")
			return declaration.StatusAlignmentFailed, nil
		}
		return "", err
	}
	if _, err := o.engine.Apportion(hourly, area, offset, sh.fuel, sh.emission); err != nil {
		return "", err
	}
	return declaration.StatusIncluded, nil
}

func uniqueIDs(points []metering.ClassifiedPoint) []string {
	seen := make(map[string]bool, len(points))
	ids := make([]string, 0, len(points))
	for _, p := range points {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		ids = append(ids, p.ID)
	}
	return ids
}

// partition splits ids into consecutive chunks of at most size.
func partition(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
