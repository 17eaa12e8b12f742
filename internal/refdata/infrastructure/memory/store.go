package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"energy-declaration/internal/observability/logging"
	"energy-declaration/internal/observability/metrics"
	refdata "energy-declaration/internal/refdata/domain"
)

// Loader produces the reference data of one year.
type Loader interface {
	Name() string
	Load(ctx context.Context, year int) (*refdata.ReferenceData, error)
}

// Store holds one immutable snapshot per year. Readers never block on a
// refresh; a reload swaps the snapshot pointer.
type Store struct {
	mu     sync.RWMutex
	data   map[int]*refdata.ReferenceData
	loader Loader
	years  []int
	logger logrus.FieldLogger
	cron   *cron.Cron
}

// NewStore constructs a store that refreshes the given years from loader.
// A nil loader gives a store that is filled with Put only.
func NewStore(loader Loader, years []int, logger logrus.FieldLogger) *Store {
	return &Store{
		data:   make(map[int]*refdata.ReferenceData),
		loader: loader,
		years:  append([]int(nil), years...),
		logger: logging.Component(logger, "refdata"),
	}
}

// Get returns the snapshot of a year.
func (s *Store) Get(year int) (*refdata.ReferenceData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref := s.data[year]
	if ref == nil {
		return nil, fmt.Errorf("%w: year %d", refdata.ErrReferenceNotLoaded, year)
	}
	return ref, nil
}

// Put installs a snapshot, replacing any previous one for its year.
func (s *Store) Put(ref *refdata.ReferenceData) error {
	if ref == nil {
		return errors.New("memory: nil reference data")
	}
	s.mu.Lock()
	s.data[ref.Year()] = ref
	s.mu.Unlock()
	metrics.SetRefdataHours(strconv.Itoa(ref.Year()), ref.Hours())
	return nil
}

// Years lists the loaded years in ascending order.
func (s *Store) Years() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.data))
	for year := range s.data {
		out = append(out, year)
	}
	sort.Ints(out)
	return out
}

// Refresh reloads every configured year. A failed year keeps its previous
// snapshot; the failures are returned joined.
func (s *Store) Refresh(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	var errs []error
	for _, year := range s.years {
		if err := s.refreshYear(ctx, year); err != nil {
			errs = append(errs, fmt.Errorf("year %d: %w", year, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) refreshYear(ctx context.Context, year int) error {
	start := time.Now()
	ref, err := s.loader.Load(ctx, year)
	if err != nil {
		metrics.ObserveRefdataLoad(s.loader.Name(), metrics.ResultError, time.Since(start))
		s.logger.WithError(err).WithFields(logrus.Fields{
			"source": s.loader.Name(),
			"year":   year,
		}).Warn("reference data load failed")
		return err
	}
	metrics.ObserveRefdataLoad(s.loader.Name(), metrics.ResultSuccess, time.Since(start))
	if err := s.Put(ref); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"source":   s.loader.Name(),
		"year":     year,
		"hours":    ref.Hours(),
		"duration": time.Since(start).String(),
	}).Info("reference data loaded")
	return nil
}

// Schedule refreshes on a cron spec until Stop is called. An empty spec
// disables scheduling.
func (s *Store) Schedule(ctx context.Context, spec string) error {
	if spec == "" || s.loader == nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := s.Refresh(ctx); err != nil {
			s.logger.WithError(err).Warn("scheduled reference refresh incomplete")
		}
	}); err != nil {
		return fmt.Errorf("memory: schedule %q: %w", spec, err)
	}
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	return nil
}

// Stop halts the refresh schedule and waits for a running refresh.
func (s *Store) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
