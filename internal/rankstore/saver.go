package rankstore

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/launchrank/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/launchrank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/launchrank/pkg/resilience"
)

const (
	defaultSaveTimeout  = 5 * time.Second
	defaultSaveInterval = 30 * time.Second
)

// Saver periodically writes the ranking context to a Store.
type Saver struct {
	store    Store
	source   Snapshotter
	interval time.Duration
	timeout  time.Duration
	breaker  *resilience.CircuitBreaker
	flights  singleflight.Group
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu        sync.Mutex
	lastSaved *ranking.Snapshot
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithSaverMetrics records save outcomes and breaker state to m.
func WithSaverMetrics(m *metrics.Metrics) SaverOption {
	return func(s *Saver) { s.metrics = m }
}

// WithSaveTimeout bounds each save.
func WithSaveTimeout(d time.Duration) SaverOption {
	return func(s *Saver) { s.timeout = d }
}

// WithBreaker overrides the circuit breaker configuration.
func WithBreaker(cfg resilience.CircuitBreakerConfig) SaverOption {
	return func(s *Saver) {
		cfg.OnStateChange = s.observeBreaker
		s.breaker = resilience.NewCircuitBreaker("rankstore-"+s.store.Name(), cfg)
	}
}

// NewSaver creates a Saver writing source's snapshots to store every
// interval.
func NewSaver(store Store, source Snapshotter, interval time.Duration, opts ...SaverOption) *Saver {
	if interval <= 0 {
		interval = defaultSaveInterval
	}
	s := &Saver{
		store:    store,
		source:   source,
		interval: interval,
		timeout:  defaultSaveTimeout,
		logger:   slog.Default().With("component", "rankstore-saver", "store", store.Name()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = resilience.NewCircuitBreaker("rankstore-"+store.Name(), resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     time.Minute,
			OnStateChange:    s.observeBreaker,
		})
	}
	return s
}

// Run saves every interval until ctx is cancelled, then makes a final save.
func (s *Saver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("periodic save started", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			if err := s.save(ctx, false); err != nil {
				s.logger.Error("periodic save failed", "error", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
			err := s.save(shutdownCtx, true)
			cancel()
			if err != nil {
				s.logger.Error("final save failed", "error", err)
			} else {
				s.logger.Info("final save complete")
			}
			return nil
		}
	}
}

// Flush saves immediately. Concurrent calls share one save.
func (s *Saver) Flush(ctx context.Context) error {
	return s.save(ctx, true)
}

func (s *Saver) save(ctx context.Context, force bool) error {
	_, err, _ := s.flights.Do("save", func() (any, error) {
		snap := s.source.Snapshot()
		if !force && s.unchanged(snap) {
			s.record("skipped")
			return nil, nil
		}
		err := s.breaker.Execute(func() error {
			return resilience.WithTimeout(ctx, s.timeout, "save ranking context", func(ctx context.Context) error {
				return s.store.Save(ctx, snap)
			})
		})
		if err != nil {
			s.record("error")
			return nil, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
		}
		s.mu.Lock()
		s.lastSaved = &snap
		s.mu.Unlock()
		s.record("ok")
		s.logger.Debug("ranking context saved", "learned_queries", len(snap.Learned), "history", len(snap.History))
		return nil, nil
	})
	return err
}

func (s *Saver) unchanged(snap ranking.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved != nil && reflect.DeepEqual(*s.lastSaved, snap)
}

func (s *Saver) record(status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RankstoreSavesTotal.WithLabelValues(s.store.Name(), status).Inc()
}

func (s *Saver) observeBreaker(name string, to resilience.State) {
	s.logger.Warn("save circuit changed state", "breaker", name, "state", to)
	if s.metrics != nil {
		s.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
}

// LoadInto loads the stored snapshot into r, retrying transient failures
// with backoff. A snapshot that cannot be decoded is not retried.
func LoadInto(ctx context.Context, store Store, r Restorer, cfg resilience.RetryConfig) error {
	return resilience.Retry(ctx, "load ranking context from "+store.Name(), cfg, func(ctx context.Context) error {
		snap, err := store.Load(ctx)
		if err != nil {
			return err
		}
		r.Restore(snap)
		return nil
	})
}
