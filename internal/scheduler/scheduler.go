package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/skycast/internal/metrics"
	"github.com/i474232898/skycast/internal/store"
	"github.com/i474232898/skycast/internal/weather"
)

const (
	sweepInterval  = time.Minute
	refreshTimeout = 30 * time.Second
)

// Scheduler keeps shown dashboards current and evicts idle sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sessions  *store.SessionStore
	searcher  weather.Searcher
	interval  time.Duration
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// New creates a new Scheduler. A zero interval disables the refresh job.
func New(sessions *store.SessionStore, searcher weather.Searcher, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sessions:  sessions,
		searcher:  searcher,
		interval:  interval,
		metrics:   m,
		log:       log,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval > 0 {
		_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.RefreshAll)
		if err != nil {
			return err
		}
	} else {
		s.log.Info("scheduler: refresh disabled")
	}

	if _, err := s.scheduler.Every(sweepInterval).Do(s.Sweep); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RefreshAll re-runs the search of every session that shows a place.
func (s *Scheduler) RefreshAll() {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)

	s.sessions.Each(func(id string, d *weather.Dashboard) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()

			ran, err := d.Refresh(ctx, s.searcher)
			if err != nil {
				s.log.Warn("scheduler: refresh failed", zap.String("session", id), zap.Error(err))
				return
			}
			if ran {
				mu.Lock()
				refreshed++
				mu.Unlock()
			}
		}()
	})
	wg.Wait()

	if refreshed > 0 {
		s.log.Debug("scheduler: refreshed dashboards", zap.Int("count", refreshed))
	}
}

// Sweep evicts idle sessions and updates the session gauge.
func (s *Scheduler) Sweep() {
	if removed := s.sessions.Sweep(); removed > 0 {
		s.log.Info("scheduler: evicted idle sessions", zap.Int("count", removed))
	}
	s.metrics.SetActiveSessions(s.sessions.Len())
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
