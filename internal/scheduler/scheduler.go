package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/roadtrip-planner/internal/catalog"
)

// refreshTimeout bounds one full catalog reload, including every outbound
// normals fetch.
const refreshTimeout = 10 * time.Minute

// Scheduler periodically reloads the catalog so the normals cache and
// coordinate table track newly published station data.
type Scheduler struct {
	scheduler *gocron.Scheduler
	catalog   *catalog.Service
	interval  time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a new Scheduler.
func New(cat *catalog.Service, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		catalog:   cat,
		interval:  interval,
	}
}

// Start schedules the periodic refresh and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		// A reload may outlive the interval on a slow upstream; never
		// run two at once.
		s.mu.Lock()
		if s.running {
			s.mu.Unlock()
			log.Println("scheduler: previous refresh still running; skipping")
			return
		}
		s.running = true
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		log.Println("scheduler: refreshing normals cache")

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if err := s.catalog.Load(ctx); err != nil {
			log.Printf("scheduler: normals refresh failed: %v", err)
			return
		}
		log.Println("scheduler: normals cache refreshed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
