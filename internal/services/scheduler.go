package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobInfo represents information about a scheduled job
type JobInfo struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Schedule   string        `json:"schedule"`
	LastRun    time.Time     `json:"last_run"`
	NextRun    time.Time     `json:"next_run"`
	Status     string        `json:"status"`
	RunCount   int           `json:"run_count"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

type jobFunc func(ctx context.Context) error

// Scheduler keeps the market cache warm in the background.
type Scheduler struct {
	market     *MarketService
	cache      Cache
	schedule   string
	jobTimeout time.Duration
	logger     *logrus.Logger

	cron      *cron.Cron
	mu        sync.RWMutex
	jobs      map[string]JobInfo
	funcs     map[string]jobFunc
	entries   map[string]cron.EntryID
	isRunning bool
}

func NewScheduler(market *MarketService, cache Cache, schedule string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		market:     market,
		cache:      cache,
		schedule:   schedule,
		jobTimeout: 2 * time.Minute,
		logger:     logger,
		cron:       cron.New(),
		jobs:       make(map[string]JobInfo),
		funcs:      make(map[string]jobFunc),
		entries:    make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if err := s.addJob("market_refresh", s.schedule, "Market refresh", s.refreshMarket); err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true

	go s.RunNow("market_refresh")

	s.logger.WithField("component", "scheduler").Info("Scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.WithField("component", "scheduler").Info("Scheduler stopped")
}

// addJob must be called with s.mu held.
func (s *Scheduler) addJob(id, schedule, name string, fn jobFunc) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		s.RunNow(id)
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", id, err)
	}

	s.funcs[id] = fn
	s.entries[id] = entryID
	s.jobs[id] = JobInfo{
		ID:       id,
		Name:     name,
		Schedule: schedule,
		NextRun:  s.cron.Entry(entryID).Next,
		Status:   "scheduled",
	}

	s.logger.WithFields(logrus.Fields{
		"component": "scheduler",
		"job_id":    id,
		"schedule":  schedule,
	}).Info("Scheduled job added")
	return nil
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(id string) {
	s.mu.Lock()
	job, exists := s.jobs[id]
	fn := s.funcs[id]
	if !exists || fn == nil {
		s.mu.Unlock()
		return
	}
	job.Status = "running"
	job.LastRun = time.Now()
	job.RunCount++
	s.jobs[id] = job
	s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{
		"component": "scheduler",
		"job_id":    id,
		"run_count": job.RunCount,
	})
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Job panicked")
			s.finish(id, fmt.Sprintf("panic: %v", r), time.Since(start))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		log.WithError(err).Warn("Job failed")
		s.finish(id, err.Error(), time.Since(start))
		return
	}

	duration := time.Since(start)
	log.WithField("duration", duration).Info("Job completed")
	s.finish(id, "", duration)
}

func (s *Scheduler) finish(id, errorMsg string, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return
	}
	job.Duration = duration
	job.Status = "completed"
	if errorMsg != "" {
		job.Status = "failed"
		job.ErrorCount++
		job.LastError = errorMsg
	}
	if entryID, ok := s.entries[id]; ok {
		job.NextRun = s.cron.Entry(entryID).Next
	}
	s.jobs[id] = job
}

// Jobs returns a copy of the job table.
func (s *Scheduler) Jobs() map[string]JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[string]JobInfo, len(s.jobs))
	for k, v := range s.jobs {
		jobs[k] = v
	}
	return jobs
}

func (s *Scheduler) refreshMarket(ctx context.Context) error {
	if _, err := s.market.Refresh(ctx); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, MarketStatusCacheKey()); err != nil {
		return fmt.Errorf("failed to invalidate market status: %w", err)
	}
	return nil
}
