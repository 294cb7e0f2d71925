package analyst

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/pkg/jobs"
	"github.com/agentdesk/agentdesk/pkg/types"
)

// Job is the backend's record of one analysis
type Job struct {
	ID          string
	Request     types.JobRequest
	Status      string
	Result      *types.JobResult
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Config configures the service
type Config struct {
	Recommender Recommender
	// Timeout bounds a single recommendation
	Timeout time.Duration
	// Delay is added before a job completes, to exercise polling clients
	Delay  time.Duration
	Logger zerolog.Logger
}

// Service runs analysis jobs in the background
type Service struct {
	rec     Recommender
	timeout time.Duration
	delay   time.Duration
	log     zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewService(cfg Config) *Service {
	if cfg.Recommender == nil {
		cfg.Recommender = RulesRecommender{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		rec:     cfg.Recommender,
		timeout: cfg.Timeout,
		delay:   cfg.Delay,
		log:     cfg.Logger.With().Str("component", "analyst").Logger(),
		jobs:    make(map[string]*Job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit validates a request and starts its job
func (s *Service) Submit(req types.JobRequest) (string, error) {
	if req.Pair.Base == "" || req.Pair.Quote == "" {
		return "", fmt.Errorf("%w: pair is required", types.ErrInvalidOrder)
	}
	if s.ctx.Err() != nil {
		return "", errors.New("analyst is shutting down")
	}

	job := &Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    types.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(job.ID, req)

	s.log.Info().
		Str("job_id", job.ID).
		Str("recommender", s.rec.Name()).
		Str("risk_level", req.RiskLevel).
		Msg("job submitted")
	return job.ID, nil
}

// Get returns the status of a job
func (s *Service) Get(id string) (*types.JobStatusResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrJobNotFound, id)
	}
	return &types.JobStatusResponse{
		JobID:  job.ID,
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	}, nil
}

// CleanupOld forgets finished jobs older than maxAge
func (s *Service) CleanupOld(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		finished := job.Status == types.JobStatusCompleted || job.Status == types.JobStatusFailed
		if finished && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// Close cancels running jobs and waits for them
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) run(id string, req types.JobRequest) {
	defer s.wg.Done()
	s.setStatus(id, types.JobStatusRunning)

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			s.finish(id, nil, ctx.Err())
			return
		}
	}

	rec, err := s.rec.Recommend(ctx, &req)
	if err == nil {
		err = rec.Validate()
	}
	s.finish(id, rec, err)
}

func (s *Service) setStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
	}
}

func (s *Service) finish(id string, rec *types.Recommendation, err error) {
	var result *types.JobResult
	if err == nil {
		result, err = jobs.EncodeResult(rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.CompletedAt = time.Now().UTC()
	if err != nil {
		job.Status = types.JobStatusFailed
		job.Error = err.Error()
		s.log.Warn().Err(err).Str("job_id", id).Msg("job failed")
		return
	}
	job.Status = types.JobStatusCompleted
	job.Result = result
	s.log.Info().
		Str("job_id", id).
		Str("command", string(rec.Command)).
		Float64("quantity", rec.Quantity).
		Msg("job completed")
}
