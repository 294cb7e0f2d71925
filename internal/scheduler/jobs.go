package scheduler

import (
	"context"
	"time"
)

// PriceRefresher is satisfied by the trading service
type PriceRefresher interface {
	RefreshPrice(ctx context.Context) (float64, error)
}

// PriceRefreshJob updates the ADA/USD price
type PriceRefreshJob struct {
	Service PriceRefresher
	Timeout time.Duration
}

func (j *PriceRefreshJob) Name() string { return "price_refresh" }

func (j *PriceRefreshJob) Run() error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := j.Service.RefreshPrice(ctx)
	return err
}

// Cleaner removes records older than a cutoff
type Cleaner interface {
	CleanupOld(olderThan time.Duration) (int, error)
}

// CleanupJob prunes old journal entries
type CleanupJob struct {
	Target    Cleaner
	OlderThan time.Duration
	JobName   string
}

func (j *CleanupJob) Name() string {
	if j.JobName != "" {
		return j.JobName
	}
	return "cleanup"
}

func (j *CleanupJob) Run() error {
	_, err := j.Target.CleanupOld(j.OlderThan)
	return err
}

// FuncJob adapts a function to Job
type FuncJob struct {
	JobName string
	Fn      func() error
}

func (j FuncJob) Name() string { return j.JobName }
func (j FuncJob) Run() error   { return j.Fn() }
