package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshPrice(ctx context.Context) (float64, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return 0.45, f.err
}

type fakeCleaner struct {
	olderThan time.Duration
}

func (f *fakeCleaner) CleanupOld(d time.Duration) (int, error) {
	f.olderThan = d
	return 3, nil
}

func TestAddJob(t *testing.T) {
	s := New(zerolog.Nop())
	noop := FuncJob{JobName: "noop", Fn: func() error { return nil }}

	require.NoError(t, s.AddJob("@every 60s", noop))
	require.NoError(t, s.AddJob("0 */5 * * * *", noop))
	assert.Equal(t, 2, s.Entries())

	assert.Error(t, s.AddJob("every minute", noop))
	assert.Equal(t, 2, s.Entries())
}

func TestRunsScheduledJob(t *testing.T) {
	s := New(zerolog.Nop())
	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("@every 1s", FuncJob{JobName: "tick", Fn: func() error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}}))

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestPriceRefreshJob(t *testing.T) {
	f := &fakeRefresher{}
	s := New(zerolog.Nop())
	job := &PriceRefreshJob{Service: f}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, "price_refresh", job.Name())

	f.err = errors.New("feed down")
	assert.Error(t, s.RunNow(job))
}

func TestCleanupJob(t *testing.T) {
	c := &fakeCleaner{}
	job := &CleanupJob{Target: c, OlderThan: 48 * time.Hour}
	require.NoError(t, job.Run())
	assert.Equal(t, 48*time.Hour, c.olderThan)
	assert.Equal(t, "cleanup", job.Name())
}
