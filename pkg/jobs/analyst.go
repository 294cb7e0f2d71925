package jobs

import (
	"context"
	"fmt"

	"github.com/agentdesk/agentdesk/pkg/types"
)

// Analyst drives a remote analysis job for the sequencer's polling flow
type Analyst struct {
	client  *Client
	request types.JobRequest
}

// NewAnalyst creates an Analyst that submits req on every Start
func NewAnalyst(client *Client, req types.JobRequest) *Analyst {
	return &Analyst{client: client, request: req}
}

// Start submits the analysis request
func (a *Analyst) Start(ctx context.Context) (string, error) {
	resp, err := a.client.StartJob(ctx, &a.request)
	if err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// Poll checks the job once. A job that is neither completed nor failed is
// reported as not done.
func (a *Analyst) Poll(ctx context.Context, jobID string) (*types.Recommendation, bool, error) {
	status, err := a.client.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, err
	}

	switch status.Status {
	case types.JobStatusCompleted:
		if status.Result == nil {
			return nil, false, fmt.Errorf("%w: job %s completed without a result", types.ErrJobFailed, jobID)
		}
		rec, err := DecodeResult(status.Result.Raw)
		if err != nil {
			return nil, false, err
		}
		return rec, true, nil
	case types.JobStatusFailed:
		if status.Error != "" {
			return nil, false, fmt.Errorf("%w: %s", types.ErrJobFailed, status.Error)
		}
		return nil, false, types.ErrJobFailed
	default:
		return nil, false, nil
	}
}
