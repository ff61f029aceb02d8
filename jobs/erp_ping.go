package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/receivables/internal/jobs"
)

// Pinger authenticates against the ERP.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ERPPingJob verifies on a schedule that the ERP session can be established.
type ERPPingJob struct {
	pinger  Pinger
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewERPPingJob initialises the ping handler.
func NewERPPingJob(pinger Pinger, logger *slog.Logger, metrics *jobmetrics.Metrics) *ERPPingJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ERPPingJob{pinger: pinger, logger: logger, metrics: metrics}
}

// Handle runs one ping. Failures are retried by the queue.
func (j *ERPPingJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.pinger == nil {
		return errors.New("erp ping: handler not configured")
	}
	tracker := j.metrics.Track(TaskERPPing)
	err := j.pinger.Ping(ctx)
	if err != nil {
		j.logger.Warn("erp ping failed", slog.Any("error", err))
	} else {
		j.logger.Debug("erp ping ok")
	}
	return tracker.End(err)
}
