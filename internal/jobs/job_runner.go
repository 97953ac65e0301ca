package jobs

import (
	"context"
	"time"

	"github.com/Outercircl-dev/backend/internal/config"
	"github.com/Outercircl-dev/backend/internal/logger"
	"github.com/Outercircl-dev/backend/internal/notify"
	"github.com/Outercircl-dev/backend/internal/repository"
)

// OutboxDispatcher sweeps undelivered participation events.
type OutboxDispatcher interface {
	DispatchPending(ctx context.Context) (notify.DispatchStats, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	dispatcher OutboxDispatcher
	outbox     repository.OutboxRepository
	config     *config.Config
	now        func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(dispatcher OutboxDispatcher, outbox repository.OutboxRepository, cfg *config.Config) *JobRunner {
	return &JobRunner{
		dispatcher: dispatcher,
		outbox:     outbox,
		config:     cfg,
		now:        time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.DispatchOutbox()
	jr.PurgeOutbox()
}
