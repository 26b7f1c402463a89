// Package worker runs background jobs from the jobs table: estimate
// conversion, lifecycle notifications, reminder dispatch and the daily
// sweep.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/jobs"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/telemetry"
	"github.com/dukerupert/bidwell/internal/tenant"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs to process concurrently
	MaxConcurrency int

	// Queue name to process (empty string = all queues)
	Queue string

	// OwnerID restricts the worker to one owner's jobs (nil = all owners)
	OwnerID *uuid.UUID

	// ShutdownTimeout bounds how long Start waits for in-flight jobs
	ShutdownTimeout time.Duration
}

// Notifier sends the lifecycle notifications queued by the services.
type Notifier interface {
	EstimateSent(ctx context.Context, estimateID string) (domain.DispatchResult, error)
	DepositReceived(ctx context.Context, estimateID string) (domain.DispatchResult, error)
	InvoiceCreated(ctx context.Context, estimateID string, milestoneNumber *int32) (domain.DispatchResult, error)
}

// Handlers are the services jobs are dispatched to.
type Handlers struct {
	Conversion domain.ConversionService
	Milestones domain.MilestoneService
	Reminders  domain.ReminderService
	Notifier   Notifier
}

// Worker processes background jobs
type Worker struct {
	config   Config
	queries  repository.Querier
	handlers Handlers
	logger   *slog.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

// NewWorker creates a new background job worker
func NewWorker(queries repository.Querier, handlers Handlers, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &Worker{
		config:   config,
		queries:  queries,
		handlers: handlers,
		logger:   logger.With("service", "worker", "worker_id", config.WorkerID),
		now:      time.Now,
	}
}

// Start begins processing jobs until the context is cancelled. In-flight
// jobs get ShutdownTimeout to finish.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"queue", w.config.Queue,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.config.MaxConcurrency)

	// Jobs run on their own context so shutdown does not abort them midway.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			w.drain(cancelJobs)
			return ctx.Err()

		case <-ticker.C:
			select {
			case sem <- struct{}{}:
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }()
					_, _ = w.RunOnce(jobCtx)
				}()
			default:
				// At max concurrency, skip this poll
			}
		}
	}
}

func (w *Worker) drain(cancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("shutdown timeout reached, cancelling in-flight jobs")
		cancel()
		<-done
	}
}

// RunOnce claims and processes a single job. It reports whether a job was
// claimed; the error is the job's failure, already recorded on the row.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	var ownerID pgtype.UUID
	if w.config.OwnerID != nil {
		ownerID = postgres.UUID(*w.config.OwnerID)
	}

	job, err := w.queries.ClaimNextJob(ctx, repository.ClaimNextJobParams{
		WorkerID: pgtype.Text{String: w.config.WorkerID, Valid: true},
		TenantID: ownerID,
		Queue:    w.config.Queue,
	})
	if err != nil {
		if !postgres.IsNoRows(err) {
			w.logger.Error("failed to claim job", "error", err)
		}
		return false, nil
	}

	logger := w.logger.With(
		"job_id", postgres.FromUUID(job.ID).String(),
		"job_type", job.JobType,
		"retry_count", job.RetryCount,
	)
	logger.Debug("processing job")

	start := w.now()
	err = w.processJob(ctx, &job)
	telemetry.Business.RecordJob(job.JobType, err, w.now().Sub(start))

	if err != nil {
		logger.Error("job failed", "error", err)

		owner := ""
		if id := jobs.OwnerFromJob(&job); id != uuid.Nil {
			owner = id.String()
		}
		telemetry.CaptureJobError(err, owner, job.JobType, map[string]interface{}{
			"job_id":      postgres.FromUUID(job.ID).String(),
			"retry_count": job.RetryCount,
		})

		if _, ferr := w.queries.FailJob(ctx, repository.FailJobParams{
			ID:           job.ID,
			ErrorMessage: pgtype.Text{String: err.Error(), Valid: true},
			ErrorDetails: errorDetails(err),
		}); ferr != nil {
			logger.Error("failed to record job failure", "error", ferr)
		}
		return true, err
	}

	if err := w.queries.CompleteJob(ctx, job.ID); err != nil {
		logger.Error("failed to complete job", "error", err)
	}
	logger.Info("job completed")
	return true, nil
}

// processJob runs the handler for the job type under the job's timeout and,
// for owner jobs, the owner's context.
func (w *Worker) processJob(ctx context.Context, job *repository.Job) error {
	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if id := jobs.OwnerFromJob(job); id != uuid.Nil {
		var err error
		if jobCtx, err = tenant.WithOwnerID(jobCtx, id); err != nil {
			return err
		}
	}

	switch {
	case jobs.IsConversionJob(job.JobType):
		return w.processConversion(jobCtx, job)
	case jobs.IsNotificationJob(job.JobType):
		return w.processNotification(jobCtx, job)
	case job.JobType == jobs.JobTypeSendReminder:
		return w.processReminder(jobCtx, job)
	case job.JobType == jobs.JobTypeDaily:
		return w.processDaily(jobCtx)
	case jobs.IsCleanupJob(job.JobType):
		result, err := jobs.ProcessCleanupJob(jobCtx, job, w.queries)
		if err != nil {
			return err
		}
		w.logger.Info("deleted finished jobs", "count", result.JobsDeleted)
		return nil
	}

	return fmt.Errorf("unknown job type: %s", job.JobType)
}

func (w *Worker) processConversion(ctx context.Context, job *repository.Job) error {
	var payload jobs.ConvertEstimatePayload
	if err := jobs.Decode(job, &payload); err != nil {
		return err
	}

	inv, err := w.handlers.Conversion.Convert(ctx, payload.EstimateID.String())
	if err != nil {
		return fmt.Errorf("failed to convert estimate %s: %w", payload.EstimateID, err)
	}
	w.logger.Info("estimate converted", "estimate_id", payload.EstimateID, "invoice_number", inv.InvoiceNumber)
	return nil
}

func (w *Worker) processNotification(ctx context.Context, job *repository.Job) error {
	var (
		result domain.DispatchResult
		err    error
	)

	switch job.JobType {
	case jobs.JobTypeNotifyEstimateSent, jobs.JobTypeNotifyDepositReceived:
		var payload jobs.EstimateNotificationPayload
		if err := jobs.Decode(job, &payload); err != nil {
			return err
		}
		if job.JobType == jobs.JobTypeNotifyEstimateSent {
			result, err = w.handlers.Notifier.EstimateSent(ctx, payload.EstimateID.String())
		} else {
			result, err = w.handlers.Notifier.DepositReceived(ctx, payload.EstimateID.String())
		}

	case jobs.JobTypeNotifyInvoiceCreated:
		var payload jobs.InvoiceNotificationPayload
		if err := jobs.Decode(job, &payload); err != nil {
			return err
		}
		result, err = w.handlers.Notifier.InvoiceCreated(ctx, payload.EstimateID.String(), payload.MilestoneNumber)

	default:
		return fmt.Errorf("unknown notification job type: %s", job.JobType)
	}

	if err != nil {
		// Missing records will not reappear on retry.
		if domain.IsCode(err, domain.ENOTFOUND) {
			w.logger.Warn("notification target gone, dropping", "job_type", job.JobType, "error", err)
			return nil
		}
		return err
	}

	// Delivery failures are recorded in the notification log; the job
	// itself is done once every channel was attempted.
	w.logger.Info("notification dispatched",
		"job_type", job.JobType,
		"email", result[domain.ChannelEmail],
		"sms", result[domain.ChannelSMS],
	)
	return nil
}

func (w *Worker) processReminder(ctx context.Context, job *repository.Job) error {
	var due domain.DueReminder
	if err := jobs.Decode(job, &due); err != nil {
		return err
	}
	return w.handlers.Reminders.SendReminder(ctx, due)
}

// processDaily flips overdue milestones first so that reminders computed
// afterwards see the new status, then fans out one job per due reminder.
func (w *Worker) processDaily(ctx context.Context) error {
	now := w.now()

	flipped, err := w.handlers.Milestones.CheckOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to mark overdue milestones: %w", err)
	}

	due, err := w.handlers.Reminders.DueReminders(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to compute due reminders: %w", err)
	}

	enqueued := 0
	for _, d := range due {
		ok, err := jobs.EnqueueSendReminder(ctx, w.queries, d)
		if err != nil {
			return err
		}
		if ok {
			enqueued++
		}
	}

	w.logger.Info("daily sweep finished",
		"milestones_overdue", flipped,
		"reminders_due", len(due),
		"reminders_enqueued", enqueued,
	)
	return nil
}

func errorDetails(err error) []byte {
	b, _ := json.Marshal(map[string]string{
		"code": domain.ErrorCode(err),
		"op":   domain.ErrorOp(err),
	})
	return b
}
