package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/domain/mock"
	"github.com/dukerupert/bidwell/internal/jobs"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/repository/repotest"
)

var testNow = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	owner uuid.UUID
	err   error
}

func (n *fakeNotifier) record(ctx context.Context, name string) (domain.DispatchResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, name)
	n.owner = domain.OwnerIDFromContext(ctx)
	if n.err != nil {
		return nil, n.err
	}
	return domain.DispatchResult{domain.ChannelEmail: domain.NotificationSent}, nil
}

func (n *fakeNotifier) EstimateSent(ctx context.Context, estimateID string) (domain.DispatchResult, error) {
	return n.record(ctx, "estimate_sent:"+estimateID)
}

func (n *fakeNotifier) DepositReceived(ctx context.Context, estimateID string) (domain.DispatchResult, error) {
	return n.record(ctx, "deposit_received:"+estimateID)
}

func (n *fakeNotifier) InvoiceCreated(ctx context.Context, estimateID string, milestoneNumber *int32) (domain.DispatchResult, error) {
	name := "invoice_created:" + estimateID
	if milestoneNumber != nil {
		name += ":milestone"
	}
	return n.record(ctx, name)
}

type workerFixture struct {
	store      *repotest.Store
	conversion *mock.MockConversionService
	milestones *mock.MockMilestoneService
	reminders  *mock.MockReminderService
	notifier   *fakeNotifier
	worker     *Worker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &workerFixture{
		store:      repotest.New(),
		conversion: mock.NewMockConversionService(ctrl),
		milestones: mock.NewMockMilestoneService(ctrl),
		reminders:  mock.NewMockReminderService(ctrl),
		notifier:   &fakeNotifier{},
	}
	f.worker = NewWorker(f.store, Handlers{
		Conversion: f.conversion,
		Milestones: f.milestones,
		Reminders:  f.reminders,
		Notifier:   f.notifier,
	}, Config{WorkerID: "worker-test"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.worker.now = func() time.Time { return testNow }
	return f
}

func (f *workerFixture) job(t *testing.T, jobType string) repository.Job {
	t.Helper()
	all := f.store.Jobs(jobType)
	require.Len(t, all, 1)
	return all[0]
}

func TestWorker_RunOnce_NoJobs(t *testing.T) {
	f := newWorkerFixture(t)

	claimed, err := f.worker.RunOnce(context.Background())

	assert.False(t, claimed)
	assert.NoError(t, err)
}

func TestWorker_RunOnce_ConvertsWithOwnerContext(t *testing.T) {
	f := newWorkerFixture(t)
	ownerID, estimateID := uuid.New(), uuid.New()
	_, err := jobs.EnqueueConvertEstimate(context.Background(), f.store, ownerID, estimateID)
	require.NoError(t, err)

	f.conversion.EXPECT().
		Convert(gomock.Any(), estimateID.String()).
		DoAndReturn(func(ctx context.Context, id string) (*domain.Invoice, error) {
			assert.Equal(t, ownerID, domain.OwnerIDFromContext(ctx))
			return &domain.Invoice{InvoiceNumber: "INV-0001"}, nil
		})

	claimed, err := f.worker.RunOnce(context.Background())

	assert.True(t, claimed)
	require.NoError(t, err)
	assert.Equal(t, "completed", f.job(t, jobs.JobTypeConvertEstimate).Status)
}

func TestWorker_RunOnce_FailureIsRetried(t *testing.T) {
	f := newWorkerFixture(t)
	estimateID := uuid.New()
	_, err := jobs.EnqueueConvertEstimate(context.Background(), f.store, uuid.New(), estimateID)
	require.NoError(t, err)

	f.conversion.EXPECT().
		Convert(gomock.Any(), estimateID.String()).
		Return(nil, domain.Internal(errors.New("connection reset"), "conversion.convert", "failed to load estimate"))

	claimed, err := f.worker.RunOnce(context.Background())

	assert.True(t, claimed)
	require.Error(t, err)

	job := f.job(t, jobs.JobTypeConvertEstimate)
	assert.Equal(t, "pending", job.Status)
	assert.Equal(t, int32(1), job.RetryCount)
	assert.Contains(t, job.ErrorMessage.String, "failed to convert estimate")
	assert.JSONEq(t, `{"code":"internal","op":"conversion.convert"}`, string(job.ErrorDetails))
}

func TestWorker_RunOnce_Notifications(t *testing.T) {
	tests := []struct {
		name    string
		enqueue func(ctx context.Context, q repository.Querier, ownerID, estimateID uuid.UUID) error
		jobType string
		want    string
	}{
		{
			name: "estimate sent",
			enqueue: func(ctx context.Context, q repository.Querier, ownerID, estimateID uuid.UUID) error {
				_, err := jobs.EnqueueEstimateSent(ctx, q, ownerID, estimateID)
				return err
			},
			jobType: jobs.JobTypeNotifyEstimateSent,
			want:    "estimate_sent:",
		},
		{
			name: "deposit received",
			enqueue: func(ctx context.Context, q repository.Querier, ownerID, estimateID uuid.UUID) error {
				_, err := jobs.EnqueueDepositReceived(ctx, q, ownerID, estimateID)
				return err
			},
			jobType: jobs.JobTypeNotifyDepositReceived,
			want:    "deposit_received:",
		},
		{
			name: "milestone invoice",
			enqueue: func(ctx context.Context, q repository.Querier, ownerID, estimateID uuid.UUID) error {
				n := int32(2)
				_, err := jobs.EnqueueInvoiceCreated(ctx, q, &domain.Invoice{
					ID:              uuid.New(),
					OwnerID:         ownerID,
					EstimateID:      estimateID,
					MilestoneNumber: &n,
				})
				return err
			},
			jobType: jobs.JobTypeNotifyInvoiceCreated,
			want:    "invoice_created:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkerFixture(t)
			ownerID, estimateID := uuid.New(), uuid.New()
			require.NoError(t, tt.enqueue(context.Background(), f.store, ownerID, estimateID))

			_, err := f.worker.RunOnce(context.Background())

			require.NoError(t, err)
			require.Len(t, f.notifier.calls, 1)
			assert.Contains(t, f.notifier.calls[0], tt.want+estimateID.String())
			assert.Equal(t, ownerID, f.notifier.owner)
			assert.Equal(t, "completed", f.job(t, tt.jobType).Status)
		})
	}
}

func TestWorker_RunOnce_NotificationTargetGone(t *testing.T) {
	f := newWorkerFixture(t)
	f.notifier.err = domain.NotFound("notifier.estimate_sent", "estimate", "x")
	_, err := jobs.EnqueueEstimateSent(context.Background(), f.store, uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = f.worker.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "completed", f.job(t, jobs.JobTypeNotifyEstimateSent).Status)
}

func TestWorker_RunOnce_SendReminder(t *testing.T) {
	f := newWorkerFixture(t)
	due := domain.DueReminder{
		OwnerID:     uuid.New(),
		EstimateID:  uuid.New(),
		TargetType:  domain.TargetMilestone,
		TargetID:    uuid.New(),
		DayOffset:   7,
		AmountCents: 40000,
		Label:       "Framing",
	}
	_, err := jobs.EnqueueSendReminder(context.Background(), f.store, due)
	require.NoError(t, err)

	f.reminders.EXPECT().SendReminder(gomock.Any(), due).Return(nil)

	_, err = f.worker.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "completed", f.job(t, jobs.JobTypeSendReminder).Status)
}

func TestWorker_RunOnce_DailySweep(t *testing.T) {
	f := newWorkerFixture(t)
	_, err := jobs.EnqueueDaily(context.Background(), f.store, testNow)
	require.NoError(t, err)

	owner := uuid.New()
	due := []domain.DueReminder{
		{OwnerID: owner, EstimateID: uuid.New(), TargetType: domain.TargetDeposit, TargetID: uuid.New(), DayOffset: 1},
		{OwnerID: owner, EstimateID: uuid.New(), TargetType: domain.TargetMilestone, TargetID: uuid.New(), DayOffset: 3},
	}

	gomock.InOrder(
		f.milestones.EXPECT().CheckOverdue(gomock.Any(), testNow).Return(2, nil),
		f.reminders.EXPECT().DueReminders(gomock.Any(), testNow).Return(due, nil),
	)

	_, err = f.worker.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "completed", f.job(t, jobs.JobTypeDaily).Status)

	queued := f.store.Jobs(jobs.JobTypeSendReminder)
	require.Len(t, queued, 2)
	for _, j := range queued {
		assert.Equal(t, owner, jobs.OwnerFromJob(&j))
		assert.Equal(t, jobs.QueueReminder, j.Queue)
	}
}

func TestWorker_RunOnce_DailySweepStopsOnOverdueError(t *testing.T) {
	f := newWorkerFixture(t)
	_, err := jobs.EnqueueDaily(context.Background(), f.store, testNow)
	require.NoError(t, err)

	f.milestones.EXPECT().CheckOverdue(gomock.Any(), testNow).Return(0, errors.New("timeout"))

	_, err = f.worker.RunOnce(context.Background())

	require.Error(t, err)
	assert.Empty(t, f.store.Jobs(jobs.JobTypeSendReminder))
}

func TestWorker_RunOnce_Cleanup(t *testing.T) {
	f := newWorkerFixture(t)
	_, err := jobs.EnqueueCleanup(context.Background(), f.store, time.Now())
	require.NoError(t, err)

	_, err = f.worker.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "completed", f.job(t, jobs.JobTypeCleanupFinishedJobs).Status)
}

func TestWorker_RunOnce_UnknownType(t *testing.T) {
	f := newWorkerFixture(t)
	_, err := f.store.EnqueueJob(context.Background(), repository.EnqueueJobParams{
		JobType:     "legacy:sync",
		Queue:       jobs.QueueDefault,
		Payload:     []byte("{}"),
		MaxRetries:  1,
		ScheduledAt: postgres.Timestamptz(time.Now().Add(-time.Minute)),
	})
	require.NoError(t, err)

	_, err = f.worker.RunOnce(context.Background())

	require.Error(t, err)
	assert.Equal(t, "failed", f.job(t, "legacy:sync").Status)
}

func TestWorker_Start_StopsOnCancel(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.config.PollInterval = 5 * time.Millisecond
	_, err := jobs.EnqueueCleanup(context.Background(), f.store, time.Now())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Start(ctx) }()

	require.Eventually(t, func() bool {
		return f.store.Jobs(jobs.JobTypeCleanupFinishedJobs)[0].Status == "completed"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
