package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/repository/repotest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture is one owner with the estimate, conversion and milestone
// services wired to a shared in-memory store.
type fixture struct {
	store      *repotest.Store
	ownerID    uuid.UUID
	ctx        context.Context
	estimates  domain.EstimateService
	conversion domain.ConversionService
	milestones domain.MilestoneService
	archive    *recordingArchive
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repotest.New()
	ownerID := store.AddOwner("Rupert Renovations", "office@rupert.test", "+15550001111")
	archive := &recordingArchive{}
	conversion := NewConversionService(store, archive, testLogger())

	return &fixture{
		store:      store,
		ownerID:    ownerID,
		ctx:        domain.NewContextWithOwner(context.Background(), &domain.Owner{ID: ownerID}),
		estimates:  NewEstimateService(store, 14*24*time.Hour, testLogger()),
		conversion: conversion,
		milestones: NewMilestoneService(store, conversion, testLogger()),
		archive:    archive,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// thousandDollarJob is a single $1000 line with 8% tax.
func thousandDollarJob(deposit domain.DepositSpec) domain.CreateEstimateParams {
	return domain.CreateEstimateParams{
		Client: domain.Client{Name: "Dana Client", Email: "dana@example.com", Phone: "+15552223333"},
		Items: []domain.LineItem{
			{Description: "Kitchen remodel", Quantity: dec("1"), UnitRate: dec("1000")},
		},
		TaxRate: dec("8"),
		Deposit: deposit,
	}
}

func (f *fixture) createEstimate(t *testing.T, params domain.CreateEstimateParams) *domain.Estimate {
	t.Helper()
	e, err := f.estimates.CreateEstimate(f.ctx, params)
	require.NoError(t, err)
	return e
}

func (f *fixture) sentEstimate(t *testing.T, params domain.CreateEstimateParams) *domain.Estimate {
	t.Helper()
	e := f.createEstimate(t, params)
	sent, err := f.estimates.Send(f.ctx, e.ID.String())
	require.NoError(t, err)
	return sent
}

func (f *fixture) acceptedEstimate(t *testing.T) *domain.Estimate {
	t.Helper()
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{}))
	accepted, err := f.estimates.Accept(context.Background(), e.ShareToken)
	require.NoError(t, err)
	return accepted
}

func percentStages(pcts ...string) []domain.PlanStage {
	stages := make([]domain.PlanStage, len(pcts))
	for i, p := range pcts {
		pct := dec(p)
		stages[i] = domain.PlanStage{Description: "Stage " + p, Percentage: &pct}
	}
	return stages
}

type recordingArchive struct {
	mu  sync.Mutex
	put []string
	err error
}

func (a *recordingArchive) Put(ctx context.Context, inv *domain.Invoice) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.put = append(a.put, inv.InvoiceNumber)
	return "invoices/" + inv.InvoiceNumber + ".json", nil
}

func (a *recordingArchive) keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.put...)
}

// recordingDispatcher answers every channel with the configured status.
type recordingDispatcher struct {
	mu       sync.Mutex
	status   domain.NotificationStatus
	messages []domain.Message
	to       []domain.Recipient
}

func (d *recordingDispatcher) Send(ctx context.Context, to domain.Recipient, channel domain.Channel, msg domain.Message) domain.NotificationStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	d.to = append(d.to, to)
	if d.status == "" {
		return domain.NotificationSent
	}
	return d.status
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, to domain.Recipient, msg domain.Message) domain.DispatchResult {
	return domain.DispatchResult{domain.ChannelEmail: d.Send(ctx, to, domain.ChannelEmail, msg)}
}

func (d *recordingDispatcher) sent() []domain.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Message(nil), d.messages...)
}
