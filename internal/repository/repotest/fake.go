// Package repotest provides an in-memory repository.Transactor for tests.
//
// The fake mirrors the compare-and-set and uniqueness behaviour of the SQL
// queries: conditional updates that match nothing return pgx.ErrNoRows, and
// ExecTx restores the previous state when fn returns an error.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/bidwell/internal/repository"
)

type key = [16]byte

type state struct {
	owners           map[key]repository.Owner
	estimates        map[key]repository.Estimate
	milestones       map[key]repository.Milestone
	invoices         map[key]repository.Invoice
	prefs            map[key]repository.ReminderPreference
	reminderLogs     map[key]repository.ReminderLog
	notificationLogs []repository.NotificationLog
	paymentEvents    map[key]repository.PaymentEvent
	jobs             map[key]repository.Job
}

func newState() state {
	return state{
		owners:        map[key]repository.Owner{},
		estimates:     map[key]repository.Estimate{},
		milestones:    map[key]repository.Milestone{},
		invoices:      map[key]repository.Invoice{},
		prefs:         map[key]repository.ReminderPreference{},
		reminderLogs:  map[key]repository.ReminderLog{},
		paymentEvents: map[key]repository.PaymentEvent{},
		jobs:          map[key]repository.Job{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.owners {
		c.owners[k] = v
	}
	for k, v := range s.estimates {
		c.estimates[k] = v
	}
	for k, v := range s.milestones {
		c.milestones[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.prefs {
		c.prefs[k] = v
	}
	for k, v := range s.reminderLogs {
		c.reminderLogs[k] = v
	}
	c.notificationLogs = append(c.notificationLogs, s.notificationLogs...)
	for k, v := range s.paymentEvents {
		c.paymentEvents[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	return c
}

// Store is an in-memory repository.Transactor.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	s    state

	// Now is the clock used for timestamps; defaults to time.Now.
	Now func() time.Time

	failures map[string]error
}

var _ repository.Transactor = (*Store)(nil)

func New() *Store {
	return &Store{s: newState(), failures: map[string]error{}}
}

// FailOn makes the named method return err until cleared with a nil err.
func (f *Store) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, method)
		return
	}
	f.failures[method] = err
}

func (f *Store) fail(method string) error {
	return f.failures[method]
}

func (f *Store) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Store) ts() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: f.now(), Valid: true}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

// ExecTx runs fn against the store and rolls every change back when fn fails.
// Transactions are serialized, standing in for row locks.
func (f *Store) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	if err := f.fail("ExecTx"); err != nil {
		f.mu.Unlock()
		return err
	}
	snapshot := f.s.clone()
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.s = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

// =============================================================================
// Seeding and inspection
// =============================================================================

// AddOwner inserts an owner and returns its id.
func (f *Store) AddOwner(businessName, email, phone string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := newID()
	f.s.owners[id.Bytes] = repository.Owner{
		ID:                 id,
		BusinessName:       businessName,
		Email:              email,
		Phone:              pgtype.Text{String: phone, Valid: phone != ""},
		NextEstimateNumber: 1,
		CreatedAt:          f.ts(),
		UpdatedAt:          f.ts(),
	}
	return id.Bytes
}

// PutEstimate overwrites an estimate row, for arranging test state directly.
func (f *Store) PutEstimate(e repository.Estimate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.estimates[e.ID.Bytes] = e
}

// PutMilestone overwrites a milestone row.
func (f *Store) PutMilestone(m repository.Milestone) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.milestones[m.ID.Bytes] = m
}

func (f *Store) Estimate(id uuid.UUID) (repository.Estimate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.s.estimates[id]
	return e, ok
}

func (f *Store) Invoices() []repository.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Invoice, 0, len(f.s.invoices))
	for _, inv := range f.s.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out
}

func (f *Store) Milestones() []repository.Milestone {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Milestone, 0, len(f.s.milestones))
	for _, m := range f.s.milestones {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MilestoneNumber < out[j].MilestoneNumber })
	return out
}

func (f *Store) ReminderLogs() []repository.ReminderLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.ReminderLog, 0, len(f.s.reminderLogs))
	for _, l := range f.s.reminderLogs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOffset < out[j].DayOffset })
	return out
}

func (f *Store) NotificationLogs() []repository.NotificationLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.NotificationLog(nil), f.s.notificationLogs...)
}

func (f *Store) PaymentEvents() []repository.PaymentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.PaymentEvent, 0, len(f.s.paymentEvents))
	for _, e := range f.s.paymentEvents {
		out = append(out, e)
	}
	return out
}

// Jobs returns enqueued jobs, optionally filtered by type.
func (f *Store) Jobs(jobType string) []repository.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []repository.Job{}
	for _, j := range f.s.jobs {
		if jobType == "" || j.JobType == jobType {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time) })
	return out
}

// =============================================================================
// Owners
// =============================================================================

func (f *Store) GetOwner(ctx context.Context, id pgtype.UUID) (repository.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetOwner"); err != nil {
		return repository.Owner{}, err
	}
	o, ok := f.s.owners[id.Bytes]
	if !ok {
		return repository.Owner{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *Store) NextEstimateNumber(ctx context.Context, ownerID pgtype.UUID) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.s.owners[ownerID.Bytes]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	n := o.NextEstimateNumber
	o.NextEstimateNumber++
	f.s.owners[ownerID.Bytes] = o
	return n, nil
}

// =============================================================================
// Estimates
// =============================================================================

func (f *Store) CreateEstimate(ctx context.Context, arg repository.CreateEstimateParams) (repository.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateEstimate"); err != nil {
		return repository.Estimate{}, err
	}
	for _, e := range f.s.estimates {
		if e.ShareToken == arg.ShareToken {
			return repository.Estimate{}, uniqueViolation("idx_estimates_share_token")
		}
		if e.OwnerID == arg.OwnerID && e.EstimateNumber == arg.EstimateNumber {
			return repository.Estimate{}, uniqueViolation("idx_estimates_owner_number")
		}
	}
	e := repository.Estimate{
		ID:             newID(),
		OwnerID:        arg.OwnerID,
		EstimateNumber: arg.EstimateNumber,
		ClientName:     arg.ClientName,
		ClientEmail:    arg.ClientEmail,
		ClientPhone:    arg.ClientPhone,
		Items:          arg.Items,
		TaxRate:        arg.TaxRate,
		DiscountCents:  arg.DiscountCents,
		ShippingCents:  arg.ShippingCents,
		SubtotalCents:  arg.SubtotalCents,
		TaxCents:       arg.TaxCents,
		TotalCents:     arg.TotalCents,
		DepositType:    arg.DepositType,
		DepositValue:   arg.DepositValue,
		DepositCents:   arg.DepositCents,
		Status:         "draft",
		ShareToken:     arg.ShareToken,
		CreatedAt:      f.ts(),
		UpdatedAt:      f.ts(),
	}
	f.s.estimates[e.ID.Bytes] = e
	return e, nil
}

func (f *Store) GetEstimate(ctx context.Context, arg repository.GetEstimateParams) (repository.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetEstimate"); err != nil {
		return repository.Estimate{}, err
	}
	e, ok := f.s.estimates[arg.ID.Bytes]
	if !ok || e.OwnerID != arg.OwnerID {
		return repository.Estimate{}, pgx.ErrNoRows
	}
	return e, nil
}

func (f *Store) GetEstimateByShareToken(ctx context.Context, shareToken string) (repository.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.s.estimates {
		if e.ShareToken == shareToken {
			return e, nil
		}
	}
	return repository.Estimate{}, pgx.ErrNoRows
}

func (f *Store) LockEstimate(ctx context.Context, id pgtype.UUID) (pgtype.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.estimates[id.Bytes]; !ok {
		return pgtype.UUID{}, pgx.ErrNoRows
	}
	return id, nil
}

func (f *Store) UpdateEstimateDraft(ctx context.Context, arg repository.UpdateEstimateDraftParams) (repository.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.s.estimates[arg.ID.Bytes]
	if !ok || e.OwnerID != arg.OwnerID || e.Status != "draft" {
		return repository.Estimate{}, pgx.ErrNoRows
	}
	e.ClientName = arg.ClientName
	e.ClientEmail = arg.ClientEmail
	e.ClientPhone = arg.ClientPhone
	e.Items = arg.Items
	e.TaxRate = arg.TaxRate
	e.DiscountCents = arg.DiscountCents
	e.ShippingCents = arg.ShippingCents
	e.SubtotalCents = arg.SubtotalCents
	e.TaxCents = arg.TaxCents
	e.TotalCents = arg.TotalCents
	e.DepositType = arg.DepositType
	e.DepositValue = arg.DepositValue
	e.DepositCents = arg.DepositCents
	e.UpdatedAt = f.ts()
	f.s.estimates[e.ID.Bytes] = e
	return e, nil
}

func (f *Store) TransitionEstimateStatus(ctx context.Context, arg repository.TransitionEstimateStatusParams) (repository.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("TransitionEstimateStatus"); err != nil {
		return repository.Estimate{}, err
	}
	e, ok := f.s.estimates[arg.ID.Bytes]
	if !ok || e.OwnerID != arg.OwnerID || e.Status != arg.FromStatus {
		return repository.Estimate{}, pgx.ErrNoRows
	}
	now := f.ts()
	e.Status = arg.ToStatus
	switch arg.ToStatus {
	case "sent":
		e.SentAt = now
	case "accepted":
		e.AcceptedAt = now
	case "deposit_paid":
		e.DepositPaidAt = now
	case "invoiced":
		e.InvoicedAt = now
	case "cancelled":
		e.CancelledAt = now
	}
	e.UpdatedAt = now
	f.s.estimates[e.ID.Bytes] = e
	return e, nil
}

func (f *Store) ListStaleEstimates(ctx context.Context, arg repository.ListStaleEstimatesParams) ([]repository.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []repository.Estimate{}
	for _, e := range f.s.estimates {
		if e.OwnerID != arg.OwnerID || (e.Status != "sent" && e.Status != "accepted") {
			continue
		}
		if e.UpdatedAt.Time.Before(arg.UpdatedBefore.Time) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Time.Before(out[j].UpdatedAt.Time) })
	return out, nil
}

func (f *Store) ListEstimatesAwaitingDeposit(ctx context.Context) ([]repository.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []repository.Estimate{}
	for _, e := range f.s.estimates {
		if e.Status == "sent" && e.DepositCents > 0 && e.SentAt.Valid {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Time.Before(out[j].SentAt.Time) })
	return out, nil
}

// =============================================================================
// Milestones
// =============================================================================

func (f *Store) CountMilestones(ctx context.Context, estimateID pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.s.milestones {
		if m.EstimateID == estimateID {
			n++
		}
	}
	return n, nil
}

func (f *Store) CreateMilestone(ctx context.Context, arg repository.CreateMilestoneParams) (repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateMilestone"); err != nil {
		return repository.Milestone{}, err
	}
	for _, m := range f.s.milestones {
		if m.EstimateID == arg.EstimateID && m.MilestoneNumber == arg.MilestoneNumber {
			return repository.Milestone{}, uniqueViolation("idx_milestones_estimate_number")
		}
	}
	m := repository.Milestone{
		ID:              newID(),
		OwnerID:         arg.OwnerID,
		EstimateID:      arg.EstimateID,
		MilestoneNumber: arg.MilestoneNumber,
		Description:     arg.Description,
		Percentage:      arg.Percentage,
		AmountCents:     arg.AmountCents,
		DueDate:         arg.DueDate,
		Status:          "pending",
		CreatedAt:       f.ts(),
		UpdatedAt:       f.ts(),
	}
	f.s.milestones[m.ID.Bytes] = m
	return m, nil
}

func (f *Store) GetMilestone(ctx context.Context, arg repository.GetMilestoneParams) (repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.s.milestones[arg.ID.Bytes]
	if !ok || m.OwnerID != arg.OwnerID {
		return repository.Milestone{}, pgx.ErrNoRows
	}
	return m, nil
}

func (f *Store) GetMilestoneByNumber(ctx context.Context, arg repository.GetMilestoneByNumberParams) (repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.s.milestones {
		if m.EstimateID == arg.EstimateID && m.MilestoneNumber == arg.MilestoneNumber {
			return m, nil
		}
	}
	return repository.Milestone{}, pgx.ErrNoRows
}

func (f *Store) ListMilestonesByEstimate(ctx context.Context, estimateID pgtype.UUID) ([]repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []repository.Milestone{}
	for _, m := range f.s.milestones {
		if m.EstimateID == estimateID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MilestoneNumber < out[j].MilestoneNumber })
	return out, nil
}

func (f *Store) MarkMilestonePaid(ctx context.Context, arg repository.MarkMilestonePaidParams) (repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.s.milestones[arg.ID.Bytes]
	if !ok || (m.Status != "pending" && m.Status != "overdue") {
		return repository.Milestone{}, pgx.ErrNoRows
	}
	m.Status = "paid"
	m.PaidAt = f.ts()
	m.PaymentRef = arg.PaymentRef
	m.UpdatedAt = f.ts()
	f.s.milestones[m.ID.Bytes] = m
	return m, nil
}

func (f *Store) UpdateMilestoneAmount(ctx context.Context, arg repository.UpdateMilestoneAmountParams) (repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.s.milestones[arg.ID.Bytes]
	if !ok || m.Status != "pending" {
		return repository.Milestone{}, pgx.ErrNoRows
	}
	m.AmountCents = arg.AmountCents
	m.UpdatedAt = f.ts()
	f.s.milestones[m.ID.Bytes] = m
	return m, nil
}

func (f *Store) MarkOverdueMilestones(ctx context.Context, today pgtype.Date) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, m := range f.s.milestones {
		if m.Status == "pending" && m.DueDate.Valid && m.DueDate.Time.Before(today.Time) {
			m.Status = "overdue"
			m.UpdatedAt = f.ts()
			f.s.milestones[id] = m
			n++
		}
	}
	return n, nil
}

func (f *Store) ListUnpaidMilestonesDue(ctx context.Context, today pgtype.Date) ([]repository.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []repository.Milestone{}
	for _, m := range f.s.milestones {
		if (m.Status == "pending" || m.Status == "overdue") && m.DueDate.Valid && m.DueDate.Time.Before(today.Time) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Time.Equal(out[j].DueDate.Time) {
			return out[i].DueDate.Time.Before(out[j].DueDate.Time)
		}
		return out[i].MilestoneNumber < out[j].MilestoneNumber
	})
	return out, nil
}

// =============================================================================
// Invoices
// =============================================================================

func (f *Store) CreateInvoice(ctx context.Context, arg repository.CreateInvoiceParams) (repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateInvoice"); err != nil {
		return repository.Invoice{}, err
	}
	for _, inv := range f.s.invoices {
		if inv.OwnerID == arg.OwnerID && inv.InvoiceNumber == arg.InvoiceNumber {
			return repository.Invoice{}, pgx.ErrNoRows
		}
		if inv.EstimateID == arg.EstimateID && inv.MilestoneNumber == arg.MilestoneNumber {
			return repository.Invoice{}, pgx.ErrNoRows
		}
	}
	inv := repository.Invoice{
		ID:              newID(),
		OwnerID:         arg.OwnerID,
		EstimateID:      arg.EstimateID,
		MilestoneNumber: arg.MilestoneNumber,
		InvoiceNumber:   arg.InvoiceNumber,
		ClientName:      arg.ClientName,
		ClientEmail:     arg.ClientEmail,
		ClientPhone:     arg.ClientPhone,
		Items:           arg.Items,
		SubtotalCents:   arg.SubtotalCents,
		TaxCents:        arg.TaxCents,
		DiscountCents:   arg.DiscountCents,
		ShippingCents:   arg.ShippingCents,
		TotalCents:      arg.TotalCents,
		AmountPaidCents: arg.AmountPaidCents,
		Status:          arg.Status,
		IssuedAt:        f.ts(),
		CreatedAt:       f.ts(),
		UpdatedAt:       f.ts(),
	}
	f.s.invoices[inv.ID.Bytes] = inv
	return inv, nil
}

func (f *Store) GetFullInvoiceForEstimate(ctx context.Context, estimateID pgtype.UUID) (repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.s.invoices {
		if inv.EstimateID == estimateID && !inv.MilestoneNumber.Valid {
			return inv, nil
		}
	}
	return repository.Invoice{}, pgx.ErrNoRows
}

func (f *Store) GetMilestoneInvoice(ctx context.Context, arg repository.GetMilestoneInvoiceParams) (repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.s.invoices {
		if inv.EstimateID == arg.EstimateID && inv.MilestoneNumber.Valid && inv.MilestoneNumber.Int32 == arg.MilestoneNumber {
			return inv, nil
		}
	}
	return repository.Invoice{}, pgx.ErrNoRows
}

func (f *Store) ListInvoicesByEstimate(ctx context.Context, estimateID pgtype.UUID) ([]repository.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []repository.Invoice{}
	for _, inv := range f.s.invoices {
		if inv.EstimateID == estimateID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MilestoneNumber.Valid != out[j].MilestoneNumber.Valid {
			return !out[i].MilestoneNumber.Valid
		}
		return out[i].MilestoneNumber.Int32 < out[j].MilestoneNumber.Int32
	})
	return out, nil
}

// =============================================================================
// Reminders
// =============================================================================

func (f *Store) GetReminderPreferences(ctx context.Context, ownerID pgtype.UUID) (repository.ReminderPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.s.prefs[ownerID.Bytes]
	if !ok {
		return repository.ReminderPreference{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *Store) UpsertReminderPreferences(ctx context.Context, arg repository.UpsertReminderPreferencesParams) (repository.ReminderPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.s.prefs[arg.OwnerID.Bytes]
	if !ok {
		now := f.now().UTC()
		p = repository.ReminderPreference{
			OwnerID:       arg.OwnerID,
			AiUsagePeriod: pgtype.Date{Time: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), Valid: true},
			CreatedAt:     f.ts(),
		}
	}
	p.Tone = arg.Tone
	p.ScheduleDays = append([]int32(nil), arg.ScheduleDays...)
	p.AutoSend = arg.AutoSend
	p.MaxRemindersPerEstimate = arg.MaxRemindersPerEstimate
	p.AiEnabled = arg.AiEnabled
	p.AiMonthlyBudgetCents = arg.AiMonthlyBudgetCents
	p.UpdatedAt = f.ts()
	f.s.prefs[arg.OwnerID.Bytes] = p
	return p, nil
}

func (f *Store) IncrementAIUsage(ctx context.Context, arg repository.IncrementAIUsageParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("IncrementAIUsage"); err != nil {
		return 0, err
	}
	p, ok := f.s.prefs[arg.OwnerID.Bytes]
	if !ok || !p.AiEnabled {
		return 0, pgx.ErrNoRows
	}
	usage := p.AiUsageCents
	if !p.AiUsagePeriod.Time.Equal(arg.Period.Time) {
		usage = 0
	}
	if usage >= p.AiMonthlyBudgetCents {
		return 0, pgx.ErrNoRows
	}
	p.AiUsageCents = usage + arg.CostCents
	p.AiUsagePeriod = arg.Period
	f.s.prefs[arg.OwnerID.Bytes] = p
	return p.AiUsageCents, nil
}

func (f *Store) InsertReminderLog(ctx context.Context, arg repository.InsertReminderLogParams) (repository.ReminderLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("InsertReminderLog"); err != nil {
		return repository.ReminderLog{}, err
	}
	var count int32
	for _, l := range f.s.reminderLogs {
		if l.EstimateID == arg.EstimateID {
			count++
		}
		if l.TargetType == arg.TargetType && l.TargetID == arg.TargetID && l.DayOffset == arg.DayOffset {
			return repository.ReminderLog{}, pgx.ErrNoRows
		}
	}
	if count >= arg.MaxReminders {
		return repository.ReminderLog{}, pgx.ErrNoRows
	}
	l := repository.ReminderLog{
		ID:         newID(),
		OwnerID:    arg.OwnerID,
		EstimateID: arg.EstimateID,
		TargetType: arg.TargetType,
		TargetID:   arg.TargetID,
		DayOffset:  arg.DayOffset,
		Tone:       arg.Tone,
		Status:     "pending",
		CreatedAt:  f.ts(),
		UpdatedAt:  f.ts(),
	}
	f.s.reminderLogs[l.ID.Bytes] = l
	return l, nil
}

func (f *Store) UpdateReminderLogStatus(ctx context.Context, arg repository.UpdateReminderLogStatusParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.s.reminderLogs[arg.ID.Bytes]
	if !ok {
		return nil
	}
	l.Status = arg.Status
	l.Personalized = arg.Personalized
	l.Error = arg.Error
	l.UpdatedAt = f.ts()
	f.s.reminderLogs[l.ID.Bytes] = l
	return nil
}

func (f *Store) CountReminderLogs(ctx context.Context, estimateID pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, l := range f.s.reminderLogs {
		if l.EstimateID == estimateID {
			n++
		}
	}
	return n, nil
}

func (f *Store) ReminderLogExists(ctx context.Context, arg repository.ReminderLogExistsParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.s.reminderLogs {
		if l.TargetType == arg.TargetType && l.TargetID == arg.TargetID && l.DayOffset == arg.DayOffset {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// Notification logs and payment events
// =============================================================================

func (f *Store) CreateNotificationLog(ctx context.Context, arg repository.CreateNotificationLogParams) (repository.NotificationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateNotificationLog"); err != nil {
		return repository.NotificationLog{}, err
	}
	l := repository.NotificationLog{
		ID:                newID(),
		CorrelationID:     arg.CorrelationID,
		OwnerID:           arg.OwnerID,
		EstimateID:        arg.EstimateID,
		Channel:           arg.Channel,
		NotificationType:  arg.NotificationType,
		Recipient:         arg.Recipient,
		Status:            arg.Status,
		Error:             arg.Error,
		ProviderMessageID: arg.ProviderMessageID,
		CreatedAt:         f.ts(),
	}
	f.s.notificationLogs = append(f.s.notificationLogs, l)
	return l, nil
}

func (f *Store) RecordPaymentEvent(ctx context.Context, arg repository.RecordPaymentEventParams) (repository.PaymentEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RecordPaymentEvent"); err != nil {
		return repository.PaymentEvent{}, err
	}
	for id, e := range f.s.paymentEvents {
		if e.Provider == arg.Provider && e.EventID == arg.EventID {
			e.Attempts++
			e.UpdatedAt = f.ts()
			f.s.paymentEvents[id] = e
			return e, nil
		}
	}
	e := repository.PaymentEvent{
		ID:        newID(),
		Provider:  arg.Provider,
		EventID:   arg.EventID,
		EventType: arg.EventType,
		Payload:   arg.Payload,
		Attempts:  1,
		CreatedAt: f.ts(),
		UpdatedAt: f.ts(),
	}
	f.s.paymentEvents[e.ID.Bytes] = e
	return e, nil
}

func (f *Store) MarkPaymentEventProcessed(ctx context.Context, id pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.s.paymentEvents[id.Bytes]
	if !ok {
		return nil
	}
	e.ProcessedAt = f.ts()
	e.LastError = pgtype.Text{}
	f.s.paymentEvents[id.Bytes] = e
	return nil
}

func (f *Store) MarkPaymentEventFailed(ctx context.Context, arg repository.MarkPaymentEventFailedParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.s.paymentEvents[arg.ID.Bytes]
	if !ok {
		return nil
	}
	e.LastError = arg.LastError
	f.s.paymentEvents[arg.ID.Bytes] = e
	return nil
}

// =============================================================================
// Jobs
// =============================================================================

func (f *Store) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("EnqueueJob"); err != nil {
		return repository.Job{}, err
	}
	if arg.IdempotencyKey.Valid {
		for _, j := range f.s.jobs {
			if j.IdempotencyKey.Valid && j.IdempotencyKey.String == arg.IdempotencyKey.String {
				return repository.Job{}, pgx.ErrNoRows
			}
		}
	}
	j := repository.Job{
		ID:             newID(),
		TenantID:       arg.TenantID,
		JobType:        arg.JobType,
		Queue:          arg.Queue,
		Payload:        arg.Payload,
		Status:         "pending",
		Priority:       arg.Priority,
		MaxRetries:     arg.MaxRetries,
		ScheduledAt:    arg.ScheduledAt,
		TimeoutSeconds: arg.TimeoutSeconds,
		IdempotencyKey: arg.IdempotencyKey,
		Metadata:       arg.Metadata,
		CreatedAt:      f.ts(),
		UpdatedAt:      f.ts(),
	}
	f.s.jobs[j.ID.Bytes] = j
	return j, nil
}

func (f *Store) ClaimNextJob(ctx context.Context, arg repository.ClaimNextJobParams) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *repository.Job
	now := f.now()
	for _, j := range f.s.jobs {
		j := j
		if j.Status != "pending" || j.ScheduledAt.Time.After(now) {
			continue
		}
		if arg.TenantID.Valid && j.TenantID != arg.TenantID {
			continue
		}
		if arg.Queue != "" && j.Queue != arg.Queue {
			continue
		}
		if best == nil || j.Priority < best.Priority ||
			(j.Priority == best.Priority && j.ScheduledAt.Time.Before(best.ScheduledAt.Time)) {
			best = &j
		}
	}
	if best == nil {
		return repository.Job{}, pgx.ErrNoRows
	}
	best.Status = "processing"
	best.StartedAt = f.ts()
	best.WorkerID = arg.WorkerID
	best.UpdatedAt = f.ts()
	f.s.jobs[best.ID.Bytes] = *best
	return *best, nil
}

func (f *Store) CompleteJob(ctx context.Context, id pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.s.jobs[id.Bytes]
	if !ok {
		return fmt.Errorf("job %x not found", id.Bytes)
	}
	j.Status = "completed"
	j.CompletedAt = f.ts()
	j.UpdatedAt = f.ts()
	f.s.jobs[id.Bytes] = j
	return nil
}

func (f *Store) FailJob(ctx context.Context, arg repository.FailJobParams) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.s.jobs[arg.ID.Bytes]
	if !ok {
		return repository.Job{}, pgx.ErrNoRows
	}
	if j.RetryCount+1 < j.MaxRetries {
		j.Status = "pending"
		j.ScheduledAt = pgtype.Timestamptz{Time: f.now().Add(30 * time.Second << j.RetryCount), Valid: true}
	} else {
		j.Status = "failed"
		j.FailedAt = f.ts()
	}
	j.RetryCount++
	j.WorkerID = pgtype.Text{}
	j.ErrorMessage = arg.ErrorMessage
	j.ErrorDetails = arg.ErrorDetails
	j.UpdatedAt = f.ts()
	f.s.jobs[arg.ID.Bytes] = j
	return j, nil
}

func (f *Store) DeleteFinishedJobs(ctx context.Context, before pgtype.Timestamptz) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, j := range f.s.jobs {
		if (j.Status == "completed" || j.Status == "failed") && j.UpdatedAt.Time.Before(before.Time) {
			delete(f.s.jobs, id)
			n++
		}
	}
	return n, nil
}
