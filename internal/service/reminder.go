package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/bidwell/internal/ai"
	"github.com/dukerupert/bidwell/internal/budget"
	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/email"
	"github.com/dukerupert/bidwell/internal/money"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
	"github.com/dukerupert/bidwell/internal/telemetry"
)

// EmailRenderer renders an embedded email template into HTML and text.
// email.Service implements it.
type EmailRenderer interface {
	Render(data email.EmailTemplate) (string, string, error)
}

// ReminderConfig wires the optional AI personalization path. Personalizer
// or Budget left nil disables it for every owner.
type ReminderConfig struct {
	BaseURL      string
	Personalizer ai.Personalizer
	Budget       budget.Counter
	// AICostCents is charged against the owner's monthly budget per message.
	AICostCents int64
}

type reminderService struct {
	repo       repository.Transactor
	dispatcher domain.Dispatcher
	renderer   EmailRenderer
	cfg        ReminderConfig
	now        func() time.Time
	logger     *slog.Logger
}

var _ domain.ReminderService = (*reminderService)(nil)

// NewReminderService creates a new ReminderService. renderer may be nil, in
// which case reminders go out as plain text only.
func NewReminderService(repo repository.Transactor, dispatcher domain.Dispatcher, renderer EmailRenderer, cfg ReminderConfig, logger *slog.Logger) domain.ReminderService {
	if cfg.AICostCents <= 0 {
		cfg.AICostCents = 1
	}
	return &reminderService{
		repo:       repo,
		dispatcher: dispatcher,
		renderer:   renderer,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger.With("service", "reminder"),
	}
}

// DueReminders runs across every owner. It is driven by the daily job, not
// by a request, so it does not read an owner from ctx.
func (s *reminderService) DueReminders(ctx context.Context, now time.Time) ([]domain.DueReminder, error) {
	const op = "reminder.due"

	today := postgres.Date(now)
	prefs := map[uuid.UUID]domain.ReminderPreferences{}
	counts := map[uuid.UUID]int64{}
	estimates := map[uuid.UUID]*domain.Estimate{}

	var due []domain.DueReminder

	milestones, err := s.repo.ListUnpaidMilestonesDue(ctx, today)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list unpaid milestones")
	}
	for _, row := range milestones {
		m := postgres.MapMilestone(row)
		if m.DueDate == nil {
			continue
		}

		e, ok := estimates[m.EstimateID]
		if !ok {
			e, err = loadEstimate(ctx, s.repo, op, m.OwnerID, m.EstimateID.String())
			if err != nil {
				return nil, err
			}
			estimates[m.EstimateID] = e
		}
		if e.Status == domain.EstimateCancelled || e.Status == domain.EstimateDraft {
			continue
		}

		candidate := domain.DueReminder{
			OwnerID:     m.OwnerID,
			EstimateID:  m.EstimateID,
			TargetType:  domain.TargetMilestone,
			TargetID:    m.ID,
			DayOffset:   domain.DaysOverdue(*m.DueDate, now),
			AmountCents: m.AmountCents,
			Label:       fmt.Sprintf("milestone %d (%s)", m.MilestoneNumber, m.Description),
		}
		ok, err = s.qualifies(ctx, op, candidate, prefs, counts)
		if err != nil {
			return nil, err
		}
		if ok {
			due = append(due, candidate)
		}
	}

	awaiting, err := s.repo.ListEstimatesAwaitingDeposit(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list estimates awaiting deposit")
	}
	for _, row := range awaiting {
		e, err := postgres.MapEstimate(row)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to read estimate")
		}
		if e.SentAt == nil {
			continue
		}

		candidate := domain.DueReminder{
			OwnerID:     e.OwnerID,
			EstimateID:  e.ID,
			TargetType:  domain.TargetDeposit,
			TargetID:    e.ID,
			DayOffset:   domain.DaysOverdue(*e.SentAt, now),
			AmountCents: e.DepositCents,
			Label:       fmt.Sprintf("the deposit on estimate #%d", e.EstimateNumber),
		}
		ok, err := s.qualifies(ctx, op, candidate, prefs, counts)
		if err != nil {
			return nil, err
		}
		if ok {
			due = append(due, candidate)
		}
	}

	s.logger.Info("due reminders computed", "count", len(due), "date", today.Time.Format(time.DateOnly))
	return due, nil
}

// qualifies applies the owner's schedule, auto-send switch and cap.
// counts tracks logs already present plus candidates accepted this run.
func (s *reminderService) qualifies(ctx context.Context, op string, due domain.DueReminder, prefs map[uuid.UUID]domain.ReminderPreferences, counts map[uuid.UUID]int64) (bool, error) {
	p, ok := prefs[due.OwnerID]
	if !ok {
		loaded, err := s.preferences(ctx, op, due.OwnerID)
		if err != nil {
			return false, err
		}
		p = *loaded
		prefs[due.OwnerID] = p
	}

	if !p.AutoSend || !p.MatchesScheduleDay(due.DayOffset) {
		return false, nil
	}

	n, ok := counts[due.EstimateID]
	if !ok {
		var err error
		n, err = s.repo.CountReminderLogs(ctx, postgres.UUID(due.EstimateID))
		if err != nil {
			return false, domain.Internal(err, op, "failed to count reminder logs")
		}
	}
	if n >= int64(p.MaxRemindersPerEst) {
		counts[due.EstimateID] = n
		return false, nil
	}

	exists, err := s.repo.ReminderLogExists(ctx, repository.ReminderLogExistsParams{
		TargetType: string(due.TargetType),
		TargetID:   postgres.UUID(due.TargetID),
		DayOffset:  due.DayOffset,
	})
	if err != nil {
		return false, domain.Internal(err, op, "failed to check reminder log")
	}
	if exists {
		counts[due.EstimateID] = n
		return false, nil
	}

	counts[due.EstimateID] = n + 1
	return true, nil
}

// SendReminder claims the reminder log slot, renders and dispatches. A
// claimed slot stays logged even when every channel fails.
func (s *reminderService) SendReminder(ctx context.Context, due domain.DueReminder) error {
	const op = "reminder.send"

	e, err := loadEstimate(ctx, s.repo, op, due.OwnerID, due.EstimateID.String())
	if err != nil {
		return err
	}

	if still, err := s.stillOwed(ctx, op, due, e); err != nil {
		return err
	} else if !still {
		s.logger.Info("reminder target settled, skipping",
			"target_type", due.TargetType,
			"target_id", due.TargetID,
		)
		telemetry.Business.ReminderSkipped("settled")
		return nil
	}

	prefs, err := s.preferences(ctx, op, due.OwnerID)
	if err != nil {
		return err
	}

	var logID pgtype.UUID
	err = s.repo.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.LockEstimate(ctx, postgres.UUID(due.EstimateID)); err != nil {
			if postgres.IsNoRows(err) {
				return domain.NotFound(op, "estimate", due.EstimateID.String())
			}
			return domain.Internal(err, op, "failed to lock estimate")
		}

		row, err := q.InsertReminderLog(ctx, repository.InsertReminderLogParams{
			OwnerID:      postgres.UUID(due.OwnerID),
			EstimateID:   postgres.UUID(due.EstimateID),
			TargetType:   string(due.TargetType),
			TargetID:     postgres.UUID(due.TargetID),
			DayOffset:    due.DayOffset,
			Tone:         string(prefs.Tone),
			MaxReminders: prefs.MaxRemindersPerEst,
		})
		if err != nil {
			if postgres.IsNoRows(err) {
				return domain.WithOp(domain.ErrAlreadyProcessed, op)
			}
			return domain.Internal(err, op, "failed to insert reminder log")
		}
		logID = row.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			s.logger.Info("reminder already sent or cap reached",
				"estimate_id", due.EstimateID,
				"target_type", due.TargetType,
				"day_offset", due.DayOffset,
			)
			telemetry.Business.ReminderSkipped("already_sent")
			return nil
		}
		return err
	}

	owner, err := s.repo.GetOwner(ctx, postgres.UUID(due.OwnerID))
	if err != nil {
		s.markLog(ctx, logID, domain.ReminderFailed, false, err)
		return domain.Internal(err, op, "failed to load owner")
	}

	data := domain.ReminderData{
		BusinessName: owner.BusinessName,
		ClientName:   e.Client.Name,
		Amount:       money.FormatCents(due.AmountCents),
		DaysOverdue:  due.DayOffset,
		PaymentLink:  s.cfg.BaseURL + "/e/" + e.ShareToken,
		Label:        due.Label,
	}

	msg, err := RenderReminder(prefs.Tone, data)
	if err != nil {
		s.markLog(ctx, logID, domain.ReminderFailed, false, err)
		return domain.Internal(err, op, "failed to render reminder")
	}

	s.personalize(ctx, prefs, data, &msg)

	html := ""
	if s.renderer != nil {
		html, _, err = s.renderer.Render(email.PaymentReminderEmail{
			BusinessName: owner.BusinessName,
			Heading:      msg.Subject,
			Paragraphs:   paragraphs(msg.Text),
			PaymentURL:   data.PaymentLink,
			SubjectLine:  msg.Subject,
		})
		if err != nil {
			s.logger.Warn("failed to render reminder email, sending text only", "error", err)
			html = ""
		}
	}

	result := s.dispatcher.Dispatch(ctx, domain.Recipient{
		OwnerID:    due.OwnerID,
		EstimateID: due.EstimateID,
		Name:       e.Client.Name,
		Email:      e.Client.Email,
		Phone:      e.Client.Phone,
	}, domain.Message{
		Type:    domain.NotifyPaymentReminder,
		Subject: msg.Subject,
		HTML:    html,
		Text:    msg.Text,
		SMS:     msg.SMS,
	})

	status := domain.ReminderFailed
	for _, st := range result {
		if st == domain.NotificationSent {
			status = domain.ReminderSent
			break
		}
	}

	var dispatchErr error
	if status == domain.ReminderFailed {
		dispatchErr = fmt.Errorf("no channel delivered: %v", result)
	}
	s.markLog(ctx, logID, status, msg.Personalized, dispatchErr)

	if status == domain.ReminderSent {
		telemetry.Business.ReminderSent(string(msg.Tone), msg.Personalized)
	}
	s.logger.Info("reminder processed",
		"estimate_id", due.EstimateID,
		"target_type", due.TargetType,
		"day_offset", due.DayOffset,
		"status", status,
		"personalized", msg.Personalized,
	)
	return nil
}

// stillOwed re-checks the target, which may have been paid since the
// reminder was scheduled.
func (s *reminderService) stillOwed(ctx context.Context, op string, due domain.DueReminder, e *domain.Estimate) (bool, error) {
	if e.Status == domain.EstimateCancelled {
		return false, nil
	}
	switch due.TargetType {
	case domain.TargetDeposit:
		return e.Status == domain.EstimateSent && e.RequiresDeposit(), nil
	case domain.TargetMilestone:
		m, err := loadMilestone(ctx, s.repo, op, due.OwnerID, due.TargetID.String())
		if err != nil {
			return false, err
		}
		return m.Status.Unpaid(), nil
	}
	return false, domain.Invalid(op, fmt.Sprintf("unknown reminder target %q", due.TargetType))
}

// personalize swaps the template body for an AI rewrite when the owner has
// budget left. Any failure keeps the template.
func (s *reminderService) personalize(ctx context.Context, prefs *domain.ReminderPreferences, data domain.ReminderData, msg *domain.ReminderMessage) {
	if s.cfg.Personalizer == nil || s.cfg.Budget == nil || !prefs.AIEnabled {
		return
	}

	now := s.now()
	if prefs.AIBudgetRemaining(now) <= 0 {
		telemetry.Business.AIBudgetRejected()
		s.logger.Info("ai budget spent, using template", "owner_id", prefs.OwnerID)
		return
	}

	ok, err := s.cfg.Budget.Reserve(ctx, prefs.OwnerID, prefs.AIMonthlyBudgetCents, s.cfg.AICostCents, now)
	if err != nil {
		s.logger.Warn("failed to reserve ai budget, using template", "owner_id", prefs.OwnerID, "error", err)
		return
	}
	if !ok {
		telemetry.Business.AIBudgetRejected()
		s.logger.Info("ai budget spent, using template", "owner_id", prefs.OwnerID)
		return
	}

	text, err := s.cfg.Personalizer.Personalize(ctx, ai.Request{
		Tone:         string(prefs.Tone),
		BusinessName: data.BusinessName,
		ClientName:   data.ClientName,
		Amount:       data.Amount,
		DaysOverdue:  data.DaysOverdue,
		PaymentLink:  data.PaymentLink,
		Draft:        msg.Text,
	})
	if err != nil {
		s.logger.Warn("ai personalization failed, using template",
			"owner_id", prefs.OwnerID,
			"error", &domain.ExternalServiceError{Service: "ai", Err: err},
		)
		return
	}

	msg.Text = text
	msg.Personalized = true
}

func (s *reminderService) markLog(ctx context.Context, id pgtype.UUID, status domain.ReminderLogStatus, personalized bool, cause error) {
	params := repository.UpdateReminderLogStatusParams{
		ID:           id,
		Status:       string(status),
		Personalized: personalized,
	}
	if cause != nil {
		params.Error = postgres.Text(cause.Error())
	}
	if err := s.repo.UpdateReminderLogStatus(ctx, params); err != nil {
		s.logger.Error("failed to update reminder log", "id", postgres.FromUUID(id), "status", status, "error", err)
	}
}

func (s *reminderService) preferences(ctx context.Context, op string, ownerID uuid.UUID) (*domain.ReminderPreferences, error) {
	row, err := s.repo.GetReminderPreferences(ctx, postgres.UUID(ownerID))
	if err != nil {
		if postgres.IsNoRows(err) {
			p := domain.DefaultReminderPreferences(ownerID)
			return &p, nil
		}
		return nil, domain.Internal(err, op, "failed to load reminder preferences")
	}
	p := postgres.MapReminderPreferences(row)
	return &p, nil
}

func (s *reminderService) GetPreferences(ctx context.Context) (*domain.ReminderPreferences, error) {
	const op = "reminder.get_preferences"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}
	return s.preferences(ctx, op, ownerID)
}

func (s *reminderService) UpdatePreferences(ctx context.Context, params domain.UpdateReminderPreferencesParams) (*domain.ReminderPreferences, error) {
	const op = "reminder.update_preferences"

	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, err
	}

	var verr error
	if !params.Tone.Valid() {
		verr = domain.AddFieldError(verr, "tone", "must be friendly, firm or professional")
	}
	if len(params.ScheduleDays) == 0 {
		verr = domain.AddFieldError(verr, "schedule_days", "at least one day is required")
	}
	for _, d := range params.ScheduleDays {
		if d <= 0 {
			verr = domain.AddFieldError(verr, "schedule_days", "days must be positive")
			break
		}
	}
	if params.MaxRemindersPerEst < 1 {
		verr = domain.AddFieldError(verr, "max_reminders_per_estimate", "must be at least 1")
	}
	if params.AIMonthlyBudgetCents < 0 {
		verr = domain.AddFieldError(verr, "ai_monthly_budget_cents", "cannot be negative")
	}
	if verr != nil {
		if ve, ok := verr.(*domain.ValidationError); ok {
			ve.Op = op
		}
		return nil, verr
	}

	days := slices.Clone(params.ScheduleDays)
	slices.Sort(days)
	days = slices.Compact(days)

	row, err := s.repo.UpsertReminderPreferences(ctx, repository.UpsertReminderPreferencesParams{
		OwnerID:                 postgres.UUID(ownerID),
		Tone:                    string(params.Tone),
		ScheduleDays:            days,
		AutoSend:                params.AutoSend,
		MaxRemindersPerEstimate: params.MaxRemindersPerEst,
		AiEnabled:               params.AIEnabled,
		AiMonthlyBudgetCents:    params.AIMonthlyBudgetCents,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to save reminder preferences")
	}

	p := postgres.MapReminderPreferences(row)
	s.logger.Info("reminder preferences updated", "owner_id", ownerID, "tone", p.Tone, "schedule_days", p.ScheduleDays)
	return &p, nil
}
