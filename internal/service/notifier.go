package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/email"
	"github.com/dukerupert/bidwell/internal/money"
	"github.com/dukerupert/bidwell/internal/postgres"
	"github.com/dukerupert/bidwell/internal/repository"
)

// Notifier turns lifecycle events into client messages. It runs from
// notify:* jobs with the owner already in ctx.
type Notifier struct {
	repo       repository.Querier
	dispatcher domain.Dispatcher
	renderer   EmailRenderer
	baseURL    string
	logger     *slog.Logger
}

func NewNotifier(repo repository.Querier, dispatcher domain.Dispatcher, renderer EmailRenderer, baseURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		repo:       repo,
		dispatcher: dispatcher,
		renderer:   renderer,
		baseURL:    baseURL,
		logger:     logger.With("service", "notifier"),
	}
}

// EstimateSent sends the share link to the client.
func (n *Notifier) EstimateSent(ctx context.Context, estimateID string) (domain.DispatchResult, error) {
	const op = "notifier.estimate_sent"

	e, owner, err := n.load(ctx, op, estimateID)
	if err != nil {
		return nil, err
	}

	data := email.EstimateSentEmail{
		BusinessName:   owner.BusinessName,
		ClientName:     e.Client.Name,
		EstimateNumber: e.EstimateNumber,
		Total:          money.FormatCents(e.TotalCents),
		ShareURL:       n.shareURL(e),
	}
	if e.RequiresDeposit() {
		data.Deposit = money.FormatCents(e.DepositCents)
	}

	short := fmt.Sprintf("%s sent you estimate #%d for %s: %s", owner.BusinessName, e.EstimateNumber, data.Total, data.ShareURL)
	return n.dispatch(ctx, op, e, domain.NotifyEstimateSent, data, short)
}

// DepositReceived confirms a deposit to the client.
func (n *Notifier) DepositReceived(ctx context.Context, estimateID string) (domain.DispatchResult, error) {
	const op = "notifier.deposit_received"

	e, owner, err := n.load(ctx, op, estimateID)
	if err != nil {
		return nil, err
	}

	paidAt := time.Now()
	if e.DepositPaidAt != nil {
		paidAt = *e.DepositPaidAt
	}

	data := email.DepositReceivedEmail{
		BusinessName:   owner.BusinessName,
		ClientName:     e.Client.Name,
		EstimateNumber: e.EstimateNumber,
		Amount:         money.FormatCents(e.DepositCents),
		PaidAt:         paidAt,
	}

	short := fmt.Sprintf("%s received your %s deposit for estimate #%d. Thank you!", owner.BusinessName, data.Amount, e.EstimateNumber)
	return n.dispatch(ctx, op, e, domain.NotifyDepositReceived, data, short)
}

// InvoiceCreated delivers a full or milestone invoice. milestoneNumber is
// nil for the full invoice.
func (n *Notifier) InvoiceCreated(ctx context.Context, estimateID string, milestoneNumber *int32) (domain.DispatchResult, error) {
	const op = "notifier.invoice_created"

	e, owner, err := n.load(ctx, op, estimateID)
	if err != nil {
		return nil, err
	}

	var row repository.Invoice
	if milestoneNumber == nil {
		row, err = n.repo.GetFullInvoiceForEstimate(ctx, postgres.UUID(e.ID))
	} else {
		row, err = n.repo.GetMilestoneInvoice(ctx, repository.GetMilestoneInvoiceParams{
			EstimateID:      postgres.UUID(e.ID),
			MilestoneNumber: *milestoneNumber,
		})
	}
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, domain.NotFound(op, "invoice", estimateID)
		}
		return nil, domain.Internal(err, op, "failed to load invoice")
	}
	inv, err := postgres.MapInvoice(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read invoice")
	}

	data := email.InvoiceCreatedEmail{
		BusinessName:  owner.BusinessName,
		ClientName:    inv.Client.Name,
		InvoiceNumber: inv.InvoiceNumber,
		Subtotal:      money.FormatCents(inv.SubtotalCents),
		Tax:           money.FormatCents(inv.TaxCents),
		Total:         money.FormatCents(inv.TotalCents),
		BalanceDue:    money.FormatCents(inv.TotalCents - inv.AmountPaidCents),
		ShareURL:      n.shareURL(e),
	}
	for _, item := range inv.Items {
		data.Items = append(data.Items, email.InvoiceLine{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitRate:    money.FormatCents(money.ToCents(item.UnitRate)),
		})
	}
	if inv.DiscountCents > 0 {
		data.Discount = money.FormatCents(inv.DiscountCents)
	}
	if inv.ShippingCents > 0 {
		data.Shipping = money.FormatCents(inv.ShippingCents)
	}
	if inv.AmountPaidCents > 0 {
		data.AmountPaid = money.FormatCents(inv.AmountPaidCents)
	}

	short := fmt.Sprintf("Invoice %s from %s: %s due. %s", inv.InvoiceNumber, owner.BusinessName, data.BalanceDue, data.ShareURL)
	return n.dispatch(ctx, op, e, domain.NotifyInvoiceCreated, data, short)
}

func (n *Notifier) load(ctx context.Context, op, estimateID string) (*domain.Estimate, *domain.Owner, error) {
	ownerID, err := domain.RequireOwnerID(ctx, op)
	if err != nil {
		return nil, nil, err
	}

	e, err := loadEstimate(ctx, n.repo, op, ownerID, estimateID)
	if err != nil {
		return nil, nil, err
	}

	row, err := n.repo.GetOwner(ctx, postgres.UUID(ownerID))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, nil, domain.NotFound(op, "owner", ownerID.String())
		}
		return nil, nil, domain.Internal(err, op, "failed to load owner")
	}
	return e, postgres.MapOwner(row), nil
}

func (n *Notifier) dispatch(ctx context.Context, op string, e *domain.Estimate, kind domain.NotificationType, data email.EmailTemplate, short string) (domain.DispatchResult, error) {
	html, text, err := n.renderer.Render(data)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to render "+data.TemplateName())
	}

	result := n.dispatcher.Dispatch(ctx, domain.Recipient{
		OwnerID:    e.OwnerID,
		EstimateID: e.ID,
		Name:       e.Client.Name,
		Email:      e.Client.Email,
		Phone:      e.Client.Phone,
	}, domain.Message{
		Type:    kind,
		Subject: data.Subject(),
		HTML:    html,
		Text:    text,
		SMS:     short,
	})

	n.logger.Info("lifecycle notification dispatched",
		"type", kind,
		"estimate_id", e.ID,
		"email", result[domain.ChannelEmail],
		"sms", result[domain.ChannelSMS],
	)
	return result, nil
}

func (n *Notifier) shareURL(e *domain.Estimate) string {
	return n.baseURL + "/e/" + e.ShareToken
}
