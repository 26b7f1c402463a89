package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/email"
	"github.com/dukerupert/bidwell/internal/repository/repotest"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) SendMessage(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, to)
	return "pm-1", nil
}

type fakeTexter struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (s *fakeTexter) Send(ctx context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.bodies = append(s.bodies, body)
	return "SM123", nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []*email.Email
}

func (r *recordingSender) Send(ctx context.Context, e *email.Email) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return "msg-1", nil
}

func testRecipient(phone string) domain.Recipient {
	return domain.Recipient{
		OwnerID:    uuid.New(),
		EstimateID: uuid.New(),
		Name:       "Dana Client",
		Email:      "dana@example.com",
		Phone:      phone,
	}
}

func testMessage() domain.Message {
	return domain.Message{
		Type:    domain.NotifyPaymentReminder,
		Subject: "A quick reminder",
		Text:    "Hi Dana, $400.00 is past due.",
		SMS:     "Hi Dana, $400.00 is past due.",
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name      string
		phone     string
		mailErr   error
		smsErr    error
		noTexter  bool
		wantEmail domain.NotificationStatus
		wantSMS   domain.NotificationStatus
	}{
		{name: "both channels", phone: "+15552223333", wantEmail: domain.NotificationSent, wantSMS: domain.NotificationSent},
		{name: "invalid phone skips sms", phone: "555-2233", wantEmail: domain.NotificationSent, wantSMS: domain.NotificationSkipped},
		{name: "no phone", phone: "", wantEmail: domain.NotificationSent, wantSMS: domain.NotificationSkipped},
		{name: "email provider down", phone: "+15552223333", mailErr: errors.New("503"), wantEmail: domain.NotificationFailed, wantSMS: domain.NotificationSent},
		{name: "sms provider down", phone: "+15552223333", smsErr: errors.New("21610"), wantEmail: domain.NotificationSent, wantSMS: domain.NotificationFailed},
		{name: "sms not configured", phone: "+15552223333", noTexter: true, wantEmail: domain.NotificationSent, wantSMS: domain.NotificationSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.New()
			mailer := &fakeMailer{err: tt.mailErr}
			texter := &fakeTexter{err: tt.smsErr}

			var d domain.Dispatcher
			if tt.noTexter {
				d = NewDispatcher(store, mailer, nil, testLogger())
			} else {
				d = NewDispatcher(store, mailer, texter, testLogger())
			}

			result := d.Dispatch(context.Background(), testRecipient(tt.phone), testMessage())

			assert.Equal(t, tt.wantEmail, result[domain.ChannelEmail])
			assert.Equal(t, tt.wantSMS, result[domain.ChannelSMS])

			logs := store.NotificationLogs()
			require.Len(t, logs, 2, "every attempt is logged")
			byChannel := map[string]string{}
			for _, l := range logs {
				byChannel[l.Channel] = l.Status
				assert.NotEmpty(t, l.CorrelationID)
				assert.Equal(t, string(domain.NotifyPaymentReminder), l.NotificationType)
				if l.Status == string(domain.NotificationFailed) {
					assert.True(t, l.Error.Valid)
				}
			}
			assert.Equal(t, string(tt.wantEmail), byChannel["email"])
			assert.Equal(t, string(tt.wantSMS), byChannel["sms"])
		})
	}
}

func TestDispatcher_Send_ClampsSMS(t *testing.T) {
	store := repotest.New()
	texter := &fakeTexter{}
	d := NewDispatcher(store, nil, texter, testLogger())

	msg := testMessage()
	msg.SMS = strings.Repeat("x", 400)

	status := d.Send(context.Background(), testRecipient("+15552223333"), domain.ChannelSMS, msg)

	assert.Equal(t, domain.NotificationSent, status)
	require.Len(t, texter.bodies, 1)
	assert.Len(t, []rune(texter.bodies[0]), 160)
	assert.True(t, strings.HasSuffix(texter.bodies[0], "..."))

	logs := store.NotificationLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "SM123", logs[0].ProviderMessageID.String)
}

func TestDispatcher_Send_FallsBackToText(t *testing.T) {
	texter := &fakeTexter{}
	d := NewDispatcher(repotest.New(), nil, texter, testLogger())

	msg := testMessage()
	msg.SMS = ""

	d.Send(context.Background(), testRecipient("+15552223333"), domain.ChannelSMS, msg)

	require.Len(t, texter.bodies, 1)
	assert.Equal(t, msg.Text, texter.bodies[0])
}

func TestDispatcher_Send_LogFailureDoesNotChangeStatus(t *testing.T) {
	store := repotest.New()
	store.FailOn("CreateNotificationLog", errors.New("connection reset"))
	d := NewDispatcher(store, &fakeMailer{}, nil, testLogger())

	status := d.Send(context.Background(), testRecipient(""), domain.ChannelEmail, testMessage())

	assert.Equal(t, domain.NotificationSent, status)
	assert.Empty(t, store.NotificationLogs())
}

func notifierFixture(t *testing.T) (*fixture, *recordingDispatcher, *Notifier) {
	t.Helper()
	f := newFixture(t)
	renderer, err := email.NewService(&recordingSender{}, "billing@rupert.test", "Rupert Renovations")
	require.NoError(t, err)
	d := &recordingDispatcher{}
	return f, d, NewNotifier(f.store, d, renderer, "https://app.test", testLogger())
}

func TestNotifier_EstimateSent(t *testing.T) {
	f, d, n := notifierFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))

	result, err := n.EstimateSent(f.ctx, e.ID.String())

	require.NoError(t, err)
	assert.Equal(t, domain.NotificationSent, result[domain.ChannelEmail])

	sent := d.sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, domain.NotifyEstimateSent, msg.Type)
	assert.Equal(t, "Your estimate from Rupert Renovations", msg.Subject)
	assert.Contains(t, msg.HTML, "$1080.00")
	assert.Contains(t, msg.HTML, "$324.00")
	assert.Contains(t, msg.HTML, "https://app.test/e/"+e.ShareToken)
	assert.NotEmpty(t, msg.Text)
	assert.Contains(t, msg.SMS, "https://app.test/e/"+e.ShareToken)

	require.Len(t, d.to, 1)
	assert.Equal(t, "dana@example.com", d.to[0].Email)
	assert.Equal(t, e.ID, d.to[0].EstimateID)
}

func TestNotifier_InvoiceCreated(t *testing.T) {
	f, d, n := notifierFixture(t)
	e := f.sentEstimate(t, thousandDollarJob(domain.DepositSpec{Type: domain.DepositPercent, Value: dec("30")}))
	_, err := f.estimates.ConfirmDeposit(context.Background(), domain.DepositPayment{ShareToken: e.ShareToken, AmountCents: 32400})
	require.NoError(t, err)
	_, err = f.conversion.Convert(f.ctx, e.ID.String())
	require.NoError(t, err)

	_, err = n.InvoiceCreated(f.ctx, e.ID.String(), nil)

	require.NoError(t, err)
	sent := d.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Invoice INV-0001 from Rupert Renovations", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "Kitchen remodel")
	assert.Contains(t, sent[0].HTML, "$324.00")
	assert.Contains(t, sent[0].HTML, "$756.00")
}

func TestNotifier_InvoiceCreated_Missing(t *testing.T) {
	f, d, n := notifierFixture(t)
	e := f.acceptedEstimate(t)
	second := int32(2)

	_, err := n.InvoiceCreated(f.ctx, e.ID.String(), &second)

	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
	assert.Empty(t, d.sent())
}

func TestNotifier_RequiresOwner(t *testing.T) {
	f, _, n := notifierFixture(t)
	e := f.createEstimate(t, thousandDollarJob(domain.DepositSpec{}))

	_, err := n.DepositReceived(context.Background(), e.ID.String())

	assert.True(t, domain.IsCode(err, domain.EUNAUTHORIZED))
}
