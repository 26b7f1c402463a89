package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []*Email
	err  error
}

func (r *recordingSender) Send(ctx context.Context, email *Email) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, email)
	return "msg-1", nil
}

func TestService_Render_AllTemplates(t *testing.T) {
	svc, err := NewService(&recordingSender{}, "billing@hammer.test", "Hammer & Sons")
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     EmailTemplate
		contains []string
	}{
		{
			name: "estimate sent with deposit",
			data: EstimateSentEmail{
				BusinessName: "Hammer & Sons", ClientName: "Dana", EstimateNumber: 42,
				Total: "$1080.00", Deposit: "$324.00", ShareURL: "https://app.test/e/tok",
			},
			contains: []string{"Dana", "$1080.00", "$324.00", "https://app.test/e/tok"},
		},
		{
			name: "deposit received",
			data: DepositReceivedEmail{
				BusinessName: "Hammer & Sons", ClientName: "Dana", EstimateNumber: 42,
				Amount: "$324.00", PaidAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
			},
			contains: []string{"$324.00", "March 4, 2026"},
		},
		{
			name: "invoice created",
			data: InvoiceCreatedEmail{
				BusinessName: "Hammer & Sons", ClientName: "Dana", InvoiceNumber: "INV-0042",
				Items:    []InvoiceLine{{Description: "Kitchen remodel", Quantity: "1", UnitRate: "$1000.00"}},
				Subtotal: "$1000.00", Tax: "$80.00", Total: "$1080.00", AmountPaid: "$324.00", BalanceDue: "$756.00",
			},
			contains: []string{"INV-0042", "Kitchen remodel", "Balance due: $756.00", "Paid to date: $324.00"},
		},
		{
			name: "payment reminder",
			data: PaymentReminderEmail{
				BusinessName: "Hammer & Sons", Heading: "Friendly reminder", SubjectLine: "Reminder",
				Paragraphs: []string{"Hi Dana,", "Just a nudge."}, PaymentURL: "https://app.test/e/tok",
			},
			contains: []string{"Friendly reminder", "Just a nudge.", "Pay now"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			htmlBody, textBody, err := svc.Render(tt.data)
			require.NoError(t, err)
			assert.Contains(t, htmlBody, "<h2>")
			for _, want := range tt.contains {
				assert.Contains(t, textBody, want)
			}
			assert.Contains(t, textBody, "Sent on behalf of Hammer & Sons")
		})
	}
}

func TestService_SendMessage(t *testing.T) {
	sender := &recordingSender{}
	svc, err := NewService(sender, "billing@hammer.test", "Hammer & Sons")
	require.NoError(t, err)

	id, err := svc.SendMessage(context.Background(), "dana@example.com", "Hello", "<p>Hi</p>", "Hi")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Hammer & Sons <billing@hammer.test>", sender.sent[0].From)
	assert.Equal(t, []string{"dana@example.com"}, sender.sent[0].To)

	_, err = svc.SendMessage(context.Background(), "", "Hello", "", "Hi")
	assert.ErrorIs(t, err, ErrNoRecipient)

	sender.err = errors.New("smtp down")
	_, err = svc.SendMessage(context.Background(), "dana@example.com", "Hello", "", "Hi")
	assert.Error(t, err)
}

func TestPostmarkSender_Send(t *testing.T) {
	var got postmarkEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/email", r.URL.Path)
		assert.Equal(t, "token-1", r.Header.Get("X-Postmark-Server-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"To":"dana@example.com","MessageID":"pm-123","ErrorCode":0,"Message":"OK"}`))
	}))
	defer server.Close()

	sender := NewPostmarkSender("token-1").WithBaseURL(server.URL)
	id, err := sender.Send(context.Background(), &Email{
		To: []string{"dana@example.com"}, From: "billing@hammer.test", Subject: "Invoice", TextBody: "Hi",
	})

	require.NoError(t, err)
	assert.Equal(t, "pm-123", id)
	assert.Equal(t, "dana@example.com", got.To)
	assert.Equal(t, "Invoice", got.Subject)
}

func TestPostmarkSender_Send_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer server.Close()

	_, err := NewPostmarkSender("token-1").WithBaseURL(server.URL).Send(context.Background(), &Email{
		To: []string{"dana@example.com"}, Subject: "Invoice",
	})

	var emailErr *EmailError
	require.ErrorAs(t, err, &emailErr)
	assert.Equal(t, codeInternal, emailErr.ErrorCode())
}

func TestGeneratePlainText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name:     "simple paragraph",
			html:     "<p>Hello, World!</p>",
			contains: []string{"Hello, World!"},
			excludes: []string{"<p>", "</p>"},
		},
		{
			name:     "line breaks",
			html:     "Line 1<br>Line 2<br/>Line 3<br />Line 4",
			contains: []string{"Line 1", "Line 2", "Line 3", "Line 4"},
			excludes: []string{"<br>", "<br/>", "<br />"},
		},
		{
			name:     "headings",
			html:     "<h1>Title</h1><h2>Subtitle</h2><h3>Section</h3>",
			contains: []string{"Title", "Subtitle", "Section"},
			excludes: []string{"<h1>", "</h1>", "<h2>", "</h2>", "<h3>", "</h3>"},
		},
		{
			name:     "nested tags",
			html:     "<div><p><strong>Bold text</strong> and <em>italic</em></p></div>",
			contains: []string{"Bold text", "and", "italic"},
			excludes: []string{"<div>", "<p>", "<strong>", "<em>"},
		},
		{
			name:     "HTML entities",
			html:     "Price: $10 &amp; shipping &nbsp; included &lt;$5&gt; &quot;free&quot;",
			contains: []string{"Price: $10 & shipping", "included <$5>", "\"free\""},
			excludes: []string{"&amp;", "&nbsp;", "&lt;", "&gt;", "&quot;"},
		},
		{
			name:     "links stripped",
			html:     `<a href="https://example.com">Click here</a>`,
			contains: []string{"Click here"},
			excludes: []string{"<a", "href", "</a>"},
		},
		{
			name:     "empty content",
			html:     "",
			contains: []string{},
			excludes: []string{},
		},
		{
			name: "email template structure",
			html: `
				<div class="email-content">
					<h2>Welcome!</h2>
					<p>Thank you for signing up.</p>
					<p>Click <a href="https://example.com/verify">here</a> to verify.</p>
				</div>
			`,
			contains: []string{"Welcome!", "Thank you for signing up", "here", "to verify"},
			excludes: []string{"<div", "<h2>", "<p>", "<a href"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := generatePlainText(tt.html)

			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("generatePlainText() result should contain %q, got: %q", want, result)
				}
			}

			for _, exclude := range tt.excludes {
				if strings.Contains(result, exclude) {
					t.Errorf("generatePlainText() result should not contain %q, got: %q", exclude, result)
				}
			}
		})
	}
}

func TestGeneratePlainText_WhitespaceHandling(t *testing.T) {
	html := `
		<p>   Line with spaces   </p>
		<p></p>
		<p>Another line</p>
	`

	result := generatePlainText(html)

	// Should not have empty lines (they get filtered)
	lines := strings.Split(result, "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" && line != "" {
			t.Error("generatePlainText() should not have blank lines with only whitespace")
		}
	}

	// Should contain the actual content
	if !strings.Contains(result, "Line with spaces") {
		t.Error("generatePlainText() should contain trimmed content")
	}
	if !strings.Contains(result, "Another line") {
		t.Error("generatePlainText() should contain 'Another line'")
	}
}
