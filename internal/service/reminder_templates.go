package service

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/sms"
)

type reminderTemplate struct {
	subject *template.Template
	body    *template.Template
	sms     *template.Template
}

func mustReminderTemplate(tone domain.Tone, subject, body, short string) reminderTemplate {
	name := string(tone)
	return reminderTemplate{
		subject: template.Must(template.New(name + "_subject").Parse(subject)),
		body:    template.Must(template.New(name + "_body").Parse(body)),
		sms:     template.Must(template.New(name + "_sms").Parse(short)),
	}
}

var reminderTemplates = map[domain.Tone]reminderTemplate{
	domain.ToneFriendly: mustReminderTemplate(domain.ToneFriendly,
		`A quick reminder from {{.BusinessName}}`,
		`Hi {{.ClientName}},

Just a friendly note that {{.Amount}} for {{.Label}} is now {{.DaysOverdue}} {{if eq .DaysOverdue 1}}day{{else}}days{{end}} past due.

If you have already paid, thank you and please ignore this message. Otherwise you can pay here:
{{.PaymentLink}}

Thanks,
{{.BusinessName}}`,
		`Hi {{.ClientName}}, a reminder that {{.Amount}} is {{.DaysOverdue}}d past due. Pay here: {{.PaymentLink}}`,
	),
	domain.ToneFirm: mustReminderTemplate(domain.ToneFirm,
		`Payment overdue: {{.Amount}} for {{.Label}}`,
		`{{.ClientName}},

Our records show {{.Amount}} for {{.Label}} is {{.DaysOverdue}} {{if eq .DaysOverdue 1}}day{{else}}days{{end}} overdue. Please pay the outstanding balance now:
{{.PaymentLink}}

Work may be paused until the balance is settled.

{{.BusinessName}}`,
		`{{.ClientName}}: {{.Amount}} is {{.DaysOverdue}}d overdue. Please pay now: {{.PaymentLink}}`,
	),
	domain.ToneProfessional: mustReminderTemplate(domain.ToneProfessional,
		`Payment reminder from {{.BusinessName}}`,
		`Dear {{.ClientName}},

This is a reminder that payment of {{.Amount}} for {{.Label}} was due {{.DaysOverdue}} {{if eq .DaysOverdue 1}}day{{else}}days{{end}} ago.

You can review and settle the balance at:
{{.PaymentLink}}

Kind regards,
{{.BusinessName}}`,
		`{{.BusinessName}}: payment of {{.Amount}} is {{.DaysOverdue}}d past due. {{.PaymentLink}}`,
	),
}

// RenderReminder fills the fixed template for tone. The SMS variant is
// clamped to a single segment.
func RenderReminder(tone domain.Tone, data domain.ReminderData) (domain.ReminderMessage, error) {
	tmpl, ok := reminderTemplates[tone]
	if !ok {
		return domain.ReminderMessage{}, fmt.Errorf("unknown reminder tone %q", tone)
	}

	subject, err := execute(tmpl.subject, data)
	if err != nil {
		return domain.ReminderMessage{}, err
	}
	body, err := execute(tmpl.body, data)
	if err != nil {
		return domain.ReminderMessage{}, err
	}
	short, err := renderSMS(tmpl.sms, data)
	if err != nil {
		return domain.ReminderMessage{}, err
	}

	return domain.ReminderMessage{
		Subject: subject,
		Text:    body,
		SMS:     short,
		Tone:    tone,
	}, nil
}

// renderSMS fits the text message into one segment by trimming the names
// that precede the payment link, so the link itself is never cut.
func renderSMS(t *template.Template, data domain.ReminderData) (string, error) {
	for {
		short, err := execute(t, data)
		if err != nil {
			return "", err
		}
		over := utf8.RuneCountInString(short) - sms.MaxLength
		if over <= 0 {
			return short, nil
		}
		if !trimLongestName(&data, over) {
			return sms.Clamp(short), nil
		}
	}
}

// trimLongestName drops up to n characters from the longer of the client
// and business names. It reports false once both are empty.
func trimLongestName(data *domain.ReminderData, n int) bool {
	name := &data.ClientName
	if utf8.RuneCountInString(data.BusinessName) > utf8.RuneCountInString(data.ClientName) {
		name = &data.BusinessName
	}
	runes := []rune(*name)
	if len(runes) == 0 {
		return false
	}
	*name = strings.TrimSpace(string(runes[:max(len(runes)-n, 0)]))
	return true
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// paragraphs splits a plain text body on blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
