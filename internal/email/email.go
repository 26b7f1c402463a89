package email

import "context"

// Email is a rendered message ready for a provider.
type Email struct {
	To       []string
	From     string
	Subject  string
	TextBody string
	HTMLBody string // optional
}

// Sender delivers an Email and returns the provider's message id, if any.
// SMTPSender and PostmarkSender implement it.
type Sender interface {
	Send(ctx context.Context, email *Email) (string, error)
}
