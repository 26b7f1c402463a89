package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "layout.html"

// Service renders the embedded email templates and hands messages to a Sender.
type Service struct {
	sender      Sender
	fromAddress string
	fromName    string
	templates   map[string]*template.Template
}

// NewService creates a new email service
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Service{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
		templates:   templates,
	}, nil
}

// loadTemplates parses every page together with the shared layout. Each page
// gets its own set so their "content" blocks do not overwrite each other.
func loadTemplates() (map[string]*template.Template, error) {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := strings.TrimPrefix(page, "templates/")
		if name == layoutFile {
			continue
		}
		tmpl, err := template.ParseFS(templateFS, "templates/"+layoutFile, page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out[name] = tmpl
	}
	return out, nil
}

// Render executes a template and returns its HTML and plain text bodies.
func (s *Service) Render(data EmailTemplate) (string, string, error) {
	return s.renderTemplate(data.TemplateName(), data)
}

// SendMessage delivers pre-rendered content to a single address and returns
// the provider's message id.
func (s *Service) SendMessage(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	if to == "" {
		return "", ErrNoRecipient
	}

	email := &Email{
		To:       []string{to},
		From:     s.from(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	id, err := s.sender.Send(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to send %q: %w", subject, err)
	}
	return id, nil
}

// SendTemplate renders data and delivers it to a single address.
func (s *Service) SendTemplate(ctx context.Context, to string, data EmailTemplate) (string, error) {
	htmlBody, textBody, err := s.Render(data)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", data.TemplateName(), err)
	}
	return s.SendMessage(ctx, to, data.Subject(), htmlBody, textBody)
}

func (s *Service) from() string {
	if s.fromName == "" {
		return s.fromAddress
	}
	return fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
}

// Helper method to render a template
func (s *Service) renderTemplate(templateName string, data interface{}) (string, string, error) {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return "", "", ErrTemplateNotFound(templateName)
	}

	var htmlBuf bytes.Buffer
	err := tmpl.ExecuteTemplate(&htmlBuf, "email_layout", data)
	if err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	htmlBody := htmlBuf.String()

	plainText := generatePlainText(htmlBody)

	return htmlBody, plainText, nil
}

// generatePlainText creates a simple plain text version from HTML
func generatePlainText(html string) string {
	text := html

	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n\n")
	text = strings.ReplaceAll(text, "</div>", "\n")
	text = strings.ReplaceAll(text, "</tr>", "\n")
	text = strings.ReplaceAll(text, "</td>", " ")
	text = strings.ReplaceAll(text, "</h1>", "\n\n")
	text = strings.ReplaceAll(text, "</h2>", "\n\n")
	text = strings.ReplaceAll(text, "</h3>", "\n\n")

	for strings.Contains(text, "<") && strings.Contains(text, ">") {
		start := strings.Index(text, "<")
		end := strings.Index(text, ">")
		if start >= 0 && end > start {
			text = text[:start] + text[end+1:]
		} else {
			break
		}
	}

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&#34;", "\"")
	text = strings.ReplaceAll(text, "&#39;", "'")

	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
