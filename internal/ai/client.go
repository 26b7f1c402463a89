// Package ai rewrites reminder copy through an OpenAI-compatible chat
// completions endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmptyCompletion is returned when the model answers with nothing usable.
var ErrEmptyCompletion = errors.New("ai: empty completion")

// Request is the context a reminder is personalized with.
type Request struct {
	Tone         string
	BusinessName string
	ClientName   string
	Amount       string
	DaysOverdue  int32
	PaymentLink  string
	// Draft is the deterministic template text the model starts from.
	Draft string
}

// Personalizer rewrites a reminder draft.
type Personalizer interface {
	Personalize(ctx context.Context, req Request) (string, error)
}

// Client calls POST {baseURL}/chat/completions.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

var _ Personalizer = (*Client)(nil)

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithTransport replaces the round tripper used for completions.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.httpClient.Transport = rt
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = `You rewrite payment reminders for a small contracting business.
Keep the requested tone, keep every amount and link exactly as given, and do not invent
new facts, discounts or deadlines. Reply with the message body only, under 120 words.`

// Personalize returns a rewritten reminder body. The payment link is
// appended when the model drops it.
func (c *Client) Personalize(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		MaxTokens:   300,
		Temperature: 0.4,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, msg)
	}

	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	if req.PaymentLink != "" && !strings.Contains(content, req.PaymentLink) {
		content += "\n\n" + req.PaymentLink
	}
	return content, nil
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	fmt.Fprintf(&b, "Business: %s\n", req.BusinessName)
	fmt.Fprintf(&b, "Client: %s\n", req.ClientName)
	fmt.Fprintf(&b, "Amount due: %s\n", req.Amount)
	fmt.Fprintf(&b, "Days overdue: %d\n", req.DaysOverdue)
	fmt.Fprintf(&b, "Payment link: %s\n\n", req.PaymentLink)
	b.WriteString("Draft:\n")
	b.WriteString(req.Draft)
	return b.String()
}
