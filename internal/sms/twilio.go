package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioSender posts to the Messages resource of a Twilio account.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Sender = (*TwilioSender)(nil)

type twilioResponse struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

func NewTwilioSender(accountSID, authToken, from, baseURL string, logger *slog.Logger) *TwilioSender {
	if baseURL == "" {
		baseURL = twilioBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("sender", "twilio"),
	}
}

// WithTransport replaces the round tripper used for API calls.
func (t *TwilioSender) WithTransport(rt http.RoundTripper) *TwilioSender {
	t.httpClient.Transport = rt
	return t
}

// Send validates the destination, clamps the body and creates the message.
func (t *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if !ValidNumber(to) {
		return "", ErrInvalidNumber
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.from)
	form.Set("Body", Clamp(body))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr twilioError
		if err := json.Unmarshal(raw, &apiErr); err != nil {
			return "", fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, string(raw))
		}
		return "", fmt.Errorf("twilio error %d (status %d): %s", apiErr.Code, resp.StatusCode, apiErr.Message)
	}

	var parsed twilioResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.ErrorCode != nil {
		msg := ""
		if parsed.ErrorMessage != nil {
			msg = *parsed.ErrorMessage
		}
		return "", fmt.Errorf("twilio error %d: %s", *parsed.ErrorCode, msg)
	}

	t.logger.Debug("sms queued", "sid", parsed.SID, "status", parsed.Status)
	return parsed.SID, nil
}
