// Package sms sends text messages through Twilio's REST API.
package sms

import (
	"context"
	"errors"
	"regexp"
	"unicode/utf8"
)

// MaxLength is the single-segment limit messages are clamped to.
const MaxLength = 160

var e164 = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// ErrInvalidNumber is returned for numbers that are not E.164.
var ErrInvalidNumber = errors.New("sms: phone number is not E.164")

// Sender delivers a text message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// ValidNumber reports whether phone is in E.164 form, e.g. +15551234567.
func ValidNumber(phone string) bool {
	return e164.MatchString(phone)
}

// Clamp shortens body to MaxLength characters, marking the cut with "...".
func Clamp(body string) string {
	if utf8.RuneCountInString(body) <= MaxLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:MaxLength-3]) + "..."
}
