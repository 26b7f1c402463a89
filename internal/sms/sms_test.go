package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidNumber(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+15551234567", true},
		{"+447911123456", true},
		{"+12345678", true},
		{"5551234567", false},
		{"+05551234567", false},
		{"+1 555 123 4567", false},
		{"+1234567", false},
		{"+1234567890123456", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidNumber(tt.phone))
		})
	}
}

func TestClamp(t *testing.T) {
	short := "Your deposit of $324.00 is due."
	assert.Equal(t, short, Clamp(short))

	exact := strings.Repeat("a", MaxLength)
	assert.Equal(t, exact, Clamp(exact))

	long := strings.Repeat("é", 200)
	clamped := Clamp(long)
	assert.Equal(t, MaxLength, utf8.RuneCountInString(clamped))
	assert.True(t, strings.HasSuffix(clamped, "..."))
}

func TestTwilioSender_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551234567", r.PostForm.Get("To"))
		assert.Equal(t, "+15550000000", r.PostForm.Get("From"))
		assert.Equal(t, MaxLength, utf8.RuneCountInString(r.PostForm.Get("Body")))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued","error_code":null}`))
	}))
	defer server.Close()

	sender := NewTwilioSender("AC123", "secret", "+15550000000", server.URL, nil)
	sid, err := sender.Send(context.Background(), "+15551234567", strings.Repeat("x", 300))

	require.NoError(t, err)
	assert.Equal(t, "SM1", sid)
}

func TestTwilioSender_Send_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer server.Close()

	sender := NewTwilioSender("AC123", "secret", "+15550000000", server.URL, nil)

	_, err := sender.Send(context.Background(), "+15551234567", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")

	_, err = sender.Send(context.Background(), "555-1234", "hi")
	assert.ErrorIs(t, err, ErrInvalidNumber)
}
