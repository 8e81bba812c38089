package telegram

import (
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestIsUnreachable_Forbidden(t *testing.T) {
	cases := []*tgbotapi.Error{
		{Code: 403, Message: "Forbidden: bot was blocked by the user"},
		{Code: 403, Message: "Forbidden: user is deactivated"},
		{Code: 400, Message: "Bad Request: chat not found"},
	}
	for _, apiErr := range cases {
		if !isUnreachable(apiErr) {
			t.Errorf("expected unreachable for %q", apiErr.Message)
		}
	}
}

func TestIsUnreachable_WrappedError(t *testing.T) {
	apiErr := &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	wrapped := fmt.Errorf("send failed: %w", apiErr)

	if !isUnreachable(wrapped) {
		t.Error("classification must see through wrapping")
	}
}

func TestIsUnreachable_TransientErrors(t *testing.T) {
	cases := []error{
		&tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 5"},
		&tgbotapi.Error{Code: 400, Message: "Bad Request: message is too long"},
		errors.New("dial tcp: connection refused"),
	}
	for _, err := range cases {
		if isUnreachable(err) {
			t.Errorf("transient error misclassified as unreachable: %v", err)
		}
	}
}

func TestExtractContent(t *testing.T) {
	if got := extractContent(&tgbotapi.Message{Text: "hi"}); got != "hi" {
		t.Errorf("expected text, got %q", got)
	}
	if got := extractContent(&tgbotapi.Message{Caption: "nice photo"}); got != "nice photo" {
		t.Errorf("expected caption fallback, got %q", got)
	}
	if got := extractContent(&tgbotapi.Message{}); got != "" {
		t.Errorf("expected empty for bare media, got %q", got)
	}
}
