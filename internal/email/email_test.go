package email

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/felix-phuctran/base-be-go/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderVerification(t *testing.T) {
	body, err := render(verificationTmpl, map[string]string{"Name": "Alice", "Code": "123456"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "Alice") || !strings.Contains(body, "123456") {
		t.Errorf("body missing name or code: %q", body)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	body, err := render(welcomeTmpl, map[string]string{"Name": "<script>x</script>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("template must escape HTML in user-supplied values")
	}
}

func TestNewSender_Selection(t *testing.T) {
	logger := discardLogger()

	if _, ok := NewSender(&config.EmailConfig{Enabled: false}, logger).(*NopSender); !ok {
		t.Error("disabled config must yield NopSender")
	}
	if _, ok := NewSender(nil, logger).(*NopSender); !ok {
		t.Error("nil config must yield NopSender")
	}
	if _, ok := NewSender(&config.EmailConfig{Enabled: true, Host: "smtp.example.com", Port: 587}, logger).(*SMTPSender); !ok {
		t.Error("enabled config must yield SMTPSender")
	}
}

func TestNopSenderNeverFails(t *testing.T) {
	s := NewNopSender(discardLogger())
	ctx := context.Background()
	if err := s.SendVerification(ctx, "a@example.com", "Alice", "123456"); err != nil {
		t.Errorf("SendVerification: %v", err)
	}
	if err := s.SendWelcome(ctx, "a@example.com", "Alice"); err != nil {
		t.Errorf("SendWelcome: %v", err)
	}
}
