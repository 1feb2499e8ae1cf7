package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/pricing-pipeline/internal/common"
)

// EmailNotifier sends messages as plain emails through an EmailSender.
type EmailNotifier struct {
	Mail    common.EmailSender
	From    string
	Subject string
}

// Send implements Notifier.
func (n EmailNotifier) Send(_ context.Context, to, message string) error {
	if n.Mail == nil {
		return errors.New("email notify: sender not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("email notify: recipient is required")
	}
	if err := n.Mail.Send(to, n.subject(), n.body(message)); err != nil {
		return fmt.Errorf("email notify: %w", err)
	}
	return nil
}

func (n EmailNotifier) subject() string {
	if s := strings.TrimSpace(n.Subject); s != "" {
		return s
	}
	return "Order update"
}

func (n EmailNotifier) body(message string) string {
	if from := strings.TrimSpace(n.From); from != "" {
		return message + "\n\n-- " + from
	}
	return message
}
