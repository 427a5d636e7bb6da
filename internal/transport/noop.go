package transport

import (
	"context"

	"github.com/ironlady/newsletter-platform/internal/pkg/logger"
)

// NoopTransport logs instead of sending. Used in development and when no
// mail provider is configured.
type NoopTransport struct{}

// Send logs the would-be delivery with the recipient address redacted.
func (NoopTransport) Send(_ context.Context, msg Message) error {
	logger.Info("email would be sent (noop)", "recipient", msg.To, "subject", msg.Subject)
	return nil
}
