package sender

import (
	"context"
	"time"
)

// Message is one outbound email. A non-nil SendAt asks the provider to hold
// delivery until that instant; the delay lives in the message data, not in a
// blocking wait on our side.
type Message struct {
	To      string
	Subject string
	HTML    string
	SendAt  *time.Time
}

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender dispatches emails through a provider. Cancel is best-effort:
// providers may refuse to recall a message that has already left the queue.
type EmailSender interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
	Cancel(ctx context.Context, messageID string) error
}
