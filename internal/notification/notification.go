package notification

import (
	"context"
	"log/slog"
	"sync"
)

const (
	// KindTransferReceived tells a recipient that a peer transfer landed.
	KindTransferReceived = "transfer_received"
	// KindDepositSettled tells a depositor that their wallet was credited.
	KindDepositSettled = "deposit_settled"
	// KindDepositReview flags a deposit whose gateway amount did not match.
	KindDepositReview = "deposit_review"
)

// Message describes a notification payload. Destination is the user id of
// the recipient.
type Message struct {
	Kind        string
	Destination string
	Reference   string
	Amount      int64
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"reference", message.Reference,
		"amount", message.Amount,
		"body", message.Body,
	)
	return nil
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send appends the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns a copy of the recorded messages of the given kind, or all
// of them when kind is empty.
func (r *Recorder) Messages(kind string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.messages {
		if kind == "" || m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Deliver sends message and drops any failure after logging it, so that
// notification problems never reach the money path.
func Deliver(ctx context.Context, n Notifier, logger *slog.Logger, message Message) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, message); err != nil && logger != nil {
		logger.WarnContext(ctx, "notification failed", "kind", message.Kind, "reference", message.Reference, "error", err)
	}
}
