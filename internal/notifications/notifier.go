// Package notifications fans domain events out to configured webhook URLs through the job queue.
package notifications

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/pkg/queue"
)

// SignatureHeader carries the HMAC of the request body.
const SignatureHeader = "X-Signature"

// Enqueuer puts webhook jobs on the queue.
type Enqueuer interface {
	EnqueueWebhook(ctx context.Context, payload queue.WebhookPayload) error
}

// Envelope is the JSON body every webhook receives.
type Envelope struct {
	Event       string          `json:"event"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// Notifier enqueues one delivery job per configured URL.
type Notifier struct {
	queue  Enqueuer
	urls   []string
	logger *zap.Logger
	now    func() time.Time
}

// NewNotifier creates a notifier. With no URLs every call is a no-op.
func NewNotifier(q Enqueuer, urls []string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{queue: q, urls: urls, logger: logger, now: time.Now}
}

// Notify enqueues eventType with body. Failures are logged; callers never fail because of them.
func (n *Notifier) Notify(ctx context.Context, eventType string, referenceID *uuid.UUID, body interface{}) {
	if len(n.urls) == 0 {
		return
	}
	data, err := json.Marshal(body)
	if err != nil {
		n.logger.Error("marshal notification body", zap.Error(err), zap.String("event_type", eventType))
		return
	}
	env, err := json.Marshal(Envelope{Event: eventType, ReferenceID: referenceID, OccurredAt: n.now().UTC(), Data: data})
	if err != nil {
		n.logger.Error("marshal notification envelope", zap.Error(err), zap.String("event_type", eventType))
		return
	}
	for _, url := range n.urls {
		err := n.queue.EnqueueWebhook(ctx, queue.WebhookPayload{
			EventType:   eventType,
			TargetURL:   url,
			ReferenceID: referenceID,
			Body:        env,
		})
		if err != nil {
			n.logger.Error("enqueue webhook failed", zap.Error(err), zap.String("event_type", eventType), zap.String("target_url", url))
		}
	}
}

// Sign returns the X-Signature value for body: "sha256=" followed by the hex HMAC-SHA256.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
