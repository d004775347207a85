package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/metrics"
	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/notifications"
	"github.com/stride-coaching/backend/pkg/queue"
)

// JobQueue is the part of the Redis queue the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// LogWriter records delivery attempts.
type LogWriter interface {
	Create(ctx context.Context, l *models.NotificationLog) error
}

// NotificationProcessor delivers webhook jobs: POST the signed body, log the attempt, retry on failure.
type NotificationProcessor struct {
	logs    LogWriter
	queue   JobQueue
	client  *http.Client
	secret  string
	backoff time.Duration
	logger  *zap.Logger
}

// NewNotificationProcessor creates a webhook delivery processor.
func NewNotificationProcessor(logs LogWriter, q JobQueue, client *http.Client, secret string, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NotificationProcessor{logs: logs, queue: q, client: client, secret: secret, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one webhook job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeWebhook {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.WebhookPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	code, sendErr := p.send(ctx, payload)

	entry := &models.NotificationLog{
		EventType:    payload.EventType,
		TargetURL:    payload.TargetURL,
		ReferenceID:  payload.ReferenceID,
		Payload:      payload.Body,
		Status:       models.NotificationSent,
		Attempt:      job.Attempt + 1,
		ResponseCode: code,
	}
	result := "sent"
	if sendErr != nil {
		entry.Status = models.NotificationFailed
		entry.ErrorMessage = sendErr.Error()
		result = "failed"
	} else {
		now := time.Now()
		entry.SentAt = &now
	}
	metrics.WebhookDeliveries.WithLabelValues(payload.EventType, result).Inc()
	if err := p.logs.Create(ctx, entry); err != nil {
		p.logger.Error("write notification log failed", zap.Error(err), zap.String("job_id", job.ID))
	}
	if sendErr != nil {
		return sendErr
	}

	p.logger.Info("webhook delivered",
		zap.String("job_id", job.ID),
		zap.String("event_type", payload.EventType),
		zap.String("target_url", payload.TargetURL),
		zap.Int("response_code", code))
	return nil
}

func (p *NotificationProcessor) send(ctx context.Context, payload queue.WebhookPayload) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, payload.TargetURL, bytes.NewReader(payload.Body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", payload.EventType)
	if p.secret != "" {
		req.Header.Set(notifications.SignatureHeader, notifications.Sign(p.secret, payload.Body))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook status: %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt+1), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, p.backoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
