package worker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/notifications"
	"github.com/stride-coaching/backend/pkg/queue"
)

type memLogs struct {
	mu   sync.Mutex
	logs []models.NotificationLog
}

func (m *memLogs) Create(_ context.Context, l *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *l)
	return nil
}

type memQueue struct {
	mu      sync.Mutex
	pending []*queue.Job
	retried []*queue.Job
}

func (q *memQueue) Dequeue(ctx context.Context) (*queue.Job, string, error) {
	q.mu.Lock()
	if len(q.pending) > 0 {
		job := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()
		return job, queue.QueueNotifications, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return nil, "", ctx.Err()
}

func (q *memQueue) Retry(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Attempt++
	q.retried = append(q.retried, job)
	return nil
}

func webhookJob(t *testing.T, url string) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeWebhook, queue.WebhookPayload{
		EventType: models.NotifyRegistrationCreated,
		TargetURL: url,
		Body:      json.RawMessage(`{"event":"registration.created"}`),
	})
	require.NoError(t, err)
	return job
}

func TestProcessDeliversSignedBody(t *testing.T) {
	var gotSig, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotSig = r.Header.Get(notifications.SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	logs := &memLogs{}
	p := NewNotificationProcessor(logs, &memQueue{}, srv.Client(), "s3cret", nil)
	require.NoError(t, p.Process(context.Background(), webhookJob(t, srv.URL)))

	assert.Equal(t, `{"event":"registration.created"}`, gotBody)
	assert.True(t, notifications.Verify("s3cret", []byte(gotBody), gotSig))
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.NotificationSent, logs.logs[0].Status)
	assert.Equal(t, http.StatusNoContent, logs.logs[0].ResponseCode)
	assert.Equal(t, 1, logs.logs[0].Attempt)
	assert.NotNil(t, logs.logs[0].SentAt)
}

func TestProcessLogsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	logs := &memLogs{}
	p := NewNotificationProcessor(logs, &memQueue{}, srv.Client(), "", nil)
	err := p.Process(context.Background(), webhookJob(t, srv.URL))
	require.Error(t, err)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.NotificationFailed, logs.logs[0].Status)
	assert.Equal(t, http.StatusBadGateway, logs.logs[0].ResponseCode)
	assert.Contains(t, logs.logs[0].ErrorMessage, "502")
}

func TestProcessRejectsUnknownJob(t *testing.T) {
	p := NewNotificationProcessor(&memLogs{}, &memQueue{}, nil, "", nil)
	err := p.Process(context.Background(), &queue.Job{Type: "email"})
	assert.Error(t, err)
}

func TestRunRetriesFailedJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	q := &memQueue{pending: []*queue.Job{webhookJob(t, srv.URL)}}
	p := NewNotificationProcessor(&memLogs{}, q, srv.Client(), "", nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.retried) == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, q.retried[0].Attempt)
}
