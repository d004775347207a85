package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobWrapsPayload(t *testing.T) {
	ref := uuid.New()
	job, err := NewJob(JobTypeWebhook, WebhookPayload{
		EventType:   "registration.created",
		TargetURL:   "https://hook.example.com",
		ReferenceID: &ref,
		Body:        json.RawMessage(`{"code":"REG-0000ABCD"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobTypeWebhook, job.Type)
	assert.Zero(t, job.Attempt)

	var got WebhookPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, "registration.created", got.EventType)
	assert.Equal(t, ref, *got.ReferenceID)
	assert.JSONEq(t, `{"code":"REG-0000ABCD"}`, string(got.Body))
}
