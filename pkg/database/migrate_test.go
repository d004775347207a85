package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestSchemaDefinesCoreTables(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	schema := string(raw)
	for _, table := range []string{
		"users", "course_sessions", "course_registrations", "events", "event_registrations",
		"promo_codes", "payments", "posts", "contacts", "notification_logs",
	} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" "), "missing table %s", table)
	}
}

func TestFailedEventRegistrationFreesEmail(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	assert.Contains(t, names, "002_event_registration_retry.sql")

	raw, err := migrationsFS.ReadFile("migrations/002_event_registration_retry.sql")
	require.NoError(t, err)
	sql := string(raw)
	assert.Contains(t, sql, "DROP CONSTRAINT IF EXISTS event_registrations_event_id_email_key")
	assert.Contains(t, sql, "WHERE payment_status <> 'failed'")
}
