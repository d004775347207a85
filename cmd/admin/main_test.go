package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"prices", "--promo", "bni"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 9)
	assert.Contains(t, lines[0], "USER TYPE")

	var discounted string
	for _, l := range lines {
		if strings.HasPrefix(l, "new") && strings.Contains(l, "full") {
			discounted = l
		}
	}
	assert.Equal(t, []string{"new", "full", "10000", "7000"}, strings.Fields(discounted))
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"create-admin", "--email", "a@example.com"})
	assert.Error(t, cmd.Execute())
}

func TestCreateAdminRejectsUnknownRole(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"create-admin", "--email", "a@example.com", "--password", "long-enough", "--name", "A", "--role", "owner"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid role")
}
