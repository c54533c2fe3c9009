package main

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "clinica/internal/http"
	"clinica/internal/ledger/memory"
	"clinica/internal/log"
)

func setEnv(t *testing.T, apiBaseURL string) {
	t.Helper()
	t.Setenv("PORT", "3000")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("SEED_FILE", "")
	t.Setenv("AMQP_URL", "")
	t.Setenv("INSIGHT_PROVIDER", "gemini")
	t.Setenv("INSIGHT_BASE_URL", "")
	t.Setenv("API_KEY", "")
	t.Setenv("SYNC_BATCH_SIZE", "")
	t.Setenv("SYNC_INTERVAL", "")
	t.Setenv("API_BASE_URL", apiBaseURL)
	t.Setenv("CACHE_DIR", t.TempDir())
}

func deadURL(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()
	return url
}

func runCmd(t *testing.T, command string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(command, args, &out, log.Discard())
	return out.String(), err
}

func TestRun_Categories(t *testing.T) {
	out, err := runCmd(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "Visite Specialistiche")
	assert.Contains(t, out, "Affitto e Struttura")
}

func TestRun_LocalFallbackPersistsAcrossRuns(t *testing.T) {
	setEnv(t, deadURL(t))

	out, err := runCmd(t, "add", "-amount", "80,50", "-description", "Guanti", "-type", "expense")
	require.NoError(t, err)
	assert.Contains(t, out, "mode: local")
	assert.Contains(t, out, "recorded (1 transactions)")

	out, err = runCmd(t, "list", "-type", "EXPENSE")
	require.NoError(t, err)
	assert.Contains(t, out, "Guanti")
	assert.Contains(t, out, "-€ 80.50")
	assert.Contains(t, out, "1 of 1 transactions")

	out, err = runCmd(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Expense")
	assert.Contains(t, out, "Affitto e Struttura")
}

func TestRun_AddIncompleteDraft(t *testing.T) {
	setEnv(t, deadURL(t))

	_, err := runCmd(t, "add", "-amount", "0", "-description", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-amount")
}

func TestRun_AddRejectsBadTypeAndDate(t *testing.T) {
	setEnv(t, deadURL(t))

	_, err := runCmd(t, "add", "-amount", "10", "-description", "x", "-type", "LOAN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-type")

	_, err = runCmd(t, "add", "-amount", "10", "-description", "x", "-date", "03/01/2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-date")

	out, err := runCmd(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 0 transactions")
}

func TestRun_RemoteList(t *testing.T) {
	api := apphttp.NewServer(":0", apphttp.Options{Store: memory.New(memory.Seed()), Logger: log.Discard()})
	ts := httptest.NewServer(api.Handler)
	t.Cleanup(ts.Close)
	setEnv(t, ts.URL)

	out, err := runCmd(t, "list", "-search", "affitto")
	require.NoError(t, err)
	assert.Contains(t, out, "mode: remote")
	assert.Contains(t, out, "1 of 2 transactions")

	out, err = runCmd(t, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 (1 transactions)")
}

func TestRun_UnknownCommand(t *testing.T) {
	setEnv(t, deadURL(t))

	_, err := runCmd(t, "frobnicate")
	assert.Error(t, err)
}

func TestRun_InsightWithoutKey(t *testing.T) {
	setEnv(t, deadURL(t))

	out, err := runCmd(t, "insight")
	require.NoError(t, err)
	assert.Contains(t, out, "no transactions to analyze")
}
