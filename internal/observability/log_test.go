package observability

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futuressignalengine/internal/storedata"
)

func TestLogger_SignalCreatedAppendsOneLine(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(filepath.Join(dir, "signals.jsonl"), filepath.Join(dir, "scoring.jsonl"))
	require.NoError(t, err)
	defer logger.Close()

	err = logger.SignalCreated(&storedata.Signal{ID: "abc", Symbol: "BTCUSDT", Strategy: "BREAK_AND_RETEST", Direction: storedata.DirectionLong, Status: storedata.StatusPending})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "signals.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
		assert.Contains(t, scanner.Text(), `"signal_id":"abc"`)
	}
	assert.Equal(t, 1, lines)
}

func TestLogger_ScoringDecisionAppends(t *testing.T) {
	dir := t.TempDir()
	logger, err := Open(filepath.Join(dir, "signals.jsonl"), filepath.Join(dir, "scoring.jsonl"))
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.LogScoringDecision(ScoringDecisionEvent{Symbol: "BTCUSDT", FactorCount: 3, GateResult: "accepted"}))

	data, err := os.ReadFile(filepath.Join(dir, "scoring.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"gate_result":"accepted"`)
}
