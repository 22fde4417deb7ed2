package artifacts_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epidemicsim/internal/artifacts"
	"epidemicsim/internal/config"
	"epidemicsim/internal/model"
	"epidemicsim/internal/scheduler"
)

func TestWriteConfigProducesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	w, err := artifacts.New(dir, false)
	require.NoError(t, err)

	cfg := config.Defaults()
	require.NoError(t, w.WriteConfig(cfg))

	raw, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)

	var got config.Config
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, cfg.Replicas.Count, got.Replicas.Count)
}

func TestMetricsStreamAppendsOneLinePerSample(t *testing.T) {
	dir := t.TempDir()
	w, err := artifacts.New(dir, false)
	require.NoError(t, err)
	require.NoError(t, w.OpenMetrics())

	require.NoError(t, w.WriteMetricsSample(scheduler.MetricsSample{Tick: 0, Residue: 5}))
	require.NoError(t, w.WriteMetricsSample(scheduler.MetricsSample{Tick: 1, Residue: 3}))
	require.NoError(t, w.CloseMetrics())

	raw, err := os.ReadFile(filepath.Join(dir, "metrics.jsonl"))
	require.NoError(t, err)

	lines := splitNonEmptyLines(string(raw))
	require.Len(t, lines, 2)

	var first scheduler.MetricsSample
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, 5, first.Residue)
}

func TestWriteFinalStateRoundTrips(t *testing.T) {
	dir := t.TempDir()
	w, err := artifacts.New(dir, false)
	require.NoError(t, err)

	store := map[string]model.Record{
		"k1": {Value: float64(42), Ts: model.Timestamp{Counter: 1, ReplicaID: "R0"}},
	}
	require.NoError(t, w.WriteFinalState("R0", store))

	raw, err := os.ReadFile(filepath.Join(dir, "final_states", "R0.json"))
	require.NoError(t, err)

	var got map[string]model.Record
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, float64(42), got["k1"].Value)
}

func TestWriteSummaryAndReadSummaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := artifacts.New(dir, false)
	require.NoError(t, err)

	converged := 120
	s := artifacts.Summary{
		Replicas:               20,
		Ticks:                  800,
		WorkloadOpsTotal:       1000,
		WorkloadOpsInjected:    1000,
		ConvergedAtTick:        &converged,
		NetworkMsgsSent:        5000,
		ReplicaOpsAppliedTotal: 1000,
		Residue:                0,
	}
	require.NoError(t, w.WriteSummary(s))

	got, err := artifacts.ReadSummary(dir, false)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Replicas)
	require.NotNil(t, got.ConvergedAtTick)
	assert.Equal(t, 120, *got.ConvergedAtTick)
	assert.Equal(t, 1000, got.ReplicaOpsAppliedTotal)
	assert.Equal(t, 0, got.Residue)
}

func TestCompressedArtifactsRoundTripThroughBrotli(t *testing.T) {
	dir := t.TempDir()
	w, err := artifacts.New(dir, true)
	require.NoError(t, err)

	s := artifacts.Summary{Replicas: 5, Ticks: 100}
	require.NoError(t, w.WriteSummary(s))

	_, err = os.Stat(filepath.Join(dir, "summary.json.br"))
	require.NoError(t, err)

	got, err := artifacts.ReadSummary(dir, true)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Replicas)
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
