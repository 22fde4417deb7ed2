package workload_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epidemicsim/internal/model"
	"epidemicsim/internal/workload"
)

func TestZipfSamplerStaysInRange(t *testing.T) {
	z := workload.NewZipfSampler(100, 1.1, 1)
	for i := 0; i < 1000; i++ {
		idx := z.SampleIndex()
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 100)
	}
}

func TestZipfSamplerIsSkewedTowardZero(t *testing.T) {
	z := workload.NewZipfSampler(10, 1.5, 1)
	counts := make([]int, 10)
	for i := 0; i < 5000; i++ {
		counts[z.SampleIndex()]++
	}
	assert.Greater(t, counts[0], counts[9], "index 0 should be drawn far more often than the tail under high skew")
}

func TestZipfSamplerDeterministicGivenSeed(t *testing.T) {
	a := workload.NewZipfSampler(50, 1.2, 42)
	b := workload.NewZipfSampler(50, 1.2, 42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.SampleIndex(), b.SampleIndex())
	}
}

func TestGenerateSnapshotProducesInitTimestamps(t *testing.T) {
	snap := workload.GenerateSnapshot(workload.SnapshotSpec{NumKeys: 10, Seed: 1})
	assert.Len(t, snap, 10)
	for _, rec := range snap {
		assert.Equal(t, model.Timestamp{Counter: 0, ReplicaID: "INIT"}, rec.Ts)
		assert.False(t, rec.Deleted)
	}
}

func TestGenerateWorkloadRespectsReplicaAndKeySpace(t *testing.T) {
	ops := workload.GenerateWorkload(workload.WorkloadSpec{NumReplicas: 3, NumKeys: 5, NumOps: 50, DelRatio: 0.2, ZipfSkew: 1.1, Seed: 1})
	require.Len(t, ops, 50)
	seen := make(map[string]struct{})
	for _, op := range ops {
		assert.Contains(t, []string{"R0", "R1", "R2"}, op.Origin)
		assert.NotContains(t, seen, op.OpID, "op ids must be unique")
		seen[op.OpID] = struct{}{}
	}
}

func TestSnapshotRoundTripsThroughDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	snap := workload.GenerateSnapshot(workload.SnapshotSpec{NumKeys: 4, Seed: 2})

	require.NoError(t, workload.SaveSnapshot(path, snap))
	loaded, err := workload.LoadSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 4)
	for k, rec := range snap {
		assert.Equal(t, rec.Ts, loaded[k].Ts)
		assert.Equal(t, rec.Deleted, loaded[k].Deleted)
	}
}

func TestWorkloadRoundTripsThroughDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workload.jsonl")
	ops := workload.GenerateWorkload(workload.WorkloadSpec{NumReplicas: 2, NumKeys: 5, NumOps: 10, DelRatio: 0.3, ZipfSkew: 1.0, Seed: 3})

	require.NoError(t, workload.SaveWorkload(path, ops))
	loaded, err := workload.LoadWorkload(path)
	require.NoError(t, err)
	require.Len(t, loaded, 10)
	for i := range ops {
		assert.Equal(t, ops[i].OpID, loaded[i].OpID)
		assert.Equal(t, ops[i].Op, loaded[i].Op)
		assert.Equal(t, ops[i].Key, loaded[i].Key)
		assert.Equal(t, ops[i].Ts, loaded[i].Ts)
	}
}

func TestLoadWorkloadRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := workload.LoadWorkload(path)
	assert.Error(t, err)
}
