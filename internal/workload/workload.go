// Package workload generates and loads the synthetic snapshot/operation
// streams a simulation run consumes: a Zipf-skewed key popularity
// distribution driving which keys get touched, and a stream of
// SET/DEL operations spread pseudo-randomly across replicas.
package workload

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"

	"epidemicsim/internal/model"
)

// ZipfSampler draws key indices from [0, N) with Zipf-like skew,
// using a precomputed CDF and binary search rather than per-draw
// weight recomputation.
type ZipfSampler struct {
	n   int
	cdf []float64
	rng *rand.Rand
}

// NewZipfSampler builds a sampler over n items with skew parameter s.
// Larger s concentrates draws more heavily on low indices.
func NewZipfSampler(n int, s float64, seed int64) *ZipfSampler {
	weights := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		w := 1.0 / math.Pow(float64(i+1), s)
		weights[i] = w
		total += w
	}

	cdf := make([]float64, n)
	acc := 0.0
	for i, w := range weights {
		acc += w / total
		cdf[i] = acc
	}
	if n > 0 {
		cdf[n-1] = 1.0
	}

	return &ZipfSampler{n: n, cdf: cdf, rng: rand.New(rand.NewSource(seed))}
}

// SampleIndex draws one index in [0, n) biased toward 0 by the
// sampler's skew, via binary search over the precomputed CDF.
func (z *ZipfSampler) SampleIndex() int {
	x := z.rng.Float64()
	lo, hi := 0, z.n-1
	for lo < hi {
		mid := (lo + hi) / 2
		if x <= z.cdf[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// RandomValue mixes integers and short lowercase strings, matching
// the value shapes the residue metric's comparable-tuple assumption
// relies on (see internal/residue).
func RandomValue(rng *rand.Rand) interface{} {
	if rng.Float64() < 0.6 {
		return float64(rng.Intn(10_000_001))
	}
	const letters = "abcdefghijklmnopqrstuvwxyz"
	n := 4 + rng.Intn(7)
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

// SnapshotSpec configures initial-snapshot generation.
type SnapshotSpec struct {
	NumKeys int
	Seed    int64
}

// GenerateSnapshot builds a fresh store of NumKeys records, each
// stamped with Timestamp{0, "INIT"} so any real operation strictly
// dominates it in the LWW order.
func GenerateSnapshot(spec SnapshotSpec) map[string]model.Record {
	rng := rand.New(rand.NewSource(spec.Seed))
	snapshot := make(map[string]model.Record, spec.NumKeys)
	for i := 0; i < spec.NumKeys; i++ {
		key := fmt.Sprintf("k%06d", i)
		snapshot[key] = model.Record{
			Value:   RandomValue(rng),
			Deleted: false,
			Ts:      model.Timestamp{Counter: 0, ReplicaID: "INIT"},
		}
	}
	return snapshot
}

// WorkloadSpec configures operation-stream generation.
type WorkloadSpec struct {
	NumReplicas int
	NumKeys     int
	NumOps      int
	DelRatio    float64
	ZipfSkew    float64
	Seed        int64
}

// GenerateWorkload produces NumOps operations, assigning each to a
// uniformly random replica with a strictly increasing per-replica
// counter, and a key drawn from a Zipf-skewed distribution over the
// key space (seeded independently from replica/delete-vs-set choice,
// mirroring the two distinct RNG streams the generator uses).
func GenerateWorkload(spec WorkloadSpec) []model.Operation {
	rng := rand.New(rand.NewSource(spec.Seed))
	sampler := NewZipfSampler(spec.NumKeys, spec.ZipfSkew, spec.Seed+1)

	counters := make([]int, spec.NumReplicas)
	ops := make([]model.Operation, 0, spec.NumOps)

	for i := 0; i < spec.NumOps; i++ {
		ridx := rng.Intn(spec.NumReplicas)
		replicaID := fmt.Sprintf("R%d", ridx)
		counters[ridx]++
		counter := counters[ridx]
		ts := model.Timestamp{Counter: uint64(counter), ReplicaID: replicaID}

		key := fmt.Sprintf("k%06d", sampler.SampleIndex())
		opID := fmt.Sprintf("%s:%d", replicaID, counter)

		if rng.Float64() < spec.DelRatio {
			ops = append(ops, model.Operation{OpID: opID, Op: model.OpDel, Key: key, Ts: ts, Origin: replicaID})
		} else {
			ops = append(ops, model.Operation{OpID: opID, Op: model.OpSet, Key: key, Value: RandomValue(rng), Ts: ts, Origin: replicaID})
		}
	}
	return ops
}

// LoadSnapshot reads a JSON object of key -> record from path.
func LoadSnapshot(path string) (map[string]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workload: read snapshot %s: %w", path, err)
	}
	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("workload: parse snapshot %s: %w", path, err)
	}
	snapshot := make(map[string]model.Record, len(raw))
	for k, v := range raw {
		rec, err := model.RecordFromJSON(v)
		if err != nil {
			return nil, fmt.Errorf("workload: snapshot %s key %q: %w", path, k, err)
		}
		snapshot[k] = rec
	}
	return snapshot, nil
}

// SaveSnapshot writes a snapshot as a single JSON object.
func SaveSnapshot(path string, snapshot map[string]model.Record) error {
	raw := make(map[string]interface{}, len(snapshot))
	for k, rec := range snapshot {
		raw[k] = rec.ToJSON()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("workload: marshal snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadWorkload reads a newline-delimited JSON stream of operations.
func LoadWorkload(path string) ([]model.Operation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workload: open %s: %w", path, err)
	}
	defer f.Close()

	var ops []model.Operation
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(text, &raw); err != nil {
			return nil, fmt.Errorf("workload: %s line %d: %w", path, line, err)
		}
		op, err := model.OperationFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("workload: %s line %d: %w", path, line, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("workload: scan %s: %w", path, err)
	}
	return ops, nil
}

// SaveWorkload writes ops as newline-delimited JSON, in order.
func SaveWorkload(path string, ops []model.Operation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("workload: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, op := range ops {
		data, err := json.Marshal(op.ToJSON())
		if err != nil {
			return fmt.Errorf("workload: marshal op %s: %w", op.OpID, err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
	}
	return w.Flush()
}
