// Package artifacts writes the files a completed run leaves behind:
// the resolved config, a metrics stream, one final-state snapshot per
// replica, and a run summary. Every writer optionally wraps its output
// in brotli, the same compressor the pack reaches for elsewhere.
package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"

	"epidemicsim/internal/config"
	"epidemicsim/internal/model"
	"epidemicsim/internal/scheduler"
)

// Writer persists a single run's artifacts under a root output
// directory, compressing each file when Compress is set.
type Writer struct {
	dir      string
	compress bool

	metricsFile io.WriteCloser
	metricsEnc  *json.Encoder
	metricsRaw  *os.File
}

// suffix returns the filename suffix a Writer appends to its
// artifact names, reflecting whether compression is on.
func (w *Writer) suffix() string {
	if w.compress {
		return ".br"
	}
	return ""
}

// New prepares the output directory tree (creating dir and its
// final_states subdirectory) for a run.
func New(dir string, compress bool) (*Writer, error) {
	if err := os.MkdirAll(filepath.Join(dir, "final_states"), 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: create output dir: %w", err)
	}
	return &Writer{dir: dir, compress: compress}, nil
}

// wrapWriter returns a WriteCloser that brotli-compresses writes when
// compression is enabled, otherwise returns f unwrapped.
func (w *Writer) wrapWriter(f *os.File) io.WriteCloser {
	if !w.compress {
		return f
	}
	return &brotliWriteCloser{bw: brotli.NewWriter(f), f: f}
}

type brotliWriteCloser struct {
	bw *brotli.Writer
	f  *os.File
}

func (b *brotliWriteCloser) Write(p []byte) (int, error) { return b.bw.Write(p) }
func (b *brotliWriteCloser) Close() error {
	if err := b.bw.Close(); err != nil {
		b.f.Close()
		return err
	}
	return b.f.Close()
}

// wrapReader returns a ReadCloser that brotli-decompresses reads when
// compression is enabled, otherwise returns f unwrapped.
func wrapReader(f *os.File, compressed bool) io.ReadCloser {
	if !compressed {
		return f
	}
	return &brotliReadCloser{br: brotli.NewReader(f), f: f}
}

type brotliReadCloser struct {
	br *brotli.Reader
	f  *os.File
}

func (b *brotliReadCloser) Read(p []byte) (int, error) { return b.br.Read(p) }
func (b *brotliReadCloser) Close() error                { return b.f.Close() }

// WriteConfig dumps the resolved configuration used for this run, for
// reproducibility.
func (w *Writer) WriteConfig(cfg *config.Config) error {
	return w.writeJSON("config.json"+w.suffix(), cfg)
}

// OpenMetrics opens the metrics stream for appending one JSON object
// per metrics sample. Call CloseMetrics when the run finishes.
func (w *Writer) OpenMetrics() error {
	f, err := os.Create(filepath.Join(w.dir, "metrics.jsonl"+w.suffix()))
	if err != nil {
		return fmt.Errorf("artifacts: open metrics stream: %w", err)
	}
	w.metricsRaw = f
	wc := w.wrapWriter(f)
	w.metricsFile = wc
	w.metricsEnc = json.NewEncoder(wc)
	return nil
}

// WriteMetricsSample appends one tick's metrics sample as a line of
// JSON to the open metrics stream.
func (w *Writer) WriteMetricsSample(s scheduler.MetricsSample) error {
	if w.metricsEnc == nil {
		return fmt.Errorf("artifacts: metrics stream not open")
	}
	return w.metricsEnc.Encode(s)
}

// CloseMetrics flushes and closes the metrics stream.
func (w *Writer) CloseMetrics() error {
	if w.metricsFile == nil {
		return nil
	}
	return w.metricsFile.Close()
}

// WriteFinalState persists one replica's final key-value store.
func (w *Writer) WriteFinalState(replicaID string, store map[string]model.Record) error {
	out := make(map[string]model.Record, len(store))
	for k, v := range store {
		out[k] = v
	}
	path := filepath.Join("final_states", replicaID+".json"+w.suffix())
	return w.writeJSON(path, out)
}

// Summary is the aggregate report written once a run completes.
type Summary struct {
	Replicas                int  `json:"replicas"`
	Ticks                   int  `json:"ticks"`
	WorkloadOpsTotal        int  `json:"workload_ops_total"`
	WorkloadOpsInjected     int  `json:"workload_ops_injected"`
	ConvergedAtTick         *int `json:"converged_at_tick"`
	NetworkMsgsSent         int  `json:"network_msgs_sent"`
	NetworkMsgsDropped      int  `json:"network_msgs_dropped"`
	ReplicaOpsSentTotal     int  `json:"replica_ops_sent_total"`
	ReplicaOpsReceivedTotal int  `json:"replica_ops_received_total"`
	ReplicaOpsAppliedTotal  int  `json:"replica_ops_applied_total"`
	Residue                 int  `json:"residue"`
}

// WriteSummary persists the run's final summary.json.
func (w *Writer) WriteSummary(s Summary) error {
	return w.writeJSON("summary.json"+w.suffix(), s)
}

func (w *Writer) writeJSON(relPath string, v interface{}) error {
	f, err := os.Create(filepath.Join(w.dir, relPath))
	if err != nil {
		return fmt.Errorf("artifacts: create %s: %w", relPath, err)
	}
	wc := w.wrapWriter(f)
	enc := json.NewEncoder(wc)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		wc.Close()
		return fmt.Errorf("artifacts: write %s: %w", relPath, err)
	}
	return wc.Close()
}

// ReadSummary loads a previously written summary.json, transparently
// decompressing it if compressed is set.
func ReadSummary(dir string, compressed bool) (Summary, error) {
	var s Summary
	suffix := ""
	if compressed {
		suffix = ".br"
	}
	f, err := os.Open(filepath.Join(dir, "summary.json"+suffix))
	if err != nil {
		return s, fmt.Errorf("artifacts: open summary: %w", err)
	}
	rc := wrapReader(f, compressed)
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(&s); err != nil {
		return s, fmt.Errorf("artifacts: decode summary: %w", err)
	}
	return s, nil
}
