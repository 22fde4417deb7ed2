// Package antientropy implements a periodic, sampled digest/records
// exchange that repairs residual divergence left behind by direct
// mail's losses or rumor mongering's probabilistic stop.
package antientropy

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"epidemicsim/internal/algorithm"
	"epidemicsim/internal/network"
	"epidemicsim/internal/replica"
)

// DefaultSampleSize is used when Config.SampleSize is left zero-valued.
// Interval has no such default: it passes through unchanged, since 0
// and negative are meaningful values (disable the algorithm), not an
// "unset" sentinel.
const DefaultSampleSize = 2000

// AntiEntropy is a pull-via-digest protocol: the initiator repairs
// itself, not the peer it contacts. A fully symmetric deployment
// relies on every replica initiating rounds independently.
type AntiEntropy struct {
	Interval   int
	SampleSize int

	// rng is the algorithm-owned RNG stream, used only for key
	// sampling. Peer selection instead goes through replica.PickPeer —
	// digest sampling is the only place this algorithm-level RNG is
	// ever drawn from.
	rng *rand.Rand

	log *zap.Logger
}

// Config bundles the exposed tunables for anti-entropy.
// Interval <= 0 disables the algorithm entirely.
type Config struct {
	Interval   int
	SampleSize int
}

// New builds an AntiEntropy algorithm. Interval passes through
// unchanged — callers who want the conventional default interval set
// it explicitly in config (see config.Defaults); 0 or negative here
// reaches Tick and disables the algorithm entirely, as Config documents.
// Only SampleSize defaults when left zero-valued.
func New(cfg Config, seed int64, log *zap.Logger) *AntiEntropy {
	if log == nil {
		log = zap.NewNop()
	}
	sampleSize := cfg.SampleSize
	if sampleSize == 0 {
		sampleSize = DefaultSampleSize
	}
	return &AntiEntropy{
		Interval:   cfg.Interval,
		SampleSize: sampleSize,
		rng:        rand.New(rand.NewSource(seed)),
		log:        log.With(zap.String("algorithm", "anti_entropy")),
	}
}

// Tick initiates one exchange round every Interval ticks.
func (a *AntiEntropy) Tick(now int, r *replica.Replica, peers []string, net *network.Network, opIndex *algorithm.OpIndex) {
	if a.Interval <= 0 || now%a.Interval != 0 {
		return
	}
	if len(peers) == 0 {
		return
	}
	if len(r.Store) == 0 {
		return
	}

	dst := r.PickPeer(peers)
	keys := a.sampleKeys(r)

	items := make([]algorithm.DigestItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, algorithm.DigestItem{Key: k, Ts: r.Store[k].Ts})
	}

	fp := fingerprint(items)
	a.log.Debug("digest round",
		zap.Int("tick", now), zap.String("from", r.ID), zap.String("to", dst),
		zap.Int("sample", len(items)), zap.String("digest_fp", fp))

	net.Send(now, r.ID, dst, algorithm.DigestMsg{Items: items, SampleSize: a.SampleSize})
	r.OpsSent++
}

// sampleKeys draws up to SampleSize distinct keys from r's store using
// the algorithm's own RNG stream, preserving insertion determinism: if
// the store has no more keys than SampleSize, every key is used and no
// RNG draw happens at all.
func (a *AntiEntropy) sampleKeys(r *replica.Replica) []string {
	keys := make([]string, 0, len(r.Store))
	for k := range r.Store {
		keys = append(keys, k)
	}
	sort.Strings(keys) // stable base ordering before any sampling draw

	if len(keys) <= a.SampleSize {
		return keys
	}

	a.rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	return keys[:a.SampleSize]
}

// HandleMessage processes incoming DIGEST and RECORDS messages.
func (a *AntiEntropy) HandleMessage(now int, dst *replica.Replica, payload interface{}, net *network.Network, opIndex *algorithm.OpIndex, srcID string) {
	switch msg := payload.(type) {
	case algorithm.DigestMsg:
		resp := make([]algorithm.RecordItem, 0)
		for _, item := range msg.Items {
			ours, exists := dst.Store[item.Key]
			if exists && ours.Ts.Greater(item.Ts) {
				resp = append(resp, algorithm.RecordItem{Key: item.Key, Record: ours})
			}
		}
		net.Send(now, dst.ID, srcID, algorithm.RecordsMsg{Items: resp})
		dst.OpsSent++

	case algorithm.RecordsMsg:
		// Records are merged directly, not as operations: they never
		// touch seen_ops or active_rumors.
		for _, item := range msg.Items {
			cur, exists := dst.Store[item.Key]
			if !exists || item.Record.Ts.Greater(cur.Ts) {
				dst.Store[item.Key] = item.Record
				dst.OpsApplied++
			}
		}

	default:
		panic(fmt.Sprintf("antientropy: unknown message kind %T", payload))
	}
}

// fingerprint hashes a digest round's (key, ts) sample into a short
// hex string for log/metrics correlation. It never affects protocol
// behavior; it exists purely for observability.
func fingerprint(items []algorithm.DigestItem) string {
	h, err := blake2b.New(8, nil)
	if err != nil {
		return ""
	}
	buf := make([]byte, 8)
	for _, item := range items {
		h.Write([]byte(item.Key))
		binary.LittleEndian.PutUint64(buf, item.Ts.Counter)
		h.Write(buf)
		h.Write([]byte(item.Ts.ReplicaID))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
