// Package replica implements the per-node local store, dedup set, and
// rumor bookkeeping.
package replica

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"epidemicsim/internal/model"
)

// Replica holds all state owned exclusively by one node. No two
// handlers ever touch another replica's fields within the same call.
type Replica struct {
	ID    string
	Store map[string]model.Record

	seenOps map[string]struct{}

	// Rumor state: op_id -> remaining budget, and how many SEEN acks
	// have arrived for it.
	ActiveRumors   map[string]int
	RumorSeenHits  map[string]int

	OpsApplied  int
	OpsReceived int
	OpsSent     int

	rng *rand.Rand
	log *zap.Logger
}

// New creates a replica seeded deterministically from the global seed
// and the replica's numeric index: seed*1000 + index.
func New(id string, store map[string]model.Record, seed int64, index int, log *zap.Logger) *Replica {
	if store == nil {
		store = make(map[string]model.Record)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Replica{
		ID:            id,
		Store:         store,
		seenOps:       make(map[string]struct{}),
		ActiveRumors:  make(map[string]int),
		RumorSeenHits: make(map[string]int),
		rng:           rand.New(rand.NewSource(seed*1000 + int64(index))),
		log:           log.With(zap.String("replica", id)),
	}
}

// Apply performs the LWW merge: a newer timestamp replaces the stored
// record, a stale or equal one is ignored. Returns whether the store changed.
func (r *Replica) Apply(op model.Operation) bool {
	cur, exists := r.Store[op.Key]
	if exists && !op.Ts.Greater(cur.Ts) {
		return false
	}

	switch op.Op {
	case model.OpSet:
		r.Store[op.Key] = model.Record{Value: op.Value, Deleted: false, Ts: op.Ts}
	case model.OpDel:
		r.Store[op.Key] = model.Record{Value: nil, Deleted: true, Ts: op.Ts}
	default:
		panic(fmt.Sprintf("replica %s: unknown operation kind %q", r.ID, op.Op))
	}
	r.OpsApplied++
	return true
}

// OnReceive applies dedup before Apply. wasNew is false whenever the
// op_id has ever been seen at this replica, even if it would not have
// changed the store.
func (r *Replica) OnReceive(op model.Operation) (wasNew bool, changed bool) {
	r.OpsReceived++
	if _, seen := r.seenOps[op.OpID]; seen {
		return false, false
	}
	r.seenOps[op.OpID] = struct{}{}
	return true, r.Apply(op)
}

// HasSeen reports whether op_id has ever been observed locally.
func (r *Replica) HasSeen(opID string) bool {
	_, ok := r.seenOps[opID]
	return ok
}

// SeenCount reports how many distinct op_ids have ever been observed
// locally. Exported mainly so tests can assert that record-level
// merges (anti-entropy's RECORDS) never touch dedup state.
func (r *Replica) SeenCount() int {
	return len(r.seenOps)
}

// ActivateRumor starts spreading op_id with the given budget, unless
// it is already active — reactivation is a no-op preserving the
// existing budget.
func (r *Replica) ActivateRumor(opID string, budget int) {
	if _, active := r.ActiveRumors[opID]; active {
		return
	}
	r.ActiveRumors[opID] = budget
	r.RumorSeenHits[opID] = 0
}

// RetireRumor removes an op_id from both rumor maps.
func (r *Replica) RetireRumor(opID string) {
	delete(r.ActiveRumors, opID)
	delete(r.RumorSeenHits, opID)
}

// PickPeer chooses uniformly among peers using the replica's own RNG
// stream, so the draw sequence is reproducible given a fixed seed.
func (r *Replica) PickPeer(peers []string) string {
	return peers[r.rng.Intn(len(peers))]
}

// Logger returns the replica's child logger, for algorithms that want
// to log with the replica field already attached.
func (r *Replica) Logger() *zap.Logger {
	return r.log
}
