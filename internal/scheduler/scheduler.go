// Package scheduler implements the deterministic tick-driven loop:
// inject, then algorithm tick, then deliver, every tick, for the
// entire run.
package scheduler

import (
	"math/rand"

	"go.uber.org/zap"

	"epidemicsim/internal/algorithm"
	"epidemicsim/internal/model"
	"epidemicsim/internal/network"
	"epidemicsim/internal/replica"
	"epidemicsim/internal/residue"
	"epidemicsim/internal/simerrors"
)

// Kind names the dissemination strategy driving this run. The
// scheduler needs to know it (not just hold an Algorithm value)
// because injection dispatches differently per algorithm: direct mail
// broadcasts immediately,
// rumor mongering activates a budgeted rumor, anti-entropy does
// neither (it only repairs on its own periodic schedule).
type Kind string

const (
	KindDirectMail  Kind = "direct_mail"
	KindRumor       Kind = "rumor"
	KindAntiEntropy Kind = "anti_entropy"
)

// MetricsSample is one row of the metrics stream artifact.
type MetricsSample struct {
	Tick        int `json:"tick"`
	Residue     int `json:"residue"`
	MsgsSent    int `json:"msgs_sent"`
	MsgsDropped int `json:"msgs_dropped"`
	OpsSent     int `json:"ops_sent"`
	OpsReceived int `json:"ops_received"`
}

// Config bundles the scheduler's own tunables.
type Config struct {
	Kind          Kind
	InjectPerTick int
	RumorBudget   int // used only when Kind == KindRumor, to activate freshly-injected rumors
	MetricsEvery  int
	Seed          int64
}

// Scheduler owns the replica set, the network, and the chosen
// algorithm for one run, and drives them tick by tick.
type Scheduler struct {
	replicas     []*replica.Replica
	replicasByID map[string]*replica.Replica
	allIDs       []string

	net  *network.Network
	algo algorithm.Algorithm
	idx  *algorithm.OpIndex

	cfg      Config
	workload []model.Operation
	cursor   int
	remapRng *rand.Rand

	Metrics []MetricsSample

	log *zap.Logger
}

// New builds a scheduler over an already-constructed replica set,
// network, and algorithm. workload is consumed in order, InjectPerTick
// operations at a time, across the run.
func New(cfg Config, replicas []*replica.Replica, net *network.Network, algo algorithm.Algorithm, workload []model.Operation, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	byID := make(map[string]*replica.Replica, len(replicas))
	ids := make([]string, 0, len(replicas))
	for _, r := range replicas {
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}
	return &Scheduler{
		replicas:     replicas,
		replicasByID: byID,
		allIDs:       ids,
		net:          net,
		algo:         algo,
		idx:          algorithm.NewOpIndex(),
		cfg:          cfg,
		workload:     workload,
		remapRng:     rand.New(rand.NewSource(cfg.Seed)),
		log:          log.With(zap.String("component", "scheduler")),
	}
}

// OpIndex exposes the shared op index, e.g. for callers that want to
// inspect it after a run.
func (s *Scheduler) OpIndex() *algorithm.OpIndex { return s.idx }

// InjectedCount reports how many workload operations have been consumed so far.
func (s *Scheduler) InjectedCount() int { return s.cursor }

// Run drives `ticks` iterations of inject -> algorithm tick -> deliver
// -> metrics sampling. It returns a non-nil error only for a fatal
// programming error; every other irregularity is handled inline.
func (s *Scheduler) Run(ticks int) error {
	for tick := 0; tick < ticks; tick++ {
		s.inject(tick)

		for _, r := range s.replicas {
			s.algo.Tick(tick, r, s.peersOf(r.ID), s.net, s.idx)
		}

		if err := s.deliver(tick); err != nil {
			return err
		}

		if s.cfg.MetricsEvery > 0 && tick%s.cfg.MetricsEvery == 0 {
			s.sampleMetrics(tick)
		}
	}
	return nil
}

// inject hands up to InjectPerTick workload operations to their origin
// replicas, remapping operations whose origin isn't in the replica set.
func (s *Scheduler) inject(tick int) {
	for i := 0; i < s.cfg.InjectPerTick; i++ {
		if s.cursor >= len(s.workload) {
			return
		}
		op := s.workload[s.cursor]
		s.cursor++

		origin, ok := s.replicasByID[op.Origin]
		if !ok {
			origin = s.replicas[s.remapRng.Intn(len(s.replicas))]
			op = model.Operation{
				OpID:   origin.ID + ":" + opCounterSuffix(op.OpID),
				Op:     op.Op,
				Key:    op.Key,
				Value:  op.Value,
				Ts:     model.Timestamp{Counter: op.Ts.Counter, ReplicaID: origin.ID},
				Origin: origin.ID,
			}
			s.log.Debug("remapped workload operation to random origin",
				zap.Int("tick", tick), zap.String("new_origin", origin.ID))
		}

		wasNew, _ := origin.OnReceive(op)
		if !wasNew {
			continue
		}
		s.idx.PutIfAbsent(op)

		switch s.cfg.Kind {
		case KindRumor:
			origin.ActivateRumor(op.OpID, s.cfg.RumorBudget)
		case KindDirectMail:
			for _, peerID := range s.peersOf(origin.ID) {
				s.net.Send(tick, origin.ID, peerID, algorithm.OpMsg{Op: op})
				origin.OpsSent++
			}
		}
	}
}

// deliver drains messages whose delivery time has elapsed and
// dispatches each to its destination's algorithm handler.
func (s *Scheduler) deliver(tick int) error {
	for _, msg := range s.net.DeliverReady(tick) {
		dst, ok := s.replicasByID[msg.Dst]
		if !ok {
			return simerrors.Programming(tick, "unknown destination replica %q", msg.Dst)
		}
		s.algo.HandleMessage(tick, dst, msg.Payload, s.net, s.idx, msg.Src)
	}
	return nil
}

func (s *Scheduler) sampleMetrics(tick int) {
	stores := make([]map[string]model.Record, 0, len(s.replicas))
	opsSent, opsReceived := 0, 0
	for _, r := range s.replicas {
		stores = append(stores, r.Store)
		opsSent += r.OpsSent
		opsReceived += r.OpsReceived
	}
	s.Metrics = append(s.Metrics, MetricsSample{
		Tick:        tick,
		Residue:     residue.Count(stores),
		MsgsSent:    s.net.MsgsSent,
		MsgsDropped: s.net.MsgsDropped,
		OpsSent:     opsSent,
		OpsReceived: opsReceived,
	})
}

// peersOf returns every replica id other than id, in fixed insertion order.
func (s *Scheduler) peersOf(id string) []string {
	peers := make([]string, 0, len(s.allIDs)-1)
	for _, other := range s.allIDs {
		if other != id {
			peers = append(peers, other)
		}
	}
	return peers
}

// FinalResidue computes the exact residue across all replica stores,
// for the end-of-run summary artifact.
func (s *Scheduler) FinalResidue() int {
	stores := make([]map[string]model.Record, 0, len(s.replicas))
	for _, r := range s.replicas {
		stores = append(stores, r.Store)
	}
	return residue.Count(stores)
}

// Replicas exposes the replica set for artifact writers.
func (s *Scheduler) Replicas() []*replica.Replica { return s.replicas }

// opCounterSuffix extracts the portion of an op_id after the last
// colon, so a remapped operation keeps a stable-looking counter
// component (origin:counter) instead of carrying the stale origin id
// forward inside its own id.
func opCounterSuffix(opID string) string {
	for i := len(opID) - 1; i >= 0; i-- {
		if opID[i] == ':' {
			return opID[i+1:]
		}
	}
	return opID
}
