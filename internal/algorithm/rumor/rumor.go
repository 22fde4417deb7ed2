// Package rumor implements a budgeted epidemic push protocol with
// ACK-driven early stop, in the same fanout/TTL/ack style as
// membership gossip but generalized to spreading operations instead.
package rumor

import (
	"fmt"

	"go.uber.org/zap"

	"epidemicsim/internal/algorithm"
	"epidemicsim/internal/network"
	"epidemicsim/internal/replica"
)

// Default tunables used when a Config field is left zero-valued.
const (
	DefaultBudget        = 30
	DefaultFanout        = 1
	DefaultStopThreshold = 4
)

// RumorMongering pushes each active operation to Fanout random peers
// per tick until its Budget is exhausted or StopThreshold SEEN acks arrive.
type RumorMongering struct {
	Budget        int
	Fanout        int
	StopThreshold int

	log *zap.Logger
}

// Config bundles the exposed tunables for rumor mongering.
type Config struct {
	Budget        int
	Fanout        int
	StopThreshold int
}

// New builds a RumorMongering algorithm, filling in default tunables
// for zero-valued fields.
func New(cfg Config, log *zap.Logger) *RumorMongering {
	if log == nil {
		log = zap.NewNop()
	}
	budget := cfg.Budget
	if budget == 0 {
		budget = DefaultBudget
	}
	fanout := cfg.Fanout
	if fanout == 0 {
		fanout = DefaultFanout
	}
	stop := cfg.StopThreshold
	if stop == 0 {
		stop = DefaultStopThreshold
	}
	return &RumorMongering{
		Budget:        budget,
		Fanout:        fanout,
		StopThreshold: stop,
		log:           log.With(zap.String("algorithm", "rumor")),
	}
}

// Tick runs one round of pushes for every active rumor at r. The rumor
// map is snapshotted into a slice before iterating because entries are
// removed mid-loop, which would otherwise disturb a live map iteration.
func (g *RumorMongering) Tick(now int, r *replica.Replica, peers []string, net *network.Network, opIndex *algorithm.OpIndex) {
	if len(peers) == 0 {
		return
	}

	opIDs := make([]string, 0, len(r.ActiveRumors))
	for id := range r.ActiveRumors {
		opIDs = append(opIDs, id)
	}

	for _, opID := range opIDs {
		budget, stillActive := r.ActiveRumors[opID]
		if !stillActive {
			continue // retired by an earlier iteration of this same loop
		}
		if budget <= 0 {
			r.RetireRumor(opID)
			continue
		}

		op, found := opIndex.Get(opID)
		if !found {
			r.RetireRumor(opID) // defensive: the index should already hold anything actively rumored
			continue
		}

		for i := 0; i < g.Fanout; i++ {
			dst := r.PickPeer(peers)
			net.Send(now, r.ID, dst, algorithm.OpMsg{Op: op})
			r.OpsSent++
		}

		r.ActiveRumors[opID] = budget - 1

		if r.RumorSeenHits[opID] >= g.StopThreshold {
			r.RetireRumor(opID)
		}
	}
}

// HandleMessage processes incoming OP and ACK messages.
func (g *RumorMongering) HandleMessage(now int, dst *replica.Replica, payload interface{}, net *network.Network, opIndex *algorithm.OpIndex, srcID string) {
	switch msg := payload.(type) {
	case algorithm.OpMsg:
		wasNew, _ := dst.OnReceive(msg.Op)

		status := algorithm.AckSeen
		if wasNew {
			status = algorithm.AckNew
		}
		net.Send(now, dst.ID, srcID, algorithm.AckMsg{OpID: msg.Op.OpID, Status: status})
		dst.OpsSent++

		if wasNew {
			opIndex.PutIfAbsent(msg.Op)
			dst.ActivateRumor(msg.Op.OpID, g.Budget)
		}

	case algorithm.AckMsg:
		if msg.Status != algorithm.AckSeen {
			return // NEW acks are informational only, they never affect the stop counter
		}
		if _, active := dst.ActiveRumors[msg.OpID]; !active {
			return // stale ack for an already-retired rumor, silently ignored
		}
		dst.RumorSeenHits[msg.OpID]++

	default:
		panic(fmt.Sprintf("rumor: unknown message kind %T", payload))
	}
}
