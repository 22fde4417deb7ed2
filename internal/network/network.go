// Package network implements the deterministic, lossy, delayed
// message queue between replicas. It is the only
// component permitted to move a message between two replicas.
package network

import (
	"math/rand"

	"go.uber.org/zap"
)

// Message is the envelope carried through the network. Payload is one
// of the algorithm message types defined in internal/algorithm.
type Message struct {
	DeliverAt int
	Src       string
	Dst       string
	Payload   interface{}
}

// Network is a single in-process, single-threaded delayed/dropping queue.
type Network struct {
	rng       *rand.Rand
	DropRate  float64
	MinDelay  int
	MaxDelay  int

	queue []Message

	MsgsSent    int
	MsgsDropped int

	log *zap.Logger
}

// Config bundles the network's tunables.
type Config struct {
	Seed     int64
	DropRate float64
	MinDelay int // inclusive, ticks; 0 allows same-tick delivery (always, when MaxDelay is also 0)
	MaxDelay int // inclusive, ticks; must be >= MinDelay when both are set
}

// New builds a network with its own RNG stream, seeded independently
// from replicas and algorithms (network seed = seed+1).
func New(cfg Config, log *zap.Logger) *Network {
	if log == nil {
		log = zap.NewNop()
	}
	return &Network{
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		DropRate: cfg.DropRate,
		MinDelay: cfg.MinDelay,
		MaxDelay: cfg.MaxDelay,
		log:      log.With(zap.String("component", "network")),
	}
}

// Send enqueues payload for delivery from src to dst, unless the
// network's own RNG draws a drop. deliver_at is now, optionally pushed
// out by a uniformly sampled delay in [MinDelay, MaxDelay].
func (n *Network) Send(now int, src, dst string, payload interface{}) {
	n.MsgsSent++
	if n.DropRate > 0 && n.rng.Float64() < n.DropRate {
		n.MsgsDropped++
		n.log.Debug("message dropped", zap.Int("tick", now), zap.String("src", src), zap.String("dst", dst))
		return
	}

	deliverAt := now
	if n.MaxDelay > n.MinDelay {
		deliverAt += n.MinDelay + n.rng.Intn(n.MaxDelay-n.MinDelay+1)
	} else if n.MinDelay > 0 {
		deliverAt += n.MinDelay
	}

	n.queue = append(n.queue, Message{DeliverAt: deliverAt, Src: src, Dst: dst, Payload: payload})
}

// DeliverReady removes and returns every queued message whose
// deliver_at has elapsed, preserving insertion order among those
// returned. Messages not yet due stay queued.
func (n *Network) DeliverReady(now int) []Message {
	if len(n.queue) == 0 {
		return nil
	}

	ready := make([]Message, 0, len(n.queue))
	remaining := n.queue[:0]
	for _, m := range n.queue {
		if m.DeliverAt <= now {
			ready = append(ready, m)
		} else {
			remaining = append(remaining, m)
		}
	}
	n.queue = remaining
	return ready
}

// Pending reports how many messages are still in flight, for tests and diagnostics.
func (n *Network) Pending() int {
	return len(n.queue)
}
