// Package directmail implements an immediate, un-acknowledged
// broadcast of every newly injected operation. The
// scheduler itself performs the fan-out at injection time; this
// algorithm's own periodic tick is a no-op, and it only has to handle
// the resulting OP message on arrival.
package directmail

import (
	"fmt"

	"go.uber.org/zap"

	"epidemicsim/internal/algorithm"
	"epidemicsim/internal/network"
	"epidemicsim/internal/replica"
)

// DirectMail has no tunables and no periodic behavior of its own.
type DirectMail struct {
	log *zap.Logger
}

// New builds a DirectMail algorithm instance.
func New(log *zap.Logger) *DirectMail {
	if log == nil {
		log = zap.NewNop()
	}
	return &DirectMail{log: log.With(zap.String("algorithm", "direct_mail"))}
}

// Tick is a no-op: direct mail only reacts to local injection, which
// the scheduler fans out directly to every peer at injection time.
func (d *DirectMail) Tick(now int, r *replica.Replica, peers []string, net *network.Network, opIndex *algorithm.OpIndex) {
}

// HandleMessage applies an incoming OP with dedup; no ACK is sent.
func (d *DirectMail) HandleMessage(now int, dst *replica.Replica, payload interface{}, net *network.Network, opIndex *algorithm.OpIndex, srcID string) {
	msg, ok := payload.(algorithm.OpMsg)
	if !ok {
		panic(fmt.Sprintf("directmail: unknown message kind %T", payload))
	}

	wasNew, _ := dst.OnReceive(msg.Op)
	if wasNew {
		opIndex.PutIfAbsent(msg.Op)
	}
}
