package directmail_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"epidemicsim/internal/algorithm"
	"epidemicsim/internal/algorithm/directmail"
	"epidemicsim/internal/model"
	"epidemicsim/internal/network"
	"epidemicsim/internal/replica"
)

func TestTickIsNoOp(t *testing.T) {
	d := directmail.New(zaptest.NewLogger(t))
	r := replica.New("R0", nil, 1, 0, zaptest.NewLogger(t))
	net := network.New(network.Config{Seed: 1}, zaptest.NewLogger(t))

	d.Tick(0, r, []string{"R1"}, net, algorithm.NewOpIndex())

	assert.Equal(t, 0, net.MsgsSent, "direct mail has no periodic behavior")
}

func TestHandleMessageAppliesAndIndexesNewOp(t *testing.T) {
	d := directmail.New(zaptest.NewLogger(t))
	dst := replica.New("R1", nil, 1, 1, zaptest.NewLogger(t))
	net := network.New(network.Config{Seed: 1}, zaptest.NewLogger(t))
	idx := algorithm.NewOpIndex()

	op := model.Operation{OpID: "R0:1", Op: model.OpSet, Key: "k", Value: 1.0, Ts: model.Timestamp{Counter: 1, ReplicaID: "R0"}, Origin: "R0"}
	d.HandleMessage(0, dst, algorithm.OpMsg{Op: op}, net, idx, "R0")

	assert.Equal(t, 1.0, dst.Store["k"].Value)
	_, ok := idx.Get("R0:1")
	assert.True(t, ok, "new op must be added to the shared index")
	assert.Equal(t, 0, net.MsgsSent, "direct mail never acks")
}

func TestHandleMessageUnknownKindPanics(t *testing.T) {
	d := directmail.New(zaptest.NewLogger(t))
	dst := replica.New("R1", nil, 1, 1, zaptest.NewLogger(t))
	net := network.New(network.Config{Seed: 1}, zaptest.NewLogger(t))

	assert.Panics(t, func() {
		d.HandleMessage(0, dst, "not-a-message", net, algorithm.NewOpIndex(), "R0")
	})
}
