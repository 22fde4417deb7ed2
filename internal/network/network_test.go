package network_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"epidemicsim/internal/network"
)

func TestSendNoDropSameTickDelivery(t *testing.T) {
	n := network.New(network.Config{Seed: 1, DropRate: 0}, zaptest.NewLogger(t))
	n.Send(5, "R0", "R1", "payload")

	assert.Equal(t, 1, n.MsgsSent)
	assert.Equal(t, 0, n.MsgsDropped)

	ready := n.DeliverReady(5)
	assert.Len(t, ready, 1)
	assert.Equal(t, "R0", ready[0].Src)
	assert.Equal(t, "R1", ready[0].Dst)
	assert.Equal(t, 0, n.Pending())
}

func TestDeliverReadyOnlyReturnsDueMessages(t *testing.T) {
	n := network.New(network.Config{Seed: 1, DropRate: 0, MinDelay: 3, MaxDelay: 3}, zaptest.NewLogger(t))
	n.Send(0, "R0", "R1", "p1")

	assert.Empty(t, n.DeliverReady(0))
	assert.Empty(t, n.DeliverReady(2))
	ready := n.DeliverReady(3)
	assert.Len(t, ready, 1)
}

func TestDropRateOneDropsEverything(t *testing.T) {
	n := network.New(network.Config{Seed: 1, DropRate: 1.0}, zaptest.NewLogger(t))
	for i := 0; i < 10; i++ {
		n.Send(0, "R0", "R1", i)
	}
	assert.Equal(t, 10, n.MsgsSent)
	assert.Equal(t, 10, n.MsgsDropped)
	assert.Equal(t, 0, n.Pending())
}

func TestDeliverReadyPreservesInsertionOrder(t *testing.T) {
	n := network.New(network.Config{Seed: 1, DropRate: 0}, zaptest.NewLogger(t))
	n.Send(0, "R0", "R2", "a")
	n.Send(0, "R1", "R2", "b")
	n.Send(0, "R0", "R2", "c")

	ready := n.DeliverReady(0)
	assert.Equal(t, []interface{}{"a", "b", "c"}, []interface{}{ready[0].Payload, ready[1].Payload, ready[2].Payload})
}

func TestDeterministicDropsGivenSeed(t *testing.T) {
	n1 := network.New(network.Config{Seed: 42, DropRate: 0.5}, zaptest.NewLogger(t))
	n2 := network.New(network.Config{Seed: 42, DropRate: 0.5}, zaptest.NewLogger(t))

	for i := 0; i < 50; i++ {
		n1.Send(0, "R0", "R1", i)
		n2.Send(0, "R0", "R1", i)
	}
	assert.Equal(t, n1.MsgsDropped, n2.MsgsDropped)
}
