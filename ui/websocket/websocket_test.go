package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainEvents "github.com/AzielCF/az-blast/domains/events"
)

func drainBroadcast() {
	for {
		select {
		case <-Broadcast:
		default:
			return
		}
	}
}

func TestEmitEnqueuesEnvelope(t *testing.T) {
	drainBroadcast()
	t.Cleanup(drainBroadcast)

	NewBroadcaster().Emit(domainEvents.Event{
		Type: domainEvents.TypeCampaignCompleted,
		Data: domainEvents.CampaignCompleted{CampaignID: "c1", Name: "promo"},
	})

	select {
	case got := <-Broadcast:
		assert.Equal(t, domainEvents.TypeCampaignCompleted, got.Type)
		// Local events carry no SenderID; the hub tags it only when it
		// republishes to the other replicas.
		assert.Empty(t, got.SenderID)
	default:
		t.Fatal("expected an envelope on the broadcast channel")
	}
}

func TestEmitDropsWhenChannelFull(t *testing.T) {
	drainBroadcast()
	t.Cleanup(drainBroadcast)

	b := NewBroadcaster()
	for i := 0; i < cap(Broadcast); i++ {
		b.Emit(domainEvents.Event{Type: domainEvents.TypeCampaignProgress})
	}

	// Must not block with nothing reading the hub.
	b.Emit(domainEvents.Event{Type: domainEvents.TypeCampaignProgress})
	assert.Len(t, Broadcast, cap(Broadcast))
}

func TestReplicaMessageRoutedThroughHub(t *testing.T) {
	drainBroadcast()
	t.Cleanup(drainBroadcast)

	payload, err := json.Marshal(envelope{
		Type:     domainEvents.TypeCampaignProgress,
		SenderID: "other-node",
	})
	require.NoError(t, err)

	handleReplicaMessage(string(payload))

	select {
	case got := <-Broadcast:
		assert.Equal(t, domainEvents.TypeCampaignProgress, got.Type)
		assert.Equal(t, "other-node", got.SenderID)
	default:
		t.Fatal("expected the replica envelope on the broadcast channel")
	}
}

func TestReplicaMessageFromSelfIgnored(t *testing.T) {
	drainBroadcast()
	t.Cleanup(drainBroadcast)

	prev := localID
	localID = "this-node"
	t.Cleanup(func() { localID = prev })

	payload, err := json.Marshal(envelope{
		Type:     domainEvents.TypeCampaignProgress,
		SenderID: "this-node",
	})
	require.NoError(t, err)

	handleReplicaMessage(string(payload))
	assert.Empty(t, Broadcast)

	handleReplicaMessage("not json")
	assert.Empty(t, Broadcast)
}
