package main

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/meshadm/meshsync/meshsync"
	"github.com/meshadm/meshsync/protocol"
)

func TestChannelSyncDoneWaitsForRadioConfig(t *testing.T) {
	// after the first channel reply the loading counters already read as
	// complete, since the total is only revised by the disabled sentinel
	midRoute := meshsync.ConfigSyncState{
		Route: meshsync.RouteChannels,
		Channels: []protocol.Channel{
			{Index: 0, Role: protocol.ChannelRolePrimary},
		},
		Response: meshsync.ResponseStateLoading{Total: 1, Completed: 1},
	}
	assert.Equal(t, false, channelSyncDone(midRoute))

	done := midRoute
	done.RadioConfig = &protocol.Config{Variant: protocol.ConfigVariantLoRa}
	done.Response = meshsync.ResponseStateLoading{Total: 2, Completed: 2}
	assert.Equal(t, true, channelSyncDone(done))
}

func TestParseNodeId(t *testing.T) {
	nodeId, err := parseNodeId("!a1b2c3d4")
	assert.Equal(t, nil, err)
	assert.Equal(t, protocol.NodeId(0xa1b2c3d4), nodeId)

	nodeId, err = parseNodeId("00000010")
	assert.Equal(t, nil, err)
	assert.Equal(t, protocol.NodeId(0x10), nodeId)

	_, err = parseNodeId("!not-a-node")
	if err == nil {
		t.Fatal("expected an error")
	}
}
