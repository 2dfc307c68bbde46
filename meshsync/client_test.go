package meshsync

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/meshadm/meshsync/protocol"
)

// in-memory transport. Sent envelopes are exposed on a channel so tests can
// script the radio side.
type memTransport struct {
	idGenerator *PacketIdGenerator

	receive chan *protocol.Envelope
	sent    chan *protocol.Envelope

	stateLock sync.Mutex
	sendErr   error
	closed    bool
}

func newMemTransport() *memTransport {
	return &memTransport{
		idGenerator: NewPacketIdGenerator(),
		receive:     make(chan *protocol.Envelope, 32),
		sent:        make(chan *protocol.Envelope, 32),
	}
}

func (self *memTransport) setSendErr(err error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.sendErr = err
}

func (self *memTransport) Send(ctx context.Context, env *protocol.Envelope) (protocol.PacketId, error) {
	self.stateLock.Lock()
	sendErr := self.sendErr
	self.stateLock.Unlock()
	if sendErr != nil {
		return 0, sendErr
	}

	env.Id = self.idGenerator.NextPacketId()
	self.sent <- env
	return env.Id, nil
}

func (self *memTransport) Receive() <-chan *protocol.Envelope {
	return self.receive
}

func (self *memTransport) Inject(env *protocol.Envelope) {
	self.receive <- env
}

func (self *memTransport) Close() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if !self.closed {
		self.closed = true
		close(self.receive)
	}
}

func expectSent(t *testing.T, transport *memTransport) *protocol.Envelope {
	select {
	case env := <-transport.sent:
		return env
	case <-time.After(5 * time.Second):
		t.Fatal("no envelope sent")
		return nil
	}
}

func expectNoSent(t *testing.T, transport *memTransport) {
	select {
	case env := <-transport.sent:
		t.Fatalf("unexpected envelope sent: %s", env)
	case <-time.After(200 * time.Millisecond):
	}
}

func waitForState(t *testing.T, client *SyncClient, predicate func(state ConfigSyncState) bool) ConfigSyncState {
	end := time.Now().Add(5 * time.Second)
	for {
		notify := client.NotifyChannel()
		state := client.Snapshot()
		if predicate(state) {
			return state
		}
		if time.Now().After(end) {
			t.Fatalf("state predicate never satisfied, response = %#v", state.Response)
		}
		select {
		case <-notify:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func TestSyncChannelRoute(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := newMemTransport()
	client := NewSyncClientWithDefaults(ctx, transport, testLocalNodeId)
	defer client.Close()

	client.BeginRoute(RouteChannels)
	assert.Equal(t, nil, client.GetChannel(testRemoteNodeId, 0))

	firstDisabledIndex := 3
	channelRequests := 0
	for {
		sent := expectSent(t, transport)
		assert.Equal(t, testRemoteNodeId, sent.To)

		if request, ok := sent.Payload.(*protocol.GetChannelRequest); ok {
			assert.Equal(t, channelRequests, request.Index)
			channelRequests += 1

			role := protocol.ChannelRoleSecondary
			if request.Index == 0 {
				role = protocol.ChannelRolePrimary
			}
			if request.Index == firstDisabledIndex {
				role = protocol.ChannelRoleDisabled
			}
			transport.Inject(&protocol.Envelope{
				From:      testRemoteNodeId,
				To:        testLocalNodeId,
				Id:        9000 + protocol.PacketId(request.Index),
				RequestId: sent.Id,
				Payload: &protocol.ChannelResponse{
					Channel: testChannel(request.Index, role, "ch"),
				},
			})
			continue
		}

		request, ok := sent.Payload.(*protocol.GetConfigRequest)
		if !ok {
			t.Fatalf("unexpected request %T", sent.Payload)
		}
		assert.Equal(t, protocol.ConfigVariantLoRa, request.Variant)
		transport.Inject(&protocol.Envelope{
			From:      testRemoteNodeId,
			To:        testLocalNodeId,
			Id:        9100,
			RequestId: sent.Id,
			Payload: &protocol.ConfigResponse{
				Config: protocol.Config{Variant: protocol.ConfigVariantLoRa},
			},
		})
		break
	}

	// request count is firstDisabledIndex+1
	assert.Equal(t, 4, channelRequests)

	state := waitForState(t, client, func(state ConfigSyncState) bool {
		return state.Response == ResponseState(ResponseStateLoading{Total: 5, Completed: 5})
	})
	assert.Equal(t, 4, len(state.Channels))
	assert.Equal(t, protocol.ConfigVariantLoRa, state.RadioConfig.Variant)
}

func TestSyncOrphanedResponseIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := newMemTransport()
	client := NewSyncClientWithDefaults(ctx, transport, testLocalNodeId)
	defer client.Close()

	client.BeginRoute(RouteRadioConfig)
	assert.Equal(t, nil, client.GetOwner(testRemoteNodeId))
	requestA := expectSent(t, transport)

	assert.Equal(t, nil, client.GetConfig(testRemoteNodeId, protocol.ConfigVariantDevice))
	requestB := expectSent(t, transport)

	// the reply to the orphaned request is dropped
	transport.Inject(&protocol.Envelope{
		From:      testRemoteNodeId,
		To:        testLocalNodeId,
		RequestId: requestA.Id,
		Payload: &protocol.OwnerResponse{
			Owner: protocol.Owner{LongName: "Stale"},
		},
	})
	transport.Inject(&protocol.Envelope{
		From:      testRemoteNodeId,
		To:        testLocalNodeId,
		RequestId: requestB.Id,
		Payload: &protocol.ConfigResponse{
			Config: protocol.Config{Variant: protocol.ConfigVariantDevice},
		},
	})

	state := waitForState(t, client, func(state ConfigSyncState) bool {
		return state.RadioConfig != nil
	})
	assert.Equal(t, nil, state.User)
}

func TestSyncWriteAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := newMemTransport()
	client := NewSyncClientWithDefaults(ctx, transport, testLocalNodeId)
	defer client.Close()

	client.BeginRoute(RouteUser)
	assert.Equal(t, nil, client.SetOwner(testRemoteNodeId, protocol.Owner{LongName: "Base Camp"}))
	sent := expectSent(t, transport)

	transport.Inject(&protocol.Envelope{
		From:      testRemoteNodeId,
		To:        testLocalNodeId,
		RequestId: sent.Id,
		Payload:   &protocol.RoutingPayload{Error: protocol.RouteErrorNone},
	})

	state := waitForState(t, client, func(state ConfigSyncState) bool {
		_, ok := state.Response.(ResponseStateSuccess)
		return ok
	})
	assert.Equal(t, ResponseStateSuccess{Success: true}, state.Response)
	// a routing ack never continues the read pipeline
	expectNoSent(t, transport)
}

func TestSyncRequestTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := DefaultSyncSettings()
	settings.RequestTimeout = 50 * time.Millisecond

	transport := newMemTransport()
	client := NewSyncClient(ctx, transport, testLocalNodeId, settings)
	defer client.Close()

	client.BeginRoute(RouteUser)
	assert.Equal(t, nil, client.GetOwner(testRemoteNodeId))
	expectSent(t, transport)

	state := waitForState(t, client, func(state ConfigSyncState) bool {
		_, ok := state.Response.(ResponseStateError)
		return ok
	})
	assert.Equal(t, ResponseStateError{Message: "request timed out"}, state.Response)

	_, awaited := client.tracker.Awaited()
	assert.Equal(t, false, awaited)
}

func TestUpdateChannelsPersistsLocal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := newMemTransport()
	client := NewSyncClientWithDefaults(ctx, transport, testLocalNodeId)
	defer client.Close()

	store := NewChannelStore(filepath.Join(t.TempDir(), "channels.cbor"))
	client.SetChannelStore(store)

	newList := []protocol.Channel{
		testChannel(0, protocol.ChannelRolePrimary, "main"),
		testChannel(1, protocol.ChannelRoleSecondary, "alt"),
	}
	assert.Equal(t, nil, client.UpdateChannels(testLocalNodeId, nil, newList))

	for i := 0; i < 2; i += 1 {
		sent := expectSent(t, transport)
		request, ok := sent.Payload.(*protocol.SetChannelRequest)
		if !ok {
			t.Fatalf("expected channel write, got %T", sent.Payload)
		}
		assert.Equal(t, i, request.Channel.Index)
	}

	stored, err := store.Load()
	assert.Equal(t, nil, err)
	assert.Equal(t, newList, stored)
}
