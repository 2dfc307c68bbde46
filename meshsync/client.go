package meshsync

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/meshadm/meshsync/protocol"
)

// SyncClient exposes the configuration sync surface for one radio link.
// It owns the receive loop that demultiplexes the full packet stream
// against the single awaited request id, feeds matches to the interpreter,
// and dispatches whatever chained request the interpreter decides on.
//
// Matching and interpretation run one at a time on the receive goroutine;
// all state mutation funnels through the state store.
type SyncClient struct {
	ctx    context.Context
	cancel context.CancelFunc

	clientId    Id
	transport   Transport
	localNodeId protocol.NodeId
	settings    *SyncSettings

	tracker     *RequestTracker
	state       *stateStore
	interpreter *Interpreter

	// guards the dispatch+destination pair against the receive loop
	opLock      sync.Mutex
	destination protocol.NodeId

	nodeNameLock sync.Mutex
	nodeName     NodeNameFunction

	store *ChannelStore
}

func NewSyncClientWithDefaults(ctx context.Context, transport Transport, localNodeId protocol.NodeId) *SyncClient {
	return NewSyncClient(ctx, transport, localNodeId, DefaultSyncSettings())
}

func NewSyncClient(ctx context.Context, transport Transport, localNodeId protocol.NodeId, settings *SyncSettings) *SyncClient {
	cancelCtx, cancel := context.WithCancel(ctx)
	client := &SyncClient{
		ctx:         cancelCtx,
		cancel:      cancel,
		clientId:    NewId(),
		transport:   transport,
		localNodeId: localNodeId,
		settings:    settings,
		tracker:     NewRequestTracker(),
		state:       newStateStore(),
	}
	client.interpreter = NewInterpreter(client.state, client.lookupNodeName)
	go client.run()
	return client
}

// SetNodeNameFunction installs the display-name resolver used for
// traceroute rendering.
func (self *SyncClient) SetNodeNameFunction(nodeName NodeNameFunction) {
	self.nodeNameLock.Lock()
	defer self.nodeNameLock.Unlock()
	self.nodeName = nodeName
}

func (self *SyncClient) lookupNodeName(nodeId protocol.NodeId) (string, bool) {
	self.nodeNameLock.Lock()
	nodeName := self.nodeName
	self.nodeNameLock.Unlock()
	if nodeName == nil {
		return "", false
	}
	return nodeName(nodeId)
}

// SetChannelStore installs the local persistence used by UpdateChannels
// when the destination is the local node.
func (self *SyncClient) SetChannelStore(store *ChannelStore) {
	self.store = store
}

func (self *SyncClient) run() {
	defer self.cancel()

	for {
		select {
		case <-self.ctx.Done():
			return
		case env, ok := <-self.transport.Receive():
			if !ok {
				return
			}
			self.observe(env)
		}
	}
}

// observe evaluates one received packet against the awaited id. The slot is
// cleared the instant a match is found, before interpretation, so a reply is
// consumed at most once.
func (self *SyncClient) observe(env *protocol.Envelope) {
	self.opLock.Lock()
	matched := self.tracker.Match(env)
	destination := self.destination
	self.opLock.Unlock()

	if !matched {
		return
	}
	glog.V(1).Infof("[sync]%s matched %s\n", self.clientId, env)

	next := self.interpreter.Interpret(env, destination)
	if next != nil {
		if err := self.dispatch(next.Destination, next.Admin); err != nil {
			// transport failure: reported once, aggregate state untouched,
			// the route does not continue
			glog.Infof("[sync]%s chain dispatch error = %s\n", self.clientId, err)
		}
	}
}

// dispatch holds opLock across the send, so the awaited id is installed
// before any received packet is evaluated against it. Packets arriving
// during the write queue on the transport's receive channel.
func (self *SyncClient) dispatch(destination protocol.NodeId, payload protocol.Payload) error {
	self.opLock.Lock()
	defer self.opLock.Unlock()

	requestId, err := self.tracker.Dispatch(func() (protocol.PacketId, error) {
		return self.transport.Send(self.ctx, &protocol.Envelope{
			From:    self.localNodeId,
			To:      destination,
			Payload: payload,
		})
	})
	if err != nil {
		return err
	}
	self.destination = destination
	self.armTimeout(requestId)
	return nil
}

// armTimeout starts the opt-in request timeout. With the zero default the
// request waits forever, matching the no-timeout gap documented in
// DESIGN.md.
func (self *SyncClient) armTimeout(requestId protocol.PacketId) {
	if self.settings.RequestTimeout <= 0 {
		return
	}
	go func() {
		select {
		case <-self.ctx.Done():
			return
		case <-time.After(self.settings.RequestTimeout):
		}
		if self.tracker.ClearIf(requestId) {
			glog.Infof("[sync]%s request %d timed out\n", self.clientId, requestId)
			self.state.setError("request timed out")
		}
	}()
}

// observable state

func (self *SyncClient) Snapshot() ConfigSyncState {
	return self.state.Snapshot()
}

func (self *SyncClient) AddStateCallback(stateCallback StateFunction) func() {
	return self.state.AddStateCallback(stateCallback)
}

func (self *SyncClient) NotifyChannel() chan struct{} {
	return self.state.NotifyChannel()
}

// commands

func (self *SyncClient) BeginRoute(route Route) {
	self.state.beginRoute(route)
}

func (self *SyncClient) Clear() {
	self.tracker.Clear()
	self.state.clear()
}

func (self *SyncClient) SetTotal(total int) {
	self.state.setTotal(total)
}

func (self *SyncClient) GetOwner(destination protocol.NodeId) error {
	return self.dispatch(destination, &protocol.GetOwnerRequest{})
}

func (self *SyncClient) GetChannel(destination protocol.NodeId, index int) error {
	return self.dispatch(destination, &protocol.GetChannelRequest{Index: index})
}

func (self *SyncClient) GetConfig(destination protocol.NodeId, variant protocol.ConfigVariant) error {
	return self.dispatch(destination, &protocol.GetConfigRequest{Variant: variant})
}

func (self *SyncClient) GetModuleConfig(destination protocol.NodeId, variant protocol.ModuleVariant) error {
	return self.dispatch(destination, &protocol.GetModuleConfigRequest{Variant: variant})
}

func (self *SyncClient) GetRingtone(destination protocol.NodeId) error {
	return self.dispatch(destination, &protocol.GetRingtoneRequest{})
}

func (self *SyncClient) GetCannedMessages(destination protocol.NodeId) error {
	return self.dispatch(destination, &protocol.GetCannedMessagesRequest{})
}

func (self *SyncClient) SetOwner(destination protocol.NodeId, owner protocol.Owner) error {
	return self.dispatch(destination, &protocol.SetOwnerRequest{Owner: owner})
}

func (self *SyncClient) SetChannel(destination protocol.NodeId, channel protocol.Channel) error {
	return self.dispatch(destination, &protocol.SetChannelRequest{Channel: channel})
}

func (self *SyncClient) SetConfig(destination protocol.NodeId, config protocol.Config) error {
	return self.dispatch(destination, &protocol.SetConfigRequest{Config: config})
}

func (self *SyncClient) SetModuleConfig(destination protocol.NodeId, moduleConfig protocol.ModuleConfig) error {
	return self.dispatch(destination, &protocol.SetModuleConfigRequest{ModuleConfig: moduleConfig})
}

func (self *SyncClient) SetRingtone(destination protocol.NodeId, ringtone string) error {
	return self.dispatch(destination, &protocol.SetRingtoneRequest{Ringtone: ringtone})
}

func (self *SyncClient) SetCannedMessages(destination protocol.NodeId, messages string) error {
	return self.dispatch(destination, &protocol.SetCannedMessagesRequest{Messages: messages})
}

// UpdateChannels sends the minimal diff between `old` and `new` as
// individual channel writes, in index order. When the destination is the
// local node the authoritative new list is also persisted, without waiting
// for per-item confirmation.
func (self *SyncClient) UpdateChannels(destination protocol.NodeId, old []protocol.Channel, new []protocol.Channel) error {
	for _, update := range DiffChannels(old, new) {
		if err := self.SetChannel(destination, update); err != nil {
			return err
		}
	}
	if destination == self.localNodeId && self.store != nil {
		if err := self.store.Save(new); err != nil {
			glog.Warningf("[sync]%s channel store save error = %s\n", self.clientId, err)
			return err
		}
	}
	return nil
}

func (self *SyncClient) Traceroute(destination protocol.NodeId) error {
	return self.dispatch(destination, &protocol.TraceroutePayload{})
}

func (self *SyncClient) Done() <-chan struct{} {
	return self.ctx.Done()
}

func (self *SyncClient) Close() {
	self.cancel()
}
