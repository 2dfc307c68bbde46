package meshsync

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/meshadm/meshsync/protocol"
)

// ResponseState is the externally observable outcome of a multi-step remote
// operation. Closed union; see the transition rules on `stateStore`.
type ResponseState interface {
	isResponseState()
}

type ResponseStateEmpty struct{}

type ResponseStateLoading struct {
	Total     int
	Completed int
}

type ResponseStateSuccess struct {
	Success bool
}

type ResponseStateError struct {
	Message string
}

func (ResponseStateEmpty) isResponseState()   {}
func (ResponseStateLoading) isResponseState() {}
func (ResponseStateSuccess) isResponseState() {}
func (ResponseStateError) isResponseState()   {}

// ConfigSyncState is a point-in-time snapshot of the sync aggregate.
type ConfigSyncState struct {
	Route          Route
	User           *protocol.Owner
	Channels       []protocol.Channel
	RadioConfig    *protocol.Config
	ModuleConfig   *protocol.ModuleConfig
	Ringtone       string
	CannedMessages string
	// transient, independent of Response
	Traceroute string
	Response   ResponseState
}

type StateFunction func(state ConfigSyncState)

// stateStore owns the aggregate. Single writer (the client receive loop and
// the command surface); readers take snapshots.
//
// Response transitions:
//
//	Empty -> Loading          (BeginRoute)
//	Loading -> Loading        (step completed, or total revised upward)
//	Loading -> Success(bool)  (routing acknowledgment only)
//	Loading -> Error(message) (protocol error at any step; sticky)
//	any -> Empty              (Clear)
type stateStore struct {
	stateLock sync.Mutex
	state     ConfigSyncState

	monitor        *Monitor
	stateCallbacks *CallbackList[StateFunction]
}

func newStateStore() *stateStore {
	return &stateStore{
		state: ConfigSyncState{
			Response: ResponseStateEmpty{},
		},
		monitor:        NewMonitor(),
		stateCallbacks: NewCallbackList[StateFunction](),
	}
}

func (self *stateStore) AddStateCallback(stateCallback StateFunction) func() {
	return self.stateCallbacks.Add(stateCallback)
}

func (self *stateStore) NotifyChannel() chan struct{} {
	return self.monitor.NotifyChannel()
}

func (self *stateStore) Snapshot() ConfigSyncState {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.snapshot()
}

func (self *stateStore) snapshot() ConfigSyncState {
	state := self.state
	state.Channels = slices.Clone(self.state.Channels)
	if self.state.User != nil {
		user := *self.state.User
		state.User = &user
	}
	if self.state.RadioConfig != nil {
		radioConfig := *self.state.RadioConfig
		state.RadioConfig = &radioConfig
	}
	if self.state.ModuleConfig != nil {
		moduleConfig := *self.state.ModuleConfig
		state.ModuleConfig = &moduleConfig
	}
	return state
}

func (self *stateStore) update(mutate func(state *ConfigSyncState)) {
	var state ConfigSyncState
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		mutate(&self.state)
		state = self.snapshot()
	}()

	self.monitor.NotifyAll()
	for _, stateCallback := range self.stateCallbacks.Get() {
		HandleError(func() {
			stateCallback(state)
		})
	}
}

func (self *stateStore) isError() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	_, ok := self.state.Response.(ResponseStateError)
	return ok
}

func (self *stateStore) beginRoute(route Route) {
	self.update(func(state *ConfigSyncState) {
		*state = ConfigSyncState{
			Route: route,
			Response: ResponseStateLoading{
				Total:     1,
				Completed: 0,
			},
		}
	})
}

func (self *stateStore) clear() {
	self.update(func(state *ConfigSyncState) {
		*state = ConfigSyncState{
			Response: ResponseStateEmpty{},
		}
	})
}

func (self *stateStore) setTotal(total int) {
	self.update(func(state *ConfigSyncState) {
		if loading, ok := state.Response.(ResponseStateLoading); ok {
			loading.Total = total
			state.Response = loading
		}
	})
}

func (self *stateStore) completeStep() {
	self.update(func(state *ConfigSyncState) {
		if loading, ok := state.Response.(ResponseStateLoading); ok {
			loading.Completed += 1
			state.Response = loading
		}
	})
}

func (self *stateStore) setError(message string) {
	self.update(func(state *ConfigSyncState) {
		state.Response = ResponseStateError{
			Message: message,
		}
	})
}

func (self *stateStore) setSuccess(success bool) {
	self.update(func(state *ConfigSyncState) {
		state.Response = ResponseStateSuccess{
			Success: success,
		}
	})
}

// setChannel grows the list so `channel.Index` is addressable, then replaces
// the slot. The list never grows past `protocol.MaxChannels`.
func (self *stateStore) setChannel(channel protocol.Channel) {
	if channel.Index < 0 || protocol.MaxChannels <= channel.Index {
		return
	}
	self.update(func(state *ConfigSyncState) {
		for len(state.Channels) <= channel.Index {
			state.Channels = append(state.Channels, protocol.Channel{
				Index: len(state.Channels),
			})
		}
		state.Channels[channel.Index] = channel
	})
}

func (self *stateStore) channelCount() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return len(self.state.Channels)
}

func (self *stateStore) route() Route {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.state.Route
}

func (self *stateStore) setUser(user protocol.Owner) {
	self.update(func(state *ConfigSyncState) {
		state.User = &user
	})
}

func (self *stateStore) setRadioConfig(config protocol.Config) {
	self.update(func(state *ConfigSyncState) {
		state.RadioConfig = &config
	})
}

func (self *stateStore) setModuleConfig(moduleConfig protocol.ModuleConfig) {
	self.update(func(state *ConfigSyncState) {
		state.ModuleConfig = &moduleConfig
	})
}

func (self *stateStore) setRingtone(ringtone string) {
	self.update(func(state *ConfigSyncState) {
		state.Ringtone = ringtone
	})
}

func (self *stateStore) setCannedMessages(messages string) {
	self.update(func(state *ConfigSyncState) {
		state.CannedMessages = messages
	})
}

func (self *stateStore) setTraceroute(traceroute string) {
	self.update(func(state *ConfigSyncState) {
		state.Traceroute = traceroute
	})
}
