package meshsync

import (
	"sync"

	"github.com/golang/glog"

	"github.com/meshadm/meshsync/protocol"
)

// sends one outbound packet and returns the transport-assigned id
type DispatchFunction func() (protocol.PacketId, error)

// RequestTracker is the single-slot correlation table. At most one
// correlated request is outstanding; dispatching another overwrites the
// slot and orphans the earlier request, whose eventual reply no longer
// matches anything and is dropped.
type RequestTracker struct {
	stateLock sync.Mutex
	awaitedId protocol.PacketId
}

func NewRequestTracker() *RequestTracker {
	return &RequestTracker{}
}

// Dispatch runs `send`. On success the returned id becomes the awaited id.
// On failure the slot is left unchanged and the operation is abandoned.
func (self *RequestTracker) Dispatch(send DispatchFunction) (protocol.PacketId, error) {
	requestId, err := send()
	if err != nil {
		return 0, err
	}

	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if self.awaitedId.IsSet() {
		glog.V(1).Infof("[tracker]orphan request %d, now awaiting %d\n", self.awaitedId, requestId)
	}
	self.awaitedId = requestId
	return requestId, nil
}

// Match reports whether `env` answers the awaited request. On a match the
// slot is cleared before returning, so a response is consumed at most once.
func (self *RequestTracker) Match(env *protocol.Envelope) bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if !self.awaitedId.IsSet() {
		return false
	}
	if env.RequestId != self.awaitedId {
		return false
	}
	self.awaitedId = 0
	return true
}

func (self *RequestTracker) Awaited() (protocol.PacketId, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.awaitedId, self.awaitedId.IsSet()
}

func (self *RequestTracker) Clear() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.awaitedId = 0
}

// ClearIf clears the slot only if it still holds `requestId`.
// Used by the timeout path so a timer for an orphaned request cannot
// clobber a newer one.
func (self *RequestTracker) ClearIf(requestId protocol.PacketId) bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if self.awaitedId != requestId {
		return false
	}
	self.awaitedId = 0
	return true
}
