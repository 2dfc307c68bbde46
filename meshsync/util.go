package meshsync

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/golang/glog"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Monitor notifies all waiters at once by cycling the notify channel.
type Monitor struct {
	stateLock sync.Mutex
	update    chan struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{
		update: make(chan struct{}),
	}
}

func (self *Monitor) NotifyChannel() chan struct{} {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.update
}

func (self *Monitor) NotifyAll() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	close(self.update)
	self.update = make(chan struct{})
}

// CallbackList tracks callbacks by handle since function values are not
// comparable. Get returns the callbacks in add order.
type CallbackList[T any] struct {
	stateLock sync.Mutex
	callbacks map[Id]T
	order     []Id
}

func NewCallbackList[T any]() *CallbackList[T] {
	return &CallbackList[T]{
		callbacks: map[Id]T{},
		order:     []Id{},
	}
}

// returns a function to remove the callback
func (self *CallbackList[T]) Add(callback T) func() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	callbackId := NewId()
	self.callbacks[callbackId] = callback
	self.order = append(self.order, callbackId)

	return func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		delete(self.callbacks, callbackId)
		i := slices.Index(self.order, callbackId)
		if 0 <= i {
			self.order = slices.Delete(slices.Clone(self.order), i, i+1)
		}
	}
}

func (self *CallbackList[T]) Get() []T {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	callbacks := make([]T, 0, len(self.callbacks))
	for _, callbackId := range self.order {
		if callback, ok := self.callbacks[callbackId]; ok {
			callbacks = append(callbacks, callback)
		}
	}
	return callbacks
}

func (self *CallbackList[T]) Clear() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	maps.Clear(self.callbacks)
	self.order = []Id{}
}

// HandleError runs `do` and converts a panic into a logged error passed to
// the handlers. Callbacks into user code are wrapped with this.
func HandleError(do func(), handlers ...func(error)) {
	defer func() {
		if r := recover(); r != nil {
			glog.Warningf("[util]unexpected error = %s\n%s\n", r, debug.Stack())
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%s", r)
			}
			for _, handler := range handlers {
				handler(err)
			}
		}
	}()
	do()
}
