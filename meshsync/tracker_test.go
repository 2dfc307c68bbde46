package meshsync

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/meshadm/meshsync/protocol"
)

func TestTrackerDispatchFailureLeavesSlot(t *testing.T) {
	tracker := NewRequestTracker()

	_, err := tracker.Dispatch(func() (protocol.PacketId, error) {
		return 7, nil
	})
	assert.Equal(t, nil, err)

	_, err = tracker.Dispatch(func() (protocol.PacketId, error) {
		return 0, errors.New("radio unreachable")
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	awaitedId, ok := tracker.Awaited()
	assert.Equal(t, true, ok)
	assert.Equal(t, protocol.PacketId(7), awaitedId)
}

func TestTrackerMatchConsumesOnce(t *testing.T) {
	tracker := NewRequestTracker()
	tracker.Dispatch(func() (protocol.PacketId, error) {
		return 7, nil
	})

	env := &protocol.Envelope{RequestId: 7}
	assert.Equal(t, true, tracker.Match(env))
	assert.Equal(t, false, tracker.Match(env))

	_, ok := tracker.Awaited()
	assert.Equal(t, false, ok)
}

func TestTrackerNoMatchKeepsSlot(t *testing.T) {
	tracker := NewRequestTracker()
	tracker.Dispatch(func() (protocol.PacketId, error) {
		return 7, nil
	})

	assert.Equal(t, false, tracker.Match(&protocol.Envelope{RequestId: 8}))
	awaitedId, ok := tracker.Awaited()
	assert.Equal(t, true, ok)
	assert.Equal(t, protocol.PacketId(7), awaitedId)
}

func TestTrackerOverwriteOrphans(t *testing.T) {
	tracker := NewRequestTracker()
	tracker.Dispatch(func() (protocol.PacketId, error) {
		return 7, nil
	})
	tracker.Dispatch(func() (protocol.PacketId, error) {
		return 8, nil
	})

	// the reply to the orphaned request no longer matches anything
	assert.Equal(t, false, tracker.Match(&protocol.Envelope{RequestId: 7}))
	assert.Equal(t, true, tracker.Match(&protocol.Envelope{RequestId: 8}))
}

func TestTrackerClearIf(t *testing.T) {
	tracker := NewRequestTracker()
	tracker.Dispatch(func() (protocol.PacketId, error) {
		return 7, nil
	})

	assert.Equal(t, false, tracker.ClearIf(8))
	assert.Equal(t, true, tracker.ClearIf(7))
	assert.Equal(t, false, tracker.ClearIf(7))
}
