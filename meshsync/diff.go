package meshsync

import (
	"github.com/meshadm/meshsync/protocol"
)

// DiffChannels computes the minimal set of channel writes that turns `old`
// into `new`. Missing slots compare as the zero value, so shrinking the list
// emits explicit disables for the trailing slots. Updates come out in
// increasing index order; unchanged slots are never emitted.
//
// Role assignment on emitted updates: index 0 is PRIMARY, indices below
// len(new) are SECONDARY, and indices at or past len(new) are DISABLED.
func DiffChannels(old []protocol.Channel, new []protocol.Channel) []protocol.Channel {
	n := len(old)
	if n < len(new) {
		n = len(new)
	}

	updates := []protocol.Channel{}
	for i := 0; i < n; i += 1 {
		oldChannel := protocol.Channel{Index: i}
		if i < len(old) {
			oldChannel = old[i]
		}
		newChannel := protocol.Channel{Index: i}
		if i < len(new) {
			newChannel = new[i]
		}
		if oldChannel.Equal(newChannel) {
			continue
		}

		update := protocol.Channel{
			Index:    i,
			Settings: newChannel.Settings,
		}
		switch {
		case i == 0:
			update.Role = protocol.ChannelRolePrimary
		case i < len(new):
			update.Role = protocol.ChannelRoleSecondary
		default:
			// clear a channel that no longer exists
			update.Role = protocol.ChannelRoleDisabled
			update.Settings = protocol.ChannelSettings{}
		}
		updates = append(updates, update)
	}
	return updates
}
