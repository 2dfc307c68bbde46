package protocol

import (
	"bytes"
)

type ChannelRole uint8

const (
	ChannelRoleDisabled  ChannelRole = 0
	ChannelRolePrimary   ChannelRole = 1
	ChannelRoleSecondary ChannelRole = 2
)

func (self ChannelRole) String() string {
	switch self {
	case ChannelRolePrimary:
		return "PRIMARY"
	case ChannelRoleSecondary:
		return "SECONDARY"
	default:
		return "DISABLED"
	}
}

// ChannelSettings is the slot payload. The psk and name are opaque here;
// their semantics belong to the radio.
type ChannelSettings struct {
	Name            string
	Psk             []byte
	UplinkEnabled   bool
	DownlinkEnabled bool
}

func (self ChannelSettings) Equal(other ChannelSettings) bool {
	return self.Name == other.Name &&
		bytes.Equal(self.Psk, other.Psk) &&
		self.UplinkEnabled == other.UplinkEnabled &&
		self.DownlinkEnabled == other.DownlinkEnabled
}

// Channel is one slot in the ordered channel list.
type Channel struct {
	Index    int
	Role     ChannelRole
	Settings ChannelSettings
}

func (self Channel) Equal(other Channel) bool {
	return self.Index == other.Index &&
		self.Role == other.Role &&
		self.Settings.Equal(other.Settings)
}
