package meshsync

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// comparable. Used for subscription and session handles inside this package,
// never on the wire.
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func (self Id) String() string {
	return ulid.ULID(self).String()
}

// Route names one logical configuration screen driven by a multi-step fetch.
// The channel-editing route is the only one that paginates the full channel
// table; other routes stop at the first non-disabled pivot.
type Route string

const (
	RouteNone           Route = ""
	RouteChannels       Route = "channels"
	RouteRadioConfig    Route = "radio_config"
	RouteModuleConfig   Route = "module_config"
	RouteUser           Route = "user"
	RouteCannedMessages Route = "canned_messages"
	RouteRingtone       Route = "ringtone"
)

type SyncSettings struct {
	// zero disables the request timeout, leaving an unanswered request
	// in Loading until the caller clears or re-dispatches. See DESIGN.md.
	RequestTimeout time.Duration
}

func DefaultSyncSettings() *SyncSettings {
	return &SyncSettings{
		RequestTimeout: 0,
	}
}
