package protocol

// routing and traceroute are separate payload families from admin.
// A routing packet is the per-packet delivery acknowledgment; a traceroute
// packet carries the recorded path of a probe.

type RouteError uint8

const (
	RouteErrorNone          RouteError = 0
	RouteErrorNoRoute       RouteError = 1
	RouteErrorGotNak        RouteError = 2
	RouteErrorTimeout       RouteError = 3
	RouteErrorNoInterface   RouteError = 4
	RouteErrorMaxRetransmit RouteError = 5
	RouteErrorNoChannel     RouteError = 6
	RouteErrorTooLarge      RouteError = 7
	RouteErrorNoResponse    RouteError = 8
)

func (self RouteError) String() string {
	switch self {
	case RouteErrorNone:
		return "NONE"
	case RouteErrorNoRoute:
		return "NO_ROUTE"
	case RouteErrorGotNak:
		return "GOT_NAK"
	case RouteErrorTimeout:
		return "TIMEOUT"
	case RouteErrorNoInterface:
		return "NO_INTERFACE"
	case RouteErrorMaxRetransmit:
		return "MAX_RETRANSMIT"
	case RouteErrorNoChannel:
		return "NO_CHANNEL"
	case RouteErrorTooLarge:
		return "TOO_LARGE"
	case RouteErrorNoResponse:
		return "NO_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

type RoutingPayload struct {
	Error RouteError
}

func (*RoutingPayload) isPayload() {}

// TraceroutePayload with an empty route is a probe request; a reply carries
// the intermediate node ids in hop order from the probe's origin.
type TraceroutePayload struct {
	Route []NodeId
}

func (*TraceroutePayload) isPayload() {}
