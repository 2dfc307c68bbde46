package protocol

import (
	"fmt"
)

// The maximum number of channel slots a radio carries. Index space is
// 0..MaxChannels-1 regardless of how many slots are in use.
const MaxChannels = 8

// id for packets addressed to every node in range
const BroadcastNodeId = NodeId(0xffffffff)

// comparable
type NodeId uint32

func (self NodeId) IsBroadcast() bool {
	return self == BroadcastNodeId
}

func (self NodeId) String() string {
	return fmt.Sprintf("!%08x", uint32(self))
}

// transport-assigned correlation id. 0 means unset.
type PacketId uint32

func (self PacketId) IsSet() bool {
	return self != 0
}

// Envelope is one received packet as exposed by the transport:
// addressing, the echoed correlation id, and the decoded payload.
// Payload is nil when the transport could not decode the packet body.
type Envelope struct {
	From NodeId
	To   NodeId
	// id of this packet, assigned by the sending transport
	Id PacketId
	// id of the request this packet replies to, echoed by the radio
	RequestId PacketId
	Payload   Payload
}

func (self *Envelope) String() string {
	return fmt.Sprintf("%s->%s[id=%d,req=%d]", self.From, self.To, self.Id, self.RequestId)
}

// Payload is a closed union over the payload families a packet can carry.
// The admin family is further split by `AdminPayload`.
type Payload interface {
	isPayload()
}

// payload bytes the transport could not interpret. Kept so observers of the
// full stream still see the packet.
type RawPayload struct {
	Bytes []byte
}

func (*RawPayload) isPayload() {}
