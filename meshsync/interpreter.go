package meshsync

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/meshadm/meshsync/protocol"
)

// resolves a node id to its display name
type NodeNameFunction func(nodeId protocol.NodeId) (string, bool)

// NextAction is the follow-up request an interpretation step decided on.
// Returning it (instead of dispatching from inside the handler) keeps each
// protocol step independently testable.
type NextAction struct {
	Admin       protocol.AdminPayload
	Destination protocol.NodeId
}

// Interpreter decodes a matched entry and applies its effects to the sync
// state. It never touches the correlation slot; demultiplexing happened
// before it runs. Payload-kind branching exists only to interpret an
// already-identified reply and pick the next chained action.
type Interpreter struct {
	state       *stateStore
	nodeName    NodeNameFunction
	maxChannels int
}

func NewInterpreter(state *stateStore, nodeName NodeNameFunction) *Interpreter {
	return &Interpreter{
		state:       state,
		nodeName:    nodeName,
		maxChannels: protocol.MaxChannels,
	}
}

// Interpret applies one matched entry. `destination` is the node the awaited
// request targeted. The returned action, if any, continues the route.
func (self *Interpreter) Interpret(env *protocol.Envelope, destination protocol.NodeId) *NextAction {
	if traceroute, ok := env.Payload.(*protocol.TraceroutePayload); ok {
		// transient result outside the response lifecycle. Rendered even
		// while Error is sticky.
		self.state.setTraceroute(renderTraceroute(traceroute.Route, destination, env.To, self.nodeName))
		return nil
	}

	if self.state.isError() {
		// sticky until cleared
		return nil
	}

	if env.From != destination {
		self.state.setError(fmt.Sprintf("Unexpected sender: %s instead of %s.", env.From, destination))
		return nil
	}

	switch v := env.Payload.(type) {
	case *protocol.ChannelResponse:
		return self.interpretChannel(v.Channel, destination)
	case *protocol.OwnerResponse:
		self.state.setUser(v.Owner)
		self.state.completeStep()
	case *protocol.ConfigResponse:
		self.state.setRadioConfig(v.Config)
		self.state.completeStep()
		if v.Config.Variant == protocol.ConfigVariantUnset {
			self.state.setError(v.Config.Variant.String())
		}
	case *protocol.ModuleConfigResponse:
		self.state.setModuleConfig(v.ModuleConfig)
		self.state.completeStep()
		if v.ModuleConfig.Variant == protocol.ModuleVariantUnset {
			self.state.setError(v.ModuleConfig.Variant.String())
		}
	case *protocol.CannedMessagesResponse:
		self.state.setCannedMessages(v.Messages)
		self.state.completeStep()
		return &NextAction{
			Admin:       &protocol.GetModuleConfigRequest{Variant: protocol.ModuleVariantCannedMessage},
			Destination: destination,
		}
	case *protocol.RingtoneResponse:
		self.state.setRingtone(v.Ringtone)
		self.state.completeStep()
		return &NextAction{
			Admin:       &protocol.GetModuleConfigRequest{Variant: protocol.ModuleVariantExternalNotification},
			Destination: destination,
		}
	case *protocol.RoutingPayload:
		// terminal acknowledgment for a write
		if v.Error != protocol.RouteErrorNone {
			self.state.setError(v.Error.String())
		} else {
			self.state.setSuccess(true)
		}
	case *protocol.SessionPasskeyResponse:
		// not part of any route here
		glog.V(1).Infof("[interpret]ignoring session passkey from %s\n", env.From)
	case protocol.AdminPayload:
		glog.V(1).Infof("[interpret]ignoring admin payload %T from %s\n", v, env.From)
	default:
		// raw or undecoded
	}
	return nil
}

// interpretChannel is the pagination driver. Channel slots are fetched one
// at a time in index order; a disabled slot is the end-of-list sentinel.
// Either way the route pivots into the LoRa config fetch.
func (self *Interpreter) interpretChannel(channel protocol.Channel, destination protocol.NodeId) *NextAction {
	self.state.setChannel(channel)
	self.state.completeStep()

	loRaPivot := &NextAction{
		Admin:       &protocol.GetConfigRequest{Variant: protocol.ConfigVariantLoRa},
		Destination: destination,
	}

	if channel.Role == protocol.ChannelRoleDisabled {
		// the disabled slot marks the end of the list. One more step (the
		// LoRa config) remains after the slots fetched so far.
		self.state.setTotal(self.state.channelCount() + 1)
		return loRaPivot
	}

	if channel.Index+1 < self.maxChannels && self.state.route() == RouteChannels {
		return &NextAction{
			Admin:       &protocol.GetChannelRequest{Index: channel.Index + 1},
			Destination: destination,
		}
	}
	return loRaPivot
}
