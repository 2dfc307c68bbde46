package meshsync

import (
	"strings"

	"github.com/meshadm/meshsync/protocol"
)

// renderTraceroute renders the recorded path of a probe as a directional
// chain from the traced destination back to the probe's origin. `route`
// holds the intermediate nodes in hop order from the origin. Nodes without
// a known display name fall back to their id.
func renderTraceroute(route []protocol.NodeId, destination protocol.NodeId, source protocol.NodeId, nodeName NodeNameFunction) string {
	displayName := func(nodeId protocol.NodeId) string {
		if nodeName != nil {
			if name, ok := nodeName(nodeId); ok {
				return name
			}
		}
		return nodeId.String()
	}

	names := []string{displayName(destination)}
	for i := len(route) - 1; 0 <= i; i -= 1 {
		names = append(names, displayName(route[i]))
	}
	names = append(names, displayName(source))
	return strings.Join(names, " --> ")
}
