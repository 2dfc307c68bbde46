package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/meshadm/meshsync/meshsync"
	"github.com/meshadm/meshsync/protocol"
)

const MeshCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Mesh radio configuration sync.

Usage:
    meshctl sync (--port=<port> | --ws_url=<ws_url>) --dest=<node_id>
        [--local=<node_id>]
        [--timeout=<timeout>]
    meshctl set-owner (--port=<port> | --ws_url=<ws_url>) --dest=<node_id>
        --long_name=<long_name>
        [--short_name=<short_name>]
        [--local=<node_id>]
        [--timeout=<timeout>]
    meshctl traceroute (--port=<port> | --ws_url=<ws_url>) --dest=<node_id>
        [--local=<node_id>]
        [--timeout=<timeout>]

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --port=<port>              Serial port of the local radio.
    --ws_url=<ws_url>          Websocket url of a bridged radio.
    --dest=<node_id>           Destination node, e.g. !a1b2c3d4.
    --local=<node_id>          Local node id [default: !00000000].
    --timeout=<timeout>        Overall timeout in seconds [default: 30].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], MeshCtlVersion)
	if err != nil {
		panic(err)
	}

	if sync_, _ := opts.Bool("sync"); sync_ {
		syncConfig(opts)
	} else if setOwner, _ := opts.Bool("set-owner"); setOwner {
		setOwnerCommand(opts)
	} else if traceroute, _ := opts.Bool("traceroute"); traceroute {
		tracerouteCommand(opts)
	}
}

func parseNodeId(nodeIdStr string) (protocol.NodeId, error) {
	nodeIdStr = strings.TrimPrefix(nodeIdStr, "!")
	nodeId, err := strconv.ParseUint(nodeIdStr, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("cannot parse node id %q: %s", nodeIdStr, err)
	}
	return protocol.NodeId(nodeId), nil
}

func newClient(ctx context.Context, opts docopt.Opts) (*meshsync.SyncClient, meshsync.Transport, time.Duration) {
	timeoutSeconds, err := opts.Int("--timeout")
	if err != nil {
		timeoutSeconds = 30
	}
	timeout := time.Duration(timeoutSeconds) * time.Second

	var transport meshsync.Transport
	if port, err := opts.String("--port"); err == nil && port != "" {
		transport, err = meshsync.NewSerialTransportWithDefaults(ctx, port)
		if err != nil {
			Err.Fatalf("cannot open serial port: %s", err)
		}
	} else if wsUrl, err := opts.String("--ws_url"); err == nil && wsUrl != "" {
		transport, err = meshsync.NewWsTransportWithDefaults(ctx, wsUrl)
		if err != nil {
			Err.Fatalf("cannot connect websocket: %s", err)
		}
	} else {
		Err.Fatalf("one of --port or --ws_url is required")
	}

	localStr, _ := opts.String("--local")
	localNodeId, err := parseNodeId(localStr)
	if err != nil {
		Err.Fatalf("%s", err)
	}

	settings := meshsync.DefaultSyncSettings()
	settings.RequestTimeout = timeout
	client := meshsync.NewSyncClient(ctx, transport, localNodeId, settings)
	return client, transport, timeout
}

func destNodeId(opts docopt.Opts) protocol.NodeId {
	destStr, _ := opts.String("--dest")
	destination, err := parseNodeId(destStr)
	if err != nil {
		Err.Fatalf("%s", err)
	}
	return destination
}

// waitDone blocks until the predicate holds or the response state turns
// terminal, whichever comes first.
func waitDone(client *meshsync.SyncClient, timeout time.Duration, predicate func(state meshsync.ConfigSyncState) bool) meshsync.ConfigSyncState {
	end := time.Now().Add(timeout)
	for {
		notify := client.NotifyChannel()
		state := client.Snapshot()
		if predicate(state) {
			return state
		}
		switch state.Response.(type) {
		case meshsync.ResponseStateSuccess, meshsync.ResponseStateError:
			return state
		}
		remaining := time.Until(end)
		if remaining <= 0 {
			return state
		}
		select {
		case <-notify:
		case <-time.After(remaining):
		}
	}
}

// channelSyncDone reports whether the channel route has run to its end.
// Loading counters are not enough: the total is only revised once the
// disabled sentinel arrives, so mid-pagination the counters can read as
// complete. The route ends with the radio config fetch on both paths.
func channelSyncDone(state meshsync.ConfigSyncState) bool {
	return state.RadioConfig != nil
}

func syncConfig(opts docopt.Opts) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, transport, timeout := newClient(ctx, opts)
	defer transport.Close()
	defer client.Close()

	destination := destNodeId(opts)

	client.BeginRoute(meshsync.RouteChannels)
	if err := client.GetChannel(destination, 0); err != nil {
		Err.Fatalf("dispatch error: %s", err)
	}

	state := waitDone(client, timeout, channelSyncDone)

	if errState, ok := state.Response.(meshsync.ResponseStateError); ok {
		Err.Fatalf("sync error: %s", errState.Message)
	}

	Out.Printf("channels (%d):", len(state.Channels))
	for _, channel := range state.Channels {
		Out.Printf("  %d %-9s %s", channel.Index, channel.Role, channel.Settings.Name)
	}
	if state.RadioConfig != nil {
		Out.Printf("radio config: %s (%d bytes)", state.RadioConfig.Variant, len(state.RadioConfig.Payload))
	}
}

func setOwnerCommand(opts docopt.Opts) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, transport, timeout := newClient(ctx, opts)
	defer transport.Close()
	defer client.Close()

	destination := destNodeId(opts)
	longName, _ := opts.String("--long_name")
	shortName, _ := opts.String("--short_name")

	client.BeginRoute(meshsync.RouteUser)
	err := client.SetOwner(destination, protocol.Owner{
		LongName:  longName,
		ShortName: shortName,
	})
	if err != nil {
		Err.Fatalf("dispatch error: %s", err)
	}

	state := waitDone(client, timeout, func(state meshsync.ConfigSyncState) bool {
		return false
	})
	switch v := state.Response.(type) {
	case meshsync.ResponseStateSuccess:
		Out.Printf("ok")
	case meshsync.ResponseStateError:
		Err.Fatalf("write error: %s", v.Message)
	default:
		Err.Fatalf("no acknowledgment")
	}
}

func tracerouteCommand(opts docopt.Opts) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, transport, timeout := newClient(ctx, opts)
	defer transport.Close()
	defer client.Close()

	destination := destNodeId(opts)

	if err := client.Traceroute(destination); err != nil {
		Err.Fatalf("dispatch error: %s", err)
	}

	state := waitDone(client, timeout, func(state meshsync.ConfigSyncState) bool {
		return state.Traceroute != ""
	})
	if state.Traceroute == "" {
		Err.Fatalf("no traceroute response")
	}
	Out.Printf("%s", state.Traceroute)
}
