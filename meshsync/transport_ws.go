package meshsync

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/meshadm/meshsync/protocol"
)

type WsTransportSettings struct {
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	ReadTimeout       time.Duration
	PingTimeout       time.Duration
	ReceiveBufferSize int
}

func DefaultWsTransportSettings() *WsTransportSettings {
	return &WsTransportSettings{
		HandshakeTimeout:  5 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReadTimeout:       30 * time.Second,
		PingTimeout:       15 * time.Second,
		ReceiveBufferSize: 32,
	}
}

// WsTransport carries envelopes as binary websocket messages, for radios
// bridged over the network. An empty binary message is a keepalive.
type WsTransport struct {
	ctx    context.Context
	cancel context.CancelFunc

	ws          *websocket.Conn
	idGenerator *PacketIdGenerator
	settings    *WsTransportSettings

	writeLock sync.Mutex
	receive   chan *protocol.Envelope
}

func NewWsTransportWithDefaults(ctx context.Context, wsUrl string) (*WsTransport, error) {
	return NewWsTransport(ctx, wsUrl, DefaultWsTransportSettings())
}

func NewWsTransport(ctx context.Context, wsUrl string, settings *WsTransportSettings) (*WsTransport, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: settings.HandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, wsUrl, nil)
	if err != nil {
		return nil, err
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	transport := &WsTransport{
		ctx:         cancelCtx,
		cancel:      cancel,
		ws:          ws,
		idGenerator: NewPacketIdGenerator(),
		settings:    settings,
		receive:     make(chan *protocol.Envelope, settings.ReceiveBufferSize),
	}
	go transport.run()
	go transport.ping()
	return transport, nil
}

func (self *WsTransport) run() {
	defer func() {
		self.cancel()
		close(self.receive)
		self.ws.Close()
	}()

	for {
		select {
		case <-self.ctx.Done():
			return
		default:
		}

		self.ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		messageType, message, err := self.ws.ReadMessage()
		if err != nil {
			glog.Infof("[tw]<- error = %s\n", err)
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			if len(message) == 0 {
				// keepalive
				continue
			}
			env, err := protocol.UnmarshalEnvelope(message)
			if err != nil {
				glog.V(1).Infof("[tw]drop bad envelope = %s\n", err)
				continue
			}
			select {
			case <-self.ctx.Done():
				return
			case self.receive <- env:
			}
		default:
		}
	}
}

func (self *WsTransport) ping() {
	for {
		select {
		case <-self.ctx.Done():
			return
		case <-time.After(self.settings.PingTimeout):
		}
		if err := self.write(make([]byte, 0)); err != nil {
			self.cancel()
			return
		}
	}
}

func (self *WsTransport) write(message []byte) error {
	self.writeLock.Lock()
	defer self.writeLock.Unlock()

	self.ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
	return self.ws.WriteMessage(websocket.BinaryMessage, message)
}

func (self *WsTransport) Send(ctx context.Context, env *protocol.Envelope) (protocol.PacketId, error) {
	select {
	case <-self.ctx.Done():
		return 0, ErrTransportClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	env.Id = self.idGenerator.NextPacketId()
	envelopeBytes, err := protocol.MarshalEnvelope(env)
	if err != nil {
		return 0, err
	}
	if err := self.write(envelopeBytes); err != nil {
		return 0, err
	}
	return env.Id, nil
}

func (self *WsTransport) Receive() <-chan *protocol.Envelope {
	return self.receive
}

func (self *WsTransport) Close() {
	self.cancel()
	self.ws.Close()
}
