package meshsync

import (
	"context"
	"errors"
	"io"
	mathrand "math/rand"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/meshadm/meshsync/protocol"
)

var ErrTransportClosed = errors.New("transport closed")

// Transport moves envelopes to and from the radio. Send assigns a fresh
// packet id and returns it; the returned id is what a correlated reply will
// echo. Receive exposes the full stream of packets heard by the radio, not
// just replies.
type Transport interface {
	Send(ctx context.Context, env *protocol.Envelope) (protocol.PacketId, error)
	Receive() <-chan *protocol.Envelope
	Close()
}

// PacketIdGenerator hands out nonzero packet ids. The start is randomized
// so ids do not collide across restarts.
type PacketIdGenerator struct {
	nextId uint32
}

func NewPacketIdGenerator() *PacketIdGenerator {
	return &PacketIdGenerator{
		nextId: mathrand.Uint32(),
	}
}

func (self *PacketIdGenerator) NextPacketId() protocol.PacketId {
	for {
		id := atomic.AddUint32(&self.nextId, 1)
		if id != 0 {
			return protocol.PacketId(id)
		}
	}
}

// streamTransport frames envelopes over a byte stream.
// Serial uses this directly; see `SerialTransport`.
type streamTransport struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn        io.ReadWriteCloser
	idGenerator *PacketIdGenerator

	writeLock sync.Mutex
	receive   chan *protocol.Envelope
}

func newStreamTransport(ctx context.Context, conn io.ReadWriteCloser, receiveBufferSize int) *streamTransport {
	cancelCtx, cancel := context.WithCancel(ctx)
	transport := &streamTransport{
		ctx:         cancelCtx,
		cancel:      cancel,
		conn:        conn,
		idGenerator: NewPacketIdGenerator(),
		receive:     make(chan *protocol.Envelope, receiveBufferSize),
	}
	go transport.run()
	return transport
}

func (self *streamTransport) run() {
	defer func() {
		self.cancel()
		close(self.receive)
	}()

	frameReader := protocol.NewFrameReader(self.conn)
	for {
		select {
		case <-self.ctx.Done():
			return
		default:
		}

		envelopeBytes, err := frameReader.ReadFrame()
		if err != nil {
			glog.Infof("[ts]read error = %s\n", err)
			return
		}
		env, err := protocol.UnmarshalEnvelope(envelopeBytes)
		if err != nil {
			glog.V(1).Infof("[ts]drop bad envelope = %s\n", err)
			continue
		}

		select {
		case <-self.ctx.Done():
			return
		case self.receive <- env:
		}
	}
}

func (self *streamTransport) Send(ctx context.Context, env *protocol.Envelope) (protocol.PacketId, error) {
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
	frame, err := protocol.FrameBytes(envelopeBytes)
	if err != nil {
		return 0, err
	}

	self.writeLock.Lock()
	defer self.writeLock.Unlock()
	if _, err := self.conn.Write(frame); err != nil {
		return 0, err
	}
	return env.Id, nil
}

func (self *streamTransport) Receive() <-chan *protocol.Envelope {
	return self.receive
}

func (self *streamTransport) Close() {
	self.cancel()
	self.conn.Close()
}
