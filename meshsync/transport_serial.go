package meshsync

import (
	"context"

	"go.bug.st/serial"
)

type SerialTransportSettings struct {
	BaudRate          int
	ReceiveBufferSize int
}

func DefaultSerialTransportSettings() *SerialTransportSettings {
	return &SerialTransportSettings{
		BaudRate:          115200,
		ReceiveBufferSize: 32,
	}
}

// SerialTransport frames envelopes over a serial port.
type SerialTransport struct {
	*streamTransport

	portName string
}

func NewSerialTransportWithDefaults(ctx context.Context, portName string) (*SerialTransport, error) {
	return NewSerialTransport(ctx, portName, DefaultSerialTransportSettings())
}

func NewSerialTransport(ctx context.Context, portName string, settings *SerialTransportSettings) (*SerialTransport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: settings.BaudRate,
	})
	if err != nil {
		return nil, err
	}
	return &SerialTransport{
		streamTransport: newStreamTransport(ctx, port, settings.ReceiveBufferSize),
		portName:        portName,
	}, nil
}
