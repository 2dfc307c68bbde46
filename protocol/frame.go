package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// stream framing for byte transports (serial, websocket tunnels).
// Each frame is START1 START2 followed by a big-endian 16 bit length and
// the envelope bytes. The reader resynchronizes on the start bytes, so a
// stream that mixes frames with debug output is still usable.

const (
	FrameStart1 = 0x94
	FrameStart2 = 0xc3

	// an envelope larger than this is a framing error
	MaxFrameSize = 512
)

func FrameBytes(envelopeBytes []byte) ([]byte, error) {
	if MaxFrameSize < len(envelopeBytes) {
		return nil, fmt.Errorf("frame too large: %d < %d", MaxFrameSize, len(envelopeBytes))
	}
	frame := make([]byte, 4+len(envelopeBytes))
	frame[0] = FrameStart1
	frame[1] = FrameStart2
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(envelopeBytes)))
	copy(frame[4:], envelopeBytes)
	return frame, nil
}

type FrameReader struct {
	reader io.Reader
}

func NewFrameReader(reader io.Reader) *FrameReader {
	return &FrameReader{
		reader: reader,
	}
}

// ReadFrame blocks until a complete frame is read and returns the envelope
// bytes. Bytes outside a frame are discarded.
func (self *FrameReader) ReadFrame() ([]byte, error) {
	one := make([]byte, 1)
	readByte := func() (byte, error) {
		if _, err := io.ReadFull(self.reader, one); err != nil {
			return 0, err
		}
		return one[0], nil
	}

	for {
		b, err := readByte()
		if err != nil {
			return nil, err
		}
		if b != FrameStart1 {
			continue
		}
		// a run of start bytes can hide a real frame start, keep scanning
		b, err = readByte()
		if err != nil {
			return nil, err
		}
		for b == FrameStart1 {
			b, err = readByte()
			if err != nil {
				return nil, err
			}
		}
		if b != FrameStart2 {
			continue
		}

		header := make([]byte, 2)
		if _, err := io.ReadFull(self.reader, header); err != nil {
			return nil, err
		}
		frameSize := int(binary.BigEndian.Uint16(header))
		if MaxFrameSize < frameSize {
			// not a real frame header, resync
			continue
		}

		envelopeBytes := make([]byte, frameSize)
		if _, err := io.ReadFull(self.reader, envelopeBytes); err != nil {
			return nil, err
		}
		return envelopeBytes, nil
	}
}
