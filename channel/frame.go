package channel

import (
	"encoding/binary"
	"io"
	"unsafe"

	"github.com/joeycumines/go-asyncipc/stream"
	"github.com/joeycumines/go-asyncipc/wireformat"
)

// nativeByteOrder matches the wire format's "uint32 length in native
// byte order (pack 'I')" framing: whatever this process's own
// architecture uses, not a fixed endianness. Channel peers must run the
// same architecture family for this to round-trip, mirroring the
// historical format's own platform-dependence.
var nativeByteOrder = func() binary.ByteOrder {
	var x uint16 = 1
	if (*[2]byte)(unsafe.Pointer(&x))[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()

const frameHeaderLen = 4

// frameCodec adapts a wireformat.Codec into a stream.Encoder: Decode
// consumes as many complete length-prefixed frames as buf holds,
// leaving a partial trailing frame for the next read ("stop at
// partial" policy); Encode produces one frame's wire bytes for a single
// Record write through the Stream.
type frameCodec struct {
	codec wireformat.Codec
}

func (f *frameCodec) Decode(buf []byte) (consumed int, values []any, err error) {
	for {
		if len(buf) < frameHeaderLen {
			return consumed, values, nil
		}
		length := nativeByteOrder.Uint32(buf[:frameHeaderLen])
		total := frameHeaderLen + int(length)
		if len(buf) < total {
			return consumed, values, nil
		}
		payload := buf[frameHeaderLen:total]
		var decoded any
		if err := f.codec.Unmarshal(payload, &decoded); err != nil {
			return consumed, values, err
		}
		rec, _ := decoded.(Record)
		values = append(values, rec)
		consumed += total
		buf = buf[total:]
	}
}

func (f *frameCodec) Encode(v any) ([]byte, error) {
	rec, _ := v.(Record)
	payload, err := f.codec.Marshal(rec)
	if err != nil {
		return nil, err
	}
	out := make([]byte, frameHeaderLen+len(payload))
	nativeByteOrder.PutUint32(out[:frameHeaderLen], uint32(len(payload)))
	copy(out[frameHeaderLen:], payload)
	return out, nil
}

// onStreamRead is installed as the Stream's OnRead handler: it drains
// every Record the frameCodec has decoded so far, dispatching each to
// the head of the result queue (if any) or OnRecv.
func (c *Channel) onStreamRead(s *stream.Stream, _ []byte, eof bool) stream.ReadAction {
	for {
		v, ok := s.PopDecoded()
		if !ok {
			break
		}
		rec, _ := v.(Record)
		c.dispatchRecv(rec)
	}
	if eof {
		c.dispatchEOF()
		return stream.Pop()
	}
	return stream.KeepIfData()
}

func (c *Channel) dispatchRecv(rec Record) {
	if len(c.resultQueue) > 0 {
		p := c.resultQueue[0]
		c.resultQueue = c.resultQueue[1:]
		if p.onRecv != nil {
			p.onRecv(rec)
		}
		if p.f != nil {
			p.f.Done(rec)
		}
		return
	}
	if c.onRecv != nil {
		c.onRecv(rec)
	}
}

func (c *Channel) dispatchEOF() {
	c.eof = true
	pending := c.resultQueue
	c.resultQueue = nil
	for _, p := range pending {
		if p.onEOF != nil {
			p.onEOF()
		}
		if p.f != nil {
			p.f.Fail(io.EOF)
		}
	}
	if c.onEOF != nil {
		c.onEOF()
	}
}
