package channel

import (
	"syscall"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
)

// SendSync writes rec as a length-prefixed frame directly via blocking
// syscalls, regardless of WriteMode. Send (below) is the mode-aware
// entrypoint; this is exposed for callers (e.g. Routine's sync
// recv-loop) that always need blocking semantics on an otherwise async
// channel's fd.
func (c *Channel) SendSync(rec Record) error {
	payload, err := c.codec.Marshal(rec)
	if err != nil {
		return err
	}
	header := make([]byte, frameHeaderLen)
	nativeByteOrder.PutUint32(header, uint32(len(payload)))

	n, err := writeExactly(c.fd, append(header, payload...))
	if err != nil {
		defaultLogger.Err().Int("fd", c.fd).Err(err).Log("channel send failed")
		return asyncipcerr.NewIOError("channel_send", err)
	}
	defaultLogger.Debug().Int("fd", c.fd).Int("bytes", n).Log("channel sent")
	return nil
}

// RecvSync blocks until a complete frame (or EOF/error) arrives,
// returning the decoded Record. ok is false on EOF or error; errors are
// logged rather than returned.
func (c *Channel) RecvSync() (rec Record, ok bool) {
	header := make([]byte, frameHeaderLen)
	n, err := readExactly(c.fd, header)
	if err != nil {
		defaultLogger.Err().Int("fd", c.fd).Err(err).Log("channel recv header failed")
		return nil, false
	}
	if n < frameHeaderLen {
		return nil, false // EOF before a full header arrived
	}

	length := nativeByteOrder.Uint32(header)
	payload := make([]byte, length)
	n, err = readExactly(c.fd, payload)
	if err != nil {
		defaultLogger.Err().Int("fd", c.fd).Err(err).Log("channel recv payload failed")
		return nil, false
	}
	if n < int(length) {
		return nil, false
	}

	var decoded any
	if err := c.codec.Unmarshal(payload, &decoded); err != nil {
		defaultLogger.Err().Int("fd", c.fd).Err(err).Log("channel decode failed")
		return nil, false
	}
	rec, _ = decoded.(Record)
	return rec, true
}

// Send writes rec: synchronously if WriteMode is Sync, or queued
// through the async Stream otherwise.
func (c *Channel) Send(rec Record) error {
	if c.writeMode == Sync {
		return c.SendSync(rec)
	}
	frame, err := (&frameCodec{codec: c.codec}).Encode(Record(rec))
	if err != nil {
		return err
	}
	f := c.s.Write(frame, nil, nil, nil)
	_, err = f.Await(-1)
	return err
}

// readExactly appends successive unbuffered reads of fd into buf until
// n bytes are gathered, EOF, or an error. Returns the number of bytes
// gathered. This is the sync read_exactly(fd, buf, n) contract, resolved
// in favour of unbuffered I/O on both endpoints, to avoid losing bytes
// across a forked/re-exec'd child.
func readExactly(fd int, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := syscall.Read(fd, buf[total:])
		if err != nil {
			if asyncipcerr.IsNonFatal(err) {
				continue
			}
			return total, err
		}
		if n == 0 {
			return total, nil // EOF
		}
		total += n
	}
	return total, nil
}

func writeExactly(fd int, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := syscall.Write(fd, buf[total:])
		if err != nil {
			if asyncipcerr.IsNonFatal(err) {
				continue
			}
			return total, err
		}
		total += n
	}
	return total, nil
}
