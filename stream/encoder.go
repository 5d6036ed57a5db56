package stream

// Encoder decodes accumulating bytes into discrete values with a
// stop-at-partial policy: Decode must return the number of bytes
// consumed by whole records and leave any undecodable trailing bytes
// unconsumed, for the caller to retain and prepend to the next read.
type Encoder interface {
	// Decode scans buf for as many complete records as are present,
	// returning the bytes consumed and the decoded values in order.
	// Leftover bytes (buf[consumed:]) must be a prefix of a future
	// record, not an error.
	Decode(buf []byte) (consumed int, values []any, err error)

	// Encode serializes v to its wire bytes.
	Encode(v any) ([]byte, error)
}
