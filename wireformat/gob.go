package wireformat

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/pkg/errors"
)

// init registers the concrete types a Record's []any elements commonly
// hold, so gob can encode them through the interface{} slots without
// every caller having to remember to register its own scalar types.
// Callers passing custom concrete struct types through a Channel must
// call RegisterType themselves (gob's own requirement, not one this
// package can remove).
func init() {
	for _, v := range []any{
		"", 0, int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
		float32(0), float64(0), false,
		[]byte(nil), []any(nil), map[string]any(nil),
		time.Time{},
	} {
		gob.Register(v)
	}
}

// RegisterType registers a concrete type with the gob codec so values of
// that type can travel inside a Record's []any slots. Mirrors gob's own
// gob.Register, exposed here so callers don't need a direct gob import
// just to use the Storable-equivalent codec.
func RegisterType(v any) { gob.Register(v) }

type gobCodec struct{}

// Gob is the "Storable"-equivalent codec: the default, general-purpose
// codec, grounded on the Go standard library's gob encoding (the closest
// idiomatic analogue to a historical Storable payload — a self-describing
// binary format requiring no schema, tolerant of arbitrary nested Go
// values once their concrete types are registered).
var Gob Codec = gobCodec{}

func (gobCodec) Name() string { return NameStorable }

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	// Encoding through &v sends v as an interface value, the only form
	// Unmarshal's Decode into *any accepts.
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	ptr, ok := v.(*any)
	if !ok {
		return errors.Errorf("wireformat: gob codec requires *any, got %T", v)
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(ptr); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
