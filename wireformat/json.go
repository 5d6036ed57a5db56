package wireformat

import (
	"encoding/json"
	"strconv"

	"github.com/joeycumines/go-utilpkg/jsonenc"
	"github.com/pkg/errors"
)

type jsonCodec struct{}

// JSON is the "Sereal"-equivalent fast-path codec: a narrower,
// faster-to-encode alternative to Gob. Scalar values (strings, floats)
// are appended directly with jsonenc's escaping/float-formatting
// routines instead of round-tripping through encoding/json's reflection
// for the common case of a flat Record ([]any of scalars); Marshal falls
// back to encoding/json for anything structurally richer (nested
// maps/slices, structs). Decode always uses encoding/json, since the
// spec only requires the codec to be agreed by both peers, not
// bidirectionally hand-optimised.
var JSON Codec = jsonCodec{}

func (jsonCodec) Name() string { return NameSereal }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	items, ok := asSlice(v)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return b, nil
	}

	buf := append([]byte(nil), '[')
	for i, item := range items {
		if i > 0 {
			buf = append(buf, ',')
		}
		fast, ok := appendScalar(buf, item)
		if !ok {
			b, err := json.Marshal(item)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			buf = append(buf, b...)
			continue
		}
		buf = fast
	}
	buf = append(buf, ']')
	return buf, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// asSlice reports whether v is a []any (a Record), returning its
// elements if so.
func asSlice(v any) ([]any, bool) {
	items, ok := v.([]any)
	if ok {
		return items, true
	}
	// Aliases of []any (Record, channel.Record) pass the assertion above.
	// Defined slice types share the underlying []any layout but fail a
	// direct type assertion; fall back to encoding/json for those rather
	// than using reflection here.
	return nil, false
}

// appendScalar appends v's JSON encoding to dst using jsonenc's
// allocation-light routines, reporting false if v isn't one of the
// scalar kinds it handles (callers fall back to encoding/json).
func appendScalar(dst []byte, v any) ([]byte, bool) {
	switch t := v.(type) {
	case nil:
		return append(dst, "null"...), true
	case string:
		return jsonenc.AppendString(dst, t), true
	case bool:
		if t {
			return append(dst, "true"...), true
		}
		return append(dst, "false"...), true
	case float64:
		return jsonenc.AppendFloat64(dst, t), true
	case float32:
		return jsonenc.AppendFloat32(dst, t), true
	case int:
		return strconv.AppendInt(dst, int64(t), 10), true
	case int64:
		return strconv.AppendInt(dst, t, 10), true
	default:
		return dst, false
	}
}
