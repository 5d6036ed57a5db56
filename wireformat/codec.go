// Package wireformat implements the pluggable record codecs Channel
// selects between at construction: a default, general-purpose codec
// ("Storable"-equivalent) and a faster, narrower one ("Sereal"-
// equivalent). On-wire compatibility between the two is not required;
// agreement between peers of a Channel is the caller's responsibility.
package wireformat

// Record is the value shape every Codec marshals: an ordered []any.
type Record = []any

// Codec marshals and unmarshals the records a Channel frames onto the
// wire. Both directions of a Channel must agree on the codec: a mismatch
// corrupts data silently.
type Codec interface {
	// Name identifies the codec, used only for diagnostics/logging.
	Name() string

	// Marshal serialises v (always a Record, i.e. []any) to wire bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes wire bytes produced by Marshal back into *v,
	// where v is always a *Record.
	Unmarshal(data []byte, v any) error
}

// Names of the two supported codecs.
const (
	NameStorable = "Storable"
	NameSereal   = "Sereal"
)

// ByName returns the codec for name ("Storable" or "Sereal"), or
// (nil, false) if name is unrecognised.
func ByName(name string) (Codec, bool) {
	switch name {
	case NameStorable:
		return Gob, true
	case NameSereal:
		return JSON, true
	default:
		return nil, false
	}
}
