// Package codec encodes exported cache documents.
//
// Snapshots record the codec name and the compression in their header, so
// changing the default only affects newly written snapshots.
package codec

import "fmt"

// Codec encodes and decodes values. Implementations are safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = JSON{}

// ByName returns a built-in codec by its stable name. Compressed codecs
// are named "<codec>+<compression>", e.g. "msgpack+zstd".
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "msgpack":
		return MsgPack{}, true
	case "yaml":
		return YAML{}, true
	}
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] != '+' {
			continue
		}
		c, ok := ByName(name[:i])
		if !ok {
			return nil, false
		}
		comp, err := ParseCompression(name[i+1:])
		if err != nil || comp == None {
			return nil, false
		}
		return Compressed{Codec: c, Compression: comp}, true
	}
	return nil, false
}

// MustMarshal is like Marshal but panics on error.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
