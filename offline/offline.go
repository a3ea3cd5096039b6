// Package offline saves exported cache documents to a snapshot store and
// restores them into a manager.
//
// A snapshot is a self-describing envelope:
//
//	[magic "BRZ1"][version uint16][name length uint16][codec name][payload]
//
// The codec name may carry a compression suffix ("msgpack+zstd"), so any
// snapshot can be decoded without knowing how it was written.
package offline

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/codec"
	"github.com/Breeze/breeze.sharp-sub000/entity"
)

var (
	magic          = [4]byte{'B', 'R', 'Z', '1'}
	headerVersion  = uint16(1)
	headerFixedLen = 8 // excludes variable codec name bytes
)

var (
	// ErrInvalidMagic is returned when data is not a snapshot envelope.
	ErrInvalidMagic = errors.New("offline: invalid magic number")

	// ErrUnknownCodec is returned when a snapshot names a codec that is not
	// built in.
	ErrUnknownCodec = errors.New("offline: unknown codec")
)

// Encode wraps doc in a snapshot envelope. A nil codec uses codec.Default.
func Encode(doc *entity.Document, c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	name := c.Name()
	if _, ok := codec.ByName(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	payload, err := c.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("offline: marshal document: %w", err)
	}
	buf := make([]byte, 0, headerFixedLen+len(name)+len(payload))
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, headerVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(name)))
	buf = append(buf, name...)
	return append(buf, payload...), nil
}

// Decode unwraps a snapshot envelope. It returns the document and the
// codec it was written with.
func Decode(data []byte) (*entity.Document, codec.Codec, error) {
	c, payload, err := readHeader(data)
	if err != nil {
		return nil, nil, err
	}
	doc := new(entity.Document)
	if err := c.Unmarshal(payload, doc); err != nil {
		return nil, nil, fmt.Errorf("offline: unmarshal %s document: %w", c.Name(), err)
	}
	return doc, c, nil
}

// Header describes a snapshot without decoding its document.
type Header struct {
	Version uint16
	Codec   string
	Size    int
}

// Inspect returns the header of a snapshot envelope.
func Inspect(data []byte) (Header, error) {
	c, payload, err := readHeader(data)
	if err != nil {
		return Header{}, err
	}
	return Header{
		Version: binary.LittleEndian.Uint16(data[4:6]),
		Codec:   c.Name(),
		Size:    len(payload),
	}, nil
}

func readHeader(data []byte) (codec.Codec, []byte, error) {
	if len(data) < headerFixedLen || [4]byte(data[:4]) != magic {
		return nil, nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != headerVersion {
		return nil, nil, fmt.Errorf("offline: unsupported snapshot version: %d", v)
	}
	n := int(binary.LittleEndian.Uint16(data[6:8]))
	if len(data) < headerFixedLen+n {
		return nil, nil, fmt.Errorf("offline: truncated snapshot header")
	}
	name := string(data[headerFixedLen : headerFixedLen+n])
	c, ok := codec.ByName(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, data[headerFixedLen+n:], nil
}

// Save exports the given entities, or the whole cache, of m and stores
// them under key.
func Save(ctx context.Context, store breeze.SnapshotStore, key breeze.SnapshotKey, m *entity.Manager, c codec.Codec, entities ...*entity.Entity) error {
	data, err := Encode(m.Export(entities...), c)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, key.String(), data); err != nil {
		return fmt.Errorf("offline: store snapshot %s: %w", key, err)
	}
	return nil
}

// Restore imports the snapshot stored under key into m. It returns a
// *breeze.NotFoundError if the store holds no such snapshot.
func Restore(ctx context.Context, store breeze.SnapshotStore, key breeze.SnapshotKey, m *entity.Manager, opts entity.ImportOptions) (*entity.ImportResult, error) {
	data, err := store.Get(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("offline: load snapshot %s: %w", key, err)
	}
	if data == nil {
		return nil, breeze.NewNotFoundError("snapshot", key.String())
	}
	doc, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return m.Import(doc, opts)
}

// Convert re-encodes a snapshot with another codec.
func Convert(data []byte, to codec.Codec) ([]byte, error) {
	doc, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Encode(doc, to)
}
