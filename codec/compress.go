package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is a block compression algorithm.
type Compression uint8

const (
	// None stores blocks as is.
	None Compression = iota
	// LZ4 is fast, for snapshots written often.
	LZ4
	// Zstd compresses better, for snapshots kept long.
	Zstd
)

var compressionNames = [...]string{
	None: "none",
	LZ4:  "lz4",
	Zstd: "zstd",
}

// String implements fmt.Stringer.
func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", c)
}

// ParseCompression returns the compression with the given name.
func ParseCompression(name string) (Compression, error) {
	for i, n := range compressionNames {
		if n == name {
			return Compression(i), nil
		}
	}
	return None, fmt.Errorf("codec: unknown compression %q", name)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block format: [uncompressed size uint32][compressed size uint32][data].
// A compressed size of 0 marks a block stored as is.
const blockHeaderSize = 8

var errShortBlock = errors.New("codec: block too small")

// Compress compresses data into a block. Blocks that compression does not
// shrink by at least 10% are stored as is.
func Compress(data []byte, c Compression) ([]byte, error) {
	var (
		packed []byte
		err    error
	)
	switch c {
	case None:
	case LZ4:
		packed, err = compressLZ4(data)
	case Zstd:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("codec: unknown compression %d", c)
	}
	if err != nil {
		return nil, err
	}
	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		packed = nil
	}
	out := make([]byte, blockHeaderSize, blockHeaderSize+max(len(packed), len(data)))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	if packed == nil {
		return append(out, data...), nil
	}
	return append(out, packed...), nil
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Decompress returns the data of a block written by Compress with c.
func Decompress(block []byte, c Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, errShortBlock
	}
	size := binary.LittleEndian.Uint32(block[0:])
	packedSize := binary.LittleEndian.Uint32(block[4:])
	body := block[blockHeaderSize:]
	if packedSize == 0 {
		if uint32(len(body)) < size {
			return nil, errShortBlock
		}
		return body[:size], nil
	}
	if uint32(len(body)) < packedSize {
		return nil, errShortBlock
	}
	body = body[:packedSize]
	switch c {
	case LZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, errors.New("codec: decompressed size mismatch")
		}
		return out, nil
	case Zstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != size {
			return nil, errors.New("codec: decompressed size mismatch")
		}
		return out, nil
	}
	return nil, fmt.Errorf("codec: cannot decompress %s block", c)
}

// Compressed wraps a codec with block compression.
type Compressed struct {
	Codec       Codec
	Compression Compression
}

// Marshal encodes v with the wrapped codec and compresses the result.
func (c Compressed) Marshal(v any) ([]byte, error) {
	data, err := c.Codec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Compress(data, c.Compression)
}

// Unmarshal decompresses data and decodes it with the wrapped codec.
func (c Compressed) Unmarshal(data []byte, v any) error {
	raw, err := Decompress(data, c.Compression)
	if err != nil {
		return err
	}
	return c.Codec.Unmarshal(raw, v)
}

// Name returns "<codec>+<compression>".
func (c Compressed) Name() string {
	return c.Codec.Name() + "+" + c.Compression.String()
}
