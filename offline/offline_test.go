package offline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/codec"
	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/internal/testmodel"
	"github.com/Breeze/breeze.sharp-sub000/offline"
	"github.com/Breeze/breeze.sharp-sub000/offline/memstore"
)

var model = testmodel.Graph()

func newCache(t *testing.T) (*entity.Manager, *entity.Entity) {
	t.Helper()
	m := entity.MustNewManager(model)
	o, err := m.CreateEntity("Order", map[string]any{"freight": 12.5, "shipCountry": "Germany"})
	require.NoError(t, err)
	d, err := m.CreateEntity("OrderDetail", map[string]any{"productID": 3, "quantity": 4})
	require.NoError(t, err)
	require.NoError(t, o.Collection("details").Add(d))
	return m, o
}

func TestEncodeDecode(t *testing.T) {
	m, _ := newCache(t)
	doc := m.Export()
	for _, name := range []string{"json", "msgpack", "yaml", "msgpack+zstd", "json+lz4"} {
		t.Run(name, func(t *testing.T) {
			c, ok := codec.ByName(name)
			require.True(t, ok)
			data, err := offline.Encode(doc, c)
			require.NoError(t, err)
			assert.Equal(t, "BRZ1", string(data[:4]))

			h, err := offline.Inspect(data)
			require.NoError(t, err)
			assert.Equal(t, name, h.Codec)
			assert.Equal(t, uint16(1), h.Version)
			assert.Equal(t, len(data)-8-len(name), h.Size)

			out, used, err := offline.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, name, used.Name())
			assert.Equal(t, doc.Len(), out.Len())
		})
	}
}

func TestEncodeDefaultCodec(t *testing.T) {
	m, _ := newCache(t)
	data, err := offline.Encode(m.Export(), nil)
	require.NoError(t, err)
	h, err := offline.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, codec.Default.Name(), h.Codec)
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := offline.Decode([]byte("nope"))
	require.ErrorIs(t, err, offline.ErrInvalidMagic)
	_, _, err = offline.Decode([]byte("{\"entityGroupMap\":{}}"))
	require.ErrorIs(t, err, offline.ErrInvalidMagic)

	_, _, err = offline.Decode([]byte{'B', 'R', 'Z', '1', 2, 0, 0, 0})
	require.ErrorContains(t, err, "unsupported snapshot version")

	_, _, err = offline.Decode([]byte{'B', 'R', 'Z', '1', 1, 0, 9, 0, 'j'})
	require.ErrorContains(t, err, "truncated")

	_, _, err = offline.Decode(append([]byte{'B', 'R', 'Z', '1', 1, 0, 3, 0}, "gob{}"...))
	require.ErrorIs(t, err, offline.ErrUnknownCodec)

	_, _, err = offline.Decode(append([]byte{'B', 'R', 'Z', '1', 1, 0, 4, 0}, "json{"...))
	require.ErrorContains(t, err, "unmarshal json document")
}

type gob struct{ codec.JSON }

func (gob) Name() string { return "gob" }

func TestEncodeUnknownCodec(t *testing.T) {
	_, err := offline.Encode(&entity.Document{}, gob{})
	require.ErrorIs(t, err, offline.ErrUnknownCodec)
}

func TestSaveRestore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	key := breeze.SnapshotKey{Namespace: "app", Name: "orders", Version: "1"}
	src, o := newCache(t)
	c, _ := codec.ByName("msgpack+zstd")
	require.NoError(t, offline.Save(ctx, store, key, src, c))
	assert.Equal(t, []string{"app:orders:1"}, store.Keys(key.Prefix()))

	dst := entity.MustNewManager(model)
	res, err := offline.Restore(ctx, store, key, dst, entity.ImportOptions{})
	require.NoError(t, err)
	require.Len(t, res.Entities, 2)

	ro, ok := dst.FindEntityByKey(o.Key())
	require.True(t, ok)
	assert.Equal(t, breeze.Added, ro.State())
	assert.Equal(t, "Germany", ro.Get("shipCountry"))
	require.Equal(t, 1, ro.Collection("details").Len())
	assert.True(t, dst.HasChanges())
}

func TestSaveSubset(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	key := breeze.SnapshotKey{Namespace: "app", Name: "order"}
	src, o := newCache(t)
	require.NoError(t, offline.Save(ctx, store, key, src, nil, o))

	dst := entity.MustNewManager(model)
	res, err := offline.Restore(ctx, store, key, dst, entity.ImportOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Entities, 1)
	assert.Equal(t, 1, dst.Len())
}

func TestRestoreMissing(t *testing.T) {
	_, err := offline.Restore(context.Background(), memstore.New(), breeze.SnapshotKey{Namespace: "app", Name: "x"},
		entity.MustNewManager(model), entity.ImportOptions{})
	require.Error(t, err)
	assert.True(t, breeze.IsNotFound(err))
}

func TestConvert(t *testing.T) {
	m, _ := newCache(t)
	data, err := offline.Encode(m.Export(), codec.JSON{})
	require.NoError(t, err)
	out, err := offline.Convert(data, codec.Compressed{Codec: codec.MsgPack{}, Compression: codec.LZ4})
	require.NoError(t, err)
	h, err := offline.Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, "msgpack+lz4", h.Codec)
	doc, _, err := offline.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Len())
}
