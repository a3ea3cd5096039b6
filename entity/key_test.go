package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/entity"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// Tag has a composite key of two strings.
type Tag struct{ breeze.Schema }

func (Tag) Fields() []breeze.Field {
	return []breeze.Field{
		field.String("ns").Key(),
		field.String("name").Key(),
		field.String("label").Optional(),
	}
}

func TestKeyCompositeStrings(t *testing.T) {
	g := graph.MustNewGraph(Tag{})
	tag := g.MustType("Tag")

	k1 := entity.MustKey(tag, "a,b", "c")
	k2 := entity.MustKey(tag, "a", "b,c")
	assert.False(t, k1.Equal(k2))
	assert.NotEqual(t, k1.ID(), k2.ID())
	assert.True(t, k1.Equal(entity.MustKey(tag, "a,b", "c")))
	assert.NotEqual(t, entity.MustKey(tag, `a"`, "b").ID(), entity.MustKey(tag, "a", `"b`).ID())

	m := entity.MustNewManager(g)
	e1, err := m.CreateEntity("Tag", map[string]any{"ns": "a,b", "name": "c"}, breeze.Unchanged)
	require.NoError(t, err)
	e2, err := m.CreateEntity("Tag", map[string]any{"ns": "a", "name": "b,c"}, breeze.Unchanged)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	found, ok := m.FindEntityByKey(k1)
	require.True(t, ok)
	assert.Same(t, e1, found)
	found, ok = m.FindEntityByKey(k2)
	require.True(t, ok)
	assert.Same(t, e2, found)
}

func TestKeyEmptyAndPartial(t *testing.T) {
	g := graph.MustNewGraph(Tag{})
	tag := g.MustType("Tag")

	k := entity.MustKey(tag, "", "c")
	assert.True(t, k.IsEmpty())
	assert.True(t, k.IsPartial())
	assert.False(t, entity.MustKey(tag, "a", "c").IsEmpty())
	assert.True(t, entity.MustKey(tag, "", "").IsEmpty())
	assert.False(t, entity.MustKey(tag, "", "").IsPartial())
	assert.Equal(t, "Tag:a,c", entity.MustKey(tag, "a", "c").String())

	_, err := entity.NewKey(tag, "a")
	assert.Error(t, err)
	assert.True(t, entity.Key{}.IsZero())
	assert.False(t, entity.Key{}.Equal(entity.Key{}))
}
