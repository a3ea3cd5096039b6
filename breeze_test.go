package breeze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Breeze/breeze.sharp-sub000"
)

// TestSchemaDefaultMethods tests the default implementations of Schema methods.
func TestSchemaDefaultMethods(t *testing.T) {
	t.Parallel()

	type TestSchema struct {
		breeze.Schema
	}

	s := TestSchema{}

	assert.Nil(t, s.Fields())
	assert.Nil(t, s.Edges())
	assert.Equal(t, breeze.Config{}, s.Config())
	assert.Nil(t, s.Mixin())
	assert.Nil(t, s.Annotations())

	var _ breeze.Interface = s
}

func TestEntityState(t *testing.T) {
	t.Parallel()

	for _, s := range []breeze.EntityState{breeze.Detached, breeze.Added, breeze.Unchanged, breeze.Modified, breeze.Deleted} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var got breeze.EntityState
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}

	assert.True(t, breeze.Added.IsChanged())
	assert.True(t, breeze.Deleted.IsChanged())
	assert.False(t, breeze.Unchanged.IsChanged())
	assert.False(t, breeze.Detached.IsAttached())
	assert.True(t, breeze.Modified.IsUnchangedOrModified())

	_, err := breeze.ParseEntityState("Gone")
	assert.Error(t, err)
	assert.Equal(t, "EntityState(9)", breeze.EntityState(9).String())
}

func TestMergeStrategyYAML(t *testing.T) {
	t.Parallel()

	var cfg struct {
		Strategy breeze.MergeStrategy `yaml:"strategy"`
		AutoKey  breeze.AutoKey       `yaml:"autoKey"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("strategy: overwriteChanges\nautoKey: identity\n"), &cfg))
	assert.Equal(t, breeze.OverwriteChanges, cfg.Strategy)
	assert.Equal(t, breeze.AutoKeyIdentity, cfg.AutoKey)

	assert.Error(t, yaml.Unmarshal([]byte("strategy: sometimes\n"), &cfg))
}

func TestEntityActionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Attach", breeze.ActionAttach.String())
	assert.Equal(t, "MergeOnImport", breeze.ActionMergeOnImport.String())
	assert.Equal(t, "EntityAction(0)", breeze.EntityAction(0).String())
}

func TestSnapshotKey(t *testing.T) {
	t.Parallel()

	k := breeze.SnapshotKey{Namespace: "northwind", Name: "orders"}
	assert.Equal(t, "northwind:orders", k.String())
	assert.Equal(t, "northwind:", k.Prefix())
	k.Version = "v2"
	assert.Equal(t, "northwind:orders:v2", k.String())
}
