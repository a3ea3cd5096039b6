package gen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/internal/testmodel"
	"github.com/Breeze/breeze.sharp-sub000/schema/edge"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultHeader, c.Header)
	assert.Positive(t, c.Workers)

	for name, opt := range map[string]Option{
		"target":  WithTarget(""),
		"package": WithPackage("1model"),
		"workers": WithWorkers(0),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig(opt)
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.ErrorIs(t, err, ErrMissingConfig)
		})
	}

	c = &Config{}
	err = c.ApplyAll(WithTarget(""), WithWorkers(-1), WithHeader("h"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Target")
	assert.Contains(t, err.Error(), "Workers")
	assert.Equal(t, "h", c.Header)

	assert.Panics(t, func() { MustNewConfig(WithWorkers(0)) })
}

func TestNew(t *testing.T) {
	t.Parallel()
	g := testmodel.Graph()

	_, err := New(g)
	require.ErrorIs(t, err, ErrMissingConfig)

	_, err = New(g, WithTarget(t.TempDir()), WithTypes("Nope"))
	require.ErrorContains(t, err, "unknown type")

	gen, err := New(g, WithTarget(filepath.Join(t.TempDir(), "north-wind")))
	require.NoError(t, err)
	assert.Equal(t, "north_wind", gen.cfg.Package)
}

func TestSource(t *testing.T) {
	t.Parallel()
	gen, err := New(testmodel.Graph(), WithTarget(t.TempDir()), WithPackage("model"))
	require.NoError(t, err)

	src, err := gen.Source("Order")
	require.NoError(t, err)
	out := string(src)
	for _, want := range []string{
		"// Code generated by breezegen. DO NOT EDIT.",
		"package model",
		"type Order struct {\n\t*entity.Entity\n}",
		"func AsOrder(e *entity.Entity) (Order, bool) {",
		"func NewOrder(m *entity.Manager, values map[string]any) (Order, error) {",
		"func (x Order) OrderID() int {",
		"func (x Order) Freight() float64 {",
		"func (x Order) SetFreight(v float64) error {",
		"func (x Order) CustomerID() *uuid.UUID {",
		"func (x Order) SetCustomerID(v *uuid.UUID) error {",
		"func (x Order) Customer() Customer {",
		"func (x Order) SetCustomer(v Customer) error {",
		`return x.SetNavigation("customer", v.Entity)`,
		"func (x Order) Details() *entity.NavigationSet {",
		`"github.com/google/uuid"`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "SetOrderID", "key properties are read-only")

	src, err = gen.Source("Customer")
	require.NoError(t, err)
	assert.Contains(t, string(src), "func (x Customer) Address() Address {")
	assert.Contains(t, string(src), "func (x Customer) City() *string {")

	src, err = gen.Source("Address")
	require.NoError(t, err)
	assert.Contains(t, string(src), "type Address struct {\n\t*entity.ComplexObject\n}")
	assert.Contains(t, string(src), "func (x Address) SetStreet(v string) error {")
	assert.NotContains(t, string(src), "func AsAddress")

	src, err = gen.Source("Contact")
	require.NoError(t, err)
	assert.Contains(t, string(src), "derived from Person")
	assert.Contains(t, string(src), "func (x Contact) Name() string {")
	assert.Contains(t, string(src), "func (x Contact) Email() *string {")

	_, err = gen.Source("Nope")
	require.ErrorIs(t, err, ErrGenerationFailed)
}

func TestSourceSubset(t *testing.T) {
	t.Parallel()
	gen, err := New(testmodel.Graph(), WithTarget(t.TempDir()), WithPackage("model"), WithTypes("Order", "Customer"))
	require.NoError(t, err)

	src, err := gen.Source("Order")
	require.NoError(t, err)
	assert.Contains(t, string(src), "func (x Order) Customer() Customer {")
	assert.Contains(t, string(src), "func (x Order) Employee() *entity.Entity {")

	src, err = gen.Source("Customer")
	require.NoError(t, err)
	assert.Contains(t, string(src), "func (x Customer) Address() *entity.ComplexObject {")
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "model")
	gen, err := New(testmodel.Graph(), WithTarget(dir), WithWorkers(2))
	require.NoError(t, err)
	require.NoError(t, gen.Generate(context.Background()))

	files := gen.Files()
	assert.Contains(t, files, "order.go")
	assert.Contains(t, files, "orderdetail.go")
	assert.Contains(t, files, "address.go")
	assert.Contains(t, files, graphFile)

	data, err := os.ReadFile(filepath.Join(dir, "order.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package model")

	data, err = os.ReadFile(filepath.Join(dir, graphFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "func Wrap(e *entity.Entity) any {")
	assert.Contains(t, string(data), `case "Order":`)
	assert.NotContains(t, string(data), `case "Address":`)
	assert.Contains(t, string(data), "func isA(t *graph.Type, name string) bool {")
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen, err := New(testmodel.Graph(), WithTarget(t.TempDir()))
	require.NoError(t, err)
	require.ErrorIs(t, gen.Generate(ctx), context.Canceled)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	gen, err = New(testmodel.Graph(), WithTarget(filepath.Join(file, "model")))
	require.NoError(t, err)
	err = gen.Generate(context.Background())
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Contains(t, genErr.Error(), "create output directory")
}

type (
	Team   struct{ breeze.Schema }
	Member struct{ breeze.Schema }
	Badge  struct{ breeze.Schema }
)

func (Team) Fields() []breeze.Field {
	return []breeze.Field{field.Int("teamID").Key()}
}

func (Team) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.To("members", Member.Type).Annotations(edge.Annotation{Accessor: "Roster"}),
	}
}

func (Member) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("memberID").Key(),
		field.Int("teamID").Nillable(),
	}
}

func (Member) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.From("team", Team.Type).
			Ref("members").
			Field("teamID").
			Unique().
			Annotations(edge.Annotation{Skip: true}),
	}
}

func (Badge) Fields() []breeze.Field {
	return []breeze.Field{
		field.Int("badgeID").Key(),
		field.Int("memberID").Nillable(),
	}
}

func (Badge) Edges() []breeze.Edge {
	return []breeze.Edge{
		edge.To("holder", Member.Type).
			Field("memberID").
			Unique().
			Annotations(edge.Annotation{Accessor: "Key"}),
	}
}

func TestSourceEdgeAnnotations(t *testing.T) {
	t.Parallel()
	gen, err := New(graph.MustNewGraph(Team{}, Member{}), WithTarget(t.TempDir()), WithPackage("model"))
	require.NoError(t, err)

	src, err := gen.Source("Team")
	require.NoError(t, err)
	assert.Contains(t, string(src), "func (x Team) Roster() *entity.NavigationSet {")
	assert.Contains(t, string(src), `x.Collection("members")`)
	assert.NotContains(t, string(src), "Members()")

	src, err = gen.Source("Member")
	require.NoError(t, err)
	assert.Contains(t, string(src), "func (x Member) TeamID() *int {")
	assert.NotContains(t, string(src), "func (x Member) Team()")
	assert.NotContains(t, string(src), "SetTeam(")

	gen, err = New(graph.MustNewGraph(Team{}, Member{}, Badge{}), WithTarget(t.TempDir()))
	require.NoError(t, err)
	_, err = gen.Source("Badge")
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), `invalid accessor "Key"`)
	require.ErrorIs(t, gen.Generate(context.Background()), ErrGenerationFailed)
}
