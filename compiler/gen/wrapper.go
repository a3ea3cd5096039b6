package gen

import (
	"fmt"
	"go/token"

	"github.com/dave/jennifer/jen"

	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/edge"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

const (
	entityPkg = "github.com/Breeze/breeze.sharp-sub000/entity"
	graphPkg  = "github.com/Breeze/breeze.sharp-sub000/graph"
)

// Methods promoted from the embedded records. Generated accessors with
// these names get a "Value" suffix.
var (
	entityMethods = names(
		"Entity", "Type", "State", "Manager", "Key", "String", "Get", "Set",
		"Values", "Complex", "Navigation", "Collection", "SetNavigation",
		"OriginalValue", "HasOriginal", "OriginalValues", "IsTempKey",
		"AcceptChanges", "RejectChanges", "Delete", "SetModified", "Detach",
		"ValidationErrors", "Validate", "OnPropertyChanged",
	)
	complexMethods = names("ComplexObject", "Type", "Owner", "Get", "Set", "Values", "OriginalValues")
)

func names(ns ...string) map[string]bool {
	m := make(map[string]bool, len(ns))
	for _, n := range ns {
		m[n] = true
	}
	return m
}

// typeFile renders the wrapper of t.
func (g *Generator) typeFile(t *graph.Type) (*jen.File, error) {
	f := g.newFile()
	w := &wrapper{gen: g, typ: t, name: goName(t.Name), reserved: entityMethods}
	if t.Complex {
		w.reserved = complexMethods
		w.complexType(f)
	} else {
		w.entityType(f)
	}
	for _, p := range t.Properties {
		w.property(f, p)
	}
	for _, n := range t.Navigations {
		if err := w.navigation(f, n); err != nil {
			return nil, err
		}
	}
	return f, nil
}

type wrapper struct {
	gen      *Generator
	typ      *graph.Type
	name     string
	reserved map[string]bool
}

func (w *wrapper) entityType(f *jen.File) {
	desc := fmt.Sprintf("%s wraps an entity of type %s.", w.name, w.typ.Name)
	if w.typ.Base != nil {
		desc = fmt.Sprintf("%s wraps an entity of type %s, derived from %s.", w.name, w.typ.Name, w.typ.Base.Name)
	}
	f.Comment(desc)
	if w.typ.Comment != "" {
		f.Comment(w.typ.Comment)
	}
	f.Type().Id(w.name).Struct(jen.Op("*").Qual(entityPkg, "Entity"))

	f.Commentf("As%s returns e as %s. It reports false if e is nil or of another type.", w.name, article(w.name))
	f.Func().Id("As"+w.name).Params(jen.Id("e").Op("*").Qual(entityPkg, "Entity")).Params(jen.Id(w.name), jen.Bool()).Block(
		jen.If(jen.Id("e").Op("==").Nil().Op("||").Op("!").Id("isA").Call(jen.Id("e").Dot("Type").Call(), jen.Lit(w.typ.Name))).Block(
			jen.Return(jen.Id(w.name).Values(), jen.False()),
		),
		jen.Return(jen.Id(w.name).Values(jen.Id("e")), jen.True()),
	)

	f.Commentf("New%s creates %s in m and attaches it as Added.", w.name, article(w.name))
	f.Func().Id("New"+w.name).Params(
		jen.Id("m").Op("*").Qual(entityPkg, "Manager"),
		jen.Id("values").Map(jen.String()).Id("any"),
	).Params(jen.Id(w.name), jen.Error()).Block(
		jen.List(jen.Id("e"), jen.Err()).Op(":=").Id("m").Dot("CreateEntity").Call(jen.Lit(w.typ.Name), jen.Id("values")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Id(w.name).Values(), jen.Err())),
		jen.Return(jen.Id(w.name).Values(jen.Id("e")), jen.Nil()),
	)
}

func (w *wrapper) complexType(f *jen.File) {
	f.Commentf("%s wraps a complex object of type %s.", w.name, w.typ.Name)
	f.Type().Id(w.name).Struct(jen.Op("*").Qual(entityPkg, "ComplexObject"))
}

// method returns the accessor name for a property, avoiding the promoted
// methods of the embedded record.
func (w *wrapper) method(name string) string {
	m := goName(name)
	if w.reserved[m] || w.reserved["Set"+m] {
		m += "Value"
	}
	return m
}

func (w *wrapper) recv() *jen.Statement {
	return jen.Params(jen.Id("x").Id(w.name))
}

func (w *wrapper) property(f *jen.File, p *graph.Property) {
	m := w.method(p.Name)
	if p.IsComplex() {
		typ, wrap := w.gen.complexWrapper(p.ComplexType)
		f.Commentf("%s returns the %s complex object.", m, p.Name)
		f.Func().Add(w.recv()).Id(m).Params().Add(typ).Block(
			jen.List(jen.Id("v"), jen.Id("_")).Op(":=").Id("x").Dot("Get").Call(jen.Lit(p.Name)).Assert(jen.Op("*").Qual(entityPkg, "ComplexObject")),
			jen.Return(wrap(jen.Id("v"))),
		)
		return
	}
	typ := goType(p.Type)
	pointer := p.Nillable && p.Type != field.TypeBytes
	if pointer {
		f.Commentf("%s returns the value of %s, nil if it is not set.", m, p.Name)
		f.Func().Add(w.recv()).Id(m).Params().Op("*").Add(typ).Block(
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("x").Dot("Get").Call(jen.Lit(p.Name)).Assert(goType(p.Type)),
			jen.If(jen.Op("!").Id("ok")).Block(jen.Return(jen.Nil())),
			jen.Return(jen.Op("&").Id("v")),
		)
	} else {
		f.Commentf("%s returns the value of %s.", m, p.Name)
		f.Func().Add(w.recv()).Id(m).Params().Add(typ).Block(
			jen.List(jen.Id("v"), jen.Id("_")).Op(":=").Id("x").Dot("Get").Call(jen.Lit(p.Name)).Assert(goType(p.Type)),
			jen.Return(jen.Id("v")),
		)
	}
	if p.Key && !w.typ.Complex {
		return
	}
	f.Commentf("Set%s sets the value of %s.", m, p.Name)
	if pointer {
		f.Func().Add(w.recv()).Id("Set"+m).Params(jen.Id("v").Op("*").Add(goType(p.Type))).Error().Block(
			jen.If(jen.Id("v").Op("==").Nil()).Block(
				jen.Return(jen.Id("x").Dot("Set").Call(jen.Lit(p.Name), jen.Nil())),
			),
			jen.Return(jen.Id("x").Dot("Set").Call(jen.Lit(p.Name), jen.Op("*").Id("v"))),
		)
		return
	}
	f.Func().Add(w.recv()).Id("Set"+m).Params(jen.Id("v").Add(goType(p.Type))).Error().Block(
		jen.Return(jen.Id("x").Dot("Set").Call(jen.Lit(p.Name), jen.Id("v"))),
	)
}

// navigation renders the accessors of n, as configured by its
// edge.Annotation.
func (w *wrapper) navigation(f *jen.File, n *graph.Navigation) error {
	var ant edge.Annotation
	if raw, ok := n.Annotations[ant.Name()]; ok {
		if err := ant.Decode(raw); err != nil {
			return NewGenerationError(w.typ.Name, fileName(w.typ), fmt.Sprintf("decode annotation of %s", n.Name), err)
		}
	}
	if ant.Skip {
		return nil
	}
	m := w.method(n.Name)
	if ant.Accessor != "" {
		if !token.IsExported(ant.Accessor) || !token.IsIdentifier(ant.Accessor) || w.reserved[ant.Accessor] || w.reserved["Set"+ant.Accessor] {
			return NewGenerationError(w.typ.Name, fileName(w.typ), fmt.Sprintf("invalid accessor %q for %s", ant.Accessor, n.Name), nil)
		}
		m = ant.Accessor
	}
	if !n.Scalar {
		f.Commentf("%s returns the %s collection.", m, n.Name)
		f.Func().Add(w.recv()).Id(m).Params().Op("*").Qual(entityPkg, "NavigationSet").Block(
			jen.Return(jen.Id("x").Dot("Collection").Call(jen.Lit(n.Name))),
		)
		return nil
	}
	typ, wrap, unwrap := w.gen.entityWrapper(n.Target)
	f.Commentf("%s returns the %s referenced by %s.", m, n.Target.Name, n.Name)
	f.Func().Add(w.recv()).Id(m).Params().Add(typ).Block(
		jen.Return(wrap(jen.Id("x").Dot("Navigation").Call(jen.Lit(n.Name)))),
	)
	f.Commentf("Set%s sets the %s referenced by %s.", m, n.Target.Name, n.Name)
	f.Func().Add(w.recv()).Id("Set"+m).Params(jen.Id("v").Add(typ)).Error().Block(
		jen.Return(jen.Id("x").Dot("SetNavigation").Call(jen.Lit(n.Name), unwrap(jen.Id("v")))),
	)
	return nil
}

// entityWrapper returns the Go type of navigations to t with the code
// wrapping and unwrapping an *entity.Entity. Types left out of generation
// are used untyped.
func (g *Generator) entityWrapper(t *graph.Type) (jen.Code, func(jen.Code) jen.Code, func(jen.Code) jen.Code) {
	if g.generates(t) {
		name := goName(t.Name)
		return jen.Id(name),
			func(c jen.Code) jen.Code { return jen.Id(name).Values(c) },
			func(c jen.Code) jen.Code { return jen.Add(c).Dot("Entity") }
	}
	ident := func(c jen.Code) jen.Code { return c }
	return jen.Op("*").Qual(entityPkg, "Entity"), ident, ident
}

func (g *Generator) complexWrapper(t *graph.Type) (jen.Code, func(jen.Code) jen.Code) {
	if g.generates(t) {
		name := goName(t.Name)
		return jen.Id(name), func(c jen.Code) jen.Code { return jen.Id(name).Values(c) }
	}
	return jen.Op("*").Qual(entityPkg, "ComplexObject"), func(c jen.Code) jen.Code { return c }
}

func (g *Generator) generates(t *graph.Type) bool {
	for _, gt := range g.types {
		if gt == t {
			return true
		}
	}
	return false
}

func goType(t field.Type) *jen.Statement {
	switch t {
	case field.TypeBool:
		return jen.Bool()
	case field.TypeTime:
		return jen.Qual("time", "Time")
	case field.TypeUUID:
		return jen.Qual("github.com/google/uuid", "UUID")
	case field.TypeBytes:
		return jen.Index().Byte()
	case field.TypeString:
		return jen.String()
	case field.TypeInt16:
		return jen.Int16()
	case field.TypeInt32:
		return jen.Int32()
	case field.TypeInt:
		return jen.Int()
	case field.TypeInt64:
		return jen.Int64()
	case field.TypeFloat32:
		return jen.Float32()
	case field.TypeFloat64:
		return jen.Float64()
	default:
		return jen.Id("any")
	}
}

func article(name string) string {
	switch name[0] {
	case 'A', 'E', 'I', 'O', 'U':
		return "an " + name
	}
	return "a " + name
}
