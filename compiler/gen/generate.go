package gen

import (
	"bytes"
	"context"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/Breeze/breeze.sharp-sub000/graph"
)

// graphFile is the name of the package level file.
const graphFile = "breeze.go"

// Generator renders typed wrappers for the types of a graph.
type Generator struct {
	graph *graph.Graph
	cfg   *Config
	types []*graph.Type

	mu      sync.Mutex
	written []string
}

// New returns a generator for g.
func New(g *graph.Graph, opts ...Option) (*Generator, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Target == "" {
		return nil, NewConfigError("Target", nil, "missing target directory in config")
	}
	if cfg.Package == "" {
		abs, err := filepath.Abs(cfg.Target)
		if err != nil {
			return nil, NewConfigError("Target", cfg.Target, err.Error())
		}
		cfg.Package = strings.ReplaceAll(filepath.Base(abs), "-", "_")
		if !token.IsIdentifier(cfg.Package) {
			return nil, NewConfigError("Package", cfg.Package, "cannot derive a package name from the target, use WithPackage")
		}
	}
	gen := &Generator{graph: g, cfg: cfg}
	for _, t := range g.Types() {
		if len(cfg.Types) > 0 && !slices.Contains(cfg.Types, t.Name) {
			continue
		}
		name := goName(t.Name)
		if !token.IsIdentifier(name) || name == "Wrap" {
			return nil, NewConfigError("Types", t.Name, "type name is not usable as a Go identifier")
		}
		gen.types = append(gen.types, t)
	}
	for _, name := range cfg.Types {
		if _, ok := g.Type(name); !ok {
			return nil, NewConfigError("Types", name, "unknown type")
		}
	}
	return gen, nil
}

// Generate renders and writes all files to the target directory.
func (g *Generator) Generate(ctx context.Context) error {
	if err := os.MkdirAll(g.cfg.Target, 0o755); err != nil {
		return NewGenerationError("", g.cfg.Target, "create output directory", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for _, t := range g.types {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := g.typeFile(t)
			if err != nil {
				return err
			}
			return g.write(t.Name, fileName(t), f)
		})
	}
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return g.write("", graphFile, g.wrapFile())
	})
	return eg.Wait()
}

// Files returns the names of the files written by the last Generate call,
// sorted.
func (g *Generator) Files() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	files := slices.Clone(g.written)
	slices.Sort(files)
	return files
}

// Source returns the formatted source of the wrapper of the named type.
func (g *Generator) Source(typeName string) ([]byte, error) {
	i := slices.IndexFunc(g.types, func(t *graph.Type) bool { return t.Name == typeName })
	if i < 0 {
		return nil, NewGenerationError(typeName, "", "type is not generated", nil)
	}
	t := g.types[i]
	f, err := g.typeFile(t)
	if err != nil {
		return nil, err
	}
	return g.format(t.Name, fileName(t), f)
}

func (g *Generator) format(typeName, name string, f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, NewGenerationError(typeName, name, "render", err)
	}
	out, err := imports.Process(filepath.Join(g.cfg.Target, name), buf.Bytes(), nil)
	if err != nil {
		return nil, NewGenerationError(typeName, name, "format", err)
	}
	return out, nil
}

func (g *Generator) write(typeName, name string, f *jen.File) error {
	out, err := g.format(typeName, name, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(g.cfg.Target, name), out, 0o644); err != nil {
		return NewGenerationError(typeName, name, "write", err)
	}
	g.mu.Lock()
	g.written = append(g.written, name)
	g.mu.Unlock()
	return nil
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	return f
}

func fileName(t *graph.Type) string {
	return strings.ToLower(t.Name) + ".go"
}

// goName returns the exported Go name of a type or property.
func goName(s string) string {
	return graph.CamelCase.ServerName(s)
}

// wrapFile renders the package level helpers.
func (g *Generator) wrapFile() *jen.File {
	f := g.newFile()
	f.Func().Id("isA").Params(jen.Id("t").Op("*").Qual(graphPkg, "Type"), jen.Id("name").String()).Bool().Block(
		jen.For(jen.Empty(), jen.Id("t").Op("!=").Nil(), jen.Id("t").Op("=").Id("t").Dot("Base")).Block(
			jen.If(jen.Id("t").Dot("Name").Op("==").Id("name")).Block(jen.Return(jen.True())),
		),
		jen.Return(jen.False()),
	)
	var cases []jen.Code
	for _, t := range g.types {
		if t.Complex {
			continue
		}
		cases = append(cases, jen.Case(jen.Lit(t.Name)).Block(
			jen.Return(jen.Id(goName(t.Name)).Values(jen.Id("e"))),
		))
	}
	f.Comment("Wrap returns the typed wrapper of e, or nil if its type has none.")
	f.Func().Id("Wrap").Params(jen.Id("e").Op("*").Qual(entityPkg, "Entity")).Id("any").Block(
		jen.If(jen.Id("e").Op("==").Nil()).Block(jen.Return(jen.Nil())),
		jen.Switch(jen.Id("e").Dot("Type").Call().Dot("Name")).Block(cases...),
		jen.Return(jen.Nil()),
	)
	return f
}
