// breezegen generates typed entity wrappers from a metadata document.
//
//	breezegen -schema northwind.yaml -target ./model [-package model] [-types Order,Customer] [-watch]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/Breeze/breeze.sharp-sub000/compiler/gen"
	"github.com/Breeze/breeze.sharp-sub000/compiler/load"
	"github.com/Breeze/breeze.sharp-sub000/graph"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "breezegen: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	schema string
	target string
	pkg    string
	header string
	types  string
	watch  bool
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	var o options
	fs := flag.NewFlagSet("breezegen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.schema, "schema", "", "metadata document (JSON or YAML)")
	fs.StringVar(&o.target, "target", "", "output directory")
	fs.StringVar(&o.pkg, "package", "", "package name, defaults to the target directory name")
	fs.StringVar(&o.header, "header", gen.DefaultHeader, "header comment of generated files")
	fs.StringVar(&o.types, "types", "", "comma separated types to generate, defaults to all")
	fs.BoolVar(&o.watch, "watch", false, "regenerate when the metadata document changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.schema == "" || o.target == "" {
		fs.Usage()
		return errors.New("-schema and -target are required")
	}
	log := slog.New(slog.NewTextHandler(stderr, nil))

	schemas, err := load.ParseFile(o.schema)
	if err != nil {
		return err
	}
	if err := generate(ctx, schemas, o); err != nil {
		return err
	}
	log.Info("wrappers generated", "schema", o.schema, "target", o.target)
	if !o.watch {
		return nil
	}
	log.Info("watching for changes", "schema", o.schema)
	return load.Watch(ctx, o.schema, func(schemas []*load.Schema, err error) {
		if err == nil {
			err = generate(ctx, schemas, o)
		}
		if err != nil {
			log.Error("regenerate", "schema", o.schema, "error", err)
			return
		}
		log.Info("wrappers regenerated", "schema", o.schema)
	})
}

func generate(ctx context.Context, schemas []*load.Schema, o options) error {
	g, err := graph.Build(schemas)
	if err != nil {
		return err
	}
	opts := []gen.Option{gen.WithTarget(o.target), gen.WithHeader(o.header)}
	if o.pkg != "" {
		opts = append(opts, gen.WithPackage(o.pkg))
	}
	if o.types != "" {
		opts = append(opts, gen.WithTypes(strings.Split(o.types, ",")...))
	}
	gn, err := gen.New(g, opts...)
	if err != nil {
		return err
	}
	return gn.Generate(ctx)
}
