// breezectl inspects and converts offline snapshots kept in a SQL store.
//
//	breezectl list    -driver sqlite -dsn cache.db [-prefix app:]
//	breezectl inspect -driver sqlite -dsn cache.db -key app:orders
//	breezectl convert -driver sqlite -dsn cache.db -key app:orders -codec msgpack+zstd [-to app:orders.v2]
//	breezectl delete  -driver sqlite -dsn cache.db (-key app:orders | -prefix app:)
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
	"slices"
	"text/tabwriter"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/Breeze/breeze.sharp-sub000/codec"
	"github.com/Breeze/breeze.sharp-sub000/dialect"
	"github.com/Breeze/breeze.sharp-sub000/offline"
	"github.com/Breeze/breeze.sharp-sub000/offline/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "breezectl: %v\n", err)
		}
		os.Exit(1)
	}
}

// Commands maps command names to their implementations.
var Commands = map[string]func(ctx context.Context, c *command) error{
	"list":    list,
	"inspect": inspect,
	"convert": convert,
	"delete":  remove,
}

type command struct {
	store  *sqlstore.Store
	out    io.Writer
	key    string
	prefix string
	codec  string
	to     string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command, want one of %v", commandNames())
	}
	fn, ok := Commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, want one of %v", args[0], commandNames())
	}
	var (
		c      = &command{out: stdout}
		driver string
		dsn    string
		table  string
		debug  bool
	)
	fs := flag.NewFlagSet("breezectl "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&driver, "driver", dialect.SQLite, "database driver: sqlite, postgres or mysql")
	fs.StringVar(&dsn, "dsn", "", "data source name")
	fs.StringVar(&table, "table", sqlstore.DefaultTable, "snapshot table")
	fs.BoolVar(&debug, "debug", false, "log store statements")
	fs.StringVar(&c.key, "key", "", "snapshot key")
	fs.StringVar(&c.prefix, "prefix", "", "snapshot key prefix")
	fs.StringVar(&c.codec, "codec", "", "target codec of convert, e.g. json, msgpack+zstd, yaml+lz4")
	fs.StringVar(&c.to, "to", "", "key of the converted snapshot, defaults to -key")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if dsn == "" {
		return errors.New("-dsn is required")
	}
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	s, err := sqlstore.Open(ctx, driver, dsn, sqlstore.WithTable(table), sqlstore.WithLogger(log))
	if err != nil {
		return err
	}
	defer s.Close()
	c.store = s
	return fn(ctx, c)
}

func commandNames() []string {
	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func list(ctx context.Context, c *command) error {
	entries, err := c.store.List(ctx, c.prefix)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSIZE\tCODEC\tUPDATED")
	for _, e := range entries {
		name := "?"
		if data, err := c.store.Get(ctx, e.Key); err == nil {
			if h, err := offline.Inspect(data); err == nil {
				name = h.Codec
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Key, e.Size, name, e.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return w.Flush()
}

func (c *command) load(ctx context.Context) ([]byte, error) {
	if c.key == "" {
		return nil, errors.New("-key is required")
	}
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("snapshot %q not found", c.key)
	}
	return data, nil
}

func inspect(ctx context.Context, c *command) error {
	data, err := c.load(ctx)
	if err != nil {
		return err
	}
	h, err := offline.Inspect(data)
	if err != nil {
		return err
	}
	doc, _, err := offline.Decode(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "key:       %s\nversion:   %d\ncodec:     %s\nsize:      %d\nentities:  %d\ntemp keys: %d\n",
		c.key, h.Version, h.Codec, h.Size, doc.Len(), len(doc.TempKeys))
	types := make([]string, 0, len(doc.Groups))
	for name := range doc.Groups {
		types = append(types, name)
	}
	slices.Sort(types)
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tENTITIES\tCHANGED")
	for _, name := range types {
		changed := 0
		for _, e := range doc.Groups[name] {
			if e.Aspect.State.IsChanged() {
				changed++
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", name, len(doc.Groups[name]), changed)
	}
	return w.Flush()
}

func convert(ctx context.Context, c *command) error {
	data, err := c.load(ctx)
	if err != nil {
		return err
	}
	to, ok := codec.ByName(c.codec)
	if !ok {
		return fmt.Errorf("unknown codec %q", c.codec)
	}
	out, err := offline.Convert(data, to)
	if err != nil {
		return err
	}
	key := c.to
	if key == "" {
		key = c.key
	}
	if err := c.store.Set(ctx, key, out); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %d -> %d bytes (%s)\n", key, len(data), len(out), to.Name())
	return nil
}

func remove(ctx context.Context, c *command) error {
	switch {
	case c.key != "" && c.prefix != "":
		return errors.New("-key and -prefix are exclusive")
	case c.key != "":
		return c.store.Delete(ctx, c.key)
	case c.prefix != "":
		return c.store.DeletePrefix(ctx, c.prefix)
	default:
		return errors.New("-key or -prefix is required")
	}
}
