// Command ezsplit splits static meshes into their loose parts and merges
// meshes back together, keeping a scene of actors in sync with an asset
// tree on disk.
//
// Usage:
//
//	ezsplit [flags] split <label>...
//	ezsplit [flags] merge <label>...
//	ezsplit [flags] run <script>...
//	ezsplit [flags] actors
//	ezsplit [flags] watch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chazu/ezsplit/pkg/assets"
	"github.com/chazu/ezsplit/pkg/config"
	"github.com/chazu/ezsplit/pkg/ezsplit"
	"github.com/chazu/ezsplit/pkg/logging"
	"github.com/chazu/ezsplit/pkg/watch"
)

const usage = `usage: ezsplit [flags] <command> [args]

commands:
  split <label>...   split actors into one actor per loose part
  merge <label>...   merge actors into one
  run <script>...    evaluate scripts
  actors             list the scene
  watch              split every mesh dropped into the inbox folder

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("ezsplit", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	var (
		cfgPath = fs.String("config", "ezsplit.toml", "config file")
		flags   config.Flags
	)
	fs.StringVar(&flags.StoreRoot, "root", "", "asset tree directory")
	fs.StringVar(&flags.SceneFile, "scene", "", "scene file")
	fs.BoolVar(&flags.STL, "stl", false, "also write .stl files")
	fs.StringVar(&flags.Strategy, "strategy", "", "connectivity strategy: indexed or scan")
	fs.StringVar(&flags.UVPolicy, "uv-policy", "", "merge UV policy: union or strict")
	fs.StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		return err
	}

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "split":
		r, err := app.Split(ctx, rest)
		printReport(stdout, r)
		return err
	case "merge":
		r, err := app.Merge(ctx, rest)
		printReport(stdout, r)
		return err
	case "run":
		return runScripts(ctx, app, rest, stdout)
	case "actors":
		for _, a := range app.Actors() {
			meshPath, _ := a.MeshPath()
			fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", a.Label, a.Kind, a.Folder, meshPath)
		}
		return nil
	case "watch":
		return watchInbox(ctx, app, cfg)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func runScripts(ctx context.Context, app *App, files []string, stdout io.Writer) error {
	if len(files) == 0 {
		return errors.New("run: no scripts given")
	}
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		res := app.Evaluate(ctx, string(src))
		for _, w := range res.Warnings {
			logging.Warn("%s: %s", f, w.Message)
		}
		if len(res.Errors) > 0 {
			msgs := make([]string, len(res.Errors))
			for i, e := range res.Errors {
				msgs[i] = e.Message
				if e.Line > 0 {
					msgs[i] = fmt.Sprintf("line %d: %s", e.Line, e.Message)
				}
			}
			return fmt.Errorf("%s: %s", f, strings.Join(msgs, "; "))
		}
		for _, c := range res.Created {
			fmt.Fprintf(stdout, "created %s\n", c)
		}
		if res.Value != "" {
			fmt.Fprintf(stdout, "%s => %s\n", f, res.Value)
		}
	}
	return nil
}

func watchInbox(ctx context.Context, app *App, cfg config.Config) error {
	dir := filepath.Join(cfg.Store.Root, filepath.FromSlash(strings.Trim(cfg.Watch.Inbox, "/")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w, err := watch.New(dir, assets.Ext, app.Import)
	if err != nil {
		return err
	}
	logging.Info("watching %s", dir)
	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printReport(w io.Writer, r *ezsplit.Report) {
	if r == nil {
		return
	}
	for _, p := range r.Created {
		fmt.Fprintf(w, "created %s\n", p)
	}
	for from, to := range r.Moved {
		fmt.Fprintf(w, "moved %s -> %s\n", from, to)
	}
	for _, p := range r.Deleted {
		fmt.Fprintf(w, "deleted %s\n", p)
	}
	fmt.Fprintf(w, "%d actors spawned, %d destroyed\n", len(r.Spawned), len(r.Destroyed))
}
