package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/goliatone/go-agrocms/cmd/catalog/internal/bootstrap"
	markdowncmd "github.com/goliatone/go-agrocms/internal/commands/markdown"
	"github.com/goliatone/go-agrocms/internal/markdown"
)

var moduleBuilder = bootstrap.BuildModule

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runImport(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("catalog import: %v", err)
	}
}

func runImport(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("catalog-import", flag.ContinueOnError)
	root := fs.String("root", ".", "Directory catalog paths are resolved against")
	directory := fs.String("dir", "catalog", "Catalog directory to import, relative to the root")
	pattern := fs.String("pattern", "*.md", "Glob pattern applied when discovering catalog documents")
	recursive := fs.Bool("recursive", true, "Descend into subdirectories")
	driver := fs.String("driver", "", "Database driver: sqlite or postgres (defaults to sqlite)")
	dsn := fs.String("dsn", "", "Database DSN (defaults to a local sqlite file)")
	dryRun := fs.Bool("dry-run", false, "Report planned changes without writing")
	logLevel := fs.String("log-level", "info", "Log level")
	logFormat := fs.String("log-format", "", "go-logger format: json, console or pretty (defaults to the console logger)")
	sqlDebug := fs.Bool("sql-debug", false, "Log every SQL query")
	configPath := fs.String("config", "", "YAML or TOML config file applied before flags")
	watch := fs.Bool("watch", false, "Keep running and re-import when catalog documents change")
	debounce := fs.Duration("debounce", 250*time.Millisecond, "Quiet period before a watched change triggers an import")

	if err := fs.Parse(args); err != nil {
		return err
	}

	module, err := moduleBuilder(ctx, bootstrap.Options{
		ConfigPath: *configPath,
		Root:       *root,
		Pattern:    *pattern,
		Recursive:  *recursive,
		Driver:     *driver,
		DSN:        *dsn,
		LogLevel:   *logLevel,
		LogFormat:  *logFormat,
		SQLDebug:   *sqlDebug,
	})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Close()

	execute := func(ctx context.Context) error {
		var result *markdown.Result
		err := module.Catalog.CatalogCommands().Import.Execute(ctx, markdowncmd.ImportCatalogCommand{
			Directory: *directory,
			DryRun:    *dryRun,
			Result:    func(r *markdown.Result) { result = r },
		})
		if result != nil {
			printResult(out, result)
		}
		if err != nil {
			return fmt.Errorf("execute import command: %w", err)
		}
		return nil
	}

	if err := execute(ctx); err != nil {
		if !*watch {
			return err
		}
		module.Logger.Error("catalog.watch.import_failed", "error", err)
	}
	if !*watch {
		return nil
	}

	path := filepath.Join(*root, filepath.FromSlash(*directory))
	return markdown.WatchDirectory(ctx, path, markdown.WatchOptions{
		Debounce:  *debounce,
		Recursive: *recursive,
		Logger:    module.Logger,
	}, func(ctx context.Context) {
		if err := execute(ctx); err != nil {
			module.Logger.Error("catalog.watch.import_failed", "error", err)
		}
	})
}

func printResult(out io.Writer, result *markdown.Result) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSLUG\tACTION\tCREATE\tUPDATE\tDELETE\tVERSION")
	for _, o := range result.Outcomes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n", o.Path, o.Slug, o.Action, o.Creates, o.Updates, o.Deletes, o.Version)
	}
	_ = w.Flush()
	for _, err := range result.Errors {
		fmt.Fprintf(out, "error: %v\n", err)
	}
	if result.DryRun {
		fmt.Fprintln(out, "dry run: nothing was written")
	}
}
