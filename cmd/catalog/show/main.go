package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/goliatone/go-agrocms/cmd/catalog/internal/bootstrap"
)

var moduleBuilder = bootstrap.BuildModule

func main() {
	if err := runShow(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("catalog show: %v", err)
	}
}

func runShow(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("catalog-show", flag.ContinueOnError)
	slug := fs.String("slug", "", "Animal type slug to print")
	locale := fs.String("locale", "en", "Locale to print: en or ar")
	driver := fs.String("driver", "", "Database driver: sqlite or postgres (defaults to sqlite)")
	dsn := fs.String("dsn", "", "Database DSN (defaults to a local sqlite file)")
	logLevel := fs.String("log-level", "warn", "Log level")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*slug) == "" {
		return errors.New("-slug is required")
	}

	module, err := moduleBuilder(ctx, bootstrap.Options{
		Driver:   *driver,
		DSN:      *dsn,
		LogLevel: *logLevel,
	})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Close()

	svc := module.Catalog.Animals()
	record, err := svc.GetBySlug(ctx, *slug)
	if err != nil {
		return fmt.Errorf("load %s: %w", *slug, err)
	}
	view, err := svc.Localize(record, *locale)
	if err != nil {
		return fmt.Errorf("localize %s: %w", *slug, err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(view)
}
