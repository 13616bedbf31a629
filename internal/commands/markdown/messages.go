package markdowncmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-agrocms/internal/markdown"
)

const importCatalogMessageType = "agrocms.catalog.import"

// ImportCatalogCommand imports every catalog document under Directory.
type ImportCatalogCommand struct {
	// Directory is relative to the importer's filesystem root.
	Directory string `json:"directory"`
	// DryRun computes plans without writing.
	DryRun bool `json:"dry_run,omitempty"`
	// Result, when set, receives the run summary even if some documents failed.
	Result func(*markdown.Result) `json:"-"`
}

// Type implements command.Message.
func (ImportCatalogCommand) Type() string { return importCatalogMessageType }

// Validate ensures directory input is present before handlers execute.
func (cmd ImportCatalogCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Directory, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("agrocms.catalog.import.directory_required", "directory is required")
			}
			return nil
		})),
	)
}
