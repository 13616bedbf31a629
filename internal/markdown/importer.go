package markdown

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/goliatone/go-agrocms/internal/animals"
	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/internal/reconcile"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	ErrServiceRequired = errors.New("markdown importer: animal service is required")
	ErrLoaderRequired  = errors.New("markdown importer: loader is required")
)

// Action is what an import did, or would do, to an animal type.
type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionUnchanged Action = "unchanged"
)

// ImportOptions tunes a run.
type ImportOptions struct {
	// DryRun computes plans without writing.
	DryRun bool
}

// Outcome reports a single document.
type Outcome struct {
	Path    string
	Slug    string
	ID      uuid.UUID
	Action  Action
	Creates int
	Updates int
	Deletes int
	Version int64
}

// Result aggregates a run.
type Result struct {
	DryRun   bool
	Outcomes []Outcome
	Errors   []error
}

// Err joins every per-document error.
func (r *Result) Err() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.Errors...)
}

// Count returns how many outcomes have action.
func (r *Result) Count(action Action) int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Action == action {
			n++
		}
	}
	return n
}

// ImporterConfig encapsulates the importer dependencies.
type ImporterConfig struct {
	Service animals.Service
	Loader  *Loader
	Logger  interfaces.Logger
}

// Importer creates or reconciles animal types from catalog documents.
type Importer struct {
	service animals.Service
	loader  *Loader
	logger  interfaces.Logger
}

// NewImporter builds an Importer from cfg.
func NewImporter(cfg ImporterConfig) *Importer {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.ImportLogger(nil)
	}
	return &Importer{service: cfg.Service, loader: cfg.Loader, logger: logger}
}

// ImportDocuments imports docs in order. A failing document is recorded and
// the run continues; the returned error joins every failure.
func (i *Importer) ImportDocuments(ctx context.Context, docs []*Document, opts ImportOptions) (*Result, error) {
	if i.service == nil {
		return nil, ErrServiceRequired
	}

	result := &Result{DryRun: opts.DryRun}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			break
		}
		outcome, err := i.ImportDocument(ctx, doc, opts)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Outcomes = append(result.Outcomes, *outcome)
	}

	i.logger.Info("catalog.import.completed",
		"dry_run", opts.DryRun,
		"created", result.Count(ActionCreate),
		"updated", result.Count(ActionUpdate),
		"unchanged", result.Count(ActionUnchanged),
		"failed", len(result.Errors),
	)
	return result, result.Err()
}

// ImportDirectory loads every document under dir and imports them.
func (i *Importer) ImportDirectory(ctx context.Context, dir string, opts ImportOptions) (*Result, error) {
	if i.loader == nil {
		return nil, ErrLoaderRequired
	}
	docs, err := i.loader.LoadDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	return i.ImportDocuments(ctx, docs, opts)
}

// ImportDocument creates the animal type described by doc, or reconciles the
// stored one when its slug already exists.
func (i *Importer) ImportDocument(ctx context.Context, doc *Document, opts ImportOptions) (*Outcome, error) {
	if i.service == nil {
		return nil, ErrServiceRequired
	}
	if doc == nil {
		return nil, fmt.Errorf("markdown importer: nil document")
	}

	logger := logging.WithFields(i.logger, map[string]any{
		"path":     doc.Path,
		"slug":     doc.Entry.Slug,
		"checksum": fmt.Sprintf("%x", doc.Checksum[:min(len(doc.Checksum), 8)]),
	})

	existing, err := i.service.GetBySlug(ctx, doc.Entry.Slug)
	switch {
	case animals.IsNotFound(err):
		return i.create(ctx, logger, doc, opts)
	case err != nil:
		return nil, fmt.Errorf("%s: load %s: %w", doc.Path, doc.Entry.Slug, err)
	}
	return i.update(ctx, logger, doc, existing, opts)
}

func (i *Importer) create(ctx context.Context, logger interfaces.Logger, doc *Document, opts ImportOptions) (*Outcome, error) {
	id := doc.ID()
	req := animals.CreateAnimalTypeRequest{
		ID:               id,
		AnimalTypeFields: doc.Fields(),
		Issues:           doc.Issues(id),
	}
	outcome := &Outcome{Path: doc.Path, Slug: doc.Entry.Slug, ID: id, Action: ActionCreate, Creates: countRecords(req.Issues)}

	if opts.DryRun {
		logger.Info("catalog.import.planned", "action", ActionCreate, "creates", outcome.Creates)
		return outcome, nil
	}

	created, err := i.service.Create(ctx, req)
	if err != nil {
		logger.Error("catalog.import.failed", "action", ActionCreate, "error", err)
		return nil, fmt.Errorf("%s: create: %w", doc.Path, err)
	}
	outcome.ID = created.ID
	outcome.Version = created.Version
	logger.Info("catalog.import.created", "animal_type_id", created.ID, "creates", outcome.Creates)
	return outcome, nil
}

func (i *Importer) update(ctx context.Context, logger interfaces.Logger, doc *Document, existing *animals.AnimalType, opts ImportOptions) (*Outcome, error) {
	version := existing.Version
	req := animals.UpdateAnimalTypeRequest{
		ID:               existing.ID,
		ExpectedVersion:  &version,
		AnimalTypeFields: doc.Fields(),
		Issues:           doc.Issues(existing.ID),
		KeepSubmittedIDs: true,
	}

	plan, err := i.service.Preview(ctx, req)
	if err != nil {
		logger.Error("catalog.import.failed", "action", ActionUpdate, "error", err)
		return nil, fmt.Errorf("%s: preview: %w", doc.Path, err)
	}

	outcome := &Outcome{
		Path:    doc.Path,
		Slug:    doc.Entry.Slug,
		ID:      existing.ID,
		Action:  ActionUpdate,
		Creates: plan.Count(reconcile.OpCreate),
		Updates: plan.Count(reconcile.OpUpdate),
		Deletes: plan.Count(reconcile.OpDelete),
		Version: existing.Version,
	}

	if plan.Empty() && unchanged(existing, req) {
		outcome.Action = ActionUnchanged
		outcome.Updates = 0
		logger.Debug("catalog.import.unchanged", "animal_type_id", existing.ID)
		return outcome, nil
	}

	if opts.DryRun {
		logger.Info("catalog.import.planned",
			"action", ActionUpdate,
			"creates", outcome.Creates,
			"updates", outcome.Updates,
			"deletes", outcome.Deletes,
		)
		return outcome, nil
	}

	updated, err := i.service.Update(ctx, req)
	if err != nil {
		logger.Error("catalog.import.failed", "action", ActionUpdate, "error", err)
		return nil, fmt.Errorf("%s: update: %w", doc.Path, err)
	}
	outcome.Version = updated.Version
	logger.Info("catalog.import.updated",
		"animal_type_id", updated.ID,
		"version", updated.Version,
		"creates", outcome.Creates,
		"updates", outcome.Updates,
		"deletes", outcome.Deletes,
	)
	return outcome, nil
}

func countRecords(issues []animals.IssueInput) int {
	n := len(issues)
	for _, issue := range issues {
		n += len(issue.Tabs) + len(issue.Images)
	}
	return n
}

// unchanged reports whether applying req would leave every stored value as is.
func unchanged(existing *animals.AnimalType, req animals.UpdateAnimalTypeRequest) bool {
	stored := animals.AnimalTypeFields{
		Slug:          existing.Slug,
		NameEn:        existing.NameEn,
		NameAr:        existing.NameAr,
		DescriptionEn: existing.DescriptionEn,
		DescriptionAr: existing.DescriptionAr,
		ImageURL:      existing.ImageURL,
		Position:      existing.Position,
	}
	if stored != req.AnimalTypeFields {
		return false
	}
	return reflect.DeepEqual(canonical(storedIssues(existing)), canonical(req.Issues))
}

func storedIssues(record *animals.AnimalType) []animals.IssueInput {
	out := make([]animals.IssueInput, 0, len(record.Issues))
	for _, issue := range record.Issues {
		in := animals.IssueInput{
			ID: issue.ID,
			IssueFields: animals.IssueFields{
				TitleEn:       issue.TitleEn,
				TitleAr:       issue.TitleAr,
				DescriptionEn: issue.DescriptionEn,
				DescriptionAr: issue.DescriptionAr,
				ImageURL:      issue.ImageURL,
				Position:      issue.Position,
			},
		}
		for _, tab := range issue.Tabs {
			in.Tabs = append(in.Tabs, animals.TabInput{ID: tab.ID, TabFields: animals.TabFields{
				TitleEn: tab.TitleEn, TitleAr: tab.TitleAr, BodyEn: tab.BodyEn, BodyAr: tab.BodyAr, Position: tab.Position,
			}})
		}
		for _, image := range issue.Images {
			in.Images = append(in.Images, animals.ImageInput{ID: image.ID, ImageFields: animals.ImageFields{
				URL: image.URL, AltEn: image.AltEn, AltAr: image.AltAr, Position: image.Position,
			}})
		}
		out = append(out, in)
	}
	return out
}

// canonical orders every level by id and drops empty slices so stored and
// submitted trees compare equal.
func canonical(issues []animals.IssueInput) []animals.IssueInput {
	out := slices.Clone(issues)
	for idx := range out {
		out[idx].Tabs = slices.Clone(out[idx].Tabs)
		slices.SortFunc(out[idx].Tabs, func(a, b animals.TabInput) int { return compareIDs(a.ID, b.ID) })
		out[idx].Images = slices.Clone(out[idx].Images)
		slices.SortFunc(out[idx].Images, func(a, b animals.ImageInput) int { return compareIDs(a.ID, b.ID) })
		if len(out[idx].Tabs) == 0 {
			out[idx].Tabs = nil
		}
		if len(out[idx].Images) == 0 {
			out[idx].Images = nil
		}
	}
	slices.SortFunc(out, func(a, b animals.IssueInput) int { return compareIDs(a.ID, b.ID) })
	if len(out) == 0 {
		return nil
	}
	return out
}

func compareIDs(a, b uuid.UUID) int {
	return strings.Compare(a.String(), b.String())
}
