package animalscmd

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-agrocms/internal/animals"
	"github.com/goliatone/go-agrocms/internal/commands"
	"github.com/goliatone/go-agrocms/internal/reconcile"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	createAnimalTypeMessageType = "agrocms.animals.create"
	updateAnimalTypeMessageType = "agrocms.animals.update"
	deleteAnimalTypeMessageType = "agrocms.animals.delete"
)

// CreateAnimalTypeCommand creates an animal type with its issue tree.
// Result, when set, receives the stored tree.
type CreateAnimalTypeCommand struct {
	Request animals.CreateAnimalTypeRequest
	Result  func(*animals.AnimalType) `json:"-"`
}

// Type implements command.Message.
func (CreateAnimalTypeCommand) Type() string { return createAnimalTypeMessageType }

// Validate checks the fields required before the service runs.
func (m CreateAnimalTypeCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.Request.NameEn) == "" {
		errs["name_en"] = validation.NewError("agrocms.animals.create.name_required", "name_en is required")
	}
	issueErrors(errs, m.Request.Issues)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// UpdateAnimalTypeCommand replaces an animal type and reconciles its tree.
type UpdateAnimalTypeCommand struct {
	Request animals.UpdateAnimalTypeRequest
	Result  func(*animals.AnimalType) `json:"-"`
}

// Type implements command.Message.
func (UpdateAnimalTypeCommand) Type() string { return updateAnimalTypeMessageType }

// Validate checks the fields required before the reconciler runs.
func (m UpdateAnimalTypeCommand) Validate() error {
	errs := validation.Errors{}
	if m.Request.ID == uuid.Nil {
		errs["id"] = validation.NewError("agrocms.animals.update.id_required", "id is required")
	}
	if strings.TrimSpace(m.Request.NameEn) == "" {
		errs["name_en"] = validation.NewError("agrocms.animals.update.name_required", "name_en is required")
	}
	if m.Request.ExpectedVersion != nil && *m.Request.ExpectedVersion <= 0 {
		errs["version"] = validation.NewError("agrocms.animals.update.version_invalid", "version must be greater than zero")
	}
	issueErrors(errs, m.Request.Issues)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DeleteAnimalTypeCommand removes an animal type and everything it owns.
type DeleteAnimalTypeCommand struct {
	ID uuid.UUID `json:"id"`
}

// Type implements command.Message.
func (DeleteAnimalTypeCommand) Type() string { return deleteAnimalTypeMessageType }

// Validate ensures the identifier is present.
func (m DeleteAnimalTypeCommand) Validate() error {
	if m.ID == uuid.Nil {
		return validation.Errors{
			"id": validation.NewError("agrocms.animals.delete.id_required", "id is required"),
		}
	}
	return nil
}

func issueErrors(errs validation.Errors, issues []animals.IssueInput) {
	for _, issue := range issues {
		if strings.TrimSpace(issue.TitleEn) == "" {
			errs["issues"] = validation.NewError("agrocms.animals.issue_title_required", "every issue needs title_en")
			return
		}
	}
}

// CreateAnimalTypeHandler runs CreateAnimalTypeCommand through the service.
type CreateAnimalTypeHandler struct {
	inner *commands.Handler[CreateAnimalTypeCommand]
}

// NewCreateAnimalTypeHandler wires the handler to service.
func NewCreateAnimalTypeHandler(service animals.Service, logger interfaces.Logger, opts ...commands.HandlerOption[CreateAnimalTypeCommand]) *CreateAnimalTypeHandler {
	exec := func(ctx context.Context, msg CreateAnimalTypeCommand) error {
		created, err := service.Create(ctx, msg.Request)
		if err != nil {
			return mapServiceError(err)
		}
		if msg.Result != nil {
			msg.Result(created)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[CreateAnimalTypeCommand]{
		commands.WithLogger[CreateAnimalTypeCommand](logger),
		commands.WithOperation[CreateAnimalTypeCommand]("animals.create"),
		commands.WithMessageFields(func(msg CreateAnimalTypeCommand) map[string]any {
			return map[string]any{
				"slug":   msg.Request.Slug,
				"issues": len(msg.Request.Issues),
			}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[CreateAnimalTypeCommand]()),
	}
	return &CreateAnimalTypeHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[CreateAnimalTypeCommand].
func (h *CreateAnimalTypeHandler) Execute(ctx context.Context, msg CreateAnimalTypeCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UpdateAnimalTypeHandler runs UpdateAnimalTypeCommand through the service.
type UpdateAnimalTypeHandler struct {
	inner *commands.Handler[UpdateAnimalTypeCommand]
}

// NewUpdateAnimalTypeHandler wires the handler to service.
func NewUpdateAnimalTypeHandler(service animals.Service, logger interfaces.Logger, opts ...commands.HandlerOption[UpdateAnimalTypeCommand]) *UpdateAnimalTypeHandler {
	exec := func(ctx context.Context, msg UpdateAnimalTypeCommand) error {
		updated, err := service.Update(ctx, msg.Request)
		if err != nil {
			return mapServiceError(err)
		}
		if msg.Result != nil {
			msg.Result(updated)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[UpdateAnimalTypeCommand]{
		commands.WithLogger[UpdateAnimalTypeCommand](logger),
		commands.WithOperation[UpdateAnimalTypeCommand]("animals.update"),
		commands.WithMessageFields(func(msg UpdateAnimalTypeCommand) map[string]any {
			fields := map[string]any{
				"animal_type_id": msg.Request.ID,
				"issues":         len(msg.Request.Issues),
			}
			if msg.Request.ExpectedVersion != nil {
				fields["expected_version"] = *msg.Request.ExpectedVersion
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[UpdateAnimalTypeCommand]()),
	}
	return &UpdateAnimalTypeHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[UpdateAnimalTypeCommand].
func (h *UpdateAnimalTypeHandler) Execute(ctx context.Context, msg UpdateAnimalTypeCommand) error {
	return h.inner.Execute(ctx, msg)
}

// DeleteAnimalTypeHandler runs DeleteAnimalTypeCommand through the service.
type DeleteAnimalTypeHandler struct {
	inner *commands.Handler[DeleteAnimalTypeCommand]
}

// NewDeleteAnimalTypeHandler wires the handler to service.
func NewDeleteAnimalTypeHandler(service animals.Service, logger interfaces.Logger, opts ...commands.HandlerOption[DeleteAnimalTypeCommand]) *DeleteAnimalTypeHandler {
	exec := func(ctx context.Context, msg DeleteAnimalTypeCommand) error {
		return mapServiceError(service.Delete(ctx, msg.ID))
	}

	handlerOpts := []commands.HandlerOption[DeleteAnimalTypeCommand]{
		commands.WithLogger[DeleteAnimalTypeCommand](logger),
		commands.WithOperation[DeleteAnimalTypeCommand]("animals.delete"),
		commands.WithMessageFields(func(msg DeleteAnimalTypeCommand) map[string]any {
			return map[string]any{"animal_type_id": msg.ID}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[DeleteAnimalTypeCommand]()),
	}
	return &DeleteAnimalTypeHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[DeleteAnimalTypeCommand].
func (h *DeleteAnimalTypeHandler) Execute(ctx context.Context, msg DeleteAnimalTypeCommand) error {
	return h.inner.Execute(ctx, msg)
}

// mapServiceError categorises animal service sentinels. Reconcile errors
// already carry their category.
func mapServiceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, animals.ErrSlugExists):
		return commands.Categorize(err, goerrors.CategoryConflict, "slug already exists", "ANIMAL_TYPE_SLUG_EXISTS")
	case animals.IsNotFound(err):
		return commands.Categorize(err, goerrors.CategoryNotFound, "animal type not found", "ANIMAL_TYPE_NOT_FOUND")
	case errors.Is(err, animals.ErrIDRequired),
		errors.Is(err, animals.ErrVersionRequired),
		errors.Is(err, animals.ErrSlugRequired),
		errors.Is(err, animals.ErrSlugInvalid),
		errors.Is(err, animals.ErrNameRequired),
		errors.Is(err, animals.ErrTitleRequired),
		errors.Is(err, animals.ErrImageURLNeeded),
		reconcile.IsValidation(err):
		return commands.Categorize(err, goerrors.CategoryValidation, "invalid animal type", "ANIMAL_TYPE_INVALID")
	default:
		return err
	}
}
