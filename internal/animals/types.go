package animals

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-agrocms/internal/reconcile"
	"github.com/google/uuid"
)

// Collection names used in reconcile trees.
const (
	CollectionIssues = "issues"
	CollectionTabs   = "tabs"
	CollectionImages = "images"
)

// AnimalTypeFields are the scalar fields of an animal type.
type AnimalTypeFields struct {
	Slug          string
	NameEn        string
	NameAr        string
	DescriptionEn string
	DescriptionAr string
	ImageURL      string
	Position      int
}

// IssueFields are the scalar fields of an issue.
type IssueFields struct {
	TitleEn       string
	TitleAr       string
	DescriptionEn string
	DescriptionAr string
	ImageURL      string
	Position      int
}

// TabFields are the scalar fields of an issue tab.
type TabFields struct {
	TitleEn  string
	TitleAr  string
	BodyEn   string
	BodyAr   string
	Position int
}

// ImageFields are the scalar fields of an issue image.
type ImageFields struct {
	URL      string
	AltEn    string
	AltAr    string
	Position int
}

// IssueInput is a submitted issue. A Nil ID requests creation.
type IssueInput struct {
	ID uuid.UUID
	IssueFields
	Tabs   []TabInput
	Images []ImageInput
}

// TabInput is a submitted tab. A Nil ID requests creation.
type TabInput struct {
	ID uuid.UUID
	TabFields
}

// ImageInput is a submitted image. A Nil ID requests creation.
type ImageInput struct {
	ID uuid.UUID
	ImageFields
}

// CreateAnimalTypeRequest creates an animal type with its whole tree. Non-Nil
// ids are kept, which lets importers use deterministic identifiers.
type CreateAnimalTypeRequest struct {
	ID uuid.UUID
	AnimalTypeFields
	Issues []IssueInput
}

// UpdateAnimalTypeRequest replaces an animal type's fields and reconciles its
// issues, tabs and images against Issues. ExpectedVersion enables optimistic
// locking.
type UpdateAnimalTypeRequest struct {
	ID              uuid.UUID
	ExpectedVersion *int64
	AnimalTypeFields
	Issues []IssueInput

	// KeepSubmittedIDs creates unknown ids as submitted instead of rejecting
	// them. Only importers with deterministic ids should set it.
	KeepSubmittedIDs bool
}

var (
	ErrIDRequired      = errors.New("animals: animal type id required")
	ErrVersionRequired = errors.New("animals: expected version required")
	ErrSlugRequired    = errors.New("animals: slug is required")
	ErrSlugInvalid     = errors.New("animals: slug contains invalid characters")
	ErrSlugExists      = errors.New("animals: slug already exists")
	ErrNameRequired    = errors.New("animals: english name is required")
	ErrTitleRequired   = errors.New("animals: english title is required")
	ErrImageURLNeeded  = errors.New("animals: image url is required")
)

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// Unwrap lets reconcile classify missing animal types as missing parents.
func (e *NotFoundError) Unwrap() error {
	if e.Resource == "animal_type" {
		return reconcile.ErrParentNotFound
	}
	return nil
}

// IsNotFound reports whether err describes a missing record.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, reconcile.ErrParentNotFound)
}

// Repository persists animal type trees. Writes that span several rows are
// atomic. RunInTx exposes the transactional gateway used by the reconciler.
type Repository interface {
	reconcile.Gateway

	Create(ctx context.Context, record *AnimalType) (*AnimalType, error)
	GetByID(ctx context.Context, id uuid.UUID) (*AnimalType, error)
	GetBySlug(ctx context.Context, slug string) (*AnimalType, error)
	List(ctx context.Context) ([]*AnimalType, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CacheInvalidator is implemented by repositories caching reads.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}
