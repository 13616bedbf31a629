package animals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/internal/reconcile"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

// Service manages animal types and their issue trees.
type Service interface {
	Create(ctx context.Context, req CreateAnimalTypeRequest) (*AnimalType, error)
	Get(ctx context.Context, id uuid.UUID) (*AnimalType, error)
	GetBySlug(ctx context.Context, slug string) (*AnimalType, error)
	List(ctx context.Context) ([]*AnimalType, error)
	Update(ctx context.Context, req UpdateAnimalTypeRequest) (*AnimalType, error)
	Preview(ctx context.Context, req UpdateAnimalTypeRequest) (*reconcile.Plan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Localize(record *AnimalType, locale string) (*LocalizedAnimalType, error)
}

// IDGenerator produces identifiers for new records.
type IDGenerator func() uuid.UUID

// ServiceOption configures service behaviour.
type ServiceOption func(*service)

// WithClock overrides the time source (primarily for tests).
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides id generation for created records.
func WithIDGenerator(generator IDGenerator) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

// WithLogger sets the service logger. The reconciler logs through the same
// logger unless WithReconcilerOptions overrides it.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReconcilerOptions forwards options to the collection reconciler.
func WithReconcilerOptions(opts ...reconcile.ReconcilerOption) ServiceOption {
	return func(s *service) {
		s.reconcilerOpts = append(s.reconcilerOpts, opts...)
	}
}

// WithVersionRequired rejects updates that do not carry an expected version.
func WithVersionRequired() ServiceOption {
	return func(s *service) {
		s.requireVersion = true
	}
}

// WithRenderer sets the markdown renderer used by Localize.
func WithRenderer(renderer Renderer) ServiceOption {
	return func(s *service) {
		s.renderer = renderer
	}
}

// ErrRepositoryRequired is raised when NewService receives no repository.
var ErrRepositoryRequired = errors.New("animals: repository required")

type service struct {
	repo           Repository
	reconciler     *reconcile.Reconciler
	reconcilerOpts []reconcile.ReconcilerOption
	renderer       Renderer
	logger         interfaces.Logger
	id             IDGenerator
	now            func() time.Time
	requireVersion bool
}

// NewService constructs the animal type service.
func NewService(repo Repository, opts ...ServiceOption) Service {
	if repo == nil {
		panic(ErrRepositoryRequired)
	}

	s := &service{
		repo:   repo,
		logger: logging.AnimalsLogger(nil),
		id:     uuid.New,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	reconcilerOpts := append([]reconcile.ReconcilerOption{
		reconcile.WithLogger(s.logger),
		reconcile.WithClock(s.now),
		reconcile.WithDiffOptions(reconcile.WithIDGenerator(reconcile.IDGenerator(s.id))),
	}, s.reconcilerOpts...)
	s.reconciler = reconcile.New(repo, reconcilerOpts...)
	return s
}

func (s *service) Create(ctx context.Context, req CreateAnimalTypeRequest) (*AnimalType, error) {
	fields, err := normalizeFields(req.AnimalTypeFields)
	if err != nil {
		return nil, err
	}
	req.AnimalTypeFields = fields
	if err := validateIssues(req.Issues); err != nil {
		return nil, err
	}
	if err := s.ensureSlugAvailable(ctx, fields.Slug, uuid.Nil); err != nil {
		return nil, err
	}

	// Every submitted id is new here. Diffing against an empty tree rejects
	// duplicates before anything is written.
	if _, err := reconcile.Diff(reconcile.State{ID: req.ID}, issueNodes(req.Issues),
		reconcile.WithUnknownIDPolicy(reconcile.AdoptUnknown),
		reconcile.WithIDGenerator(uuid.New),
	); err != nil {
		return nil, err
	}

	record := newTree(req, s.id, s.now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("animal_type.created",
		"animal_type_id", created.ID,
		"slug", created.Slug,
		"issues", len(created.Issues),
	)
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AnimalType, error) {
	if id == uuid.Nil {
		return nil, ErrIDRequired
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, value string) (*AnimalType, error) {
	normalized, err := slug.Normalize(value)
	if err != nil || normalized == "" {
		return nil, ErrSlugRequired
	}
	return s.repo.GetBySlug(ctx, normalized)
}

func (s *service) List(ctx context.Context) ([]*AnimalType, error) {
	return s.repo.List(ctx)
}

func (s *service) Update(ctx context.Context, req UpdateAnimalTypeRequest) (*AnimalType, error) {
	request, err := s.reconcileRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.reconciler.Reconcile(ctx, request)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("animal_type.updated",
		"animal_type_id", result.ParentID,
		"version", result.Version,
	)
	return s.repo.GetByID(ctx, req.ID)
}

func (s *service) Preview(ctx context.Context, req UpdateAnimalTypeRequest) (*reconcile.Plan, error) {
	request, err := s.reconcileRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Preview(ctx, request)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrIDRequired
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("animal_type.deleted", "animal_type_id", id)
	return nil
}

func (s *service) reconcileRequest(ctx context.Context, req UpdateAnimalTypeRequest) (reconcile.Request, error) {
	if req.ID == uuid.Nil {
		return reconcile.Request{}, ErrIDRequired
	}
	if s.requireVersion && req.ExpectedVersion == nil {
		return reconcile.Request{}, ErrVersionRequired
	}
	fields, err := normalizeFields(req.AnimalTypeFields)
	if err != nil {
		return reconcile.Request{}, err
	}
	if err := validateIssues(req.Issues); err != nil {
		return reconcile.Request{}, err
	}
	if err := s.ensureSlugAvailable(ctx, fields.Slug, req.ID); err != nil {
		return reconcile.Request{}, err
	}

	request := reconcile.Request{
		ParentID:        req.ID,
		ExpectedVersion: req.ExpectedVersion,
		Fields:          fields,
		Children:        issueNodes(req.Issues),
	}
	if req.KeepSubmittedIDs {
		request.Options = append(request.Options, reconcile.WithUnknownIDPolicy(reconcile.AdoptUnknown))
	}
	return request, nil
}

func (s *service) ensureSlugAvailable(ctx context.Context, value string, owner uuid.UUID) error {
	existing, err := s.repo.GetBySlug(ctx, value)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing != nil && existing.ID != owner {
		return ErrSlugExists
	}
	return nil
}

func (s *service) invalidate(ctx context.Context) {
	invalidator, ok := s.repo.(CacheInvalidator)
	if !ok {
		return
	}
	if err := invalidator.InvalidateCache(ctx); err != nil {
		s.logger.Warn("animal_type.cache_invalidation_failed", "error", err)
	}
}

func normalizeFields(fields AnimalTypeFields) (AnimalTypeFields, error) {
	raw := strings.TrimSpace(fields.Slug)
	if raw == "" {
		raw = strings.TrimSpace(fields.NameEn)
	}
	if raw == "" {
		return fields, ErrSlugRequired
	}
	normalized, err := slug.Normalize(raw)
	if err != nil || normalized == "" {
		return fields, ErrSlugRequired
	}
	if !slug.IsValid(normalized) {
		return fields, ErrSlugInvalid
	}
	fields.Slug = normalized

	fields.NameEn = strings.TrimSpace(fields.NameEn)
	fields.NameAr = strings.TrimSpace(fields.NameAr)
	if fields.NameEn == "" {
		return fields, ErrNameRequired
	}
	return fields, nil
}

func validateIssues(issues []IssueInput) error {
	for i, issue := range issues {
		if strings.TrimSpace(issue.TitleEn) == "" {
			return fmt.Errorf("issues[%d]: %w", i, ErrTitleRequired)
		}
		for j, tab := range issue.Tabs {
			if strings.TrimSpace(tab.TitleEn) == "" {
				return fmt.Errorf("issues[%d].tabs[%d]: %w", i, j, ErrTitleRequired)
			}
		}
		for j, image := range issue.Images {
			if strings.TrimSpace(image.URL) == "" {
				return fmt.Errorf("issues[%d].images[%d]: %w", i, j, ErrImageURLNeeded)
			}
		}
	}
	return nil
}
