package animals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-agrocms/internal/reconcile"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const animalTypeNamespace = "animal_type"

// NewAnimalTypeRepository builds the generic repository for animal type rows.
func NewAnimalTypeRepository(db *bun.DB) repository.Repository[*AnimalType] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*AnimalType]{
		NewRecord: func() *AnimalType { return &AnimalType{} },
		GetID: func(at *AnimalType) uuid.UUID {
			return at.ID
		},
		SetID: func(at *AnimalType, id uuid.UUID) {
			at.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(at *AnimalType) string {
			return at.Slug
		},
	})
}

// BunRepository stores animal type trees with bun. Parent rows are read
// through go-repository-bun, optionally cached; collections are always read
// from the database.
type BunRepository struct {
	db           *bun.DB
	repo         repository.Repository[*AnimalType]
	cacheService cache.CacheService
	cachePrefix  string
	now          func() time.Time
}

var _ Repository = (*BunRepository)(nil)

// NewBunRepository creates a repository without caching.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache creates a repository caching parent reads when
// both cache arguments are provided.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRepository {
	base := NewAnimalTypeRepository(db)
	r := &BunRepository{db: db, repo: base, now: time.Now}
	if cacheService != nil && serializer != nil {
		r.repo = repositorycache.New(base, cacheService, serializer)
		r.cacheService = cacheService
		r.cachePrefix = animalTypeNamespace + cache.KeySeparator
	}
	return r
}

// Create inserts the parent and every collection in one transaction.
func (r *BunRepository) Create(ctx context.Context, record *AnimalType) (*AnimalType, error) {
	if r.db == nil {
		return nil, fmt.Errorf("animal type repository: database not configured")
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return fmt.Errorf("insert animal type: %w", err)
		}

		var (
			tabs   []*IssueTab
			images []*IssueImage
		)
		for _, issue := range record.Issues {
			tabs = append(tabs, issue.Tabs...)
			images = append(images, issue.Images...)
		}
		if len(record.Issues) > 0 {
			if _, err := tx.NewInsert().Model(&record.Issues).Exec(ctx); err != nil {
				return fmt.Errorf("insert animal issues: %w", err)
			}
		}
		if len(tabs) > 0 {
			if _, err := tx.NewInsert().Model(&tabs).Exec(ctx); err != nil {
				return fmt.Errorf("insert issue tabs: %w", err)
			}
		}
		if len(images) > 0 {
			if _, err := tx.NewInsert().Model(&images).Exec(ctx); err != nil {
				return fmt.Errorf("insert issue images: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// GetByID returns the full tree of an animal type.
func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*AnimalType, error) {
	result, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "animal_type", id.String())
	}
	return r.withTree(ctx, result)
}

// GetBySlug returns the full tree of the animal type with slug.
func (r *BunRepository) GetBySlug(ctx context.Context, slug string) (*AnimalType, error) {
	result, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, "animal_type", slug)
	}
	return r.withTree(ctx, result)
}

// List returns every animal type without collections, ordered by position.
func (r *BunRepository) List(ctx context.Context) ([]*AnimalType, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.position ASC, ?TableAlias.created_at ASC")
		}),
	)
	return records, err
}

// Delete removes the animal type and everything it owns.
func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil {
		return fmt.Errorf("animal type repository: database not configured")
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var issueIDs []uuid.UUID
		if err := tx.NewSelect().
			Model((*Issue)(nil)).
			Column("id").
			Where("?TableAlias.animal_type_id = ?", id).
			Scan(ctx, &issueIDs); err != nil {
			return fmt.Errorf("list animal issue ids: %w", err)
		}

		if len(issueIDs) > 0 {
			if _, err := tx.NewDelete().
				Model((*IssueTab)(nil)).
				Where("?TableAlias.issue_id IN (?)", bun.In(issueIDs)).
				Exec(ctx); err != nil {
				return fmt.Errorf("delete issue tabs: %w", err)
			}
			if _, err := tx.NewDelete().
				Model((*IssueImage)(nil)).
				Where("?TableAlias.issue_id IN (?)", bun.In(issueIDs)).
				Exec(ctx); err != nil {
				return fmt.Errorf("delete issue images: %w", err)
			}
			if _, err := tx.NewDelete().
				Model((*Issue)(nil)).
				Where("?TableAlias.animal_type_id = ?", id).
				Exec(ctx); err != nil {
				return fmt.Errorf("delete animal issues: %w", err)
			}
		}

		result, err := tx.NewDelete().
			Model((*AnimalType)(nil)).
			Where("?TableAlias.id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete animal type: %w", err)
		}
		return requireAffected(result, &NotFoundError{Resource: "animal_type", Key: id.String()})
	})
}

// InvalidateCache drops cached animal type reads.
func (r *BunRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

// RunInTx satisfies reconcile.Gateway.
func (r *BunRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx reconcile.Tx) error) error {
	if r.db == nil {
		return fmt.Errorf("animal type repository: database not configured")
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &bunTx{tx: tx, now: r.now})
	})
}

// withTree copies the cached parent row and attaches its collections.
func (r *BunRepository) withTree(ctx context.Context, parent *AnimalType) (*AnimalType, error) {
	record := *parent
	record.Issues = nil
	if err := loadCollections(ctx, r.db, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func loadCollections(ctx context.Context, db bun.IDB, record *AnimalType) error {
	var issues []*Issue
	if err := db.NewSelect().
		Model(&issues).
		Where("?TableAlias.animal_type_id = ?", record.ID).
		Scan(ctx); err != nil {
		return fmt.Errorf("load animal issues: %w", err)
	}
	record.Issues = issues
	if len(issues) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Issue, len(issues))
	ids := make([]uuid.UUID, 0, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
		ids = append(ids, issue.ID)
	}

	var tabs []*IssueTab
	if err := db.NewSelect().
		Model(&tabs).
		Where("?TableAlias.issue_id IN (?)", bun.In(ids)).
		Scan(ctx); err != nil {
		return fmt.Errorf("load issue tabs: %w", err)
	}
	for _, tab := range tabs {
		if owner := byID[tab.IssueID]; owner != nil {
			owner.Tabs = append(owner.Tabs, tab)
		}
	}

	var images []*IssueImage
	if err := db.NewSelect().
		Model(&images).
		Where("?TableAlias.issue_id IN (?)", bun.In(ids)).
		Scan(ctx); err != nil {
		return fmt.Errorf("load issue images: %w", err)
	}
	for _, image := range images {
		if owner := byID[image.IssueID]; owner != nil {
			owner.Images = append(owner.Images, image)
		}
	}

	sortTree(record)
	return nil
}

// bunTx implements reconcile.Tx on top of a bun transaction.
type bunTx struct {
	tx  bun.Tx
	now func() time.Time
}

var _ reconcile.Tx = (*bunTx)(nil)

func (t *bunTx) LoadSnapshot(ctx context.Context, parentID uuid.UUID) (*reconcile.Snapshot, error) {
	record := &AnimalType{}
	q := t.tx.NewSelect().Model(record).Where("?TableAlias.id = ?", parentID)
	if t.tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "animal_type", Key: parentID.String()}
		}
		return nil, fmt.Errorf("load animal type: %w", err)
	}
	if err := loadCollections(ctx, t.tx, record); err != nil {
		return nil, err
	}
	return snapshotOf(record), nil
}

func (t *bunTx) Apply(ctx context.Context, op reconcile.Operation) error {
	if op.Kind == reconcile.OpDelete {
		return t.delete(ctx, op)
	}

	record, err := recordForOp(op, t.now().UTC())
	if err != nil {
		return err
	}

	switch op.Kind {
	case reconcile.OpCreate:
		_, err := t.tx.NewInsert().Model(record).Exec(ctx)
		return err
	case reconcile.OpUpdate:
		ownerColumn, columns := updateColumns(op.Collection)
		result, err := t.tx.NewUpdate().
			Model(record).
			Column(columns...).
			Where("?TableAlias.id = ?", op.ID).
			Where("?TableAlias."+ownerColumn+" = ?", op.OwnerID).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected(result, &NotFoundError{Resource: op.Collection, Key: op.ID.String()})
	default:
		return fmt.Errorf("animals: unsupported operation %s", op.Kind)
	}
}

func (t *bunTx) delete(ctx context.Context, op reconcile.Operation) error {
	var (
		model       any
		ownerColumn string
	)
	switch op.Collection {
	case CollectionIssues:
		model, ownerColumn = (*Issue)(nil), "animal_type_id"
	case CollectionTabs:
		model, ownerColumn = (*IssueTab)(nil), "issue_id"
	case CollectionImages:
		model, ownerColumn = (*IssueImage)(nil), "issue_id"
	default:
		return fmt.Errorf("animals: unknown collection %q", op.Collection)
	}

	result, err := t.tx.NewDelete().
		Model(model).
		Where("?TableAlias.id = ?", op.ID).
		Where("?TableAlias."+ownerColumn+" = ?", op.OwnerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(result, &NotFoundError{Resource: op.Collection, Key: op.ID.String()})
}

func (t *bunTx) UpdateParent(ctx context.Context, parentID uuid.UUID, fields any, version int64) error {
	record := &AnimalType{ID: parentID, Version: version, UpdatedAt: t.now().UTC()}
	columns := []string{"version", "updated_at"}
	if f, ok := fields.(AnimalTypeFields); ok {
		applyAnimalTypeFields(record, f)
		columns = append(columns, "slug", "name_en", "name_ar", "description_en", "description_ar", "image_url", "position")
	} else if fields != nil {
		return fmt.Errorf("animals: unexpected parent fields %T", fields)
	}

	result, err := t.tx.NewUpdate().
		Model(record).
		Column(columns...).
		Where("?TableAlias.id = ?", parentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(result, &NotFoundError{Resource: "animal_type", Key: parentID.String()})
}

func updateColumns(collection string) (ownerColumn string, columns []string) {
	switch collection {
	case CollectionIssues:
		return "animal_type_id", []string{"title_en", "title_ar", "description_en", "description_ar", "image_url", "position", "updated_at"}
	case CollectionTabs:
		return "issue_id", []string{"title_en", "title_ar", "body_en", "body_ar", "position", "updated_at"}
	default:
		return "issue_id", []string{"url", "alt_en", "alt_ar", "position", "updated_at"}
	}
}

func requireAffected(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}
