package animals

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-agrocms/internal/reconcile"
	"github.com/google/uuid"
)

// MemoryRepository is an in-memory animal type store for scaffolding/tests.
// Transactions run against a copy of the store that replaces it on commit.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*AnimalType
	now     func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository constructs the repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[uuid.UUID]*AnimalType),
		now:     time.Now,
	}
}

// Create inserts the supplied tree.
func (m *MemoryRepository) Create(_ context.Context, record *AnimalType) (*AnimalType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.ID]; ok {
		return nil, fmt.Errorf("animal type %s already exists", record.ID)
	}
	if _, ok := findBySlug(m.records, record.Slug); ok {
		return nil, ErrSlugExists
	}
	copied := cloneAnimalType(record)
	m.records[copied.ID] = copied
	return cloneAnimalType(copied), nil
}

// GetByID retrieves an animal type tree.
func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*AnimalType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[id]
	if !ok {
		return nil, &NotFoundError{Resource: "animal_type", Key: id.String()}
	}
	return cloneAnimalType(record), nil
}

// GetBySlug retrieves an animal type tree by slug.
func (m *MemoryRepository) GetBySlug(_ context.Context, slug string) (*AnimalType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := findBySlug(m.records, slug)
	if !ok {
		return nil, &NotFoundError{Resource: "animal_type", Key: slug}
	}
	return cloneAnimalType(record), nil
}

// List returns every animal type without collections.
func (m *MemoryRepository) List(_ context.Context) ([]*AnimalType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*AnimalType, 0, len(m.records))
	for _, record := range m.records {
		copied := cloneAnimalType(record)
		copied.Issues = nil
		out = append(out, copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

// Delete removes the animal type and everything it owns.
func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return &NotFoundError{Resource: "animal_type", Key: id.String()}
	}
	delete(m.records, id)
	return nil
}

// RunInTx satisfies reconcile.Gateway. Transactions are serialised.
func (m *MemoryRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx reconcile.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := make(map[uuid.UUID]*AnimalType, len(m.records))
	for id, record := range m.records {
		working[id] = cloneAnimalType(record)
	}
	if err := fn(ctx, &memoryTx{records: working, now: m.now}); err != nil {
		return err
	}
	m.records = working
	return nil
}

type memoryTx struct {
	records map[uuid.UUID]*AnimalType
	now     func() time.Time
}

func (t *memoryTx) LoadSnapshot(_ context.Context, parentID uuid.UUID) (*reconcile.Snapshot, error) {
	record, ok := t.records[parentID]
	if !ok {
		return nil, &NotFoundError{Resource: "animal_type", Key: parentID.String()}
	}
	sortTree(record)
	return snapshotOf(record), nil
}

func (t *memoryTx) Apply(_ context.Context, op reconcile.Operation) error {
	now := t.now().UTC()
	missing := &NotFoundError{Resource: op.Collection, Key: op.ID.String()}

	if op.Collection == CollectionIssues {
		owner, ok := t.records[op.OwnerID]
		if !ok {
			return &NotFoundError{Resource: "animal_type", Key: op.OwnerID.String()}
		}
		idx := indexOf(owner.Issues, func(i *Issue) bool { return i.ID == op.ID })
		switch op.Kind {
		case reconcile.OpDelete:
			if idx < 0 {
				return missing
			}
			owner.Issues = append(owner.Issues[:idx], owner.Issues[idx+1:]...)
			return nil
		case reconcile.OpUpdate:
			if idx < 0 {
				return missing
			}
			fields, ok := op.Payload.(IssueFields)
			if !ok {
				return payloadError(op)
			}
			current := owner.Issues[idx]
			next := issueRecord(op.ID, op.OwnerID, fields, now)
			next.CreatedAt = current.CreatedAt
			next.Tabs, next.Images = current.Tabs, current.Images
			owner.Issues[idx] = next
			return nil
		default:
			if t.exists(op) {
				return fmt.Errorf("issue %s already exists", op.ID)
			}
			record, err := recordForOp(op, now)
			if err != nil {
				return err
			}
			owner.Issues = append(owner.Issues, record.(*Issue))
			return nil
		}
	}

	issue := t.findIssue(op.OwnerID)
	if issue == nil {
		return &NotFoundError{Resource: CollectionIssues, Key: op.OwnerID.String()}
	}

	switch op.Collection {
	case CollectionTabs:
		idx := indexOf(issue.Tabs, func(tab *IssueTab) bool { return tab.ID == op.ID })
		if op.Kind != reconcile.OpCreate && idx < 0 {
			return missing
		}
		if op.Kind == reconcile.OpDelete {
			issue.Tabs = append(issue.Tabs[:idx], issue.Tabs[idx+1:]...)
			return nil
		}
		if op.Kind == reconcile.OpCreate && t.exists(op) {
			return fmt.Errorf("tab %s already exists", op.ID)
		}
		record, err := recordForOp(op, now)
		if err != nil {
			return err
		}
		tab := record.(*IssueTab)
		if idx >= 0 {
			tab.CreatedAt = issue.Tabs[idx].CreatedAt
			issue.Tabs[idx] = tab
		} else {
			issue.Tabs = append(issue.Tabs, tab)
		}
		return nil
	case CollectionImages:
		idx := indexOf(issue.Images, func(image *IssueImage) bool { return image.ID == op.ID })
		if op.Kind != reconcile.OpCreate && idx < 0 {
			return missing
		}
		if op.Kind == reconcile.OpDelete {
			issue.Images = append(issue.Images[:idx], issue.Images[idx+1:]...)
			return nil
		}
		if op.Kind == reconcile.OpCreate && t.exists(op) {
			return fmt.Errorf("image %s already exists", op.ID)
		}
		record, err := recordForOp(op, now)
		if err != nil {
			return err
		}
		image := record.(*IssueImage)
		if idx >= 0 {
			image.CreatedAt = issue.Images[idx].CreatedAt
			issue.Images[idx] = image
		} else {
			issue.Images = append(issue.Images, image)
		}
		return nil
	default:
		return fmt.Errorf("animals: unknown collection %q", op.Collection)
	}
}

func (t *memoryTx) UpdateParent(_ context.Context, parentID uuid.UUID, fields any, version int64) error {
	record, ok := t.records[parentID]
	if !ok {
		return &NotFoundError{Resource: "animal_type", Key: parentID.String()}
	}
	if f, ok := fields.(AnimalTypeFields); ok {
		if other, found := findBySlug(t.records, f.Slug); found && other.ID != parentID {
			return ErrSlugExists
		}
		applyAnimalTypeFields(record, f)
	} else if fields != nil {
		return fmt.Errorf("animals: unexpected parent fields %T", fields)
	}
	record.Version = version
	record.UpdatedAt = t.now().UTC()
	return nil
}

func (t *memoryTx) findIssue(id uuid.UUID) *Issue {
	for _, record := range t.records {
		for _, issue := range record.Issues {
			if issue.ID == id {
				return issue
			}
		}
	}
	return nil
}

// exists mirrors the primary key constraint of each table.
func (t *memoryTx) exists(op reconcile.Operation) bool {
	for _, record := range t.records {
		for _, issue := range record.Issues {
			if op.Collection == CollectionIssues && issue.ID == op.ID {
				return true
			}
			if op.Collection == CollectionTabs && indexOf(issue.Tabs, func(tab *IssueTab) bool { return tab.ID == op.ID }) >= 0 {
				return true
			}
			if op.Collection == CollectionImages && indexOf(issue.Images, func(image *IssueImage) bool { return image.ID == op.ID }) >= 0 {
				return true
			}
		}
	}
	return false
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}

func findBySlug(records map[uuid.UUID]*AnimalType, slug string) (*AnimalType, bool) {
	for _, record := range records {
		if record.Slug == slug {
			return record, true
		}
	}
	return nil, false
}

func cloneAnimalType(src *AnimalType) *AnimalType {
	if src == nil {
		return nil
	}
	out := *src
	out.Issues = nil
	for _, issue := range src.Issues {
		copied := *issue
		copied.Tabs = nil
		copied.Images = nil
		for _, tab := range issue.Tabs {
			t := *tab
			copied.Tabs = append(copied.Tabs, &t)
		}
		for _, image := range issue.Images {
			i := *image
			copied.Images = append(copied.Images, &i)
		}
		out.Issues = append(out.Issues, &copied)
	}
	sortTree(&out)
	return &out
}
