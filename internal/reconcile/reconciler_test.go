package reconcile

import (
	"context"
	"errors"
	"maps"
	"sort"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type recordKey struct {
	collection string
	owner      uuid.UUID
	id         uuid.UUID
}

type storedRecord struct {
	payload any
	order   int
}

type memoryStore struct {
	parents map[uuid.UUID]int64
	fields  map[uuid.UUID]any
	records map[recordKey]storedRecord
	seq     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		parents: map[uuid.UUID]int64{},
		fields:  map[uuid.UUID]any{},
		records: map[recordKey]storedRecord{},
	}
}

func (m *memoryStore) clone() *memoryStore {
	return &memoryStore{
		parents: maps.Clone(m.parents),
		fields:  maps.Clone(m.fields),
		records: maps.Clone(m.records),
		seq:     m.seq,
	}
}

func (m *memoryStore) put(collection string, owner, id uuid.UUID, payload any) {
	m.seq++
	m.records[recordKey{collection, owner, id}] = storedRecord{payload: payload, order: m.seq}
}

func (m *memoryStore) owned(owner uuid.UUID) map[string][]State {
	type entry struct {
		key   recordKey
		order int
	}
	grouped := map[string][]entry{}
	for key, rec := range m.records {
		if key.owner == owner {
			grouped[key.collection] = append(grouped[key.collection], entry{key, rec.order})
		}
	}
	if len(grouped) == 0 {
		return nil
	}
	out := map[string][]State{}
	for name, entries := range grouped {
		sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
		for _, e := range entries {
			out[name] = append(out[name], State{ID: e.key.id, Children: m.owned(e.key.id)})
		}
	}
	return out
}

type memoryGateway struct {
	store   *memoryStore
	failOn  func(op Operation) error
	applied []Operation
}

func (g *memoryGateway) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	working := g.store.clone()
	tx := &memoryTx{store: working, gateway: g}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	g.store = working
	g.applied = append(g.applied, tx.applied...)
	return nil
}

type memoryTx struct {
	store   *memoryStore
	gateway *memoryGateway
	applied []Operation
}

func (t *memoryTx) LoadSnapshot(_ context.Context, parentID uuid.UUID) (*Snapshot, error) {
	version, ok := t.store.parents[parentID]
	if !ok {
		return nil, ErrParentNotFound
	}
	return &Snapshot{ParentID: parentID, Version: version, Children: t.store.owned(parentID)}, nil
}

func (t *memoryTx) Apply(_ context.Context, op Operation) error {
	if t.gateway.failOn != nil {
		if err := t.gateway.failOn(op); err != nil {
			return err
		}
	}
	key := recordKey{op.Collection, op.OwnerID, op.ID}
	switch op.Kind {
	case OpDelete:
		if _, ok := t.store.records[key]; !ok {
			return errors.New("row vanished")
		}
		delete(t.store.records, key)
	case OpUpdate:
		rec, ok := t.store.records[key]
		if !ok {
			return errors.New("row vanished")
		}
		rec.payload = op.Payload
		t.store.records[key] = rec
	case OpCreate:
		t.store.put(op.Collection, op.OwnerID, op.ID, op.Payload)
	}
	t.applied = append(t.applied, op)
	return nil
}

func (t *memoryTx) UpdateParent(_ context.Context, parentID uuid.UUID, fields any, version int64) error {
	if fields != nil {
		t.store.fields[parentID] = fields
	}
	t.store.parents[parentID] = version
	return nil
}

func seededGateway() (*memoryGateway, uuid.UUID) {
	store := newMemoryStore()
	parent := id(100)
	store.parents[parent] = 1
	store.put("issues", parent, id(1), "C1")
	store.put("issues", parent, id(2), "C2")
	store.put("issues", parent, id(3), "C3")
	store.put("tabs", id(1), id(10), "G1")
	store.put("tabs", id(1), id(11), "G2")
	store.put("tabs", id(2), id(20), "G3")
	return &memoryGateway{store: store}, parent
}

func payloadsOf(store *memoryStore, collection string, owner uuid.UUID) map[uuid.UUID]any {
	out := map[uuid.UUID]any{}
	for key, rec := range store.records {
		if key.collection == collection && key.owner == owner {
			out[key.id] = rec.payload
		}
	}
	return out
}

func TestReconcileExampleScenario(t *testing.T) {
	gateway, parent := seededGateway()
	rec := New(gateway)

	result, err := rec.Reconcile(context.Background(), Request{
		ParentID: parent,
		Fields:   "parent-fields",
		Children: map[string][]Node{
			"issues": {
				{ID: id(1), Payload: "A", Children: map[string][]Node{"tabs": {{ID: id(10), Payload: "G1"}, {ID: id(11), Payload: "G2"}}}},
				{Payload: "NEW"},
			},
		},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Version != 2 {
		t.Fatalf("expected version 2, got %d", result.Version)
	}

	issues := payloadsOf(gateway.store, "issues", parent)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[id(1)] != "A" {
		t.Fatalf("expected C1 updated to A, got %v", issues[id(1)])
	}
	if _, ok := issues[id(2)]; ok {
		t.Fatal("expected C2 deleted")
	}
	if _, ok := issues[id(3)]; ok {
		t.Fatal("expected C3 deleted")
	}
	if tabs := payloadsOf(gateway.store, "tabs", id(2)); len(tabs) != 0 {
		t.Fatalf("expected C2's tabs deleted, got %v", tabs)
	}
	var created uuid.UUID
	for key, value := range issues {
		if value == "NEW" {
			created = key
		}
	}
	if created == uuid.Nil {
		t.Fatal("expected NEW issue created")
	}
	if gateway.store.fields[parent] != "parent-fields" {
		t.Fatalf("expected parent fields persisted, got %v", gateway.store.fields[parent])
	}
}

func TestReconcileGrandchildScenario(t *testing.T) {
	gateway, parent := seededGateway()
	rec := New(gateway)

	_, err := rec.Reconcile(context.Background(), Request{
		ParentID: parent,
		Children: map[string][]Node{
			"issues": {
				{ID: id(1), Payload: "C1", Children: map[string][]Node{"tabs": {{ID: id(10), Payload: "kept"}}}},
				{ID: id(2), Payload: "C2", Children: map[string][]Node{"tabs": {{ID: id(20), Payload: "G3"}}}},
				{ID: id(3), Payload: "C3"},
			},
		},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	tabs := payloadsOf(gateway.store, "tabs", id(1))
	if len(tabs) != 1 || tabs[id(10)] != "kept" {
		t.Fatalf("expected only G1 kept and updated, got %v", tabs)
	}
	if issues := payloadsOf(gateway.store, "issues", parent); len(issues) != 3 || issues[id(1)] != "C1" {
		t.Fatalf("expected issues untouched, got %v", issues)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	gateway, parent := seededGateway()
	rec := New(gateway)
	req := Request{
		ParentID: parent,
		Children: map[string][]Node{
			"issues": {
				{ID: id(1), Payload: "C1", Children: map[string][]Node{"tabs": {{ID: id(10), Payload: "G1"}, {ID: id(11), Payload: "G2"}}}},
				{ID: id(2), Payload: "C2", Children: map[string][]Node{"tabs": {{ID: id(20), Payload: "G3"}}}},
				{ID: id(3), Payload: "C3"},
			},
		},
	}

	before := maps.Clone(gateway.store.records)
	for i := 0; i < 2; i++ {
		result, err := rec.Reconcile(context.Background(), req)
		if err != nil {
			t.Fatalf("reconcile #%d: %v", i, err)
		}
		if len(result.Plan.Deletes) != 0 || len(result.Plan.Creates) != 0 {
			t.Fatalf("reconcile #%d: expected no deletes/creates, got %+v", i, result.Plan)
		}
	}
	if len(before) != len(gateway.store.records) {
		t.Fatalf("expected record count unchanged, got %d vs %d", len(before), len(gateway.store.records))
	}
	for key, rec := range before {
		if gateway.store.records[key].payload != rec.payload {
			t.Fatalf("expected %v unchanged", key)
		}
	}
}

func TestReconcileRollsBackOnFailure(t *testing.T) {
	gateway, parent := seededGateway()
	gateway.failOn = func(op Operation) error {
		if op.Kind == OpDelete && op.ID == id(3) {
			return errors.New("constraint violation")
		}
		return nil
	}
	before := maps.Clone(gateway.store.records)
	rec := New(gateway)

	_, err := rec.Reconcile(context.Background(), Request{
		ParentID: parent,
		Children: map[string][]Node{"issues": {{ID: id(1), Payload: "changed"}, {Payload: "NEW"}}},
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	if !IsStorageFailure(err) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryInternal) {
		t.Fatalf("expected internal category, got %v", err)
	}
	if len(gateway.applied) != 0 {
		t.Fatalf("expected nothing applied, got %v", gateway.applied)
	}
	if len(before) != len(gateway.store.records) {
		t.Fatal("expected store unchanged after rollback")
	}
	if gateway.store.records[recordKey{"issues", parent, id(1)}].payload != "C1" {
		t.Fatal("expected update rolled back")
	}
	if gateway.store.parents[parent] != 1 {
		t.Fatalf("expected version unchanged, got %d", gateway.store.parents[parent])
	}
}

func TestReconcileParentNotFound(t *testing.T) {
	gateway, _ := seededGateway()
	rec := New(gateway)

	_, err := rec.Reconcile(context.Background(), Request{ParentID: id(999)})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category, got %v", err)
	}
}

func TestReconcileRejectsNilParent(t *testing.T) {
	gateway, _ := seededGateway()
	_, err := New(gateway).Reconcile(context.Background(), Request{})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReconcileRejectsChildOfAnotherParent(t *testing.T) {
	gateway, parent := seededGateway()
	other := id(200)
	gateway.store.parents[other] = 1
	gateway.store.put("issues", other, id(7), "foreign")
	before := maps.Clone(gateway.store.records)

	_, err := New(gateway).Reconcile(context.Background(), Request{
		ParentID: parent,
		Children: map[string][]Node{"issues": {{ID: id(7), Payload: "hijack"}}},
	})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryConflict) {
		t.Fatalf("expected conflict category, got %v", err)
	}
	if len(before) != len(gateway.store.records) {
		t.Fatal("expected no writes")
	}
}

func TestReconcileVersionMismatch(t *testing.T) {
	gateway, parent := seededGateway()
	rec := New(gateway)
	stale := int64(0)

	_, err := rec.Reconcile(context.Background(), Request{ParentID: parent, ExpectedVersion: &stale})
	var mismatch *VersionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
	if mismatch.Actual != 1 || mismatch.Expected != 0 {
		t.Fatalf("unexpected mismatch details: %+v", mismatch)
	}

	current := int64(1)
	result, err := rec.Reconcile(context.Background(), Request{
		ParentID:        parent,
		ExpectedVersion: &current,
		Children:        map[string][]Node{"issues": {}},
	})
	if err != nil {
		t.Fatalf("reconcile with current version: %v", err)
	}
	if result.Version != 2 {
		t.Fatalf("expected version 2, got %d", result.Version)
	}
	if len(gateway.store.records) != 0 {
		t.Fatalf("expected every record removed, got %d", len(gateway.store.records))
	}
}

func TestPreviewDoesNotWrite(t *testing.T) {
	gateway, parent := seededGateway()
	before := maps.Clone(gateway.store.records)

	plan, err := New(gateway).Preview(context.Background(), Request{
		ParentID: parent,
		Children: map[string][]Node{"issues": {{Payload: "NEW"}}},
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(plan.Deletes) != 6 || len(plan.Creates) != 1 {
		t.Fatalf("expected 6 deletes and 1 create, got %d/%d", len(plan.Deletes), len(plan.Creates))
	}
	if len(before) != len(gateway.store.records) || gateway.store.parents[parent] != 1 {
		t.Fatal("expected preview to leave the store untouched")
	}
}
