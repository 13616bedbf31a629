package reconcile

import (
	"sort"

	"github.com/google/uuid"
)

// UnknownIDPolicy decides what happens to a submitted id the owner does not
// hold in that collection.
type UnknownIDPolicy uint8

const (
	// RejectUnknown fails the whole reconciliation with a ForeignIDError.
	RejectUnknown UnknownIDPolicy = iota
	// TreatAsNew schedules a creation with a freshly generated id.
	TreatAsNew
	// AdoptUnknown schedules a creation that keeps the submitted id. Importers
	// deriving ids from stable keys use it so re-imports keep matching.
	AdoptUnknown
)

// IDGenerator returns identifiers for records created by a plan.
type IDGenerator func() uuid.UUID

// Option configures diffing.
type Option func(*options)

type options struct {
	unknownIDs      UnknownIDPolicy
	newID           IDGenerator
	preserveMissing bool
}

// WithUnknownIDPolicy overrides the default RejectUnknown policy.
func WithUnknownIDPolicy(policy UnknownIDPolicy) Option {
	return func(o *options) {
		o.unknownIDs = policy
	}
}

// WithIDGenerator overrides the generator used for created records.
func WithIDGenerator(gen IDGenerator) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// WithPreserveMissingCollections leaves persisted collections untouched when
// the submission does not mention them at all. By default a missing
// collection is treated as submitted empty.
func WithPreserveMissingCollections() Option {
	return func(o *options) {
		o.preserveMissing = true
	}
}

func resolveOptions(opts []Option) options {
	cfg := options{newID: uuid.New}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Plan is the ordered set of mutations moving persisted state to the
// submitted state.
type Plan struct {
	Deletes []Operation
	Updates []Operation
	Creates []Operation
}

// Operations returns every operation in execution order: deletes (deepest
// first), updates, then creates. Owners are always created before the records
// they own and removed after them.
func (p *Plan) Operations() []Operation {
	if p == nil {
		return nil
	}
	out := make([]Operation, 0, len(p.Deletes)+len(p.Updates)+len(p.Creates))
	out = append(out, p.Deletes...)
	out = append(out, p.Updates...)
	out = append(out, p.Creates...)
	return out
}

// Empty reports whether the plan has no deletes and no creates. Updates are
// ignored since re-submitting unchanged values still schedules them.
func (p *Plan) Empty() bool {
	return p == nil || (len(p.Deletes) == 0 && len(p.Creates) == 0)
}

// Count returns the number of scheduled operations of the given kind.
func (p *Plan) Count(kind OpKind) int {
	if p == nil {
		return 0
	}
	switch kind {
	case OpDelete:
		return len(p.Deletes)
	case OpUpdate:
		return len(p.Updates)
	case OpCreate:
		return len(p.Creates)
	}
	return 0
}

// Diff computes the plan that makes owner's persisted collections match
// submitted. Every comparison is scoped to the owner at that level: an id is
// only matched against the records held by that same owner.
func Diff(owner State, submitted map[string][]Node, opts ...Option) (*Plan, error) {
	cfg := resolveOptions(opts)
	plan := &Plan{}
	if err := diffOwner(plan, cfg, owner, submitted, 0); err != nil {
		return nil, err
	}
	if err := checkCreatedIDs(owner, plan); err != nil {
		return nil, err
	}
	sortDeletes(plan.Deletes)
	return plan, nil
}

type collectionID struct {
	collection string
	id         uuid.UUID
}

// checkCreatedIDs rejects a plan that creates the same id twice in one
// collection, or creates an id another owner in the tree keeps. Record ids
// are unique per collection, not per owner.
func checkCreatedIDs(owner State, plan *Plan) error {
	if len(plan.Creates) == 0 {
		return nil
	}
	deleted := make(map[collectionID]struct{}, len(plan.Deletes))
	for _, op := range plan.Deletes {
		deleted[collectionID{op.Collection, op.ID}] = struct{}{}
	}

	taken := map[collectionID]struct{}{}
	var walk func(State)
	walk = func(rec State) {
		for name, children := range rec.Children {
			for _, child := range children {
				key := collectionID{name, child.ID}
				if _, gone := deleted[key]; !gone {
					taken[key] = struct{}{}
				}
				walk(child)
			}
		}
	}
	walk(owner)

	for _, op := range plan.Creates {
		key := collectionID{op.Collection, op.ID}
		if _, dup := taken[key]; dup {
			return &DuplicateIDError{Collection: op.Collection, OwnerID: op.OwnerID, ID: op.ID}
		}
		taken[key] = struct{}{}
	}
	return nil
}

func diffOwner(plan *Plan, cfg options, owner State, submitted map[string][]Node, depth int) error {
	for _, name := range collectionNames(owner.Children, submitted, cfg.preserveMissing) {
		if err := diffCollection(plan, cfg, owner.ID, name, owner.Children[name], submitted[name], depth); err != nil {
			return err
		}
	}
	return nil
}

func diffCollection(plan *Plan, cfg options, ownerID uuid.UUID, name string, persisted []State, submitted []Node, depth int) error {
	current := make(map[uuid.UUID]State, len(persisted))
	for _, rec := range persisted {
		current[rec.ID] = rec
	}

	seen, err := submittedIDs(cfg, ownerID, name, current, submitted)
	if err != nil {
		return err
	}

	for _, rec := range persisted {
		if _, keep := seen[rec.ID]; keep {
			continue
		}
		scheduleDelete(plan, ownerID, name, rec, depth)
	}

	for _, node := range submitted {
		rec, exists := current[node.ID]
		if node.ID != uuid.Nil && exists {
			plan.Updates = append(plan.Updates, Operation{
				Kind:       OpUpdate,
				Collection: name,
				ID:         node.ID,
				OwnerID:    ownerID,
				Depth:      depth,
				Payload:    node.Payload,
			})
			if err := diffOwner(plan, cfg, rec, node.Children, depth+1); err != nil {
				return err
			}
			continue
		}
		if err := scheduleCreate(plan, cfg, ownerID, name, node, depth); err != nil {
			return err
		}
	}
	return nil
}

// submittedIDs returns the non-Nil ids of one submitted collection, rejecting
// duplicates and, under RejectUnknown, ids the owner does not hold.
func submittedIDs(cfg options, ownerID uuid.UUID, name string, current map[uuid.UUID]State, submitted []Node) (map[uuid.UUID]struct{}, error) {
	seen := make(map[uuid.UUID]struct{}, len(submitted))
	for _, node := range submitted {
		if node.ID == uuid.Nil {
			continue
		}
		if _, dup := seen[node.ID]; dup {
			return nil, &DuplicateIDError{Collection: name, OwnerID: ownerID, ID: node.ID}
		}
		seen[node.ID] = struct{}{}
		if _, ok := current[node.ID]; !ok && cfg.unknownIDs == RejectUnknown {
			return nil, &ForeignIDError{Collection: name, OwnerID: ownerID, ID: node.ID}
		}
	}
	return seen, nil
}

// scheduleDelete removes rec and, before it, every record it owns.
func scheduleDelete(plan *Plan, ownerID uuid.UUID, name string, rec State, depth int) {
	for _, child := range sortedKeys(rec.Children) {
		for _, grand := range rec.Children[child] {
			scheduleDelete(plan, rec.ID, child, grand, depth+1)
		}
	}
	plan.Deletes = append(plan.Deletes, Operation{
		Kind:       OpDelete,
		Collection: name,
		ID:         rec.ID,
		OwnerID:    ownerID,
		Depth:      depth,
	})
}

// scheduleCreate inserts node and everything below it. There is no prior
// state to diff a new record against, so its collections are created as-is.
func scheduleCreate(plan *Plan, cfg options, ownerID uuid.UUID, name string, node Node, depth int) error {
	id := cfg.newID()
	if cfg.unknownIDs == AdoptUnknown && node.ID != uuid.Nil {
		id = node.ID
	}
	plan.Creates = append(plan.Creates, Operation{
		Kind:       OpCreate,
		Collection: name,
		ID:         id,
		OwnerID:    ownerID,
		Depth:      depth,
		Payload:    node.Payload,
	})
	for _, child := range sortedKeys(node.Children) {
		if _, err := submittedIDs(cfg, id, child, nil, node.Children[child]); err != nil {
			return err
		}
		for _, grand := range node.Children[child] {
			if err := scheduleCreate(plan, cfg, id, child, grand, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortDeletes orders deletes deepest first while keeping the schedule order
// among deletes of equal depth.
func sortDeletes(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Depth > ops[j].Depth
	})
}

func collectionNames[A, B any](persisted map[string]A, submitted map[string]B, preserveMissing bool) []string {
	names := make(map[string]struct{}, len(persisted)+len(submitted))
	for name := range submitted {
		names[name] = struct{}{}
	}
	if !preserveMissing {
		for name := range persisted {
			names[name] = struct{}{}
		}
	}
	return sortedKeys(names)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
