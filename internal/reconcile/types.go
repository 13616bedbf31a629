package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// OpKind identifies the storage mutation scheduled by a plan.
type OpKind uint8

const (
	OpDelete OpKind = iota + 1
	OpUpdate
	OpCreate
)

func (k OpKind) String() string {
	switch k {
	case OpDelete:
		return "delete"
	case OpUpdate:
		return "update"
	case OpCreate:
		return "create"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Node is a submitted record. A Nil ID requests creation. Payload carries the
// scalar fields and is never inspected by the reconciler.
type Node struct {
	ID       uuid.UUID
	Payload  any
	Children map[string][]Node
}

// State is the persisted shape of an owner: its id and the ids of the records
// it owns, grouped by collection.
type State struct {
	ID       uuid.UUID
	Children map[string][]State
}

// Operation is a single scheduled mutation. OwnerID always references the
// record that owns ID inside Collection; for depth zero that is the parent.
type Operation struct {
	Kind       OpKind
	Collection string
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Depth      int
	Payload    any
}

func (op Operation) String() string {
	return fmt.Sprintf("%s %s/%s (owner %s)", op.Kind, op.Collection, op.ID, op.OwnerID)
}

// Snapshot is the persisted state of a parent as read inside the transaction.
type Snapshot struct {
	ParentID uuid.UUID
	Version  int64
	Children map[string][]State
}

// State returns the snapshot as the root owner state.
func (s *Snapshot) State() State {
	if s == nil {
		return State{}
	}
	return State{ID: s.ParentID, Children: s.Children}
}

// Request describes a reconciliation. Fields is applied to the parent when
// non-nil. ExpectedVersion enables optimistic locking when set. Options are
// applied after the reconciler's own diff options.
type Request struct {
	ParentID        uuid.UUID
	ExpectedVersion *int64
	Fields          any
	Children        map[string][]Node
	Options         []Option
}

// Result summarises a committed reconciliation.
type Result struct {
	ParentID uuid.UUID
	Version  int64
	Plan     *Plan
}

// Tx is the transactional view of the persistence gateway. Every call made
// through a Tx belongs to the same database transaction.
type Tx interface {
	// LoadSnapshot returns the parent's current collections. Implementations
	// return an error satisfying errors.Is(err, ErrParentNotFound) when the
	// parent does not exist.
	LoadSnapshot(ctx context.Context, parentID uuid.UUID) (*Snapshot, error)
	Apply(ctx context.Context, op Operation) error
	// UpdateParent persists the parent fields (fields may be nil) and stores
	// the new version.
	UpdateParent(ctx context.Context, parentID uuid.UUID, fields any, version int64) error
}

// Gateway runs fn inside a single atomic transaction, committing when fn
// returns nil and rolling back otherwise.
type Gateway interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

func (f GatewayFunc) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return f(ctx, fn)
}
