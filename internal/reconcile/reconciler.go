package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-agrocms/internal/logging"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
	"github.com/google/uuid"
)

// Reconciler synchronises a parent's nested collections with a submitted
// tree in one transaction per call. It holds no mutable state and is safe
// for concurrent use; concurrent calls for the same parent are only
// coordinated through Request.ExpectedVersion.
type Reconciler struct {
	gateway Gateway
	logger  interfaces.Logger
	diff    []Option
	now     func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLogger injects the logger used for plan summaries.
func WithLogger(logger interfaces.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDiffOptions appends options applied to every Diff call.
func WithDiffOptions(opts ...Option) ReconcilerOption {
	return func(r *Reconciler) {
		r.diff = append(r.diff, opts...)
	}
}

// WithClock overrides the clock used to time reconciliations.
func WithClock(clock func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if clock != nil {
			r.now = clock
		}
	}
}

// New constructs a Reconciler bound to gateway.
func New(gateway Gateway, opts ...ReconcilerOption) *Reconciler {
	if gateway == nil {
		panic("reconcile: gateway cannot be nil")
	}
	r := &Reconciler{
		gateway: gateway,
		logger:  logging.NoOp(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Reconcile loads the parent's persisted collections, computes the plan and
// applies it together with the parent field update. Nothing is written when
// the parent is missing, the version is stale or the submission is invalid;
// any storage failure rolls the whole transaction back.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (*Result, error) {
	if req.ParentID == uuid.Nil {
		return nil, classify(fmt.Errorf("%w: parent id required", ErrInvalidRequest))
	}

	logger := logging.WithFields(r.logger, map[string]any{
		"parent_id": req.ParentID.String(),
	}).WithContext(ctx)
	started := r.now()

	var result *Result
	err := r.gateway.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		snapshot, err := r.load(ctx, tx, req)
		if err != nil {
			return err
		}

		plan, err := Diff(snapshot.State(), req.Children, r.diffOptions(req)...)
		if err != nil {
			return err
		}

		for _, op := range plan.Operations() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := tx.Apply(ctx, op); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		version := snapshot.Version + 1
		if err := tx.UpdateParent(ctx, req.ParentID, req.Fields, version); err != nil {
			return fmt.Errorf("update parent %s: %w", req.ParentID, err)
		}

		result = &Result{ParentID: req.ParentID, Version: version, Plan: plan}
		return nil
	})
	if err != nil {
		logger.Error("reconcile.failed", "error", err)
		return nil, classify(err)
	}

	logger.Info("reconcile.committed",
		"version", result.Version,
		"deletes", len(result.Plan.Deletes),
		"updates", len(result.Plan.Updates),
		"creates", len(result.Plan.Creates),
		"duration_ms", r.now().Sub(started).Milliseconds(),
	)
	return result, nil
}

// Preview computes the plan Reconcile would apply without writing anything.
// The transaction is always rolled back.
func (r *Reconciler) Preview(ctx context.Context, req Request) (*Plan, error) {
	if req.ParentID == uuid.Nil {
		return nil, classify(fmt.Errorf("%w: parent id required", ErrInvalidRequest))
	}

	var plan *Plan
	err := r.gateway.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		snapshot, err := r.load(ctx, tx, req)
		if err != nil {
			return err
		}
		plan, err = Diff(snapshot.State(), req.Children, r.diffOptions(req)...)
		if err != nil {
			return err
		}
		return errPreviewRollback
	})
	if err != nil && !errors.Is(err, errPreviewRollback) {
		return nil, classify(err)
	}
	return plan, nil
}

var errPreviewRollback = errors.New("reconcile: preview rollback")

func (r *Reconciler) diffOptions(req Request) []Option {
	if len(req.Options) == 0 {
		return r.diff
	}
	opts := make([]Option, 0, len(r.diff)+len(req.Options))
	opts = append(opts, r.diff...)
	return append(opts, req.Options...)
}

func (r *Reconciler) load(ctx context.Context, tx Tx, req Request) (*Snapshot, error) {
	snapshot, err := tx.LoadSnapshot(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: %s", ErrParentNotFound, req.ParentID)
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != snapshot.Version {
		return nil, &VersionMismatchError{
			ParentID: req.ParentID,
			Expected: *req.ExpectedVersion,
			Actual:   snapshot.Version,
		}
	}
	return snapshot, nil
}
