package animals

import (
	"fmt"
	"sort"
	"time"

	"github.com/goliatone/go-agrocms/internal/reconcile"
	"github.com/google/uuid"
)

// issueNodes converts submitted issues into the reconcile tree. Tab and image
// collections are always present so omitted entries are deleted.
func issueNodes(issues []IssueInput) map[string][]reconcile.Node {
	nodes := make([]reconcile.Node, 0, len(issues))
	for _, issue := range issues {
		tabs := make([]reconcile.Node, 0, len(issue.Tabs))
		for _, tab := range issue.Tabs {
			tabs = append(tabs, reconcile.Node{ID: tab.ID, Payload: tab.TabFields})
		}
		images := make([]reconcile.Node, 0, len(issue.Images))
		for _, image := range issue.Images {
			images = append(images, reconcile.Node{ID: image.ID, Payload: image.ImageFields})
		}
		nodes = append(nodes, reconcile.Node{
			ID:      issue.ID,
			Payload: issue.IssueFields,
			Children: map[string][]reconcile.Node{
				CollectionTabs:   tabs,
				CollectionImages: images,
			},
		})
	}
	return map[string][]reconcile.Node{CollectionIssues: nodes}
}

// snapshotOf describes a loaded tree in reconcile terms.
func snapshotOf(record *AnimalType) *reconcile.Snapshot {
	issues := make([]reconcile.State, 0, len(record.Issues))
	for _, issue := range record.Issues {
		tabs := make([]reconcile.State, 0, len(issue.Tabs))
		for _, tab := range issue.Tabs {
			tabs = append(tabs, reconcile.State{ID: tab.ID})
		}
		images := make([]reconcile.State, 0, len(issue.Images))
		for _, image := range issue.Images {
			images = append(images, reconcile.State{ID: image.ID})
		}
		issues = append(issues, reconcile.State{
			ID: issue.ID,
			Children: map[string][]reconcile.State{
				CollectionTabs:   tabs,
				CollectionImages: images,
			},
		})
	}
	return &reconcile.Snapshot{
		ParentID: record.ID,
		Version:  record.Version,
		Children: map[string][]reconcile.State{CollectionIssues: issues},
	}
}

// newTree builds the records inserted by Create.
func newTree(req CreateAnimalTypeRequest, newID func() uuid.UUID, now time.Time) *AnimalType {
	pick := func(id uuid.UUID) uuid.UUID {
		if id == uuid.Nil {
			return newID()
		}
		return id
	}

	record := &AnimalType{ID: pick(req.ID), Version: 1, CreatedAt: now, UpdatedAt: now}
	applyAnimalTypeFields(record, req.AnimalTypeFields)

	for _, in := range req.Issues {
		issue := issueRecord(pick(in.ID), record.ID, in.IssueFields, now)
		for _, tab := range in.Tabs {
			issue.Tabs = append(issue.Tabs, tabRecord(pick(tab.ID), issue.ID, tab.TabFields, now))
		}
		for _, image := range in.Images {
			issue.Images = append(issue.Images, imageRecord(pick(image.ID), issue.ID, image.ImageFields, now))
		}
		record.Issues = append(record.Issues, issue)
	}
	return record
}

func applyAnimalTypeFields(record *AnimalType, f AnimalTypeFields) {
	record.Slug = f.Slug
	record.NameEn = f.NameEn
	record.NameAr = f.NameAr
	record.DescriptionEn = f.DescriptionEn
	record.DescriptionAr = f.DescriptionAr
	record.ImageURL = f.ImageURL
	record.Position = f.Position
}

func issueRecord(id, ownerID uuid.UUID, f IssueFields, now time.Time) *Issue {
	return &Issue{
		ID:            id,
		AnimalTypeID:  ownerID,
		TitleEn:       f.TitleEn,
		TitleAr:       f.TitleAr,
		DescriptionEn: f.DescriptionEn,
		DescriptionAr: f.DescriptionAr,
		ImageURL:      f.ImageURL,
		Position:      f.Position,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func tabRecord(id, ownerID uuid.UUID, f TabFields, now time.Time) *IssueTab {
	return &IssueTab{
		ID:        id,
		IssueID:   ownerID,
		TitleEn:   f.TitleEn,
		TitleAr:   f.TitleAr,
		BodyEn:    f.BodyEn,
		BodyAr:    f.BodyAr,
		Position:  f.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func imageRecord(id, ownerID uuid.UUID, f ImageFields, now time.Time) *IssueImage {
	return &IssueImage{
		ID:        id,
		IssueID:   ownerID,
		URL:       f.URL,
		AltEn:     f.AltEn,
		AltAr:     f.AltAr,
		Position:  f.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// recordForOp builds the row touched by a create or update operation.
func recordForOp(op reconcile.Operation, now time.Time) (any, error) {
	switch op.Collection {
	case CollectionIssues:
		fields, ok := op.Payload.(IssueFields)
		if !ok {
			return nil, payloadError(op)
		}
		return issueRecord(op.ID, op.OwnerID, fields, now), nil
	case CollectionTabs:
		fields, ok := op.Payload.(TabFields)
		if !ok {
			return nil, payloadError(op)
		}
		return tabRecord(op.ID, op.OwnerID, fields, now), nil
	case CollectionImages:
		fields, ok := op.Payload.(ImageFields)
		if !ok {
			return nil, payloadError(op)
		}
		return imageRecord(op.ID, op.OwnerID, fields, now), nil
	default:
		return nil, fmt.Errorf("animals: unknown collection %q", op.Collection)
	}
}

func payloadError(op reconcile.Operation) error {
	return fmt.Errorf("animals: unexpected payload %T for %s", op.Payload, op.Collection)
}

// sortTree orders every collection by position. Ties keep creation order.
func sortTree(record *AnimalType) {
	if record == nil {
		return
	}
	sort.SliceStable(record.Issues, func(i, j int) bool {
		return less(record.Issues[i].Position, record.Issues[j].Position, record.Issues[i].CreatedAt, record.Issues[j].CreatedAt)
	})
	for _, issue := range record.Issues {
		sort.SliceStable(issue.Tabs, func(i, j int) bool {
			return less(issue.Tabs[i].Position, issue.Tabs[j].Position, issue.Tabs[i].CreatedAt, issue.Tabs[j].CreatedAt)
		})
		sort.SliceStable(issue.Images, func(i, j int) bool {
			return less(issue.Images[i].Position, issue.Images[j].Position, issue.Images[i].CreatedAt, issue.Images[j].CreatedAt)
		})
	}
}

func less(posA, posB int, createdA, createdB time.Time) bool {
	if posA != posB {
		return posA < posB
	}
	return createdA.Before(createdB)
}
