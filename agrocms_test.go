package agrocms_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"testing"

	agrocms "github.com/goliatone/go-agrocms"
	"github.com/goliatone/go-agrocms/internal/animals"
	animalscmd "github.com/goliatone/go-agrocms/internal/commands/animals"
	"github.com/goliatone/go-agrocms/internal/forms"
	"github.com/goliatone/go-agrocms/pkg/testsupport"
	goerrors "github.com/goliatone/go-errors"
)

func openModule(t *testing.T) *agrocms.Module {
	t.Helper()
	cfg := agrocms.DefaultConfig()
	cfg.Storage.DSN = fmt.Sprintf("file:agrocms-%s?mode=memory&cache=shared", t.Name())

	module, err := agrocms.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = module.Close() })
	return module
}

func TestModuleReconcilesSubmittedForms(t *testing.T) {
	ctx := context.Background()
	module := openModule(t)

	issues, err := testsupport.LoadFixture("testdata/create_issues.json")
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	createReq, err := module.Forms().DecodeCreate(url.Values{
		forms.FieldNameEn: {"Cattle"},
		forms.FieldNameAr: {"أبقار"},
		forms.FieldIssues: {string(issues)},
	})
	if err != nil {
		t.Fatalf("DecodeCreate: %v", err)
	}
	created, err := module.Animals().Create(ctx, createReq)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Issues) != 2 || created.Version != 1 {
		t.Fatalf("unexpected created tree: %+v", created)
	}

	mastitis := created.Issues[0]
	edit := []map[string]any{
		{
			"id":       mastitis.ID.String(),
			"title_en": "Mastitis",
			"title_ar": "التهاب الضرع",
			"tabs": []map[string]any{
				{"id": mastitis.Tabs[0].ID.String(), "title_en": "Symptoms", "title_ar": "الأعراض", "body_ar": "ضرع **متورم** وساخن"},
				{"id": "", "title_en": "Treatment", "title_ar": "العلاج", "body_ar": "مضادات حيوية", "position": 1},
			},
		},
		{"title_en": "Lameness", "title_ar": "العرج", "position": 1},
	}
	payload, err := json.Marshal(edit)
	if err != nil {
		t.Fatal(err)
	}
	form := url.Values{
		forms.FieldID:      {created.ID.String()},
		forms.FieldVersion: {"1"},
		forms.FieldSlug:    {"cattle"},
		forms.FieldNameEn:  {"Cattle"},
		forms.FieldNameAr:  {"أبقار"},
		forms.FieldIssues:  {string(payload)},
	}
	updateReq, err := module.Forms().DecodeUpdate(form)
	if err != nil {
		t.Fatalf("DecodeUpdate: %v", err)
	}

	var updated *animals.AnimalType
	err = module.AnimalCommands().Update.Execute(ctx, animalscmd.UpdateAnimalTypeCommand{
		Request: updateReq,
		Result:  func(record *animals.AnimalType) { updated = record },
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || len(updated.Issues) != 2 {
		t.Fatalf("unexpected updated tree: %+v", updated)
	}
	if updated.Issues[0].ID != mastitis.ID || updated.Issues[0].Tabs[0].ID != mastitis.Tabs[0].ID {
		t.Fatal("expected kept records to keep their ids")
	}
	if len(updated.Issues[0].Images) != 0 {
		t.Fatal("expected omitted image deleted")
	}

	// the same form again carries a stale version.
	stale, err := module.Forms().DecodeUpdate(form)
	if err != nil {
		t.Fatalf("DecodeUpdate: %v", err)
	}
	err = module.AnimalCommands().Update.Execute(ctx, animalscmd.UpdateAnimalTypeCommand{Request: stale})
	if !goerrors.IsCategory(err, goerrors.CategoryConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	stored, err := module.Animals().GetBySlug(ctx, "cattle")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	view, err := module.Animals().Localize(stored, "ar-EG")
	if err != nil {
		t.Fatalf("Localize: %v", err)
	}

	var want animals.LocalizedAnimalType
	if err := testsupport.LoadGolden("testdata/cattle_ar.golden.json", &want); err != nil {
		t.Fatalf("load golden: %v", err)
	}
	if got := withoutIDs(view); !reflect.DeepEqual(got, want) {
		gotJSON, _ := json.MarshalIndent(got, "", "  ")
		t.Fatalf("localized view mismatch:\n%s", gotJSON)
	}
}

func TestModuleDeleteCascades(t *testing.T) {
	ctx := context.Background()
	module := openModule(t)

	created, err := module.Animals().Create(ctx, animals.CreateAnimalTypeRequest{
		AnimalTypeFields: animals.AnimalTypeFields{NameEn: "Sheep"},
		Issues: []animals.IssueInput{{
			IssueFields: animals.IssueFields{TitleEn: "Foot rot"},
			Tabs:        []animals.TabInput{{TabFields: animals.TabFields{TitleEn: "Treatment"}}},
		}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := module.AnimalCommands().Delete.Execute(ctx, animalscmd.DeleteAnimalTypeCommand{ID: created.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = module.AnimalCommands().Delete.Execute(ctx, animalscmd.DeleteAnimalTypeCommand{ID: created.ID})
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if list, err := module.Animals().List(ctx); err != nil || len(list) != 0 {
		t.Fatalf("expected empty catalog, got %d %v", len(list), err)
	}
}

func TestNewWithoutDatabaseUsesMemory(t *testing.T) {
	module, err := agrocms.New(agrocms.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := module.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := module.Container().AnimalRepository().(*animals.MemoryRepository); !ok {
		t.Fatalf("expected memory repository, got %T", module.Container().AnimalRepository())
	}
}

func withoutIDs(view *animals.LocalizedAnimalType) animals.LocalizedAnimalType {
	out := *view
	out.ID = ""
	out.Issues = make([]animals.LocalizedIssue, len(view.Issues))
	for i, issue := range view.Issues {
		issue.ID = ""
		tabs := make([]animals.LocalizedTab, len(issue.Tabs))
		for j, tab := range issue.Tabs {
			tab.ID = ""
			tabs[j] = tab
		}
		issue.Tabs = tabs
		images := make([]animals.LocalizedImage, len(issue.Images))
		for j, image := range issue.Images {
			image.ID = ""
			images[j] = image
		}
		issue.Images = images
		out.Issues[i] = issue
	}
	return out
}
