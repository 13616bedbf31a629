package animals_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-agrocms/internal/animals"
	"github.com/google/uuid"
)

type upperRenderer struct{}

func (upperRenderer) Render(markdown string) (string, error) {
	return "<p>" + strings.ToUpper(markdown) + "</p>", nil
}

func localizeFixture() *animals.AnimalType {
	return &animals.AnimalType{
		ID:     uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Slug:   "poultry",
		NameEn: "Poultry",
		NameAr: "دواجن",
		Issues: []*animals.Issue{{
			ID:      uuid.MustParse("00000000-0000-0000-0000-000000000002"),
			TitleEn: "Coccidiosis",
			Tabs: []*animals.IssueTab{{
				ID:      uuid.MustParse("00000000-0000-0000-0000-000000000003"),
				TitleEn: "Control",
				TitleAr: "المكافحة",
				BodyEn:  "rotate litter",
			}},
			Images: []*animals.IssueImage{{
				ID:    uuid.MustParse("00000000-0000-0000-0000-000000000004"),
				URL:   "https://cdn.example.com/cocci.jpg",
				AltEn: "Infected gut",
			}},
		}},
	}
}

func TestLocalizeFallsBackToEnglish(t *testing.T) {
	view, err := animals.Localize(localizeFixture(), "ar-EG", upperRenderer{})
	if err != nil {
		t.Fatalf("localize: %v", err)
	}
	if view.Locale != "ar" || view.Direction != "rtl" || view.Name != "دواجن" {
		t.Fatalf("unexpected arabic header: %+v", view)
	}
	issue := view.Issues[0]
	if issue.Title != "Coccidiosis" {
		t.Fatalf("expected english fallback for empty arabic title, got %q", issue.Title)
	}
	tab := issue.Tabs[0]
	if tab.Title != "المكافحة" || tab.Body != "rotate litter" || tab.HTML != "<p>ROTATE LITTER</p>" {
		t.Fatalf("unexpected tab: %+v", tab)
	}
	if issue.Images[0].Alt != "Infected gut" {
		t.Fatalf("unexpected alt: %q", issue.Images[0].Alt)
	}
}

func TestLocalizeEnglishWithoutRenderer(t *testing.T) {
	view, err := animals.Localize(localizeFixture(), "", nil)
	if err != nil {
		t.Fatalf("localize: %v", err)
	}
	if view.Locale != "en" || view.Direction != "ltr" || view.Name != "Poultry" {
		t.Fatalf("unexpected header: %+v", view)
	}
	if view.Issues[0].Tabs[0].HTML != "" {
		t.Fatal("expected no html without renderer")
	}
}

func TestLocalizeRejectsUnknownLocale(t *testing.T) {
	if _, err := animals.Localize(localizeFixture(), "fr", nil); !errors.Is(err, animals.ErrUnsupportedLocale) {
		t.Fatalf("expected unsupported locale, got %v", err)
	}
}

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"":      "en",
		"EN":    "en",
		"en-GB": "en",
		"ar_EG": "ar",
		" ar ":  "ar",
	}
	for input, want := range cases {
		got, err := animals.NormalizeLocale(input)
		if err != nil || got != want {
			t.Fatalf("NormalizeLocale(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	for _, input := range []string{"fr-FR", "not a tag"} {
		if _, err := animals.NormalizeLocale(input); !errors.Is(err, animals.ErrUnsupportedLocale) {
			t.Fatalf("NormalizeLocale(%q): expected unsupported locale, got %v", input, err)
		}
	}
}
