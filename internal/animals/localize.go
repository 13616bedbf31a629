package animals

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Supported locales. Arabic values fall back to English when empty.
const (
	LocaleEnglish = "en"
	LocaleArabic  = "ar"
)

// ErrUnsupportedLocale is returned by Localize for locales other than en/ar.
var ErrUnsupportedLocale = errors.New("animals: unsupported locale")

// Renderer converts markdown tab bodies to HTML.
type Renderer interface {
	Render(markdown string) (string, error)
}

// LocalizedAnimalType is the read view of a tree in a single locale.
type LocalizedAnimalType struct {
	ID          string           `json:"id"`
	Slug        string           `json:"slug"`
	Locale      string           `json:"locale"`
	Direction   string           `json:"dir"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url,omitempty"`
	Issues      []LocalizedIssue `json:"issues"`
}

type LocalizedIssue struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url,omitempty"`
	Tabs        []LocalizedTab   `json:"tabs"`
	Images      []LocalizedImage `json:"images"`
}

type LocalizedTab struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	HTML  string `json:"html,omitempty"`
}

type LocalizedImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// NormalizeLocale maps tags such as "ar-EG" to a supported locale.
func NormalizeLocale(locale string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(locale))
	if value == "" {
		return LocaleEnglish, nil
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLocale, locale)
	}
	base, _ := tag.Base()
	switch base.String() {
	case LocaleEnglish, LocaleArabic:
		return base.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLocale, locale)
	}
}

func (s *service) Localize(record *AnimalType, locale string) (*LocalizedAnimalType, error) {
	return Localize(record, locale, s.renderer)
}

// Localize builds the locale view of record. Tab bodies are rendered when
// renderer is not nil.
func Localize(record *AnimalType, locale string, renderer Renderer) (*LocalizedAnimalType, error) {
	if record == nil {
		return nil, &NotFoundError{Resource: "animal_type"}
	}
	loc, err := NormalizeLocale(locale)
	if err != nil {
		return nil, err
	}

	out := &LocalizedAnimalType{
		ID:          record.ID.String(),
		Slug:        record.Slug,
		Locale:      loc,
		Direction:   "ltr",
		Name:        pick(loc, record.NameEn, record.NameAr),
		Description: pick(loc, record.DescriptionEn, record.DescriptionAr),
		ImageURL:    record.ImageURL,
		Issues:      make([]LocalizedIssue, 0, len(record.Issues)),
	}
	if loc == LocaleArabic {
		out.Direction = "rtl"
	}

	for _, issue := range record.Issues {
		view := LocalizedIssue{
			ID:          issue.ID.String(),
			Title:       pick(loc, issue.TitleEn, issue.TitleAr),
			Description: pick(loc, issue.DescriptionEn, issue.DescriptionAr),
			ImageURL:    issue.ImageURL,
			Tabs:        make([]LocalizedTab, 0, len(issue.Tabs)),
			Images:      make([]LocalizedImage, 0, len(issue.Images)),
		}
		for _, tab := range issue.Tabs {
			body := pick(loc, tab.BodyEn, tab.BodyAr)
			item := LocalizedTab{
				ID:    tab.ID.String(),
				Title: pick(loc, tab.TitleEn, tab.TitleAr),
				Body:  body,
			}
			if renderer != nil && body != "" {
				html, err := renderer.Render(body)
				if err != nil {
					return nil, fmt.Errorf("render tab %s: %w", tab.ID, err)
				}
				item.HTML = html
			}
			view.Tabs = append(view.Tabs, item)
		}
		for _, image := range issue.Images {
			view.Images = append(view.Images, LocalizedImage{
				ID:  image.ID.String(),
				URL: image.URL,
				Alt: pick(loc, image.AltEn, image.AltAr),
			})
		}
		out.Issues = append(out.Issues, view)
	}
	return out, nil
}

func pick(locale, en, ar string) string {
	if locale == LocaleArabic && strings.TrimSpace(ar) != "" {
		return ar
	}
	return en
}
