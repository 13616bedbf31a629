package markdown

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/goliatone/go-agrocms/internal/animals"
	"github.com/goliatone/go-agrocms/internal/identity"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

var (
	ErrSlugMissing  = errors.New("markdown: document needs a slug or name_en")
	ErrKeyMissing   = errors.New("markdown: entry key could not be derived")
	ErrDuplicateKey = errors.New("markdown: duplicate entry key")
)

// CatalogEntry is the front matter of a catalog document. The markdown body
// becomes the English description unless description_en is set.
type CatalogEntry struct {
	Slug          string       `yaml:"slug"`
	NameEn        string       `yaml:"name_en"`
	NameAr        string       `yaml:"name_ar"`
	DescriptionEn string       `yaml:"description_en"`
	DescriptionAr string       `yaml:"description_ar"`
	ImageURL      string       `yaml:"image_url"`
	Position      int          `yaml:"position"`
	Issues        []IssueEntry `yaml:"issues"`
}

// IssueEntry describes an issue. Key identifies it across imports and
// defaults to the slugged English title.
type IssueEntry struct {
	Key           string       `yaml:"key"`
	TitleEn       string       `yaml:"title_en"`
	TitleAr       string       `yaml:"title_ar"`
	DescriptionEn string       `yaml:"description_en"`
	DescriptionAr string       `yaml:"description_ar"`
	ImageURL      string       `yaml:"image_url"`
	Position      *int         `yaml:"position"`
	Tabs          []TabEntry   `yaml:"tabs"`
	Images        []ImageEntry `yaml:"images"`
}

// TabEntry describes an issue tab. Bodies are markdown.
type TabEntry struct {
	Key      string `yaml:"key"`
	TitleEn  string `yaml:"title_en"`
	TitleAr  string `yaml:"title_ar"`
	BodyEn   string `yaml:"body_en"`
	BodyAr   string `yaml:"body_ar"`
	Position *int   `yaml:"position"`
}

// ImageEntry describes an issue image. Key defaults to the url.
type ImageEntry struct {
	Key      string `yaml:"key"`
	URL      string `yaml:"url"`
	AltEn    string `yaml:"alt_en"`
	AltAr    string `yaml:"alt_ar"`
	Position *int   `yaml:"position"`
}

// Document is a parsed catalog file.
type Document struct {
	Path     string
	Checksum []byte
	Entry    CatalogEntry
}

// ParseDocument extracts the catalog entry from source. Slugs and entry keys
// are normalised so the derived ids are stable.
func ParseDocument(path string, source []byte) (*Document, error) {
	var entry CatalogEntry
	body, err := frontmatter.Parse(bytes.NewReader(source), &entry)
	if err != nil {
		return nil, fmt.Errorf("%s: parse frontmatter: %w", path, err)
	}

	if strings.TrimSpace(entry.DescriptionEn) == "" {
		entry.DescriptionEn = strings.TrimSpace(string(body))
	}

	entry.Slug, err = normalizeKey(firstNonEmpty(entry.Slug, entry.NameEn))
	if err != nil || entry.Slug == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrSlugMissing)
	}

	if err := normalizeEntryKeys(&entry); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sum := sha256.Sum256(source)
	return &Document{Path: path, Checksum: sum[:], Entry: entry}, nil
}

// ID is the deterministic animal type id of the document.
func (d *Document) ID() uuid.UUID {
	return identity.AnimalTypeUUID(d.Entry.Slug)
}

// Fields returns the animal type scalars.
func (d *Document) Fields() animals.AnimalTypeFields {
	e := d.Entry
	return animals.AnimalTypeFields{
		Slug:          e.Slug,
		NameEn:        strings.TrimSpace(e.NameEn),
		NameAr:        strings.TrimSpace(e.NameAr),
		DescriptionEn: e.DescriptionEn,
		DescriptionAr: e.DescriptionAr,
		ImageURL:      strings.TrimSpace(e.ImageURL),
		Position:      e.Position,
	}
}

// Issues converts the entry into service input. Ids are scoped by ownerID,
// which is the stored animal type id when the record already exists.
func (d *Document) Issues(ownerID uuid.UUID) []animals.IssueInput {
	out := make([]animals.IssueInput, 0, len(d.Entry.Issues))
	for _, entry := range d.Entry.Issues {
		issueID := identity.IssueUUID(ownerID, entry.Key)
		issue := animals.IssueInput{
			ID: issueID,
			IssueFields: animals.IssueFields{
				TitleEn:       strings.TrimSpace(entry.TitleEn),
				TitleAr:       strings.TrimSpace(entry.TitleAr),
				DescriptionEn: entry.DescriptionEn,
				DescriptionAr: entry.DescriptionAr,
				ImageURL:      strings.TrimSpace(entry.ImageURL),
				Position:      positionOrDefault(entry.Position),
			},
		}
		for _, tab := range entry.Tabs {
			issue.Tabs = append(issue.Tabs, animals.TabInput{
				ID: identity.TabUUID(issueID, tab.Key),
				TabFields: animals.TabFields{
					TitleEn:  strings.TrimSpace(tab.TitleEn),
					TitleAr:  strings.TrimSpace(tab.TitleAr),
					BodyEn:   tab.BodyEn,
					BodyAr:   tab.BodyAr,
					Position: positionOrDefault(tab.Position),
				},
			})
		}
		for _, image := range entry.Images {
			issue.Images = append(issue.Images, animals.ImageInput{
				ID: identity.ImageUUID(issueID, image.Key),
				ImageFields: animals.ImageFields{
					URL:      strings.TrimSpace(image.URL),
					AltEn:    image.AltEn,
					AltAr:    image.AltAr,
					Position: positionOrDefault(image.Position),
				},
			})
		}
		out = append(out, issue)
	}
	return out
}

func normalizeEntryKeys(entry *CatalogEntry) error {
	issueKeys := map[string]struct{}{}
	for i := range entry.Issues {
		issue := &entry.Issues[i]
		key, err := uniqueKey(issueKeys, firstNonEmpty(issue.Key, issue.TitleEn), fmt.Sprintf("issues[%d]", i))
		if err != nil {
			return err
		}
		issue.Key = key

		tabKeys := map[string]struct{}{}
		for j := range issue.Tabs {
			tab := &issue.Tabs[j]
			key, err := uniqueKey(tabKeys, firstNonEmpty(tab.Key, tab.TitleEn), fmt.Sprintf("issues[%d].tabs[%d]", i, j))
			if err != nil {
				return err
			}
			tab.Key = key
		}

		imageKeys := map[string]struct{}{}
		for j := range issue.Images {
			image := &issue.Images[j]
			raw := strings.TrimSpace(image.Key)
			if raw == "" {
				raw = strings.ToLower(strings.TrimSpace(image.URL))
			} else if raw, err = normalizeKey(raw); err != nil {
				raw = ""
			}
			if raw == "" {
				return fmt.Errorf("issues[%d].images[%d]: %w", i, j, ErrKeyMissing)
			}
			if _, ok := imageKeys[raw]; ok {
				return fmt.Errorf("issues[%d].images[%d] %q: %w", i, j, raw, ErrDuplicateKey)
			}
			imageKeys[raw] = struct{}{}
			image.Key = raw
		}
	}
	return nil
}

func uniqueKey(seen map[string]struct{}, raw, location string) (string, error) {
	key, err := normalizeKey(raw)
	if err != nil || key == "" {
		return "", fmt.Errorf("%s: %w", location, ErrKeyMissing)
	}
	if _, ok := seen[key]; ok {
		return "", fmt.Errorf("%s %q: %w", location, key, ErrDuplicateKey)
	}
	seen[key] = struct{}{}
	return key, nil
}

func normalizeKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	return slug.Normalize(raw)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// positionOrDefault keeps a document position verbatim. An omitted position
// is 0, matching form submissions; list order is never used.
func positionOrDefault(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
