package forms

import (
	_ "embed"
	"encoding/json"
	"errors"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-agrocms/internal/animals"
	"github.com/goliatone/go-agrocms/internal/logging"
	schemavalidation "github.com/goliatone/go-agrocms/internal/validation"
	"github.com/goliatone/go-agrocms/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

//go:embed schemas/issues.schema.json
var issuesSchemaDocument []byte

// ErrInvalidSubmission is the source of every decoding failure.
var ErrInvalidSubmission = errors.New("forms: invalid submission")

const invalidSubmissionCode = "FORM_INVALID_SUBMISSION"

// Form field names.
const (
	FieldID            = "id"
	FieldVersion       = "version"
	FieldSlug          = "slug"
	FieldNameEn        = "name_en"
	FieldNameAr        = "name_ar"
	FieldDescriptionEn = "description_en"
	FieldDescriptionAr = "description_ar"
	FieldImageURL      = "image_url"
	FieldPosition      = "position"
	FieldIssues        = "issues"
)

// AnimalTypeDecoder turns admin form submissions into typed animal type
// requests. Decoding fails before anything reaches the service.
type AnimalTypeDecoder struct {
	issues *schemavalidation.Schema
	logger interfaces.Logger
}

// DecoderOption configures an AnimalTypeDecoder.
type DecoderOption func(*AnimalTypeDecoder)

// WithLogger sets the logger receiving rejected submissions.
func WithLogger(logger interfaces.Logger) DecoderOption {
	return func(d *AnimalTypeDecoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewAnimalTypeDecoder builds a decoder using the embedded issues schema.
func NewAnimalTypeDecoder(opts ...DecoderOption) *AnimalTypeDecoder {
	d := &AnimalTypeDecoder{
		issues: schemavalidation.MustCompile("issues.schema.json", issuesSchemaDocument),
		logger: logging.FormsLogger(nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeCreate decodes a creation form.
func (d *AnimalTypeDecoder) DecodeCreate(values url.Values) (animals.CreateAnimalTypeRequest, error) {
	var (
		req    animals.CreateAnimalTypeRequest
		fields goerrors.ValidationErrors
	)
	req.AnimalTypeFields, fields = d.scalars(values)
	issues, issueErrs := d.decodeIssues(values.Get(FieldIssues))
	fields = append(fields, issueErrs...)
	if len(fields) > 0 {
		return animals.CreateAnimalTypeRequest{}, d.reject("create", fields)
	}
	req.Issues = issues
	return req, nil
}

// DecodeUpdate decodes an edit form. The parent id is required; version is
// optional and enables optimistic locking.
func (d *AnimalTypeDecoder) DecodeUpdate(values url.Values) (animals.UpdateAnimalTypeRequest, error) {
	var (
		req    animals.UpdateAnimalTypeRequest
		fields goerrors.ValidationErrors
	)

	rawID := strings.TrimSpace(values.Get(FieldID))
	if id, err := uuid.Parse(rawID); err != nil || id == uuid.Nil {
		fields = append(fields, goerrors.FieldError{Field: FieldID, Message: "a valid id is required", Value: rawID})
	} else {
		req.ID = id
	}

	if raw := strings.TrimSpace(values.Get(FieldVersion)); raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || version <= 0 {
			fields = append(fields, goerrors.FieldError{Field: FieldVersion, Message: "must be a positive integer", Value: raw})
		} else {
			req.ExpectedVersion = &version
		}
	}

	var scalarErrs goerrors.ValidationErrors
	req.AnimalTypeFields, scalarErrs = d.scalars(values)
	fields = append(fields, scalarErrs...)

	issues, issueErrs := d.decodeIssues(values.Get(FieldIssues))
	fields = append(fields, issueErrs...)
	if len(fields) > 0 {
		return animals.UpdateAnimalTypeRequest{}, d.reject("update", fields)
	}
	req.Issues = issues
	return req, nil
}

func (d *AnimalTypeDecoder) scalars(values url.Values) (animals.AnimalTypeFields, goerrors.ValidationErrors) {
	out := animals.AnimalTypeFields{
		Slug:          strings.TrimSpace(values.Get(FieldSlug)),
		NameEn:        strings.TrimSpace(values.Get(FieldNameEn)),
		NameAr:        strings.TrimSpace(values.Get(FieldNameAr)),
		DescriptionEn: values.Get(FieldDescriptionEn),
		DescriptionAr: values.Get(FieldDescriptionAr),
		ImageURL:      strings.TrimSpace(values.Get(FieldImageURL)),
	}

	var fieldErrs goerrors.ValidationErrors
	if raw := strings.TrimSpace(values.Get(FieldPosition)); raw != "" {
		position, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, goerrors.FieldError{Field: FieldPosition, Message: "must be an integer", Value: raw})
		}
		out.Position = position
	}

	err := validation.Errors{
		FieldNameEn: validation.Validate(out.NameEn, validation.Required, validation.RuneLength(1, 200)),
		FieldNameAr: validation.Validate(out.NameAr, validation.RuneLength(0, 200)),
		FieldSlug:   validation.Validate(out.Slug, validation.Length(0, 120)),
		FieldImageURL: validation.Validate(out.ImageURL,
			validation.When(out.ImageURL != "", validation.By(checkURL))),
	}.Filter()

	var ozzoErrs validation.Errors
	if errors.As(err, &ozzoErrs) {
		for _, field := range slices.Sorted(maps.Keys(ozzoErrs)) {
			fieldErrs = append(fieldErrs, goerrors.FieldError{Field: field, Message: ozzoErrs[field].Error()})
		}
	}
	return out, fieldErrs
}

type issuePayload struct {
	ID            *string        `json:"id"`
	TitleEn       string         `json:"title_en"`
	TitleAr       *string        `json:"title_ar"`
	DescriptionEn *string        `json:"description_en"`
	DescriptionAr *string        `json:"description_ar"`
	ImageURL      *string        `json:"image_url"`
	Position      *int           `json:"position"`
	Tabs          []tabPayload   `json:"tabs"`
	Images        []imagePayload `json:"images"`
}

type tabPayload struct {
	ID       *string `json:"id"`
	TitleEn  string  `json:"title_en"`
	TitleAr  *string `json:"title_ar"`
	BodyEn   *string `json:"body_en"`
	BodyAr   *string `json:"body_ar"`
	Position *int    `json:"position"`
}

type imagePayload struct {
	ID       *string `json:"id"`
	URL      string  `json:"url"`
	AltEn    *string `json:"alt_en"`
	AltAr    *string `json:"alt_ar"`
	Position *int    `json:"position"`
}

// decodeIssues validates the JSON array against the schema and converts it.
// An absent field is an empty collection.
func (d *AnimalTypeDecoder) decodeIssues(raw string) ([]animals.IssueInput, goerrors.ValidationErrors) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if _, err := d.issues.ValidateJSON([]byte(raw)); err != nil {
		var out goerrors.ValidationErrors
		for _, issue := range schemavalidation.Issues(err) {
			field := FieldIssues
			if loc := strings.TrimPrefix(strings.TrimSpace(issue.Location), "#"); loc != "" {
				field += loc
			}
			out = append(out, goerrors.FieldError{Field: field, Message: issue.Message})
		}
		return nil, out
	}

	var payload []issuePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, goerrors.ValidationErrors{{Field: FieldIssues, Message: err.Error()}}
	}

	issues := make([]animals.IssueInput, 0, len(payload))
	for _, p := range payload {
		issue := animals.IssueInput{
			ID: parseID(p.ID),
			IssueFields: animals.IssueFields{
				TitleEn:       strings.TrimSpace(p.TitleEn),
				TitleAr:       text(p.TitleAr),
				DescriptionEn: text(p.DescriptionEn),
				DescriptionAr: text(p.DescriptionAr),
				ImageURL:      text(p.ImageURL),
				Position:      position(p.Position),
			},
		}
		for _, tab := range p.Tabs {
			issue.Tabs = append(issue.Tabs, animals.TabInput{
				ID: parseID(tab.ID),
				TabFields: animals.TabFields{
					TitleEn:  strings.TrimSpace(tab.TitleEn),
					TitleAr:  text(tab.TitleAr),
					BodyEn:   text(tab.BodyEn),
					BodyAr:   text(tab.BodyAr),
					Position: position(tab.Position),
				},
			})
		}
		for _, image := range p.Images {
			issue.Images = append(issue.Images, animals.ImageInput{
				ID: parseID(image.ID),
				ImageFields: animals.ImageFields{
					URL:      strings.TrimSpace(image.URL),
					AltEn:    text(image.AltEn),
					AltAr:    text(image.AltAr),
					Position: position(image.Position),
				},
			})
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func (d *AnimalTypeDecoder) reject(form string, fields goerrors.ValidationErrors) error {
	d.logger.Warn("forms.animal_type.rejected", "form", form, "errors", fields.Error())
	err := goerrors.NewValidation("invalid animal type submission", fields...).
		WithTextCode(invalidSubmissionCode)
	err.Source = ErrInvalidSubmission
	return err
}

// parseID maps a missing or empty id to uuid.Nil. The schema has already
// rejected malformed values.
func parseID(raw *string) uuid.UUID {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func text(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// position defaults an absent position to zero. Array order is never used.
func position(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func checkURL(value any) error {
	raw, _ := value.(string)
	parsed, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_is_url", "must be a valid URL")
	}
	if parsed.Scheme == "" && !strings.HasPrefix(raw, "/") {
		return validation.NewError("validation_is_url", "must be an absolute URL or a site path")
	}
	return nil
}
