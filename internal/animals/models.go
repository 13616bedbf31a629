package animals

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AnimalType is the top-level catalog entry edited in the admin panel. It
// exclusively owns its issues.
type AnimalType struct {
	bun.BaseModel `bun:"table:animal_types,alias:at"`

	ID            uuid.UUID `bun:",pk,type:uuid"                                 json:"id"`
	Slug          string    `bun:"slug,notnull,unique"                           json:"slug"`
	NameEn        string    `bun:"name_en,notnull"                               json:"name_en"`
	NameAr        string    `bun:"name_ar,notnull,default:''"                    json:"name_ar"`
	DescriptionEn string    `bun:"description_en,notnull,default:''"             json:"description_en"`
	DescriptionAr string    `bun:"description_ar,notnull,default:''"             json:"description_ar"`
	ImageURL      string    `bun:"image_url,notnull,default:''"                  json:"image_url"`
	Position      int       `bun:"position,notnull,default:0"                    json:"position"`
	Version       int64     `bun:"version,notnull,default:1"                     json:"version"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`

	Issues []*Issue `bun:"rel:has-many,join:id=animal_type_id" json:"issues,omitempty"`
}

// Issue is a health or pest problem listed under an animal type.
type Issue struct {
	bun.BaseModel `bun:"table:animal_issues,alias:ai"`

	ID            uuid.UUID `bun:",pk,type:uuid"                                 json:"id"`
	AnimalTypeID  uuid.UUID `bun:"animal_type_id,notnull,type:uuid"              json:"animal_type_id"`
	TitleEn       string    `bun:"title_en,notnull"                              json:"title_en"`
	TitleAr       string    `bun:"title_ar,notnull,default:''"                   json:"title_ar"`
	DescriptionEn string    `bun:"description_en,notnull,default:''"             json:"description_en"`
	DescriptionAr string    `bun:"description_ar,notnull,default:''"             json:"description_ar"`
	ImageURL      string    `bun:"image_url,notnull,default:''"                  json:"image_url"`
	Position      int       `bun:"position,notnull,default:0"                    json:"position"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`

	Tabs   []*IssueTab   `bun:"rel:has-many,join:id=issue_id" json:"tabs,omitempty"`
	Images []*IssueImage `bun:"rel:has-many,join:id=issue_id" json:"images,omitempty"`
}

// IssueTab is a titled markdown section shown on an issue page.
type IssueTab struct {
	bun.BaseModel `bun:"table:animal_issue_tabs,alias:ait"`

	ID        uuid.UUID `bun:",pk,type:uuid"                                 json:"id"`
	IssueID   uuid.UUID `bun:"issue_id,notnull,type:uuid"                    json:"issue_id"`
	TitleEn   string    `bun:"title_en,notnull"                              json:"title_en"`
	TitleAr   string    `bun:"title_ar,notnull,default:''"                   json:"title_ar"`
	BodyEn    string    `bun:"body_en,notnull,default:''"                    json:"body_en"`
	BodyAr    string    `bun:"body_ar,notnull,default:''"                    json:"body_ar"`
	Position  int       `bun:"position,notnull,default:0"                    json:"position"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// IssueImage references an uploaded asset. URL is the final storage
// reference produced by the upload service.
type IssueImage struct {
	bun.BaseModel `bun:"table:animal_issue_images,alias:aii"`

	ID        uuid.UUID `bun:",pk,type:uuid"                                 json:"id"`
	IssueID   uuid.UUID `bun:"issue_id,notnull,type:uuid"                    json:"issue_id"`
	URL       string    `bun:"url,notnull"                                   json:"url"`
	AltEn     string    `bun:"alt_en,notnull,default:''"                     json:"alt_en"`
	AltAr     string    `bun:"alt_ar,notnull,default:''"                     json:"alt_ar"`
	Position  int       `bun:"position,notnull,default:0"                    json:"position"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Models lists the bun models owned by this package in creation order.
func Models() []any {
	return []any{
		(*AnimalType)(nil),
		(*Issue)(nil),
		(*IssueTab)(nil),
		(*IssueImage)(nil),
	}
}
