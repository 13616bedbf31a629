package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const keyPrefix = "agrocms:"

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by entity kind).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// AnimalTypeUUID is the stable id of the animal type with slug.
func AnimalTypeUUID(slug string) uuid.UUID {
	return UUID(keyPrefix + "animal_type:" + normalize(slug))
}

// IssueUUID is the stable id of an issue keyed within its animal type.
func IssueUUID(animalTypeID uuid.UUID, key string) uuid.UUID {
	return scoped("issue", animalTypeID, key)
}

// TabUUID is the stable id of a tab keyed within its issue.
func TabUUID(issueID uuid.UUID, key string) uuid.UUID {
	return scoped("tab", issueID, key)
}

// ImageUUID is the stable id of an image keyed within its issue.
func ImageUUID(issueID uuid.UUID, key string) uuid.UUID {
	return scoped("image", issueID, key)
}

func scoped(kind string, owner uuid.UUID, key string) uuid.UUID {
	key = normalize(key)
	if owner == uuid.Nil || key == "" {
		return uuid.Nil
	}
	return UUID(keyPrefix + kind + ":" + owner.String() + ":" + key)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
