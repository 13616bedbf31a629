package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestAnimalTypeUUIDIsStable(t *testing.T) {
	first := AnimalTypeUUID("cattle")
	second := AnimalTypeUUID("  Cattle ")
	if first == uuid.Nil {
		t.Fatal("expected non-nil id")
	}
	if first != second {
		t.Fatalf("expected normalised slugs to match: %s != %s", first, second)
	}
	if AnimalTypeUUID("") != uuid.Nil {
		t.Fatal("expected nil id for empty slug")
	}
}

func TestScopedUUIDsDoNotCollide(t *testing.T) {
	parent := AnimalTypeUUID("cattle")
	issue := IssueUUID(parent, "mastitis")
	if issue == uuid.Nil {
		t.Fatal("expected issue id")
	}
	if issue == IssueUUID(AnimalTypeUUID("sheep"), "mastitis") {
		t.Fatal("same key under different owners must differ")
	}
	if TabUUID(issue, "symptoms") == ImageUUID(issue, "symptoms") {
		t.Fatal("tabs and images must not share ids")
	}
	if TabUUID(uuid.Nil, "symptoms") != uuid.Nil {
		t.Fatal("expected nil id without owner")
	}
	if ImageUUID(issue, " ") != uuid.Nil {
		t.Fatal("expected nil id without key")
	}
}
