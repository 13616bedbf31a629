package validation

import (
	"errors"
	"strings"
	"testing"
)

const tabSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["title_en"],
    "properties": {
      "title_en": {"type": "string", "minLength": 1},
      "position": {"type": "integer", "minimum": 0}
    }
  }
}`

func TestSchemaValidateJSON(t *testing.T) {
	schema, err := Compile("tabs.schema.json", []byte(tabSchema))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	payload, err := schema.ValidateJSON([]byte(`[{"title_en":"Symptoms","position":2}]`))
	if err != nil {
		t.Fatalf("ValidateJSON: %v", err)
	}
	items, ok := payload.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("unexpected payload %#v", payload)
	}

	_, err = schema.ValidateJSON([]byte(`[{"title_en":""},{"position":-1}]`))
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	issues := Issues(err)
	if len(issues) < 2 {
		t.Fatalf("expected an issue per violation, got %+v", issues)
	}
	locations := make([]string, 0, len(issues))
	for _, issue := range issues {
		locations = append(locations, issue.Location)
	}
	joined := strings.Join(locations, ",")
	if !strings.Contains(joined, "/0/title_en") || !strings.Contains(joined, "/1") {
		t.Fatalf("expected locations for both items, got %v", locations)
	}
	if !strings.HasPrefix(err.Error(), "#/") {
		t.Fatalf("expected json pointer prefix in message, got %q", err.Error())
	}
}

func TestSchemaValidateJSONMalformed(t *testing.T) {
	schema := MustCompile("tabs.schema.json", []byte(tabSchema))
	_, err := schema.ValidateJSON([]byte(`[{"title_en":`))
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	issues := Issues(err)
	if len(issues) != 1 || !strings.HasPrefix(issues[0].Message, "malformed json") {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestCompileRejectsInvalidSchema(t *testing.T) {
	if _, err := Compile("broken.json", []byte(`{"type": 12}`)); !errors.Is(err, ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
	if got := Issues(errors.New("plain")); len(got) != 1 || got[0].Message != "plain" {
		t.Fatalf("unexpected issues for plain error %+v", got)
	}
	if Issues(nil) != nil {
		t.Fatal("expected nil issues for nil error")
	}
}
