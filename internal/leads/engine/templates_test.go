package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTemplates_OverridesOnlyProvidedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := "greeting: \"Hi {name}, ready to start?\"\nfollow_up: \"Still there?\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write templates file: %v", err)
	}

	tpl, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}

	if tpl.Greeting != "Hi {name}, ready to start?" {
		t.Fatalf("expected overridden greeting, got %q", tpl.Greeting)
	}
	if tpl.FollowUp != "Still there?" {
		t.Fatalf("expected overridden follow-up, got %q", tpl.FollowUp)
	}
	if tpl.AgeQuestion != DefaultTemplates().AgeQuestion {
		t.Fatalf("expected default age question, got %q", tpl.AgeQuestion)
	}
}

func TestLoadTemplates_MissingFileFails(t *testing.T) {
	if _, err := LoadTemplates(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadTemplates_InvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("greeting: [unterminated"), 0o600); err != nil {
		t.Fatalf("write templates file: %v", err)
	}
	if _, err := LoadTemplates(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
