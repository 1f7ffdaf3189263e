package converter

import (
	"strings"
	"testing"

	"github.com/starford/eihwaz/internal/models"
)

func validConfig() *Config {
	return &Config{
		SourceLayouts: []string{"Basic"},
		TargetLayout:  "Cloze",
		FieldMapping: map[string][]models.FieldPair{
			"Basic": {{"Front", "Text"}, {"Back", "Back Extra"}},
		},
		AutoClozeFields: []string{"Text"},
	}
}

func TestConfigValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config should pass: %v", err)
	}
}

func TestConfigValidate_ZeroConfigPasses(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unconfigured conversion should pass: %v", err)
	}
	if cfg.Enabled() {
		t.Error("zero config should not be enabled")
	}
}

func TestConfigValidate_PartialConfigFails(t *testing.T) {
	cfg := &Config{TargetLayout: "Cloze"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("target without sources should fail")
	}
	cfg = &Config{SourceLayouts: []string{"Basic"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("sources without target should fail")
	}
}

func TestConfigValidate_SourceEqualsTarget(t *testing.T) {
	cfg := validConfig()
	cfg.SourceLayouts = append(cfg.SourceLayouts, "Cloze")
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "equals the target") {
		t.Fatalf("source == target should fail, got %v", err)
	}
}

func TestConfigValidate_DuplicateSource(t *testing.T) {
	cfg := validConfig()
	cfg.SourceLayouts = []string{"Basic", "Basic"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("duplicate source should fail")
	}
}

func TestConfigValidate_MappingForUnknownLayout(t *testing.T) {
	cfg := validConfig()
	cfg.FieldMapping["Other"] = []models.FieldPair{{"A", "B"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("mapping for non-source layout should fail")
	}
}

func TestConfigValidate_DuplicateMappingEntries(t *testing.T) {
	cfg := validConfig()
	cfg.FieldMapping["Basic"] = []models.FieldPair{{"Front", "Text"}, {"Front", "Back Extra"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("source field mapped twice should fail")
	}
	cfg.FieldMapping["Basic"] = []models.FieldPair{{"Front", "Text"}, {"Back", "Text"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("target field mapped twice should fail")
	}
}

func TestConfigLookups(t *testing.T) {
	cfg := validConfig()
	if !cfg.IsSource("Basic") || cfg.IsSource("Cloze") {
		t.Error("IsSource mismatch")
	}
	if !cfg.IsAutoCloze("Text") || cfg.IsAutoCloze("Back Extra") {
		t.Error("IsAutoCloze mismatch")
	}
	if _, ok := cfg.MappingFor("Basic"); !ok {
		t.Error("MappingFor(Basic) should exist")
	}
	if _, ok := cfg.MappingFor("Other"); ok {
		t.Error("MappingFor(Other) should not exist")
	}
}

func TestSettings_ReplaceRejectsInvalid(t *testing.T) {
	s := NewSettings(validConfig())
	bad := &Config{SourceLayouts: []string{"Cloze"}, TargetLayout: "Cloze"}
	if err := s.Replace(bad); err == nil {
		t.Fatal("invalid replacement should be rejected")
	}
	// Previous snapshot still in effect.
	if got := s.Snapshot(); got == nil || got.TargetLayout != "Cloze" || !got.IsSource("Basic") {
		t.Errorf("snapshot after failed replace = %+v", got)
	}
}

func TestSettings_ReplaceSwapsSnapshot(t *testing.T) {
	s := NewSettings(nil)
	if s.Snapshot() != nil {
		t.Fatal("empty settings should have nil snapshot")
	}
	if err := s.Replace(validConfig()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if s.Snapshot() == nil {
		t.Fatal("snapshot should be installed after replace")
	}
}
