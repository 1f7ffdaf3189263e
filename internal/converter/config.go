package converter

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/eihwaz/internal/models"
)

// Config describes which layouts are converted and how. It is a read-only
// snapshot: conversions always see one consistent Config, and edits replace
// the whole value through Settings rather than mutating it.
type Config struct {
	SourceLayouts   []string                      `yaml:"source_layouts" json:"source_layouts"`
	TargetLayout    string                        `yaml:"target_layout" json:"target_layout"`
	FieldMapping    map[string][]models.FieldPair `yaml:"field_mapping" json:"field_mapping"`
	AutoClozeFields []string                      `yaml:"auto_cloze_fields" json:"auto_cloze_fields"`
}

// Enabled reports whether conversion is configured at all. An empty section
// means the feature is off, which is not a validation error.
func (c *Config) Enabled() bool {
	return c != nil && c.TargetLayout != "" && len(c.SourceLayouts) > 0
}

// Validate checks the conversion configuration. A zero Config passes: an
// unconfigured installation simply skips conversion.
func (c *Config) Validate() error {
	if !c.Enabled() {
		if c != nil && (c.TargetLayout != "" || len(c.SourceLayouts) > 0) {
			return fmt.Errorf("conversion: source_layouts and target_layout must be set together")
		}
		return nil
	}

	if err := validation.ValidateStruct(c,
		validation.Field(&c.TargetLayout, validation.Required),
		validation.Field(&c.SourceLayouts, validation.Required, validation.Each(validation.Required)),
	); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.SourceLayouts))
	for _, s := range c.SourceLayouts {
		if s == c.TargetLayout {
			return fmt.Errorf("conversion: source layout %q equals the target layout", s)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("conversion: duplicate source layout %q", s)
		}
		seen[s] = struct{}{}
	}

	for layout, pairs := range c.FieldMapping {
		if _, ok := seen[layout]; !ok {
			return fmt.Errorf("conversion: field_mapping references %q which is not a source layout", layout)
		}
		srcSeen := make(map[string]struct{}, len(pairs))
		tgtSeen := make(map[string]struct{}, len(pairs))
		for _, p := range pairs {
			if p.Source() == "" || p.Target() == "" {
				return fmt.Errorf("conversion: field_mapping for %q has an empty field name", layout)
			}
			if _, dup := srcSeen[p.Source()]; dup {
				return fmt.Errorf("conversion: field_mapping for %q maps source field %q twice", layout, p.Source())
			}
			if _, dup := tgtSeen[p.Target()]; dup {
				return fmt.Errorf("conversion: field_mapping for %q maps target field %q twice", layout, p.Target())
			}
			srcSeen[p.Source()] = struct{}{}
			tgtSeen[p.Target()] = struct{}{}
		}
	}

	for _, f := range c.AutoClozeFields {
		if f == "" {
			return fmt.Errorf("conversion: auto_cloze_fields contains an empty name")
		}
	}
	return nil
}

// IsSource reports whether layout is one of the configured source layouts.
func (c *Config) IsSource(layout string) bool {
	for _, s := range c.SourceLayouts {
		if s == layout {
			return true
		}
	}
	return false
}

// MappingFor returns the field mapping for a source layout. A source layout
// without a mapping entry is not converted.
func (c *Config) MappingFor(layout string) ([]models.FieldPair, bool) {
	pairs, ok := c.FieldMapping[layout]
	return pairs, ok && len(pairs) > 0
}

// IsAutoCloze reports whether the target field receives marker synthesis.
func (c *Config) IsAutoCloze(field string) bool {
	for _, f := range c.AutoClozeFields {
		if f == field {
			return true
		}
	}
	return false
}
