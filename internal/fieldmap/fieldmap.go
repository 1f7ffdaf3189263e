// Package fieldmap projects a source note's field values onto a target
// layout according to a configured field mapping.
package fieldmap

import "github.com/starford/eihwaz/internal/models"

// Apply builds the target field-value array from a source note's values.
// The result always has exactly len(target.Fields) entries; target fields
// without a mapping entry stay empty. Pairs naming fields that do not exist
// on either layout are skipped: the host's layout list is the source of
// truth and mismatches fall back to empty fields, not errors.
func Apply(source, target *models.Layout, values []string, pairs []models.FieldPair) []string {
	out := make([]string, len(target.Fields))
	for _, p := range pairs {
		si := source.FieldIndex(p.Source())
		ti := target.FieldIndex(p.Target())
		if si < 0 || ti < 0 || si >= len(values) {
			continue
		}
		out[ti] = values[si]
	}
	return out
}
