package mcpserver

// CardFormatContract describes the cloze card format that LLM consumers
// should follow when adding notes intended for cloze conversion.
const CardFormatContract = `# Eihwaz Card Format Contract

Notes are flashcards: an ordered list of field values attached to a layout.

## Layouts

A layout names its fields in order. Two layouts are registered by default:

- **Basic**: fields ` + "`" + `Front` + "`" + `, ` + "`" + `Back` + "`" + `
- **Cloze**: fields ` + "`" + `Text` + "`" + `, ` + "`" + `Back Extra` + "`" + `

Field values are plain text (HTML is tolerated but discouraged). The order
of values in ` + "`" + `fields` + "`" + ` must match the layout's field order.

## Cloze markers

Cloze cards hide spans of text behind markers:

` + "```" + `
{{c1::hidden text}}
{{c2::another span::optional hint}}
` + "```" + `

Rules:

1. The index after ` + "`" + `c` + "`" + ` is a positive integer. Each index produces one card.
2. Markers never nest.
3. An opening ` + "`" + `{{cN::` + "`" + ` without a closing ` + "`" + `}}` + "`" + ` is malformed and the
   field will be left untouched by automatic conversion.
4. Braces that do not match the marker shape (e.g. ` + "`" + `{{bold}}` + "`" + `) are plain text.

## Automatic conversion

When conversion is configured, notes added on a source layout (e.g. Basic)
are rewritten onto the target cloze layout: fields are mapped by the
configured field pairs, and each configured auto-cloze field that has no
marker yet is wrapped whole in a fresh ` + "`" + `{{cN::...}}` + "`" + ` marker. Indices are
allocated above the highest index already present anywhere on the note, so
hand-written markers are never clobbered. Fields that already carry markers
are left byte-for-byte intact.

Call ` + "`" + `get_conversion_config` + "`" + ` to see which layouts convert and where.
`
