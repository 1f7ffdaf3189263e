// Package models defines the domain types for Eihwaz.
package models

import "time"

// Note is one flashcard note in the collection. Fields holds the value of
// each of the note's layout fields, in the layout's declared order.
type Note struct {
	ID        int64     `json:"id"`
	Layout    string    `json:"layout"`
	Fields    []string  `json:"fields"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Layout is a note type: a named, ordered list of field names. Card templates
// belong to the host rendering layer and are never read here.
type Layout struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// FieldIndex returns the position of name in the layout's field list, or -1.
func (l *Layout) FieldIndex(name string) int {
	for i, f := range l.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// FieldPair maps a source layout field onto a target layout field.
// YAML shape: a two-element list, e.g. [Front, Text].
type FieldPair [2]string

// Source returns the source layout field name.
func (p FieldPair) Source() string { return p[0] }

// Target returns the target layout field name.
func (p FieldPair) Target() string { return p[1] }
