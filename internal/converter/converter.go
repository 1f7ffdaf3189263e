// Package converter implements the automatic cloze conversion engine: notes
// created on a configured source layout are rewritten onto the target cloze
// layout with synthesized {{cN::...}} markers.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/eihwaz/internal/apperr"
	"github.com/starford/eihwaz/internal/cloze"
	"github.com/starford/eihwaz/internal/fieldmap"
	"github.com/starford/eihwaz/internal/store"
)

// Status is the terminal outcome of one conversion attempt.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result describes what a conversion attempt did.
type Result struct {
	NoteID  int64  `json:"note_id"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Indices []int  `json:"indices,omitempty"` // group indices synthesized, in field order
}

// Engine orchestrates conversions. It reads the settings snapshot, maps
// fields, synthesizes markers, and commits the layout swap through the store.
// It performs no store mutation before the final commit call.
type Engine struct {
	store    store.Provider
	settings *Settings
	logger   *slog.Logger
	warn     func(msg string)
	notify   func(Result)
}

// Option configures an Engine.
type Option func(*Engine)

// WithWarnFunc sets the callback used to surface misconfiguration to the
// user. Defaults to a warn-level log entry.
func WithWarnFunc(fn func(msg string)) Option {
	return func(e *Engine) { e.warn = fn }
}

// WithNotifyFunc sets a callback invoked after every completed attempt.
func WithNotifyFunc(fn func(Result)) Option {
	return func(e *Engine) { e.notify = fn }
}

// NewEngine creates a conversion engine.
func NewEngine(st store.Provider, settings *Settings, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{store: st, settings: settings, logger: logger}
	e.warn = func(msg string) {
		e.logger.Warn("conversion misconfigured", slog.String("detail", msg))
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnNoteCreated is the entry point fired synchronously after a note is
// durably created. It is safe to invoke repeatedly for the same note id: a
// note already on the target layout is skipped, never re-wrapped.
func (e *Engine) OnNoteCreated(ctx context.Context, noteID int64) Result {
	res := e.convert(ctx, noteID)

	switch res.Status {
	case StatusConverted:
		e.logger.Info("note converted",
			slog.Int64("note_id", res.NoteID),
			slog.Int("markers", len(res.Indices)))
	case StatusSkipped:
		e.logger.Debug("conversion skipped",
			slog.Int64("note_id", res.NoteID),
			slog.String("reason", res.Reason))
	case StatusFailed:
		e.logger.Error("conversion failed",
			slog.Int64("note_id", res.NoteID),
			slog.String("reason", res.Reason))
	}

	if e.notify != nil {
		e.notify(res)
	}
	return res
}

func (e *Engine) convert(_ context.Context, noteID int64) Result {
	skip := func(reason string) Result {
		return Result{NoteID: noteID, Status: StatusSkipped, Reason: reason}
	}
	fail := func(reason string) Result {
		return Result{NoteID: noteID, Status: StatusFailed, Reason: reason}
	}

	cfg := e.settings.Snapshot()
	if !cfg.Enabled() {
		return skip("conversion not configured")
	}
	if err := cfg.Validate(); err != nil {
		e.warn(err.Error())
		return skip("config invalid: " + err.Error())
	}

	note, err := e.store.GetNote(noteID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Note deleted between the event and now. Not an error.
			return skip("note vanished")
		}
		return fail("get note: " + err.Error())
	}

	if note.Layout == cfg.TargetLayout {
		return skip("already on target layout")
	}
	if !cfg.IsSource(note.Layout) {
		return skip("layout not a configured source")
	}
	pairs, ok := cfg.MappingFor(note.Layout)
	if !ok {
		return skip("no field mapping for layout " + note.Layout)
	}

	source, err := e.store.GetLayout(note.Layout)
	if err != nil {
		return fail("source layout: " + err.Error())
	}
	target, err := e.store.GetLayout(cfg.TargetLayout)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			e.warn(fmt.Sprintf("target layout %q does not exist", cfg.TargetLayout))
			return skip("target layout missing")
		}
		return fail("target layout: " + err.Error())
	}

	fields := fieldmap.Apply(source, target, note.Fields, pairs)

	// Indices are allocated from the note-wide maximum so a synthesized
	// marker never collides with one carried over from any mapped field.
	next := cloze.MaxIndex(fields...) + 1
	var indices []int
	for i, name := range target.Fields {
		if !cfg.IsAutoCloze(name) {
			continue
		}
		wrapped, used, err := cloze.Wrap(fields[i], next)
		if err != nil {
			e.logger.Warn("field skipped",
				slog.Int64("note_id", noteID),
				slog.String("field", name),
				slog.String("error", err.Error()))
			continue
		}
		if used {
			fields[i] = wrapped
			indices = append(indices, next)
			next++
		}
	}

	if err := e.store.SetNoteLayoutAndFields(noteID, target.Name, fields); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return skip("note vanished before commit")
		}
		return fail(fmt.Errorf("%w: %v", apperr.ErrCommitFailed, err).Error())
	}

	return Result{NoteID: noteID, Status: StatusConverted, Indices: indices}
}

// CheckConfig verifies the current snapshot against the store's layouts:
// missing layouts and auto-cloze fields the target layout does not declare.
// Best-effort only: the store is the source of truth and mismatches degrade
// to empty-field fallbacks at conversion time.
func (e *Engine) CheckConfig() []string {
	cfg := e.settings.Snapshot()
	if !cfg.Enabled() {
		return nil
	}

	var warnings []string
	target, err := e.store.GetLayout(cfg.TargetLayout)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("target layout %q not found", cfg.TargetLayout))
	} else {
		for _, f := range cfg.AutoClozeFields {
			if target.FieldIndex(f) < 0 {
				warnings = append(warnings, fmt.Sprintf("auto-cloze field %q not on target layout %q", f, target.Name))
			}
		}
	}
	for _, s := range cfg.SourceLayouts {
		if _, err := e.store.GetLayout(s); err != nil {
			warnings = append(warnings, fmt.Sprintf("source layout %q not found", s))
		}
	}
	return warnings
}
