package converter

import (
	"fmt"
	"sync/atomic"

	"github.com/starford/eihwaz/internal/apperr"
)

// Settings holds the current conversion Config behind an atomically
// replaceable pointer. Readers get a consistent snapshot without locks;
// Replace swaps the whole value so an in-flight conversion never observes
// a half-updated configuration.
type Settings struct {
	p atomic.Pointer[Config]
}

// NewSettings returns a Settings holding the given validated config.
// A nil cfg leaves conversion unconfigured.
func NewSettings(cfg *Config) *Settings {
	s := &Settings{}
	if cfg != nil {
		s.p.Store(cfg)
	}
	return s
}

// Snapshot returns the current config, or nil when unconfigured.
// The returned value must be treated as read-only.
func (s *Settings) Snapshot() *Config {
	return s.p.Load()
}

// Replace validates cfg and installs it as the new snapshot. On validation
// failure the previous snapshot stays in effect.
func (s *Settings) Replace(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", apperr.ErrConfigInvalid)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrConfigInvalid, err)
	}
	s.p.Store(cfg)
	return nil
}
