package render

import (
	"sort"
	"sync"
)

// PresetRegistry holds named render configurations.
//
// PresetRegistry is safe for concurrent use. Replace swaps the whole set at
// once so readers never observe a half-applied reload.
type PresetRegistry struct {
	mu      sync.RWMutex
	presets map[string]Config
}

// NewPresetRegistry creates an empty registry.
func NewPresetRegistry() *PresetRegistry {
	return &PresetRegistry{presets: make(map[string]Config)}
}

// Set adds or replaces a preset.
func (p *PresetRegistry) Set(name string, cfg Config) {
	p.mu.Lock()
	p.presets[name] = cfg.With()
	p.mu.Unlock()
}

// Get returns a copy of the named preset.
func (p *PresetRegistry) Get(name string) (Config, bool) {
	p.mu.RLock()
	cfg, ok := p.presets[name]
	p.mu.RUnlock()
	if !ok {
		return Config{}, false
	}
	return cfg.With(), true
}

// Replace discards every preset and installs presets.
func (p *PresetRegistry) Replace(presets map[string]Config) {
	next := make(map[string]Config, len(presets))
	for name, cfg := range presets {
		next[name] = cfg.With()
	}
	p.mu.Lock()
	p.presets = next
	p.mu.Unlock()
}

// Names returns the preset names in sorted order.
func (p *PresetRegistry) Names() []string {
	p.mu.RLock()
	names := make([]string, 0, len(p.presets))
	for name := range p.presets {
		names = append(names, name)
	}
	p.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of presets.
func (p *PresetRegistry) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.presets)
}
