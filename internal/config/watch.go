package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ironsheep/image-render-mcp/internal/logging"
	"github.com/ironsheep/image-render-mcp/internal/render"
)

// Loader reads one configuration source and can watch it for changes.
type Loader struct {
	path string
	v    *viper.Viper

	mu      sync.Mutex
	current *Config
}

// NewLoader creates a loader for the file at path. An empty path uses
// defaults and environment only.
func NewLoader(path string) *Loader {
	return &Loader{path: path, v: newViper(path)}
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}
	cfg, err := decode(l.v)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the most recently loaded valid configuration.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// WatchPresets reloads presets into reg whenever the config file changes.
// An invalid edit is logged and the previous presets stay in place. Load must
// have succeeded before calling WatchPresets.
func (l *Loader) WatchPresets(reg *render.PresetRegistry, logger *zap.Logger) {
	if l.path == "" {
		return
	}
	logger = logging.OrNop(logger)
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.reload(e, reg, logger)
	})
	l.v.WatchConfig()
}

// reload runs on viper's watcher goroutine after viper has re-read the file.
func (l *Loader) reload(e fsnotify.Event, reg *render.PresetRegistry, logger *zap.Logger) {
	cfg, err := decode(l.v)
	if err != nil {
		logger.Warn("ignoring invalid config change", zap.String("file", e.Name), zap.Error(err))
		return
	}
	presets, err := cfg.RenderPresets()
	if err != nil {
		logger.Warn("ignoring invalid presets", zap.String("file", e.Name), zap.Error(err))
		return
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()

	reg.Replace(presets)
	logger.Info("reloaded presets", zap.String("file", e.Name), zap.Strings("presets", reg.Names()))
}

// ApplyPresets installs cfg's presets into reg.
func ApplyPresets(cfg *Config, reg *render.PresetRegistry) error {
	presets, err := cfg.RenderPresets()
	if err != nil {
		return err
	}
	reg.Replace(presets)
	return nil
}
