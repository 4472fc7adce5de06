// Package config loads and saves the devsolo Configuration value and
// watches it for out-of-band edits.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/devsolo-dev/devsolo/internal/logging"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/paths"
)

// CurrentVersion is stamped into newly written configuration and the
// initialization marker.
const CurrentVersion = "1"

// Default returns the configuration a fresh workspace starts with.
func Default() *model.Configuration {
	return &model.Configuration{
		Initialized: false,
		Scope:       model.ScopeProject,
		Version:     CurrentVersion,
		GitPlatform: model.GitPlatformConfig{Type: model.GitPlatformGitHub},
		Preferences: model.Preferences{
			LogLevel:       "info",
			ColorOutput:    true,
			CIPollInterval: 15,
			CIPollBudget:   20 * 60,
		},
		Components: model.Components{
			MCPServer:  true,
			Hooks:      true,
			StatusLine: false,
			Templates:  false,
		},
	}
}

// Manager owns the process-wide, immutable-between-reloads Configuration
// value plus an fsnotify watch on its backing file. Global
// state": the loaded value itself never mutates; Reload swaps it for a
// freshly loaded one and only the watch loop (or an explicit caller) calls
// Reload.
type Manager struct {
	mu      sync.RWMutex
	current *model.Configuration
	watcher *fsnotify.Watcher
	notify  chan struct{}
}

var (
	globalMu sync.Mutex
	global   *Manager
)

// Load reads <base>/config.yaml, merging stored values over the default via
// mergo so a partially-written config file (or one missing newer fields)
// still yields a complete value. Returns the default, unsaved, if no config
// file exists yet.
func Load() (*model.Configuration, error) {
	cfg := Default()

	path, err := paths.ConfigPath()
	if err != nil {
		return cfg, nil //nolint:nilerr // not inside a repo yet: caller gets usable defaults
	}

	data, err := os.ReadFile(path) //nolint:gosec // path derived from repo-local base dir
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var loaded model.Configuration
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := mergo.Merge(cfg, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging config defaults: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to <base>/config.yaml atomically (temp file + rename).
func Save(cfg *model.Configuration) error {
	path, err := paths.ConfigPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.MkdirAll(dirOf(path), 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // config, not secrets
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming config into place: %w", err)
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// NewManager loads the configuration and starts watching its file for
// external changes. Callers that only need a one-shot read should use Load
// directly instead.
func NewManager() (*Manager, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	m := &Manager{current: cfg, notify: make(chan struct{}, 1)}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		// Watching is a convenience; failure to construct a watcher should
		// not prevent the rest of devsolo from working.
		return m, nil //nolint:nilerr
	}
	m.watcher = w

	if path, err := paths.ConfigPath(); err == nil {
		_ = w.Add(dirOf(path))
	}

	go m.watchLoop()
	return m, nil
}

func (m *Manager) watchLoop() {
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := m.Reload(); err != nil {
				logging.Warn(nil, "config reload failed", "error", err.Error()) //nolint:staticcheck
				continue
			}
			select {
			case m.notify <- struct{}{}:
			default:
			}
		case _, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Current returns the currently loaded configuration value. Callers must
// not mutate the returned pointer's fields; treat it as immutable.
func (m *Manager) Current() *model.Configuration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reload re-reads the configuration file and swaps it in atomically.
func (m *Manager) Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	return nil
}

// Notifications returns a channel that receives a value each time a
// successful reload completes.
func (m *Manager) Notifications() <-chan struct{} { return m.notify }

// Close stops the watch loop.
func (m *Manager) Close() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Close()
}

// Global lazily constructs (once) and returns the process-wide manager.
func Global() (*Manager, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return global, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	global = m
	return m, nil
}

// IsInitialized reports whether the workspace marker file exists.
func IsInitialized() bool {
	path, err := paths.MarkerPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Marker is the initialization-marker file content.
type Marker struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"createdAt"`
}

// WriteMarker creates the initialization marker file.
func WriteMarker() error {
	path, err := paths.MarkerPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(Marker{Version: CurrentVersion, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}
