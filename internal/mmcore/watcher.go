package mmcore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"mmstudio/internal/logging"
)

const defaultReloadDebounce = 250 * time.Millisecond

// ConfigWatcher reloads the simulated core's system configuration when the
// loaded file changes on disk. It follows the core's config-loaded event,
// so it arms itself once a configuration is loaded and re-arms when a
// different file is loaded later. Editors that replace the file via rename
// are handled the same as in-place writes.
type ConfigWatcher struct {
	core     *SimCore
	logger   *logging.Logger
	debounce time.Duration

	watchDir  string
	watchPath string
}

func NewConfigWatcher(core *SimCore, logger *logging.Logger) *ConfigWatcher {
	if logger == nil {
		panic("mmcore.NewConfigWatcher: logger must not be nil")
	}
	return &ConfigWatcher{
		core:     core,
		logger:   logger,
		debounce: defaultReloadDebounce,
	}
}

func (w *ConfigWatcher) RunContext(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Event handlers must not block, so path changes hop through a
	// 1-deep channel; only the most recent load matters.
	loaded := make(chan string, 1)
	unsubscribe := w.core.Events().OnSystemConfigurationLoaded(func(path string) {
		select {
		case <-loaded:
		default:
		}
		loaded <- path
	})
	defer unsubscribe()

	if path := w.core.SystemConfigurationFile(); path != "" {
		if err := w.armWatch(watcher, path); err != nil {
			return err
		}
	} else {
		w.logger.Debug("config watcher idle: no system configuration file loaded")
	}

	var pending *time.Timer
	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("stopping config watcher: context canceled")
			return nil
		case path := <-loaded:
			if path == "" {
				w.disarmWatch(watcher)
				continue
			}
			if filepath.Clean(path) == w.watchPath {
				continue
			}
			if err := w.armWatch(watcher, path); err != nil {
				w.logger.Warn("failed to watch new system configuration",
					logging.Field("path", path),
					logging.Field("error", err),
				)
			}
		case event := <-watcher.Events:
			if !w.isConfigEvent(event) {
				continue
			}
			w.logger.Debugf("fsnotify event: op=%s path=%s", event.Op.String(), event.Name)
			if pending == nil {
				pending = time.NewTimer(w.debounce)
			} else {
				pending.Reset(w.debounce)
			}
			reload = pending.C
		case err := <-watcher.Errors:
			if err != nil {
				w.logger.Warn("config watcher error", logging.Field("error", err))
			}
		case <-reload:
			reload = nil
			w.reloadConfig()
		}
	}
}

// armWatch points the fsnotify watch at the directory holding path,
// dropping any previous watch first.
func (w *ConfigWatcher) armWatch(watcher *fsnotify.Watcher, path string) error {
	newPath := filepath.Clean(path)
	newDir := filepath.Dir(newPath)
	if w.watchDir != "" && w.watchDir != newDir {
		if err := watcher.Remove(w.watchDir); err != nil {
			w.logger.Debugf("failed to drop watch on %s: %v", w.watchDir, err)
		}
		w.watchDir = ""
	}
	if w.watchDir != newDir {
		if err := watcher.Add(newDir); err != nil {
			return fmt.Errorf("failed to watch config directory %s: %w", newDir, err)
		}
	}
	w.watchPath = newPath
	w.watchDir = newDir
	w.logger.Debugf("watching system configuration: %s", w.watchPath)
	return nil
}

// disarmWatch stops watching after the configuration is unloaded.
func (w *ConfigWatcher) disarmWatch(watcher *fsnotify.Watcher) {
	if w.watchDir != "" {
		if err := watcher.Remove(w.watchDir); err != nil {
			w.logger.Debugf("failed to drop watch on %s: %v", w.watchDir, err)
		}
	}
	w.watchDir = ""
	w.watchPath = ""
	w.logger.Debug("config watcher idle: no system configuration file loaded")
}

func (w *ConfigWatcher) isConfigEvent(event fsnotify.Event) bool {
	if w.watchPath == "" {
		return false
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.watchPath
}

func (w *ConfigWatcher) reloadConfig() {
	if err := w.core.LoadSystemConfiguration(w.watchPath); err != nil {
		w.logger.Warn("failed to reload system configuration",
			logging.Field("path", w.watchPath),
			logging.Field("error", err),
		)
		return
	}
	w.logger.Info("system configuration reloaded", logging.Field("path", w.watchPath))
}
