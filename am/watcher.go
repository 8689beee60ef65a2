package am

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/logger"
)

// ReloadCallback receives every configuration that passed Validate
type ReloadCallback func(*Config) error

// ConfigWatcher reloads one config file when it changes on disk. Reloads
// read that file directly (defaults applied, environment ignored) and an
// invalid file leaves the previous configuration in effect.
type ConfigWatcher struct {
	configPath     string
	watcher        *fsnotify.Watcher
	debouncePeriod time.Duration
	load           func(string) (*Config, error)

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer
	current   *Config

	ownWrite atomic.Bool
}

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher watches configPath. The directory is watched rather than
// the file, since editors save by replacing the file.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(filepath.Dir(configPath)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch config directory for %s", configPath)
	}

	cw := &ConfigWatcher{
		configPath:     configPath,
		watcher:        w,
		debouncePeriod: 500 * time.Millisecond,
		load:           LoadFromFile,
	}
	// Baseline for restart warnings; a broken file just means no baseline
	if cfg, err := cw.load(configPath); err == nil {
		cw.current = cfg
	}
	return cw, nil
}

// OnReload registers a callback
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// Current returns the last configuration read from the file, or nil
func (cw *ConfigWatcher) Current() *Config {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.current
}

// MarkOwnWrite makes the watcher skip the next change, for writes made by
// this process.
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.ownWrite.Store(true)
}

func (cw *ConfigWatcher) checkOwnWrite() bool {
	return cw.ownWrite.CompareAndSwap(true, false)
}

// Start watches in the background until Stop
func (cw *ConfigWatcher) Start() {
	go cw.watchLoop()
}

func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handle(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", logger.FieldError, err)
		}
	}
}

func (cw *ConfigWatcher) handle(event fsnotify.Event) {
	if !cw.relevant(event) {
		return
	}
	if cw.checkOwnWrite() {
		logger.Debugw("Config watcher ignoring own write", logger.FieldFile, event.Name)
		return
	}
	logger.Infow("Config watcher detected change",
		logger.FieldFile, event.Name,
		"op", event.Op.String())
	cw.scheduleReload()
}

// relevant reports whether event writes or creates the watched file
func (cw *ConfigWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if isBackupFile(event.Name) {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(cw.configPath)
}

// scheduleReload restarts the debounce timer; editors emit bursts of events
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debouncePeriod, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload failed", logger.FieldError, err)
		}
	})
}

func (cw *ConfigWatcher) reload() error {
	next, err := cw.load(cw.configPath)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := next.Validate(); err != nil {
		return errors.Wrap(err, "reloaded config is invalid")
	}

	cw.mu.Lock()
	prev := cw.current
	cw.current = next
	callbacks := append([]ReloadCallback(nil), cw.callbacks...)
	cw.mu.Unlock()

	if sections := RestartSections(prev, next); len(sections) > 0 {
		logger.Warnw("Config changes take effect after a restart",
			logger.FieldFile, cw.configPath,
			"sections", sections)
	}
	logger.Infow("Config reloaded", logger.FieldFile, cw.configPath)

	for _, callback := range callbacks {
		if err := callback(next); err != nil {
			logger.Warnw("Config reload callback error", logger.FieldError, err)
		}
	}
	return nil
}

// Stop ends watching and cancels a pending reload
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()
	return cw.watcher.Close()
}

// isBackupFile matches the rotated backups written by WriteConfig (.back1..3)
func isBackupFile(path string) bool {
	return strings.HasPrefix(filepath.Ext(path), ".back")
}

// SetGlobalWatcher registers the process-wide watcher, so config writers can
// mark their own writes.
func SetGlobalWatcher(watcher *ConfigWatcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = watcher
}

// GetGlobalWatcher returns the process-wide watcher, or nil
func GetGlobalWatcher() *ConfigWatcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
