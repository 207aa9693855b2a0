package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/mapping"
	"github.com/bft-labs/topicmap/internal/ports"
)

// MappingLoader reads the mapping definitions from the configuration source.
type MappingLoader func(path string) ([]domain.Mapping, error)

// MapperBuilder builds a mapper for a set of definitions.
type MapperBuilder func(mappings []domain.Mapping) (*mapping.Mapper, error)

// ReloaderConfig holds configuration options for the Reloader.
type ReloaderConfig struct {
	// Path is the configuration file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// Reloader watches the configuration file and swaps the pipeline's mapper
// when the mappings change. An invalid file keeps the current mapper.
type Reloader struct {
	config   ReloaderConfig
	load     MappingLoader
	build    MapperBuilder
	target   *Pipeline
	logger   ports.Logger
	observer Observer

	mu       sync.Mutex
	debounce *time.Timer
	wg       sync.WaitGroup
}

// NewReloader creates a Reloader. observer may be nil.
func NewReloader(cfg ReloaderConfig, load MappingLoader, build MapperBuilder, target *Pipeline, logger ports.Logger, observer Observer) *Reloader {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Reloader{
		config:   cfg,
		load:     load,
		build:    build,
		target:   target,
		logger:   logger,
		observer: observer,
	}
}

// Reload loads the file once and installs the new mapper.
func (r *Reloader) Reload() error {
	err := r.reload()
	if r.observer != nil {
		r.observer.ObserveReload(err == nil)
	}
	if err != nil {
		r.logger.Error("config reload failed, keeping current mappings",
			ports.String("path", r.config.Path), ports.Err(err))
		return err
	}
	r.logger.Info("config reloaded",
		ports.String("path", r.config.Path), ports.Any("topics", len(r.target.Mapper().Topics())))
	return nil
}

func (r *Reloader) reload() error {
	mappings, err := r.load(r.config.Path)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return fmt.Errorf("no mappings in %s", r.config.Path)
	}
	m, err := r.build(mappings)
	if err != nil {
		return err
	}
	r.target.SetMapper(m)
	return nil
}

// Run watches the directory of the configuration file until ctx is done.
func (r *Reloader) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.config.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	name := filepath.Base(r.config.Path)
	defer r.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			r.debounceReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("config watcher error", ports.Err(err))
		}
	}
}

func (r *Reloader) debounceReload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.debounce != nil && r.debounce.Stop() {
		r.wg.Done()
	}
	r.wg.Add(1)
	r.debounce = time.AfterFunc(r.config.DebounceDelay, func() {
		defer r.wg.Done()
		_ = r.Reload()
	})
}

// stop cancels a pending reload and waits for a running one.
func (r *Reloader) stop() {
	r.mu.Lock()
	if r.debounce != nil && r.debounce.Stop() {
		r.wg.Done()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
