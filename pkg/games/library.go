package games

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/logger"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("game not found")

// GameLibrary is a read-only catalog of installed game descriptors.
type GameLibrary interface {
	// List returns the catalog grouped as type -> id -> descriptor.
	List() map[string]map[string]Descriptor
	// ListType returns every descriptor of one type.
	ListType(gameType string) ([]Descriptor, error)
	// Find resolves one descriptor by its type/id slug.
	Find(gameType, id string) (Descriptor, error)
	// IsLoading reports whether the first scan hasn't finished yet.
	IsLoading() bool
}

type library struct {
	conf config.Library
	log  *logger.Logger

	mu     sync.RWMutex
	games  map[string]map[string]Descriptor
	loaded atomic.Bool

	lastScanDuration time.Duration
	watcher          *fsnotify.Watcher
}

// NewLibrary creates a library over a directory of YAML game
// manifests. Call Scan to populate it; with WatchMode the library
// rescans itself when the directory changes.
func NewLibrary(conf config.Library, log *logger.Logger) *library {
	return &library{
		conf:  conf,
		log:   log,
		games: map[string]map[string]Descriptor{},
	}
}

func (lib *library) IsLoading() bool { return !lib.loaded.Load() }

func (lib *library) List() map[string]map[string]Descriptor {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	out := make(map[string]map[string]Descriptor, len(lib.games))
	for t, ids := range lib.games {
		m := make(map[string]Descriptor, len(ids))
		for id, d := range ids {
			m[id] = d
		}
		out[t] = m
	}
	return out
}

func (lib *library) ListType(gameType string) ([]Descriptor, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	ids, ok := lib.games[gameType]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Descriptor, 0, len(ids))
	for _, d := range ids {
		out = append(out, d)
	}
	return out, nil
}

func (lib *library) Find(gameType, id string) (Descriptor, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	if d, ok := lib.games[gameType][id]; ok {
		return d, nil
	}
	return Descriptor{}, ErrNotFound
}

// Scan walks the library path and replaces the catalog with every
// manifest it finds. Broken manifests are logged and skipped.
func (lib *library) Scan() {
	start := time.Now()
	found := map[string]map[string]Descriptor{}
	count := 0

	err := filepath.WalkDir(lib.conf.BasePath, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() || !isManifest(path) {
			return nil
		}
		desc, err := parseManifest(path)
		if err != nil {
			lib.log.Warn().Err(err).Msgf("skip manifest %v", path)
			return nil
		}
		if found[desc.Type] == nil {
			found[desc.Type] = map[string]Descriptor{}
		}
		if _, dup := found[desc.Type][desc.Id]; dup {
			lib.log.Warn().Msgf("duplicate manifest for %v, %v wins", desc.Slug(), path)
		}
		found[desc.Type][desc.Id] = desc
		count++
		if lib.conf.Verbose {
			lib.log.Debug().Msgf("manifest %v (%v)", desc.Slug(), path)
		}
		return nil
	})
	if err != nil {
		lib.log.Error().Err(err).Msgf("library scan failed in %v", lib.conf.BasePath)
	}

	lib.mu.Lock()
	lib.games = found
	lib.lastScanDuration = time.Since(start)
	lib.mu.Unlock()
	lib.loaded.Store(true)

	lib.log.Info().Msgf("library scan: %v games in %v", count, lib.lastScanDuration)

	if lib.conf.WatchMode && lib.watcher == nil {
		lib.watch()
	}
}

func (lib *library) Close() {
	if lib.watcher != nil {
		_ = lib.watcher.Close()
		lib.watcher = nil
	}
}

// watch rescans the whole library on any directory change.
// Events are debounced since editors emit several per write.
func (lib *library) watch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		lib.log.Error().Err(err).Msg("couldn't start the library watcher")
		return
	}
	if err := w.Add(lib.conf.BasePath); err != nil {
		lib.log.Error().Err(err).Msgf("couldn't watch %v", lib.conf.BasePath)
		_ = w.Close()
		return
	}
	lib.watcher = w
	lib.log.Info().Msgf("watching %v", lib.conf.BasePath)

	go func() {
		var pending *time.Timer
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(time.Second, lib.Scan)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				lib.log.Error().Err(err).Msg("library watcher")
			}
		}
	}()
}

func isManifest(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func parseManifest(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return Descriptor{}, err
	}
	if desc.Type == "" || desc.Id == "" || desc.Engine == "" {
		return Descriptor{}, errors.New("manifest requires type, id and engine")
	}
	desc.dir = filepath.Dir(path)
	return desc, nil
}
