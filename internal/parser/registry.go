package parser

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/config"
	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/observability"
	"github.com/fix-logviewer/backend/internal/schema"
)

// FixedKey is the cache key reported by registries built with NewFixedRegistry.
const FixedKey = "fixed"

// Registry resolves the schema for a message from its BeginString(8) and,
// for session-layer versions, its ApplVerID(1128).
//
// Each distinct dictionary file list is loaded and built at most once. The
// first caller for a key does the work while concurrent callers for the same
// key block until it finishes; callers for other keys are not held up.
// Failures are cached too, so a broken dictionary is not re-read per line.
// Built schemas are immutable and shared by all callers.
type Registry struct {
	catalog *config.DictionaryCatalog
	fixed   *schema.Schema
	logger  zerolog.Logger
	load    func(paths ...string) (*schema.Schema, error)

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	once   sync.Once
	files  []string
	schema *schema.Schema
	err    error
	took   time.Duration
	ready  atomic.Bool
}

// LoadedSchema describes one cache entry.
type LoadedSchema struct {
	Key          string   `json:"key" msgpack:"key"`
	Files        []string `json:"files" msgpack:"files"`
	MessageTypes int      `json:"messageTypes" msgpack:"messageTypes"`
	LoadTimeMs   int64    `json:"loadTimeMs" msgpack:"loadTimeMs"`
	Error        string   `json:"error,omitempty" msgpack:"error,omitempty"`
}

// NewRegistry creates a lazily loading registry over catalog.
func NewRegistry(catalog *config.DictionaryCatalog, logger zerolog.Logger) *Registry {
	return &Registry{
		catalog: catalog,
		logger:  logger.With().Str("component", "schema_registry").Logger(),
		load:    schema.Load,
		entries: make(map[string]*registryEntry),
	}
}

// NewFixedRegistry returns a registry that hands out s for every message
// regardless of its version fields.
func NewFixedRegistry(s *schema.Schema) *Registry {
	r := &Registry{
		fixed:   s,
		logger:  zerolog.Nop(),
		entries: make(map[string]*registryEntry),
	}
	entry := &registryEntry{files: s.Sources(), schema: s}
	entry.once.Do(func() { entry.ready.Store(true) })
	r.entries[FixedKey] = entry
	return r
}

// Catalog returns the catalog, or nil for a fixed registry.
func (r *Registry) Catalog() *config.DictionaryCatalog {
	return r.catalog
}

// Resolve returns the schema for tokens along with its cache key.
func (r *Registry) Resolve(tokens []models.FieldToken) (*schema.Schema, string, error) {
	if r.fixed != nil {
		return r.fixed, FixedKey, nil
	}

	files, err := r.dictionaryFiles(tokens)
	if err != nil {
		return nil, "", err
	}
	key := strings.Join(files, ",")
	entry := r.entry(key, files)
	entry.once.Do(func() { r.loadEntry(key, entry) })
	if entry.err != nil {
		return nil, key, fmt.Errorf("%w: %s: %v", ErrSchemaUnavailable, key, entry.err)
	}
	return entry.schema, key, nil
}

func (r *Registry) dictionaryFiles(tokens []models.FieldToken) ([]string, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: no dictionary catalog", ErrSchemaUnavailable)
	}
	beginString, ok := FieldValue(tokens, TagBeginString)
	if !ok {
		return nil, fmt.Errorf("%w: message has no BeginString", ErrSchemaUnavailable)
	}
	base, ok := r.catalog.BaseDictionary(beginString)
	if !ok {
		return nil, fmt.Errorf("%w: no dictionary for %s", ErrSchemaUnavailable, beginString)
	}

	files := []string{base}
	if r.catalog.IsSessionVersion(beginString) {
		if applVerID, ok := FieldValue(tokens, TagApplVerID); ok {
			if app, ok := r.catalog.AppDictionary(applVerID); ok {
				files = append(files, app)
			}
		}
	}
	return files, nil
}

func (r *Registry) entry(key string, files []string) *registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &registryEntry{files: files}
		r.entries[key] = e
	}
	return e
}

func (r *Registry) loadEntry(key string, e *registryEntry) {
	start := time.Now()
	defer func() {
		// A panicking build still marks the entry loaded, as a failure.
		if e.schema == nil && e.err == nil {
			e.err = errors.New("schema build aborted")
		}
		e.took = time.Since(start)
		e.ready.Store(true)
	}()

	e.schema, e.err = r.load(e.files...)
	observability.RecordSchemaLoad(key, e.err == nil)

	if e.err != nil {
		r.logger.Error().Err(e.err).Strs("files", e.files).Msg("Failed to build FIX schema")
		return
	}
	r.logger.Info().
		Strs("files", e.files).
		Int("message_types", len(e.schema.MessageTypes())).
		Dur("took", time.Since(start)).
		Msg("Built FIX schema")
}

// Preload builds every dictionary combination the catalog can produce.
// Combinations whose files are missing are skipped; other failures are
// returned joined.
func (r *Registry) Preload() error {
	if r.catalog == nil {
		return nil
	}
	var errs []error
	for _, files := range r.catalog.Combinations() {
		if !filesExist(files) {
			r.logger.Debug().Strs("files", files).Msg("Skipping preload, dictionary not found")
			continue
		}
		key := strings.Join(files, ",")
		entry := r.entry(key, files)
		entry.once.Do(func() { r.loadEntry(key, entry) })
		if entry.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, entry.err))
		}
	}
	return errors.Join(errs...)
}

// Loaded lists the cache entries that have finished loading, sorted by key.
func (r *Registry) Loaded() []LoadedSchema {
	r.mu.Lock()
	keys := make([]string, 0, len(r.entries))
	entries := make(map[string]*registryEntry, len(r.entries))
	for k, e := range r.entries {
		keys = append(keys, k)
		entries[k] = e
	}
	r.mu.Unlock()
	sort.Strings(keys)

	out := make([]LoadedSchema, 0, len(keys))
	for _, k := range keys {
		e := entries[k]
		if !e.ready.Load() {
			continue
		}
		info := LoadedSchema{Key: k, Files: e.files, LoadTimeMs: e.took.Milliseconds()}
		if e.err != nil {
			info.Error = e.err.Error()
		} else {
			info.MessageTypes = len(e.schema.MessageTypes())
		}
		out = append(out, info)
	}
	return out
}

func filesExist(files []string) bool {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}
	return true
}
