// Package session runs background indexing of uploaded FIX logs and serves
// queries against the finished indexes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/parser"
)

// DefaultMaxSessions limits concurrent sessions to bound open DuckDB files.
const DefaultMaxSessions = 10

// SessionKeepAliveWindow is how long a recently used session is protected
// from age-based cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

// Options configures a Manager.
type Options struct {
	TempDir     string
	MaxSessions int
	Store       parser.StoreOptions
}

// Manager handles active indexing sessions.
type Manager struct {
	sessions    map[string]*sessionState
	mu          sync.RWMutex
	indexer     *parser.Indexer
	tempDir     string
	maxSessions int
	storeOpts   parser.StoreOptions
	logger      zerolog.Logger
}

type sessionState struct {
	session      *models.IndexSession
	filePath     string
	store        *parser.MessageStore
	lastAccessed time.Time
}

// NewManager creates a session manager that indexes with indexer.
func NewManager(indexer *parser.Indexer, opts Options, logger zerolog.Logger) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*sessionState),
		indexer:     indexer,
		tempDir:     opts.TempDir,
		maxSessions: opts.MaxSessions,
		storeOpts:   opts.Store,
		logger:      logger.With().Str("component", "session_manager").Logger(),
	}
}

// StartSession begins indexing filePath in the background.
func (m *Manager) StartSession(fileID, filePath string) (*models.IndexSession, error) {
	m.cleanupOldSessionsIfNeeded()

	sessionID := uuid.New().String()
	session := models.NewIndexSession(sessionID, fileID)
	session.Status = models.SessionStatusIndexing

	m.mu.Lock()
	m.sessions[sessionID] = &sessionState{
		session:      session,
		filePath:     filePath,
		lastAccessed: time.Now(),
	}
	snapshot := *session
	m.mu.Unlock()

	go m.runIndex(sessionID, filePath)
	return &snapshot, nil
}

func (m *Manager) runIndex(sessionID, filePath string) {
	log := m.logger.With().Str("session", shortID(sessionID)).Logger()

	// store stays owned here until the session takes it.
	var store *parser.MessageStore
	defer func() {
		if r := recover(); r != nil {
			if store != nil {
				store.Close()
			}
			log.Error().Interface("panic", r).Msg("Indexing panicked")
			m.updateSessionError(sessionID, fmt.Sprintf("indexing panicked: %v", r))
		}
	}()

	start := time.Now()
	log.Info().Str("file", filePath).Msg("Starting index")

	store, err := parser.NewMessageStore(m.tempDir, sessionID, m.storeOpts, m.logger)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create message store")
		m.updateSessionError(sessionID, fmt.Sprintf("failed to create storage: %v", err))
		return
	}

	progressCb := func(lines int, bytesRead, totalBytes int64) {
		progress := 0.0
		if totalBytes > 0 {
			progress = float64(bytesRead) * 90.0 / float64(totalBytes)
		}
		// 90-100% is reserved for finalization
		if progress > 89.9 {
			progress = 89.9
		}
		m.mu.Lock()
		if state, ok := m.sessions[sessionID]; ok {
			state.session.Progress = progress
			state.session.LineCount = lines
		}
		m.mu.Unlock()
	}

	stats, indexErrors, err := m.indexer.IndexFile(filePath, store, progressCb)
	if err == nil {
		err = store.Finalize()
	}
	if err != nil {
		store.Close()
		log.Error().Err(err).Msg("Indexing failed")
		m.updateSessionError(sessionID, fmt.Sprintf("indexing failed: %v", err))
		return
	}

	types, err := store.MessageTypes(context.Background())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count message types")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		// Session was removed while indexing.
		store.Close()
		return
	}
	state.store, store = store, nil
	state.session.Status = models.SessionStatusComplete
	state.session.Progress = 100
	state.session.LineCount = stats.Lines
	state.session.MessageCount = state.store.Len()
	state.session.MessageTypeCount = len(types)
	state.session.ProcessingTimeMs = time.Since(start).Milliseconds()
	state.session.Errors = indexErrors

	log.Info().
		Int("lines", stats.Lines).
		Int("messages", state.store.Len()).
		Int("errors", len(indexErrors)).
		Dur("took", time.Since(start)).
		Msg("Index complete")
}

func (m *Manager) updateSessionError(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	state.session.Status = models.SessionStatusError
	state.session.Errors = append(state.session.Errors, models.IndexError{Reason: reason})
}

func isFinished(s *models.IndexSession) bool {
	return s.Status == models.SessionStatusComplete || s.Status == models.SessionStatusError
}

// cleanupOldSessionsIfNeeded drops the least recently used finished sessions
// once the manager is at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.sessions) >= m.maxSessions {
		var oldestID string
		var oldest time.Time
		for id, state := range m.sessions {
			if !isFinished(state.session) {
				continue
			}
			if oldestID == "" || state.lastAccessed.Before(oldest) {
				oldestID, oldest = id, state.lastAccessed
			}
		}
		if oldestID == "" {
			return
		}
		m.removeLocked(oldestID)
		m.logger.Info().Str("session", shortID(oldestID)).Msg("Evicted session to stay under capacity")
	}
}

// CleanupOldSessions removes finished sessions not accessed within maxAge,
// sparing any used within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	removed := 0
	for id, state := range m.sessions {
		if !isFinished(state.session) {
			continue
		}
		if state.lastAccessed.After(keepAliveCutoff) || state.lastAccessed.After(cutoff) {
			continue
		}
		m.removeLocked(id)
		removed++
		m.logger.Info().
			Str("session", shortID(id)).
			Dur("idle", now.Sub(state.lastAccessed).Round(time.Second)).
			Msg("Cleaned up aged session")
	}
	return removed
}

func (m *Manager) removeLocked(id string) {
	if state, ok := m.sessions[id]; ok {
		if state.store != nil {
			state.store.Close()
		}
		delete(m.sessions, id)
	}
}

// GetSession returns a snapshot of a session by ID.
func (m *Manager) GetSession(id string) (*models.IndexSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	snapshot := *state.session
	snapshot.Errors = append([]models.IndexError(nil), state.session.Errors...)
	return &snapshot, true
}

// TouchSession marks a session as in use, protecting it from cleanup.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.lastAccessed = time.Now()
	return true
}

// ErrSessionNotReady is returned for queries against a session that is
// unknown or still indexing.
var ErrSessionNotReady = errors.New("session not found or not ready")

func (m *Manager) readyStore(id string) (*parser.MessageStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok || state.store == nil {
		return nil, ErrSessionNotReady
	}
	state.lastAccessed = time.Now()
	return state.store, nil
}

// QueryMessages returns one page of a session's messages.
func (m *Manager) QueryMessages(ctx context.Context, id string, q parser.MessageQuery, page, pageSize int) ([]models.MessageEntry, int, error) {
	store, err := m.readyStore(id)
	if err != nil {
		return nil, 0, err
	}
	return store.Query(ctx, q, page, pageSize)
}

// GetMessage returns a single indexed message.
func (m *Manager) GetMessage(ctx context.Context, id string, msgID int) (models.MessageEntry, error) {
	store, err := m.readyStore(id)
	if err != nil {
		return models.MessageEntry{}, err
	}
	return store.Get(ctx, msgID)
}

// MessageTypes returns per-MsgType counts for a session.
func (m *Manager) MessageTypes(ctx context.Context, id string) ([]models.MessageTypeCount, error) {
	store, err := m.readyStore(id)
	if err != nil {
		return nil, err
	}
	return store.MessageTypes(ctx)
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close releases every session's store.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.sessions {
		m.removeLocked(id)
	}
}

// shortID truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
