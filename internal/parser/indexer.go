package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/models"
)

const (
	maxScannerBuffer = 1024 * 1024 // 1MB
	maxIndexErrors   = 1000
	maxErrorContent  = 256
)

// MessageSink receives the messages found by an Indexer.
type MessageSink interface {
	Add(entry models.MessageEntry) error
}

// IndexStats summarizes one indexing run.
type IndexStats struct {
	Lines    int
	Messages int
	Bytes    int64
}

// Indexer scans log files for embedded FIX messages and records a summary of
// each one. Names are resolved through the registry when one is set.
type Indexer struct {
	registry *Registry
	intern   *StringIntern
	logger   zerolog.Logger
}

func NewIndexer(registry *Registry, logger zerolog.Logger) *Indexer {
	return &Indexer{
		registry: registry,
		intern:   NewStringIntern(0),
		logger:   logger.With().Str("component", "fix_indexer").Logger(),
	}
}

// IndexFile indexes the log file at path into sink.
func (ix *Indexer) IndexFile(path string, sink MessageSink, onProgress ProgressCallback) (IndexStats, []models.IndexError, error) {
	file, err := os.Open(path)
	if err != nil {
		return IndexStats{}, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return IndexStats{}, nil, fmt.Errorf("failed to stat log file: %w", err)
	}
	return ix.Index(file, info.Size(), sink, onProgress)
}

// Index reads lines from r. Lines without a FIX message are skipped; lines
// whose message cannot be tokenized are reported as IndexErrors (the first
// maxIndexErrors of them). A sink failure aborts the run.
func (ix *Indexer) Index(r io.Reader, totalBytes int64, sink MessageSink, onProgress ProgressCallback) (IndexStats, []models.IndexError, error) {
	var stats IndexStats
	indexErrors := make([]models.IndexError, 0)
	var lastProgress int64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, maxScannerBuffer), maxScannerBuffer)

	for scanner.Scan() {
		line := scanner.Text()
		stats.Lines++
		stats.Bytes += int64(len(line)) + 1

		entry, err := ix.entry(line, stats.Lines)
		switch {
		case errors.Is(err, ErrNoEmbeddedMessage):
		case err != nil:
			if len(indexErrors) < maxIndexErrors {
				indexErrors = append(indexErrors, models.IndexError{
					Line:    stats.Lines,
					Content: truncate(line, maxErrorContent),
					Reason:  err.Error(),
				})
			}
		default:
			if err := sink.Add(entry); err != nil {
				return stats, indexErrors, fmt.Errorf("failed to store message at line %d: %w", stats.Lines, err)
			}
			stats.Messages++
		}

		if onProgress != nil && totalBytes > 0 && stats.Bytes-lastProgress > totalBytes/100 {
			lastProgress = stats.Bytes
			onProgress(stats.Lines, stats.Bytes, totalBytes)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, indexErrors, fmt.Errorf("failed to read log: %w", err)
	}
	if onProgress != nil {
		onProgress(stats.Lines, stats.Bytes, totalBytes)
	}

	ix.logger.Info().
		Int("lines", stats.Lines).
		Int("messages", stats.Messages).
		Int("errors", len(indexErrors)).
		Msg("Indexed log")
	return stats, indexErrors, nil
}

func (ix *Indexer) entry(line string, lineNumber int) (models.MessageEntry, error) {
	tokens, err := Extract(line)
	if err != nil {
		return models.MessageEntry{}, err
	}
	msgType, ok := FieldValue(tokens, TagMsgType)
	if !ok {
		return models.MessageEntry{}, fmt.Errorf("%w: message has no MsgType", ErrUnknownMessageType)
	}
	beginString, _ := FieldValue(tokens, TagBeginString)

	entry := models.MessageEntry{
		LineNumber:  lineNumber,
		BeginString: ix.intern.Intern(beginString),
		MsgType:     ix.intern.Intern(msgType),
		FieldCount:  len(tokens),
		Raw:         line,
	}
	if v, ok := FieldValue(tokens, TagSenderCompID); ok {
		entry.SenderCompID = ix.intern.Intern(v)
	}
	if v, ok := FieldValue(tokens, TagTargetCompID); ok {
		entry.TargetCompID = ix.intern.Intern(v)
	}
	if v, ok := FieldValue(tokens, TagMsgSeqNum); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			entry.MsgSeqNum = n
		}
	}
	if v, ok := FieldValue(tokens, TagSendingTime); ok {
		entry.SendingTime = v
	}

	if ix.registry != nil {
		if s, _, err := ix.registry.Resolve(tokens); err == nil {
			if root, ok := s.Message(msgType); ok {
				entry.MessageName = ix.intern.Intern(root.Name())
			}
		}
	}
	return entry, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
