package parser

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/models"
)

// ErrMessageNotFound is returned by MessageStore.Get for an unknown id.
var ErrMessageNotFound = errors.New("message not found")

// StoreOptions tunes the DuckDB database behind a MessageStore.
type StoreOptions struct {
	MemoryLimit string // e.g. "1GB"
	Threads     int
	BatchSize   int
}

func (o StoreOptions) withDefaults() StoreOptions {
	if o.MemoryLimit == "" {
		o.MemoryLimit = "1GB"
	}
	if o.Threads <= 0 {
		o.Threads = 4
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 20000
	}
	return o
}

// MessageStore keeps the messages of one indexed log file in a temporary
// DuckDB file so that large logs can be browsed without holding them in RAM.
// Add and Finalize must be called from a single goroutine; queries are safe
// for concurrent use once Finalize has returned.
type MessageStore struct {
	db        *sql.DB
	dbPath    string
	count     int
	batchSize int
	batch     []models.MessageEntry
	logger    zerolog.Logger

	// Cache for total counts by filter to avoid repeated COUNT queries
	countCache   map[string]int
	countCacheMu sync.RWMutex

	// Limits concurrent queries while a client pages quickly
	querySem chan struct{}
}

// NewMessageStore creates a store for sessionID inside tempDir.
func NewMessageStore(tempDir, sessionID string, opts StoreOptions, logger zerolog.Logger) (*MessageStore, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("session_%s.duckdb", sessionID))
	return NewMessageStoreAtPath(dbPath, opts, logger)
}

// NewMessageStoreAtPath creates a store backed by the database file at dbPath.
func NewMessageStoreAtPath(dbPath string, opts StoreOptions, logger zerolog.Logger) (*MessageStore, error) {
	opts = opts.withDefaults()
	logger = logger.With().Str("component", "message_store").Str("db", dbPath).Logger()

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE messages (
			id             INTEGER PRIMARY KEY,
			line_number    INTEGER NOT NULL,
			begin_string   VARCHAR NOT NULL,
			msg_type       VARCHAR NOT NULL,
			message_name   VARCHAR,
			sender_comp_id VARCHAR,
			target_comp_id VARCHAR,
			msg_seq_num    BIGINT,
			sending_time   VARCHAR,
			field_count    INTEGER NOT NULL,
			raw            VARCHAR NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Indexes are created in Finalize, after the bulk insert.
	logger.Debug().Msg("Message store ready for inserts")
	return &MessageStore{
		db:         db,
		dbPath:     dbPath,
		batchSize:  opts.BatchSize,
		batch:      make([]models.MessageEntry, 0, opts.BatchSize),
		logger:     logger,
		countCache: make(map[string]int),
		querySem:   make(chan struct{}, 3),
	}, nil
}

// Add assigns the next id to entry and queues it for insertion.
func (ms *MessageStore) Add(entry models.MessageEntry) error {
	entry.ID = ms.count
	ms.batch = append(ms.batch, entry)
	ms.count++

	if len(ms.batch) >= ms.batchSize {
		return ms.flushBatch()
	}
	return nil
}

// flushBatch writes the pending batch with the DuckDB Appender API.
func (ms *MessageStore) flushBatch() error {
	if len(ms.batch) == 0 {
		return nil
	}
	start := time.Now()

	conn, err := ms.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "messages")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for _, e := range ms.batch {
			err := appender.AppendRow(
				int32(e.ID),
				int32(e.LineNumber),
				e.BeginString,
				e.MsgType,
				e.MessageName,
				e.SenderCompID,
				e.TargetCompID,
				e.MsgSeqNum,
				e.SendingTime,
				int32(e.FieldCount),
				e.Raw,
			)
			if err != nil {
				return fmt.Errorf("failed to append message %d: %w", e.ID, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	ms.logger.Debug().Int("rows", len(ms.batch)).Dur("took", time.Since(start)).Msg("Flushed batch")
	ms.batch = ms.batch[:0]
	return nil
}

// Finalize flushes any remaining entries and creates indexes.
func (ms *MessageStore) Finalize() error {
	if err := ms.flushBatch(); err != nil {
		return err
	}
	start := time.Now()
	if _, err := ms.db.Exec("CREATE INDEX idx_msg_type ON messages(msg_type)"); err != nil {
		return fmt.Errorf("idx_msg_type creation failed: %w", err)
	}
	if ms.count > 100000 {
		if _, err := ms.db.Exec("CREATE INDEX idx_sender_target ON messages(sender_comp_id, target_comp_id)"); err != nil {
			ms.logger.Warn().Err(err).Msg("idx_sender_target creation failed")
		}
	}
	ms.logger.Info().Int("messages", ms.count).Dur("took", time.Since(start)).Msg("Message store finalized")
	return nil
}

// Len returns the number of messages added.
func (ms *MessageStore) Len() int {
	return ms.count
}

const messageColumns = `id, line_number, begin_string, msg_type, message_name, sender_comp_id,
	target_comp_id, msg_seq_num, sending_time, field_count, raw`

// Get returns the message with the given id.
func (ms *MessageStore) Get(ctx context.Context, id int) (models.MessageEntry, error) {
	row := ms.db.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	e, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageEntry{}, fmt.Errorf("%w: %d", ErrMessageNotFound, id)
	}
	return e, err
}

// MessageQuery filters and sorts message listings.
type MessageQuery struct {
	MsgType       string
	SenderCompID  string
	TargetCompID  string
	Search        string
	SortDirection string // "asc" or "desc"
}

// countCacheKey quotes every argument so that adjacent string values cannot
// run together into another filter's key.
func countCacheKey(where string, args []interface{}) string {
	if where == "" {
		return "__total__"
	}
	return where + "\x00" + fmt.Sprintf("%q", args)
}

// Query returns one page of matching messages and the total match count.
// Pages are 1-based.
func (ms *MessageStore) Query(ctx context.Context, q MessageQuery, page, pageSize int) ([]models.MessageEntry, int, error) {
	select {
	case ms.querySem <- struct{}{}:
		defer func() { <-ms.querySem }()
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	where, args := buildMessageWhere(q)
	cacheKey := countCacheKey(where, args)

	ms.countCacheMu.RLock()
	total, found := ms.countCache[cacheKey]
	ms.countCacheMu.RUnlock()
	if !found {
		countQuery := "SELECT COUNT(*) FROM messages"
		if where != "" {
			countQuery += " WHERE " + where
		}
		if err := ms.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count query failed: %w", err)
		}
		ms.countCacheMu.Lock()
		ms.countCache[cacheKey] = total
		ms.countCacheMu.Unlock()
	}
	if total == 0 {
		return []models.MessageEntry{}, 0, nil
	}

	dir := "ASC"
	if strings.EqualFold(q.SortDirection, "desc") {
		dir = "DESC"
	}
	query := "SELECT " + messageColumns + " FROM messages"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY id " + dir + " LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := ms.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("message query failed: %w", err)
	}
	defer rows.Close()

	entries := make([]models.MessageEntry, 0, pageSize)
	for rows.Next() {
		e, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func buildMessageWhere(q MessageQuery) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if q.MsgType != "" {
		clauses = append(clauses, "msg_type = ?")
		args = append(args, q.MsgType)
	}
	if q.SenderCompID != "" {
		clauses = append(clauses, "sender_comp_id = ?")
		args = append(args, q.SenderCompID)
	}
	if q.TargetCompID != "" {
		clauses = append(clauses, "target_comp_id = ?")
		args = append(args, q.TargetCompID)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		clauses = append(clauses, "(raw ILIKE ? OR message_name ILIKE ?)")
		args = append(args, pattern, pattern)
	}
	return strings.Join(clauses, " AND "), args
}

// MessageTypes returns per-MsgType counts, most frequent first.
func (ms *MessageStore) MessageTypes(ctx context.Context) ([]models.MessageTypeCount, error) {
	rows, err := ms.db.QueryContext(ctx, `
		SELECT msg_type, MAX(message_name), COUNT(*) AS n
		FROM messages GROUP BY msg_type ORDER BY n DESC, msg_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.MessageTypeCount, 0)
	for rows.Next() {
		var c models.MessageTypeCount
		var name sql.NullString
		if err := rows.Scan(&c.MsgType, &name, &c.Count); err != nil {
			return nil, err
		}
		c.MessageName = name.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the database and removes its file.
func (ms *MessageStore) Close() error {
	var err error
	if ms.db != nil {
		err = ms.db.Close()
	}
	if ms.dbPath != "" {
		os.Remove(ms.dbPath)
		os.Remove(ms.dbPath + ".wal")
	}
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (models.MessageEntry, error) {
	var (
		e                                 models.MessageEntry
		name, sender, target, sendingTime sql.NullString
		seqNum                            sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.LineNumber, &e.BeginString, &e.MsgType, &name, &sender,
		&target, &seqNum, &sendingTime, &e.FieldCount, &e.Raw)
	if err != nil {
		return models.MessageEntry{}, err
	}
	e.MessageName = name.String
	e.SenderCompID = sender.String
	e.TargetCompID = target.String
	e.MsgSeqNum = seqNum.Int64
	e.SendingTime = sendingTime.String
	return e, nil
}
