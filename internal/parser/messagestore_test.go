// messagestore_test.go - Tests for the DuckDB-backed message index
package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/models"
)

// createTestStore creates a temporary MessageStore with a small batch size so
// tests exercise more than one flush.
func createTestStore(t *testing.T) *MessageStore {
	t.Helper()
	store, err := NewMessageStore(t.TempDir(), "test", StoreOptions{BatchSize: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create MessageStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testMessage(line int, msgType, name, sender string) models.MessageEntry {
	return models.MessageEntry{
		LineNumber:   line,
		BeginString:  "FIX.4.4",
		MsgType:      msgType,
		MessageName:  name,
		SenderCompID: sender,
		TargetCompID: "EXCH",
		MsgSeqNum:    int64(line),
		SendingTime:  "20240101-00:00:00",
		FieldCount:   9,
		Raw:          "8=FIX.4.4|35=" + msgType + "|49=" + sender + "|",
	}
}

func fillStore(t *testing.T, store *MessageStore) {
	t.Helper()
	messages := []models.MessageEntry{
		testMessage(1, "A", "Logon", "CLIENT"),
		testMessage(2, "D", "NewOrderSingle", "CLIENT"),
		testMessage(4, "8", "ExecutionReport", "EXCH"),
		testMessage(5, "D", "NewOrderSingle", "CLIENT"),
		testMessage(9, "8", "ExecutionReport", "EXCH"),
	}
	messages[3].TargetCompID = "OTHER"
	messages[4].MessageName = ""
	for _, m := range messages {
		if err := store.Add(m); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := store.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
}

func TestNewMessageStore(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewMessageStore(dir, "file_test", StoreOptions{}, zerolog.Nop())
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		dbPath := filepath.Join(dir, "session_file_test.duckdb")
		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("Expected database file at %s: %v", dbPath, err)
		}
		if store.batchSize != 20000 {
			t.Errorf("Expected default batch size 20000, got %d", store.batchSize)
		}

		store.Close()
		if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
			t.Error("Expected database file to be removed on Close")
		}
	})
}

func TestMessageStoreGet(t *testing.T) {
	store := createTestStore(t)
	fillStore(t, store)
	ctx := context.Background()

	if store.Len() != 5 {
		t.Fatalf("Expected 5 messages, got %d", store.Len())
	}

	got, err := store.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != 2 || got.LineNumber != 4 || got.MsgType != "8" || got.MsgSeqNum != 4 {
		t.Errorf("Unexpected message: %+v", got)
	}

	_, err = store.Get(ctx, 99)
	if !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound, got %v", err)
	}
}

func TestMessageStoreQuery(t *testing.T) {
	store := createTestStore(t)
	fillStore(t, store)
	ctx := context.Background()

	t.Run("all messages paged", func(t *testing.T) {
		page, total, err := store.Query(ctx, MessageQuery{}, 2, 2)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 5 {
			t.Errorf("Expected total 5, got %d", total)
		}
		if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
			t.Errorf("Unexpected page: %+v", page)
		}
	})

	t.Run("filter by msg type", func(t *testing.T) {
		page, total, err := store.Query(ctx, MessageQuery{MsgType: "D"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 2 || len(page) != 2 {
			t.Errorf("Expected 2 NewOrderSingle messages, got total=%d len=%d", total, len(page))
		}
	})

	t.Run("filter by comp ids", func(t *testing.T) {
		_, total, err := store.Query(ctx, MessageQuery{SenderCompID: "CLIENT", TargetCompID: "OTHER"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 1 {
			t.Errorf("Expected 1 message, got %d", total)
		}
	})

	t.Run("comp id filters with colliding concatenation", func(t *testing.T) {
		_, total, err := store.Query(ctx, MessageQuery{SenderCompID: "CLIENT", TargetCompID: "EXCH"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 2 {
			t.Errorf("Expected 2 messages, got %d", total)
		}

		page, total, err := store.Query(ctx, MessageQuery{SenderCompID: "CLIEN", TargetCompID: "TEXCH"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 0 || len(page) != 0 {
			t.Errorf("Expected no matches, got total=%d len=%d", total, len(page))
		}
	})

	t.Run("search raw text", func(t *testing.T) {
		_, total, err := store.Query(ctx, MessageQuery{Search: "49=exch"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 2 {
			t.Errorf("Expected case-insensitive search to match 2, got %d", total)
		}
	})

	t.Run("descending order", func(t *testing.T) {
		page, _, err := store.Query(ctx, MessageQuery{SortDirection: "desc"}, 1, 1)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(page) != 1 || page[0].ID != 4 {
			t.Errorf("Expected last message first, got %+v", page)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		page, total, err := store.Query(ctx, MessageQuery{MsgType: "ZZ"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 0 || len(page) != 0 {
			t.Errorf("Expected empty result, got total=%d len=%d", total, len(page))
		}
	})
}

func TestMessageStoreMessageTypes(t *testing.T) {
	store := createTestStore(t)
	fillStore(t, store)

	counts, err := store.MessageTypes(context.Background())
	if err != nil {
		t.Fatalf("MessageTypes failed: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("Expected 3 message types, got %d", len(counts))
	}
	if counts[0].MsgType != "8" || counts[0].Count != 2 || counts[0].MessageName != "ExecutionReport" {
		t.Errorf("Unexpected first count: %+v", counts[0])
	}
	if counts[2].MsgType != "A" || counts[2].Count != 1 {
		t.Errorf("Unexpected last count: %+v", counts[2])
	}
}

func TestMessageStoreQueryCancelled(t *testing.T) {
	store := createTestStore(t)
	fillStore(t, store)

	// Hold every query slot so the next query has to wait on the context.
	for i := 0; i < cap(store.querySem); i++ {
		store.querySem <- struct{}{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.Query(ctx, MessageQuery{}, 1, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
