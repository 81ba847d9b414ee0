package models

// SessionStatus represents the status of an index session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusIndexing SessionStatus = "indexing"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusError    SessionStatus = "error"
)

// IndexSession tracks indexing of the FIX messages in one uploaded log file.
type IndexSession struct {
	ID               string        `json:"id"`
	FileID           string        `json:"fileId"`
	Status           SessionStatus `json:"status"`
	Progress         float64       `json:"progress"` // 0-100
	LineCount        int           `json:"lineCount,omitempty"`
	MessageCount     int           `json:"messageCount,omitempty"`
	MessageTypeCount int           `json:"messageTypeCount,omitempty"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	Errors           []IndexError  `json:"errors,omitempty"`
}

// IndexError represents a line that held a FIX message that could not be read.
type IndexError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// NewIndexSession creates a new IndexSession in pending status.
func NewIndexSession(id, fileID string) *IndexSession {
	return &IndexSession{
		ID:       id,
		FileID:   fileID,
		Status:   SessionStatusPending,
		Progress: 0,
		Errors:   make([]IndexError, 0),
	}
}
