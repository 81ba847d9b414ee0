package models

import "time"

// File statuses.
const (
	FileStatusUploaded = "uploaded"
	FileStatusIndexing = "indexing"
	FileStatusIndexed  = "indexed"
	FileStatusError    = "error"
)

// FileInfo represents metadata about an uploaded log file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"`
	SessionID  string    `json:"sessionId,omitempty"`
}
