// handlers_files.go - Uploaded log file handlers
package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fix-logviewer/backend/internal/models"
	"github.com/fix-logviewer/backend/internal/storage"
)

const (
	recentFilesLimit = 20
	maxChunkCount    = 100000
)

// FileOptions carries the security settings that apply to uploaded files.
type FileOptions struct {
	// AllowedTypes is a comma separated extension list such as ".log,.txt".
	// Empty allows every extension.
	AllowedTypes string
	AllowDelete  bool
}

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store        storage.Store
	allowedTypes map[string]bool
	allowDelete  bool
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store storage.Store, opts FileOptions) FileHandler {
	return &FileHandlerImpl{
		store:        store,
		allowedTypes: parseAllowedTypes(opts.AllowedTypes),
		allowDelete:  opts.AllowDelete,
	}
}

func parseAllowedTypes(raw string) map[string]bool {
	types := make(map[string]bool)
	for _, ext := range strings.Split(raw, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		types[ext] = true
	}
	return types
}

func (h *FileHandlerImpl) checkFileType(name string) error {
	if len(h.allowedTypes) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !h.allowedTypes[ext] {
		return NewBadRequestError(fmt.Sprintf("file type %q is not allowed", ext), nil)
	}
	return nil
}

// HandleUploadFile accepts a multipart log file upload
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if err := h.checkFileType(file.Filename); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleUploadChunk accepts one chunk of a chunked upload as multipart form
// fields uploadId and chunkIndex plus a chunk file part.
func (h *FileHandlerImpl) HandleUploadChunk(c echo.Context) error {
	uploadID := c.FormValue("uploadId")
	if uploadID == "" {
		return NewValidationError("uploadId")
	}
	chunkIndex, err := strconv.Atoi(c.FormValue("chunkIndex"))
	if err != nil || chunkIndex < 0 || chunkIndex >= maxChunkCount {
		return NewValidationError("chunkIndex")
	}

	file, err := c.FormFile("chunk")
	if err != nil {
		return NewBadRequestError("no chunk provided", err)
	}
	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open chunk", err)
	}
	defer src.Close()

	if err := h.store.SaveChunk(uploadID, chunkIndex, src); err != nil {
		return NewInternalError("failed to save chunk", err)
	}

	return c.NoContent(http.StatusAccepted)
}

// HandleCompleteUpload assembles the chunks of a chunked upload into one file
func (h *FileHandlerImpl) HandleCompleteUpload(c echo.Context) error {
	var req completeUploadRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}
	if err := h.checkFileType(req.Name); err != nil {
		return err
	}

	info, err := h.store.CompleteChunkedUpload(req.UploadID, req.Name, req.TotalChunks)
	if err != nil {
		return NewBadRequestError("failed to assemble upload", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns the most recently uploaded log files
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	files, err := h.store.List(recentFilesLimit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	if files == nil {
		files = []*models.FileInfo{}
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return domainError(err, "file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes an uploaded file when deletion is enabled
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	if !h.allowDelete {
		return NewForbiddenError("file deletion is disabled")
	}

	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return domainError(err, "file", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the name of a file
func (h *FileHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return domainError(err, "file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// Request types

type completeUploadRequest struct {
	UploadID    string `json:"uploadId"`
	Name        string `json:"name"`
	TotalChunks int    `json:"totalChunks"`
}

func (r *completeUploadRequest) validate() error {
	if r.UploadID == "" {
		return NewValidationError("uploadId")
	}
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.TotalChunks <= 0 || r.TotalChunks > maxChunkCount {
		return NewBadRequestError("totalChunks out of range", nil)
	}
	return nil
}

type renameFileRequest struct {
	Name string `json:"name"`
}
