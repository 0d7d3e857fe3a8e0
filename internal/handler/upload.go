package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/storycollab/internal/media"
)

// UploadHandler accepts story image uploads and returns their public URLs.
type UploadHandler struct {
	store   *media.Store
	maxSize int64
	logger  *slog.Logger
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(store *media.Store, maxSize int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{store: store, maxSize: maxSize, logger: logger}
}

// HandleUpload saves one image from the multipart "image" field.
//
// POST /api/upload
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Cap the whole request body; a small allowance covers the multipart
	// framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+4096)

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "An image file is required"})
		return
	}
	defer file.Close()

	url, err := h.store.Save(file, header)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("image uploaded",
		slog.String("url", url),
		slog.Int64("size", header.Size),
	)

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
