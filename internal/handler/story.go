// Package handler is the HTTP layer: request parsing, identity extraction
// and response shaping. Business rules live in the service layer.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/storycollab/internal/auth"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/service"
)

// StoryHandler serves the story API, including the editing endpoints that
// drive the lock protocol.
type StoryHandler struct {
	stories *service.StoryService
	logger  *slog.Logger
}

// NewStoryHandler creates a StoryHandler.
func NewStoryHandler(stories *service.StoryService, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{stories: stories, logger: logger}
}

// HandleList returns all stories, newest first.
//
// GET /api/stories
func (h *StoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

// HandleCreate saves a new story authored by the requester.
//
// POST /api/stories
func (h *StoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var content model.StoryContent
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		h.logger.Warn("invalid story JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid JSON body"})
		return
	}

	story, err := h.stories.Create(r.Context(), userID, content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

// HandleGet returns one story. Every successful read is recorded in the
// story's activity log.
//
// GET /api/stories/{id}
func (h *StoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	story, err := h.stories.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// HandleStartEditing claims the story's edit lock for the requester.
//
// PUT /api/stories/{id}/start-editing
func (h *StoryHandler) HandleStartEditing(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.stories.StartEditing(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "You are now the editor")
}

// HandleStopEditing releases the story's edit lock.
//
// PUT /api/stories/{id}/stop-editing
func (h *StoryHandler) HandleStopEditing(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.stories.StopEditing(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Editing stopped")
}

// HandleUpdate commits new content to a story whose lock the requester holds.
// The lock stays held; the client releases it with stop-editing.
//
// PUT /api/stories/{id}
func (h *StoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var content model.StoryContent
	if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
		h.logger.Warn("invalid story JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid JSON body"})
		return
	}

	story, err := h.stories.Update(r.Context(), r.PathValue("id"), userID, content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// HandleDelete removes a story. Author-only.
//
// DELETE /api/stories/{id}
func (h *StoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.stories.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Story deleted")
}

// HandleLogs returns the story's audit trail, newest first.
//
// GET /api/stories/{id}/logs
func (h *StoryHandler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.stories.Logs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
