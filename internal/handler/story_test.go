package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/storycollab/internal/auth"
	"github.com/sakif/storycollab/internal/editlock"
	"github.com/sakif/storycollab/internal/handler"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/repository/sqlite"
	"github.com/sakif/storycollab/internal/service"
)

// testAPI wires handlers, services and a real sqlite store behind a chi
// router, the same shape the server uses.
type testAPI struct {
	router *chi.Mux
	auth   *service.AuthService
	tokens *auth.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", "storycollab", time.Hour, time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	coordinator := editlock.New(db, db, logger)
	storySvc := service.NewStoryService(coordinator, db, db, logger)
	authSvc := service.NewAuthService(db, tokens, passwords, logger)

	storyHandler := handler.NewStoryHandler(storySvc, logger)

	r := chi.NewRouter()
	r.Route("/api/stories", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/", storyHandler.HandleList)
		r.Post("/", storyHandler.HandleCreate)
		r.Get("/{id}", storyHandler.HandleGet)
		r.Put("/{id}", storyHandler.HandleUpdate)
		r.Delete("/{id}", storyHandler.HandleDelete)
		r.Put("/{id}/start-editing", storyHandler.HandleStartEditing)
		r.Put("/{id}/stop-editing", storyHandler.HandleStopEditing)
		r.Get("/{id}/logs", storyHandler.HandleLogs)
	})

	return &testAPI{router: r, auth: authSvc, tokens: tokens}
}

// registerUser creates an account and returns its ID and bearer token.
func (api *testAPI) registerUser(t *testing.T, name, email string) (string, string) {
	t.Helper()
	result, err := api.auth.Register(t.Context(), name, email, "long enough password")
	require.NoError(t, err)
	return result.User.ID, result.Token
}

func (api *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

func decodeStory(t *testing.T, rr *httptest.ResponseRecorder) model.Story {
	t.Helper()
	var story model.Story
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&story))
	return story
}

func TestStoryAPI_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/stories", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStoryAPI_CreateAndGet(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ada", "ada@example.com")

	rr := api.do(t, http.MethodPost, "/api/stories", token, model.StoryContent{
		Title:    "The Voyage",
		MainText: "Chapter one.",
		Tags:     []string{"adventure"},
		Snapshots: []model.Snapshot{
			{Text: "later", Order: 2},
			{Text: "first", Order: 1},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeStory(t, rr)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "The Voyage", created.Title)

	rr = api.do(t, http.MethodGet, "/api/stories/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeStory(t, rr)
	assert.Equal(t, "Ada", got.AuthorName)
	// Snapshots come back sorted by order.
	require.Len(t, got.Snapshots, 2)
	assert.Equal(t, "first", got.Snapshots[0].Text)

	rr = api.do(t, http.MethodGet, "/api/stories/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStoryAPI_EditingProtocol(t *testing.T) {
	api := newTestAPI(t)
	_, ada := api.registerUser(t, "Ada", "ada@example.com")
	_, bob := api.registerUser(t, "Bob", "bob@example.com")

	rr := api.do(t, http.MethodPost, "/api/stories", ada, model.StoryContent{Title: "draft"})
	require.Equal(t, http.StatusCreated, rr.Code)
	story := decodeStory(t, rr)
	base := "/api/stories/" + story.ID

	// Update without the lock is refused.
	rr = api.do(t, http.MethodPut, base, ada, model.StoryContent{Title: "v2"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "You are not the current editor")

	rr = api.do(t, http.MethodPut, base+"/start-editing", ada, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":true`)

	// Second editor is turned away with the canonical message.
	rr = api.do(t, http.MethodPut, base+"/start-editing", bob, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Story is being edited by another user")

	// Holder re-acquires without error.
	rr = api.do(t, http.MethodPut, base+"/start-editing", ada, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Holder commits; the lock stays held, so a second commit also works.
	rr = api.do(t, http.MethodPut, base, ada, model.StoryContent{Title: "v2", MainText: "more"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "v2", decodeStory(t, rr).Title)
	rr = api.do(t, http.MethodPut, base, ada, model.StoryContent{Title: "v3"})
	assert.Equal(t, http.StatusOK, rr.Code)

	// Non-holder cannot release.
	rr = api.do(t, http.MethodPut, base+"/stop-editing", bob, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "You are not the current editor")

	rr = api.do(t, http.MethodPut, base+"/stop-editing", ada, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// Now the lock is free for the next editor.
	rr = api.do(t, http.MethodPut, base+"/start-editing", bob, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStoryAPI_DeleteIsAuthorOnly(t *testing.T) {
	api := newTestAPI(t)
	_, ada := api.registerUser(t, "Ada", "ada@example.com")
	_, bob := api.registerUser(t, "Bob", "bob@example.com")

	rr := api.do(t, http.MethodPost, "/api/stories", ada, model.StoryContent{Title: "mine"})
	require.Equal(t, http.StatusCreated, rr.Code)
	story := decodeStory(t, rr)

	rr = api.do(t, http.MethodDelete, "/api/stories/"+story.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodDelete, "/api/stories/"+story.ID, ada, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/stories/"+story.ID, ada, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStoryAPI_Logs(t *testing.T) {
	api := newTestAPI(t)
	_, ada := api.registerUser(t, "Ada", "ada@example.com")

	rr := api.do(t, http.MethodPost, "/api/stories", ada, model.StoryContent{Title: "t"})
	require.Equal(t, http.StatusCreated, rr.Code)
	story := decodeStory(t, rr)
	base := "/api/stories/" + story.ID

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPut, base+"/start-editing", ada, nil).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPut, base, ada, model.StoryContent{Title: "t2"}).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPut, base+"/stop-editing", ada, nil).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, base, ada, nil).Code)

	rr = api.do(t, http.MethodGet, base+"/logs", ada, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []model.LogEntry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&entries))
	// create + start_editing + update + stop_editing + view, newest first.
	require.Len(t, entries, 5)
	assert.Equal(t, model.ActionView, entries[0].Action)
	assert.Equal(t, model.ActionCreate, entries[len(entries)-1].Action)
	for _, e := range entries {
		assert.Equal(t, "Ada", e.UserName)
	}
}

func TestStoryAPI_ValidationError(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ada", "ada@example.com")

	rr := api.do(t, http.MethodPost, "/api/stories", token, model.StoryContent{Title: "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "title is required")
}
