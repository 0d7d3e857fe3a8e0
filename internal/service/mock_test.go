package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/storycollab/internal/apperror"
	"github.com/sakif/storycollab/internal/model"
)

// In-memory repository fakes. They mirror the conditional-update semantics of
// the sqlite implementation so the services are exercised against the same
// contract.

type mockStoryRepo struct {
	stories map[string]*model.Story
	nextID  int
}

func newMockStoryRepo() *mockStoryRepo {
	return &mockStoryRepo{stories: map[string]*model.Story{}}
}

func (m *mockStoryRepo) Create(_ context.Context, story *model.Story) error {
	m.nextID++
	story.ID = fmt.Sprintf("story-%d", m.nextID)
	stored := *story
	m.stories[story.ID] = &stored
	return nil
}

func (m *mockStoryRepo) GetByID(_ context.Context, id string) (*model.Story, error) {
	story, ok := m.stories[id]
	if !ok {
		return nil, apperror.NotFound("story", id)
	}
	result := *story
	return &result, nil
}

func (m *mockStoryRepo) List(_ context.Context) ([]model.Story, error) {
	result := make([]model.Story, 0, len(m.stories))
	for _, s := range m.stories {
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockStoryRepo) AcquireLock(_ context.Context, storyID, userID string) error {
	story, ok := m.stories[storyID]
	if !ok {
		return apperror.NotFound("story", storyID)
	}
	if story.Lock.Held() && !story.Lock.HeldBy(userID) {
		return apperror.LockHeld(storyID)
	}
	story.Lock = model.LockedBy(userID)
	return nil
}

func (m *mockStoryRepo) ReleaseLock(_ context.Context, storyID, userID string) error {
	story, ok := m.stories[storyID]
	if !ok {
		return apperror.NotFound("story", storyID)
	}
	if !story.Lock.HeldBy(userID) {
		return apperror.NotCurrentEditor()
	}
	story.Lock = model.LockState{}
	return nil
}

func (m *mockStoryRepo) UpdateContent(_ context.Context, storyID, userID string, content model.StoryContent) (*model.Story, error) {
	story, ok := m.stories[storyID]
	if !ok {
		return nil, apperror.NotFound("story", storyID)
	}
	if !story.Lock.HeldBy(userID) {
		return nil, apperror.NotCurrentEditor()
	}
	story.Title = content.Title
	story.MainText = content.MainText
	story.Tags = content.Tags
	story.Snapshots = content.Snapshots
	result := *story
	return &result, nil
}

func (m *mockStoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.stories[id]; !ok {
		return apperror.NotFound("story", id)
	}
	delete(m.stories, id)
	return nil
}

type mockLogRepo struct {
	entries []model.LogEntry
}

func (m *mockLogRepo) AppendLog(_ context.Context, entry *model.LogEntry) error {
	entry.ID = fmt.Sprintf("log-%d", len(m.entries)+1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockLogRepo) ListLogsForStory(_ context.Context, storyID string) ([]model.LogEntry, error) {
	result := []model.LogEntry{}
	for _, e := range m.entries {
		if e.StoryID == storyID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockLogRepo) ListRecentActivity(_ context.Context, limit int) ([]model.Activity, error) {
	result := []model.Activity{}
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		e := m.entries[i]
		result = append(result, model.Activity{
			ID: e.ID, UserID: e.UserID, StoryID: e.StoryID,
			Action: e.Action, Details: e.Details, Timestamp: e.Timestamp,
		})
	}
	return result, nil
}

func (m *mockLogRepo) CountLogsByAction(_ context.Context, action model.Action) (int, error) {
	n := 0
	for _, e := range m.entries {
		if e.Action == action {
			n++
		}
	}
	return n, nil
}

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{}}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("User already exists")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) UpsertUserByGitHubID(ctx context.Context, user *model.User) (*model.User, error) {
	for _, u := range m.users {
		if u.GitHubID == user.GitHubID {
			u.Name = user.Name
			u.Email = user.Email
			result := *u
			return &result, nil
		}
	}
	if err := m.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (m *mockUserRepo) ListUserSummaries(_ context.Context) ([]model.UserSummary, error) {
	result := []model.UserSummary{}
	for _, u := range m.users {
		result = append(result, model.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return result, nil
}

func (m *mockUserRepo) DeleteUserCascade(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

type mockAdminRepo struct {
	admins map[string]*model.Admin
	nextID int
}

func newMockAdminRepo() *mockAdminRepo {
	return &mockAdminRepo{admins: map[string]*model.Admin{}}
}

func (m *mockAdminRepo) CreateAdmin(_ context.Context, admin *model.Admin) error {
	m.nextID++
	admin.ID = fmt.Sprintf("admin-%d", m.nextID)
	stored := *admin
	m.admins[admin.ID] = &stored
	return nil
}

func (m *mockAdminRepo) GetAdminByID(_ context.Context, id string) (*model.Admin, error) {
	admin, ok := m.admins[id]
	if !ok {
		return nil, apperror.NotFound("admin", id)
	}
	result := *admin
	return &result, nil
}

func (m *mockAdminRepo) GetAdminByEmail(_ context.Context, email string) (*model.Admin, error) {
	for _, a := range m.admins {
		if a.Email == email {
			result := *a
			return &result, nil
		}
	}
	return nil, apperror.NotFound("admin", email)
}

func (m *mockAdminRepo) AdminExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	for _, a := range m.admins {
		if a.Email == email || a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type mockStatsRepo struct {
	users   int
	stories int
}

func (m *mockStatsRepo) CountUsers(context.Context) (int, error)   { return m.users, nil }
func (m *mockStatsRepo) CountStories(context.Context) (int, error) { return m.stories, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
