// Package repository defines the persistence contracts consumed by the
// service layer and the edit-lock coordinator. Implementations live in
// subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/storycollab/internal/model"
)

// StoryRepository owns persisted stories, including the edit-lock columns.
//
// The three lock-transition methods (AcquireLock, ReleaseLock, UpdateContent)
// carry the atomicity contract: each must be a single atomic
// read-modify-write against the story row. Two racing calls must never both
// observe the precondition as satisfied: one wins, the other gets the
// domain error. A read-then-write sequence across two round trips does not
// satisfy this contract.
type StoryRepository interface {
	Create(ctx context.Context, story *model.Story) error
	GetByID(ctx context.Context, id string) (*model.Story, error)
	// List returns all stories, newest first, with AuthorName resolved.
	List(ctx context.Context) ([]model.Story, error)

	// AcquireLock atomically locks the story for userID. Succeeds when the
	// story is unlocked or already locked by the same user (re-entrant).
	// Returns ErrLockHeld when another user holds the lock, ErrNotFound
	// when the story does not exist.
	AcquireLock(ctx context.Context, storyID, userID string) error

	// ReleaseLock atomically unlocks the story, but only when userID is the
	// current holder. Returns ErrNotCurrentEditor otherwise (including when
	// the story is not locked at all), ErrNotFound for a missing story.
	ReleaseLock(ctx context.Context, storyID, userID string) error

	// UpdateContent atomically persists the author-editable content, but
	// only while userID holds the edit lock; the lock itself stays held.
	// Returns ErrNotCurrentEditor / ErrNotFound like ReleaseLock.
	UpdateContent(ctx context.Context, storyID, userID string, content model.StoryContent) (*model.Story, error)

	// Delete removes a story. Author-only enforcement happens in the
	// service layer.
	Delete(ctx context.Context, id string) error
}

// UserRepository owns registered author accounts. Method names carry the
// User prefix because the sqlite DB implements every repository interface on
// one receiver and the bare names belong to StoryRepository.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserByEmail returns ErrNotFound when no account uses the email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertUserByGitHubID creates or refreshes the account tied to a
	// GitHub identity and returns the stored user.
	UpsertUserByGitHubID(ctx context.Context, user *model.User) (*model.User, error)
	// ListUserSummaries returns every user with their authored-story count.
	ListUserSummaries(ctx context.Context) ([]model.UserSummary, error)
	// DeleteUserCascade removes the user, their stories and their log
	// entries in one transaction. Destructive and non-reversible.
	DeleteUserCascade(ctx context.Context, id string) error
}

// AdminRepository owns administrator accounts.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	GetAdminByID(ctx context.Context, id string) (*model.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	// AdminExistsByEmailOrUsername reports whether any admin already uses
	// the email or the username.
	AdminExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
}

// LogRepository is the append-only activity log store. No update or delete
// is exposed here; the only purge path is UserRepository.DeleteUserCascade.
type LogRepository interface {
	AppendLog(ctx context.Context, entry *model.LogEntry) error
	// ListLogsForStory returns the story's entries, newest first, with
	// UserName resolved.
	ListLogsForStory(ctx context.Context, storyID string) ([]model.LogEntry, error)
	// ListRecentActivity returns the latest entries across all stories
	// with user and story names resolved, for the admin dashboard.
	ListRecentActivity(ctx context.Context, limit int) ([]model.Activity, error)
	// CountLogsByAction returns how many entries record the given action.
	CountLogsByAction(ctx context.Context, action model.Action) (int, error)
}

// StatsRepository provides the aggregate counters for the admin dashboard.
type StatsRepository interface {
	CountUsers(ctx context.Context) (int, error)
	CountStories(ctx context.Context) (int, error)
}
