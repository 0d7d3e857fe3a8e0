// Package editlock implements the single-writer editing protocol for
// stories.
//
// Each story's lock is a two-state machine, unlocked or held by exactly one
// user, persisted in the story row itself so it stays correct across
// multiple server processes. The Coordinator never keeps lock state in
// memory: every transition is delegated to the repository's conditional
// updates, which perform the compare-and-swap atomically. Acquire fails fast
// when the lock is held by someone else; there is no wait queue and no
// timeout-based auto-release, so an abandoned lock persists until its holder
// (or an admin cascade) releases it.
//
// Every realized transition is recorded in the activity log. Failed
// transitions are not logged: the audit trail records state changes, not
// attempts. Log writes are best-effort. If appending fails, the transition
// stands and the failure is reported through the structured logger only.
package editlock

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/repository"
)

// Coordinator serializes editing access to stories and keeps the audit
// trail. It owns the isBeingEdited/lastEditedBy pair: no other component
// mutates those fields.
type Coordinator struct {
	stories repository.StoryRepository
	logs    repository.LogRepository
	logger  *slog.Logger
}

// New creates a Coordinator.
func New(stories repository.StoryRepository, logs repository.LogRepository, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		stories: stories,
		logs:    logs,
		logger:  logger,
	}
}

// Create constructs a story in the unlocked state owned by the author and
// records a create entry.
func (c *Coordinator) Create(ctx context.Context, story *model.Story, authorID string) error {
	story.AuthorID = authorID
	if err := c.stories.Create(ctx, story); err != nil {
		return fmt.Errorf("creating story: %w", err)
	}

	c.record(ctx, story.ID, authorID, model.ActionCreate, "")
	return nil
}

// View reads a story and records a view entry. It never touches the lock.
func (c *Coordinator) View(ctx context.Context, storyID, requesterID string) (*model.Story, error) {
	story, err := c.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}

	c.record(ctx, storyID, requesterID, model.ActionView, "")
	return story, nil
}

// Acquire locks the story for the requester.
//
// Unlocked stories become locked by the requester; a repeated acquire by the
// current holder succeeds idempotently (duplicated client requests, e.g. a
// retry after timeout, must not fail spuriously). When another user holds
// the lock the call fails with ErrLockHeld and nothing changes.
func (c *Coordinator) Acquire(ctx context.Context, storyID, requesterID string) error {
	if err := c.stories.AcquireLock(ctx, storyID, requesterID); err != nil {
		return err
	}

	c.record(ctx, storyID, requesterID, model.ActionEdit, model.DetailStartEditing)
	return nil
}

// Release unlocks the story. Only the current holder may release; anyone
// else, including callers of an already-unlocked story, gets
// ErrNotCurrentEditor.
func (c *Coordinator) Release(ctx context.Context, storyID, requesterID string) error {
	if err := c.stories.ReleaseLock(ctx, storyID, requesterID); err != nil {
		return err
	}

	c.record(ctx, storyID, requesterID, model.ActionEdit, model.DetailStopEditing)
	return nil
}

// Commit persists new story content while the requester holds the lock. The
// lock stays held afterwards; releasing is a separate explicit call. Without
// the lock the commit fails with ErrNotCurrentEditor and nothing is mutated.
func (c *Coordinator) Commit(ctx context.Context, storyID, requesterID string, content model.StoryContent) (*model.Story, error) {
	story, err := c.stories.UpdateContent(ctx, storyID, requesterID, content)
	if err != nil {
		return nil, err
	}

	c.record(ctx, storyID, requesterID, model.ActionEdit, model.DetailUpdate)
	return story, nil
}

// Delete removes a story and records a delete entry. Author-only
// authorization is enforced by the caller.
func (c *Coordinator) Delete(ctx context.Context, storyID, requesterID string) error {
	if err := c.stories.Delete(ctx, storyID); err != nil {
		return err
	}

	c.record(ctx, storyID, requesterID, model.ActionDelete, "")
	return nil
}

// record appends an audit entry, best-effort.
func (c *Coordinator) record(ctx context.Context, storyID, userID string, action model.Action, details string) {
	err := c.logs.AppendLog(ctx, &model.LogEntry{
		StoryID: storyID,
		UserID:  userID,
		Action:  action,
		Details: details,
	})
	if err != nil {
		c.logger.Error("activity log write failed",
			slog.String("story_id", storyID),
			slog.String("user_id", userID),
			slog.String("action", string(action)),
			slog.String("details", details),
			slog.String("error", err.Error()),
		)
	}
}
