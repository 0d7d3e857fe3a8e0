// Package service contains the business logic layer: validation, permission
// rules and orchestration between handlers and repositories.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/storycollab/internal/apperror"
	"github.com/sakif/storycollab/internal/editlock"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/repository"
)

const (
	MaxTitleLength    = 200
	MaxMainTextLength = 200000
	MaxSnapshots      = 500
)

// StoryService handles the story lifecycle. All reads and all mutations go
// through the edit-lock coordinator so the audit trail stays complete; this
// service adds validation and the author-only delete rule on top.
type StoryService struct {
	coordinator *editlock.Coordinator
	stories     repository.StoryRepository
	logs        repository.LogRepository
	logger      *slog.Logger
}

// NewStoryService creates a StoryService.
func NewStoryService(
	coordinator *editlock.Coordinator,
	stories repository.StoryRepository,
	logs repository.LogRepository,
	logger *slog.Logger,
) *StoryService {
	return &StoryService{
		coordinator: coordinator,
		stories:     stories,
		logs:        logs,
		logger:      logger,
	}
}

// Create validates and saves a new story authored by userID.
func (s *StoryService) Create(ctx context.Context, userID string, content model.StoryContent) (*model.Story, error) {
	if err := validateContent(&content); err != nil {
		return nil, err
	}

	story := &model.Story{
		Title:     content.Title,
		MainText:  content.MainText,
		Tags:      content.Tags,
		Snapshots: content.Snapshots,
	}
	if err := s.coordinator.Create(ctx, story, userID); err != nil {
		s.logger.Error("failed to create story",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("story created",
		slog.String("id", story.ID),
		slog.String("author_id", userID),
	)

	return story, nil
}

// Get returns one story and records the view.
func (s *StoryService) Get(ctx context.Context, storyID, userID string) (*model.Story, error) {
	return s.coordinator.View(ctx, storyID, userID)
}

// List returns all stories, newest first. Listing is not audited; only
// opening an individual story is.
func (s *StoryService) List(ctx context.Context) ([]model.Story, error) {
	stories, err := s.stories.List(ctx)
	if err != nil {
		s.logger.Error("failed to list stories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing stories: %w", err)
	}
	return stories, nil
}

// StartEditing claims the story's edit lock for userID.
func (s *StoryService) StartEditing(ctx context.Context, storyID, userID string) error {
	if err := s.coordinator.Acquire(ctx, storyID, userID); err != nil {
		return err
	}
	s.logger.Info("editing started",
		slog.String("story_id", storyID),
		slog.String("user_id", userID),
	)
	return nil
}

// StopEditing releases the story's edit lock held by userID.
func (s *StoryService) StopEditing(ctx context.Context, storyID, userID string) error {
	if err := s.coordinator.Release(ctx, storyID, userID); err != nil {
		return err
	}
	s.logger.Info("editing stopped",
		slog.String("story_id", storyID),
		slog.String("user_id", userID),
	)
	return nil
}

// Update commits new content to a story whose lock userID holds.
func (s *StoryService) Update(ctx context.Context, storyID, userID string, content model.StoryContent) (*model.Story, error) {
	if err := validateContent(&content); err != nil {
		return nil, err
	}

	story, err := s.coordinator.Commit(ctx, storyID, userID, content)
	if err != nil {
		return nil, err
	}

	s.logger.Info("story updated",
		slog.String("story_id", storyID),
		slog.String("user_id", userID),
	)

	return story, nil
}

// Delete removes a story. Only its author may do so.
func (s *StoryService) Delete(ctx context.Context, storyID, userID string) error {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if story.AuthorID != userID {
		return apperror.Forbidden("Only the author can delete this story")
	}

	if err := s.coordinator.Delete(ctx, storyID, userID); err != nil {
		return err
	}

	s.logger.Info("story deleted",
		slog.String("story_id", storyID),
		slog.String("user_id", userID),
	)
	return nil
}

// Logs returns the story's audit trail, newest first. The story must exist.
func (s *StoryService) Logs(ctx context.Context, storyID string) ([]model.LogEntry, error) {
	if _, err := s.stories.GetByID(ctx, storyID); err != nil {
		return nil, err
	}
	return s.logs.ListLogsForStory(ctx, storyID)
}

func validateContent(content *model.StoryContent) error {
	content.Title = strings.TrimSpace(content.Title)
	if content.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(content.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(content.MainText) > MaxMainTextLength {
		return apperror.ValidationFailed("mainText",
			fmt.Sprintf("main text must be %d characters or less", MaxMainTextLength))
	}
	if len(content.Snapshots) > MaxSnapshots {
		return apperror.ValidationFailed("snapshots",
			fmt.Sprintf("a story can hold at most %d snapshots", MaxSnapshots))
	}
	return nil
}
