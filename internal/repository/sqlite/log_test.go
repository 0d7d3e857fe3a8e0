package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/storycollab/internal/model"
)

func TestAppendLog_AssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ada := createTestUser(t, db, "Ada", "ada@example.com")
	story := createTestStory(t, db, ada.ID, "s")

	entry := &model.LogEntry{
		StoryID: story.ID,
		UserID:  ada.ID,
		Action:  model.ActionEdit,
		Details: model.DetailStartEditing,
	}
	if err := db.AppendLog(ctx, entry); err != nil {
		t.Fatalf("AppendLog() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("AppendLog() did not assign an ID")
	}
	if entry.Timestamp.IsZero() {
		t.Error("AppendLog() did not assign a timestamp")
	}
}

func TestListLogsForStory_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ada := createTestUser(t, db, "Ada", "ada@example.com")
	story := createTestStory(t, db, ada.ID, "s")
	other := createTestStory(t, db, ada.ID, "other")

	sequence := []struct {
		action  model.Action
		details string
	}{
		{model.ActionCreate, ""},
		{model.ActionEdit, model.DetailStartEditing},
		{model.ActionEdit, model.DetailUpdate},
		{model.ActionEdit, model.DetailStopEditing},
	}
	for _, step := range sequence {
		if err := db.AppendLog(ctx, &model.LogEntry{
			StoryID: story.ID, UserID: ada.ID, Action: step.action, Details: step.details,
		}); err != nil {
			t.Fatalf("AppendLog() error = %v", err)
		}
	}
	// An entry for another story must not leak in.
	if err := db.AppendLog(ctx, &model.LogEntry{
		StoryID: other.ID, UserID: ada.ID, Action: model.ActionView,
	}); err != nil {
		t.Fatalf("AppendLog() error = %v", err)
	}

	entries, err := db.ListLogsForStory(ctx, story.ID)
	if err != nil {
		t.Fatalf("ListLogsForStory() error = %v", err)
	}
	if len(entries) != len(sequence) {
		t.Fatalf("got %d entries, want %d", len(entries), len(sequence))
	}

	// Newest first; the appended order reversed.
	for i, e := range entries {
		want := sequence[len(sequence)-1-i]
		if e.Action != want.action || e.Details != want.details {
			t.Errorf("entries[%d] = %s/%s, want %s/%s", i, e.Action, e.Details, want.action, want.details)
		}
		if e.UserName != "Ada" {
			t.Errorf("entries[%d].UserName = %q, want %q", i, e.UserName, "Ada")
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Errorf("entries not ordered desc by timestamp at %d", i)
		}
	}
}

func TestListRecentActivity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ada := createTestUser(t, db, "Ada", "ada@example.com")
	story := createTestStory(t, db, ada.ID, "titled")

	for i := 0; i < 12; i++ {
		if err := db.AppendLog(ctx, &model.LogEntry{
			StoryID: story.ID, UserID: ada.ID, Action: model.ActionView,
		}); err != nil {
			t.Fatalf("AppendLog() error = %v", err)
		}
	}

	activities, err := db.ListRecentActivity(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentActivity() error = %v", err)
	}
	if len(activities) != 10 {
		t.Fatalf("got %d activities, want limit 10", len(activities))
	}
	if activities[0].UserName != "Ada" || activities[0].StoryTitle != "titled" {
		t.Errorf("references not resolved: %+v", activities[0])
	}
}

func TestCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ada := createTestUser(t, db, "Ada", "ada@example.com")
	story := createTestStory(t, db, ada.ID, "s")

	for _, a := range []model.Action{model.ActionEdit, model.ActionEdit, model.ActionView} {
		if err := db.AppendLog(ctx, &model.LogEntry{StoryID: story.ID, UserID: ada.ID, Action: a}); err != nil {
			t.Fatalf("AppendLog() error = %v", err)
		}
	}

	edits, err := db.CountLogsByAction(ctx, model.ActionEdit)
	if err != nil {
		t.Fatalf("CountLogsByAction() error = %v", err)
	}
	if edits != 2 {
		t.Errorf("edit count = %d, want 2", edits)
	}

	users, err := db.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers() error = %v", err)
	}
	if users != 1 {
		t.Errorf("user count = %d, want 1", users)
	}

	stories, err := db.CountStories(ctx)
	if err != nil {
		t.Fatalf("CountStories() error = %v", err)
	}
	if stories != 1 {
		t.Errorf("story count = %d, want 1", stories)
	}
}
