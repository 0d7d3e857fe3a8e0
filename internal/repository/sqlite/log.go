package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/repository"
)

var (
	_ repository.LogRepository   = (*DB)(nil)
	_ repository.StatsRepository = (*DB)(nil)
)

// AppendLog inserts one audit record. The timestamp is server-assigned here;
// entries are never updated or deleted afterwards (only the admin cascade
// purges them together with their user).
func (db *DB) AppendLog(ctx context.Context, entry *model.LogEntry) error {
	entry.ID = xid.New().String()
	entry.Timestamp = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO logs (id, story_id, user_id, action, details, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.StoryID,
		entry.UserID,
		string(entry.Action),
		entry.Details,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending log entry: %w", err)
	}

	return nil
}

// ListLogsForStory returns a story's audit trail, newest first.
func (db *DB) ListLogsForStory(ctx context.Context, storyID string) ([]model.LogEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT l.id, l.story_id, l.user_id, COALESCE(u.name, ''),
		        l.action, l.details, l.timestamp
		 FROM logs l
		 LEFT JOIN users u ON u.id = l.user_id
		 WHERE l.story_id = ?
		 ORDER BY l.timestamp DESC, l.id DESC`,
		storyID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing logs for story %s: %w", storyID, err)
	}
	defer rows.Close()

	entries := []model.LogEntry{}
	for rows.Next() {
		var e model.LogEntry
		var action string
		if err := rows.Scan(
			&e.ID, &e.StoryID, &e.UserID, &e.UserName,
			&action, &e.Details, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning log row: %w", err)
		}
		e.Action = model.Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating logs: %w", err)
	}

	return entries, nil
}

// ListRecentActivity returns the latest entries across all stories with the
// user and story references resolved, for the admin dashboard.
func (db *DB) ListRecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT l.id, l.user_id, COALESCE(u.name, ''),
		        l.story_id, COALESCE(s.title, ''),
		        l.action, l.details, l.timestamp
		 FROM logs l
		 LEFT JOIN users u ON u.id = l.user_id
		 LEFT JOIN stories s ON s.id = l.story_id
		 ORDER BY l.timestamp DESC, l.id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recent activity: %w", err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		var action string
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.UserName,
			&a.StoryID, &a.StoryTitle,
			&action, &a.Details, &a.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity row: %w", err)
		}
		a.Action = model.Action(action)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activity: %w", err)
	}

	return activities, nil
}

// CountLogsByAction returns how many log entries record the given action.
func (db *DB) CountLogsByAction(ctx context.Context, action model.Action) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM logs WHERE action = ?`, string(action),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting logs: %w", err)
	}
	return count, nil
}

// CountUsers returns the number of registered users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	return db.countRows(ctx, "users")
}

// CountStories returns the number of stories.
func (db *DB) CountStories(ctx context.Context) (int, error) {
	return db.countRows(ctx, "stories")
}

func (db *DB) countRows(ctx context.Context, table string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting %s: %w", table, err)
	}
	return count, nil
}
