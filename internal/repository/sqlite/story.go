package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/storycollab/internal/apperror"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/repository"
)

var _ repository.StoryRepository = (*DB)(nil)

const storyColumns = `s.id, s.title, s.main_text, s.tags, s.snapshots,
	s.author_id, COALESCE(u.name, ''), s.is_being_edited, s.last_edited_by,
	s.created_at, s.updated_at`

// Create inserts a new story in the unlocked state. The story's ID and
// timestamps are assigned here.
func (db *DB) Create(ctx context.Context, story *model.Story) error {
	story.ID = xid.New().String()

	now := time.Now().UTC()
	story.CreatedAt = now
	story.UpdatedAt = now
	story.Lock = model.LockState{}

	tags, snapshots, err := marshalStoryDocs(story.Tags, story.Snapshots)
	if err != nil {
		return fmt.Errorf("sqlite: encoding story %s: %w", story.ID, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO stories (id, title, main_text, tags, snapshots, author_id,
		                      is_being_edited, last_edited_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		story.ID,
		story.Title,
		story.MainText,
		tags,
		snapshots,
		story.AuthorID,
		story.CreatedAt,
		story.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating story: %w", err)
	}

	return nil
}

// GetByID retrieves a single story with its author's display name resolved.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Story, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+storyColumns+`
		 FROM stories s
		 LEFT JOIN users u ON u.id = s.author_id
		 WHERE s.id = ?`,
		id,
	)

	story, err := scanStory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("story", id)
		}
		return nil, fmt.Errorf("sqlite: getting story %s: %w", id, err)
	}

	return story, nil
}

// List returns every story, newest first.
func (db *DB) List(ctx context.Context) ([]model.Story, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+storyColumns+`
		 FROM stories s
		 LEFT JOIN users u ON u.id = s.author_id
		 ORDER BY s.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing stories: %w", err)
	}
	defer rows.Close()

	var stories []model.Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning story row: %w", err)
		}
		stories = append(stories, *story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating stories: %w", err)
	}

	if stories == nil {
		stories = []model.Story{}
	}
	return stories, nil
}

// AcquireLock is the compare-and-swap behind edit-lock acquisition. The
// WHERE clause re-checks the lock columns inside the UPDATE, so of two
// concurrent acquires on an unlocked story exactly one matches a row; the
// loser falls through to the classification read below.
func (db *DB) AcquireLock(ctx context.Context, storyID, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE stories
		 SET is_being_edited = 1, last_edited_by = ?
		 WHERE id = ? AND (is_being_edited = 0 OR last_edited_by = ?)`,
		userID, storyID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: acquiring lock on story %s: %w", storyID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		// Nothing matched: the story is gone, or someone else holds the
		// lock. A follow-up read distinguishes the two; it runs only on
		// the failure path, so it is not part of the transition itself.
		if _, err := db.GetByID(ctx, storyID); err != nil {
			return err
		}
		return apperror.LockHeld(storyID)
	}

	return nil
}

// ReleaseLock unlocks the story if and only if userID is the current holder.
func (db *DB) ReleaseLock(ctx context.Context, storyID, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE stories
		 SET is_being_edited = 0, last_edited_by = NULL
		 WHERE id = ? AND is_being_edited = 1 AND last_edited_by = ?`,
		storyID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: releasing lock on story %s: %w", storyID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := db.GetByID(ctx, storyID); err != nil {
			return err
		}
		return apperror.NotCurrentEditor()
	}

	return nil
}

// UpdateContent persists the editable content while the caller holds the
// lock. The lock stays held; releasing is a separate, explicit transition.
func (db *DB) UpdateContent(ctx context.Context, storyID, userID string, content model.StoryContent) (*model.Story, error) {
	tags, snapshots, err := marshalStoryDocs(content.Tags, content.Snapshots)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding story %s: %w", storyID, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE stories
		 SET title = ?, main_text = ?, tags = ?, snapshots = ?, updated_at = ?
		 WHERE id = ? AND is_being_edited = 1 AND last_edited_by = ?`,
		content.Title,
		content.MainText,
		tags,
		snapshots,
		time.Now().UTC(),
		storyID,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating story %s: %w", storyID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := db.GetByID(ctx, storyID); err != nil {
			return nil, err
		}
		return nil, apperror.NotCurrentEditor()
	}

	return db.GetByID(ctx, storyID)
}

// Delete removes a story by ID.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting story %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("story", id)
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStory(sc scanner) (*model.Story, error) {
	var (
		story        model.Story
		tags         string
		snapshots    string
		beingEdited  bool
		lastEditedBy sql.NullString
	)

	err := sc.Scan(
		&story.ID,
		&story.Title,
		&story.MainText,
		&tags,
		&snapshots,
		&story.AuthorID,
		&story.AuthorName,
		&beingEdited,
		&lastEditedBy,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &story.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if err := json.Unmarshal([]byte(snapshots), &story.Snapshots); err != nil {
		return nil, fmt.Errorf("decoding snapshots: %w", err)
	}
	model.SortSnapshots(story.Snapshots)

	// The CHECK constraint guarantees the two columns agree, so the owner
	// string alone reconstructs the lock state.
	if beingEdited && lastEditedBy.Valid {
		story.Lock = model.LockedBy(lastEditedBy.String)
	}

	return &story, nil
}

// marshalStoryDocs encodes the document-shaped columns. Nil slices are
// stored as empty JSON arrays so reads never see SQL NULL.
func marshalStoryDocs(tags []string, snapshots []model.Snapshot) (string, string, error) {
	if tags == nil {
		tags = []string{}
	}
	if snapshots == nil {
		snapshots = []model.Snapshot{}
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("encoding tags: %w", err)
	}
	snapshotsJSON, err := json.Marshal(snapshots)
	if err != nil {
		return "", "", fmt.Errorf("encoding snapshots: %w", err)
	}

	return string(tagsJSON), string(snapshotsJSON), nil
}
