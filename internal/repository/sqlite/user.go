package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/storycollab/internal/apperror"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user. A UNIQUE violation on email is translated
// to a Conflict domain error so the service can report "User already exists".
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, github_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.GitHubID,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var user model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, github_id, created_at
		 FROM users `+where, arg,
	).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.GitHubID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return &user, nil
}

// UpsertUserByGitHubID creates the account on first OAuth sign-in and
// refreshes name/email on later ones. Returns the stored user.
func (db *DB) UpsertUserByGitHubID(ctx context.Context, user *model.User) (*model.User, error) {
	var existing model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, github_id, created_at
		 FROM users WHERE github_id = ?`,
		user.GitHubID,
	).Scan(
		&existing.ID,
		&existing.Name,
		&existing.Email,
		&existing.PasswordHash,
		&existing.GitHubID,
		&existing.CreatedAt,
	)
	switch {
	case err == nil:
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, email = ? WHERE id = ?`,
			user.Name, user.Email, existing.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: refreshing user %s: %w", existing.ID, err)
		}
		existing.Name = user.Name
		existing.Email = user.Email
		return &existing, nil

	case errors.Is(err, sql.ErrNoRows):
		if err := db.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil

	default:
		return nil, fmt.Errorf("sqlite: looking up github user: %w", err)
	}
}

// ListUserSummaries returns every user with their authored-story count,
// newest account first.
func (db *DB) ListUserSummaries(ctx context.Context) ([]model.UserSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, COUNT(s.id)
		 FROM users u
		 LEFT JOIN stories s ON s.author_id = u.id
		 GROUP BY u.id
		 ORDER BY u.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	summaries := []model.UserSummary{}
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.StoryCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return summaries, nil
}

// DeleteUserCascade removes a user together with their stories and their log
// entries, in a single transaction. Destructive and non-reversible.
func (db *DB) DeleteUserCascade(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning cascade delete: %w", err)
	}
	defer tx.Rollback()

	// Referencing rows go first: the stories tables carry foreign keys to
	// users, so the user row itself must be deleted last.

	// Locks the user holds on other authors' stories are released; those
	// stories survive and must not keep a dangling editor forever.
	if _, err := tx.ExecContext(ctx,
		`UPDATE stories SET is_being_edited = 0, last_edited_by = NULL
		 WHERE last_edited_by = ?`, id); err != nil {
		return fmt.Errorf("sqlite: releasing locks held by user %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stories WHERE author_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting stories of user %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM logs WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting logs of user %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing cascade delete: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite does not export a typed error for this, so we match the
// canonical message fragment.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
