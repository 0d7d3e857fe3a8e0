package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/storycollab/internal/apperror"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/repository"
)

var _ repository.AdminRepository = (*DB)(nil)

// CreateAdmin inserts a new administrator account.
func (db *DB) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	admin.ID = xid.New().String()
	admin.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO admins (id, username, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		admin.ID,
		admin.Username,
		admin.Email,
		admin.PasswordHash,
		admin.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Admin with this email or username already exists")
		}
		return fmt.Errorf("sqlite: creating admin: %w", err)
	}

	return nil
}

// GetAdminByID retrieves an administrator by internal ID.
func (db *DB) GetAdminByID(ctx context.Context, id string) (*model.Admin, error) {
	return db.getAdmin(ctx, `WHERE id = ?`, id)
}

// GetAdminByEmail retrieves an administrator by email address.
func (db *DB) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return db.getAdmin(ctx, `WHERE email = ?`, email)
}

func (db *DB) getAdmin(ctx context.Context, where string, arg any) (*model.Admin, error) {
	var admin model.Admin
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at
		 FROM admins `+where, arg,
	).Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("admin", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting admin: %w", err)
	}

	return &admin, nil
}

// AdminExistsByEmailOrUsername reports whether an admin already uses the
// given email or username.
func (db *DB) AdminExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE email = ? OR username = ?`,
		email, username,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking admin existence: %w", err)
	}
	return count > 0, nil
}
