package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/storycollab/internal/apperror"
	"github.com/sakif/storycollab/internal/auth"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/repository"
)

// AdminService handles administrator accounts and the dashboard: aggregate
// stats, the user list, the recent-activity feed and user removal.
type AdminService struct {
	admins    repository.AdminRepository
	users     repository.UserRepository
	logs      repository.LogRepository
	stats     repository.StatsRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(
	admins repository.AdminRepository,
	users repository.UserRepository,
	logs repository.LogRepository,
	stats repository.StatsRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		admins:    admins,
		users:     users,
		logs:      logs,
		stats:     stats,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AdminAuthResult bundles the admin account with the issued token.
type AdminAuthResult struct {
	Admin *model.Admin
	Token string
}

// Stats is the dashboard's aggregate view.
type Stats struct {
	TotalUsers   int `json:"totalUsers"`
	TotalStories int `json:"totalStories"`
	TotalEdits   int `json:"totalEdits"`
}

// Register creates a new administrator account.
func (s *AdminService) Register(ctx context.Context, username, email, password string) (*AdminAuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	exists, err := s.admins.AdminExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.Conflict("Admin with this email or username already exists")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	admin := &model.Admin{Username: username, Email: email, PasswordHash: hash}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.Info("admin registered",
		slog.String("admin_id", admin.ID),
		slog.String("username", username),
	)

	return s.issueFor(admin)
}

// Login authenticates an administrator by email and password.
func (s *AdminService) Login(ctx context.Context, email, password string) (*AdminAuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	admin, err := s.admins.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("Invalid credentials")
		}
		return nil, err
	}
	if err := s.passwords.Verify(admin.PasswordHash, password); err != nil {
		return nil, apperror.Unauthenticated("Invalid credentials")
	}

	s.logger.Info("admin logged in", slog.String("admin_id", admin.ID))

	return s.issueFor(admin)
}

// GetAdminByID returns the account behind a validated admin token's subject.
func (s *AdminService) GetAdminByID(ctx context.Context, id string) (*model.Admin, error) {
	if id == "" {
		return nil, fmt.Errorf("service/admin: admin ID must not be empty")
	}
	return s.admins.GetAdminByID(ctx, id)
}

// GetStats returns the dashboard counters. Total edits counts realized lock
// transitions and commits, not failed attempts, since only realized
// transitions reach the log.
func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	users, err := s.stats.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	stories, err := s.stats.CountStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting stories: %w", err)
	}
	edits, err := s.logs.CountLogsByAction(ctx, model.ActionEdit)
	if err != nil {
		return nil, fmt.Errorf("counting edits: %w", err)
	}

	return &Stats{TotalUsers: users, TotalStories: stories, TotalEdits: edits}, nil
}

// ListUsers returns every author with their story counts.
func (s *AdminService) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	return s.users.ListUserSummaries(ctx)
}

// RecentActivity returns the latest limit log entries across all stories.
func (s *AdminService) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	return s.logs.ListRecentActivity(ctx, limit)
}

// DeleteUser removes an author together with their stories and log entries.
// Edit locks the user held on surviving stories are released as part of the
// cascade.
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.DeleteUserCascade(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user deleted by admin", slog.String("user_id", userID))
	return nil
}

func (s *AdminService) issueFor(admin *model.Admin) (*AdminAuthResult, error) {
	token, err := s.tokens.GenerateAdmin(admin.ID)
	if err != nil {
		return nil, fmt.Errorf("service/admin: generating token for admin %s: %w", admin.ID, err)
	}
	return &AdminAuthResult{Admin: admin, Token: token}, nil
}
