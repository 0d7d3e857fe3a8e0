// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered author account.
//
// PasswordHash is a bcrypt hash and is never serialized to JSON. Accounts
// created through GitHub OAuth have an empty PasswordHash and a non-zero
// GitHubID; password login is rejected for them.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"` // unique across users
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"-"` // 0 unless the account was created via OAuth
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the admin view of a user: profile fields plus how many
// stories the user has authored.
type UserSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	StoryCount int    `json:"storiesCount"`
}

// Admin is an administrator account. Admins are stored separately from users
// and never author stories; their tokens carry an admin role claim.
type Admin struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
