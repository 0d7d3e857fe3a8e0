// Package model defines the data structures used throughout the application.
package model

import (
	"sort"
	"time"
)

// Story is a collaboratively authored narrative document. It consists of a
// main text plus an ordered sequence of snapshots, and carries the edit-lock
// that serialises writers (see LockState).
type Story struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	MainText  string     `json:"mainText"`
	Tags      []string   `json:"tags"`
	Snapshots []Snapshot `json:"snapshots"`
	AuthorID  string     `json:"author"`
	// AuthorName is resolved from the users table on reads; it is not a
	// stored column of the story itself.
	AuthorName string    `json:"authorName,omitempty"`
	Lock       LockState `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Snapshot is one narrative beat of a Story: a piece of text with optional
// links and pictures. Snapshots have no identity outside their parent story.
type Snapshot struct {
	Text     string    `json:"text"`
	Links    []Link    `json:"links,omitempty"`
	Pictures []Picture `json:"pictures,omitempty"`
	// Order is author-controlled and used for display sorting. Values are
	// not validated for uniqueness; SortSnapshots breaks ties by the
	// original sequence.
	Order int `json:"order"`
}

// Link is a reference attached to a snapshot.
type Link struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Picture is an image attached to a snapshot. The URL is permanent, issued
// by the media store at upload time.
type Picture struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// StoryContent is the author-editable portion of a story, committed as one
// unit while the edit lock is held. The lock fields, author and timestamps
// are never part of a content commit.
type StoryContent struct {
	Title     string     `json:"title"`
	MainText  string     `json:"mainText"`
	Tags      []string   `json:"tags"`
	Snapshots []Snapshot `json:"snapshots"`
}

// SortSnapshots orders snapshots by their Order field, ascending. The sort is
// stable: equal Order values keep their original sequence.
func SortSnapshots(snapshots []Snapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Order < snapshots[j].Order
	})
}

// LockState is the edit-lock of a story: either unlocked, or held by exactly
// one user. The zero value is unlocked, and a held lock always has an owner,
// so the invalid combination "not being edited but an editor is recorded"
// cannot be constructed.
type LockState struct {
	owner string
}

// LockedBy returns a LockState held by the given user.
func LockedBy(userID string) LockState {
	return LockState{owner: userID}
}

// Held reports whether the lock is currently held.
func (l LockState) Held() bool {
	return l.owner != ""
}

// Owner returns the ID of the current lock holder, or "" if unlocked.
func (l LockState) Owner() string {
	return l.owner
}

// HeldBy reports whether the lock is held by the given user.
func (l LockState) HeldBy(userID string) bool {
	return l.owner != "" && l.owner == userID
}
