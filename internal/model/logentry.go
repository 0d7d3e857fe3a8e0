package model

import "time"

// Action is the kind of event recorded in the activity log.
type Action string

// Log actions. Edit-lock transitions all record ActionEdit; the Details field
// distinguishes start_editing, stop_editing and update.
const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the known log actions.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionEdit, ActionCreate, ActionDelete:
		return true
	}
	return false
}

// Details values recorded for ActionEdit entries.
const (
	DetailStartEditing = "start_editing"
	DetailStopEditing  = "stop_editing"
	DetailUpdate       = "update"
)

// LogEntry is one immutable record in a story's audit trail. Entries are
// append-only: nothing updates or deletes them except the admin cascade that
// removes a user together with everything they touched.
type LogEntry struct {
	ID      string `json:"id"`
	StoryID string `json:"story"`
	UserID  string `json:"user"`
	// UserName is resolved from the users table on reads.
	UserName  string    `json:"userName,omitempty"`
	Action    Action    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"` // server-assigned at append time
}

// Activity is the admin dashboard view of a log entry, with the user and
// story references resolved to display names.
type Activity struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	StoryID    string    `json:"storyId"`
	StoryTitle string    `json:"storyTitle"`
	Action     Action    `json:"action"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
