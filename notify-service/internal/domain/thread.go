package domain

import "time"

// WhoCanPost values understood by the platform store.
const (
	WhoCanPostEveryone = "everyone"
	WhoCanPostAdmins   = "admins"
)

// Capabilities an actor can be granted within an organization.
const (
	CapabilityThreadsWrite = "threads:write"
	CapabilityPostsWrite   = "posts:write"
)

// Access levels reported for a user in a room.
const (
	AccessAdmin    = "admin"
	AccessCustomer = "customer"
	AccessNone     = "no_access"
)

// Room binds a room to the organization that owns it.
type Room struct {
	ID             string
	OrganizationID string
}

// Thread is the per-room discussion destination.
type Thread struct {
	ID             string
	RoomID         string
	OrganizationID string
	Name           string
	WhoCanPost     string
	CreatedBy      string
	CreatedAt      time.Time
}

// Post is a message published into a thread.
type Post struct {
	ID        string
	ThreadID  string
	Title     string
	Content   string
	IsMention bool
	AuthorID  string
	CreatedAt time.Time
}
