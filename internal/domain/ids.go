package domain

// UserID is an internal identifier for a user record.
// IDs are opaque strings minted by the application at creation time;
// callers never choose their own.
type UserID string

// GroupID is an internal identifier for a group record.
type GroupID string

// SessionID is an internal identifier for a session record.
type SessionID string
