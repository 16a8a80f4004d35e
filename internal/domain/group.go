package domain

import "time"

// Group is a recurring play group. The host is the user who created the
// group and can never be removed from MemberIDs.
type Group struct {
	ID   GroupID
	Name string

	HostID UserID
	// HostName is a display snapshot of the host's username taken when the
	// group was created. It is not kept in sync with later username changes.
	HostName string

	// MemberIDs always contains HostID.
	MemberIDs []UserID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMember reports whether the group's side of the membership relation
// includes the given user.
func (g Group) HasMember(id UserID) bool {
	for _, m := range g.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// GroupMember is a display summary resolved at read time for group detail
// responses.
type GroupMember struct {
	ID       UserID
	Username string
	IsHost   bool
}
