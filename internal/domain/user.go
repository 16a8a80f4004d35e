package domain

import "time"

// User is the domain representation of a player account.
type User struct {
	ID       UserID
	Username string

	// GroupIDs lists the groups the user belongs to. It is mutated only by
	// the membership operations, which keep it consistent with the matching
	// Group.MemberIDs lists.
	GroupIDs []GroupID

	CreatedAt time.Time
}

// IsMemberOf reports whether the user's side of the membership relation
// includes the given group.
func (u User) IsMemberOf(id GroupID) bool {
	for _, g := range u.GroupIDs {
		if g == id {
			return true
		}
	}
	return false
}
