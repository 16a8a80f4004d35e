package httpapi

import (
	"time"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

// Wire DTOs. Field names match the documents the clients already store, so the
// JSON shapes are part of the public contract.

type userJSON struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	GroupIDs  []string  `json:"groupIds"`
	CreatedAt time.Time `json:"createdAt"`
}

type groupJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	HostID    string    `json:"hostId"`
	HostName  string    `json:"hostName"`
	MemberIDs []string  `json:"memberIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type groupMemberJSON struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsHost   bool   `json:"isHost"`
}

// groupDetailJSON is the read model for GET /groups/{id}: the group plus its
// member summaries resolved at read time.
type groupDetailJSON struct {
	groupJSON
	Members []groupMemberJSON `json:"members"`
}

// groupListingJSON is the per-group entry in a user's group listing.
type groupListingJSON struct {
	groupJSON
	SessionCount int `json:"sessionCount"`
}

type snackJSON struct {
	UserID           string `json:"userId"`
	UserName         string `json:"userName"`
	SnackDescription string `json:"snackDescription"`
}

type passengerJSON struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type carpoolJSON struct {
	DriverID   string          `json:"driverId"`
	DriverName string          `json:"driverName"`
	Capacity   int             `json:"capacity"`
	Passengers []passengerJSON `json:"passengers"`
}

type sessionJSON struct {
	ID                   string        `json:"id"`
	GroupID              string        `json:"groupId"`
	GroupName            string        `json:"groupName"`
	HostID               string        `json:"hostId"`
	HostName             string        `json:"hostName"`
	IsConfirmed          bool          `json:"isConfirmed"`
	SessionDate          time.Time     `json:"sessionDate"`
	HostNotes            string        `json:"hostNotes"`
	SecretNotes          string        `json:"secretNotes"`
	ExternalAvailability string        `json:"externalAvailability"`
	AvailableUsers       []string      `json:"availableUsers"`
	Snacks               []snackJSON   `json:"snacks"`
	Carpool              []carpoolJSON `json:"carpool"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

func userFromDomain(u domain.User) userJSON {
	return userJSON{
		ID:        string(u.ID),
		Username:  u.Username,
		GroupIDs:  groupIDStrings(u.GroupIDs),
		CreatedAt: u.CreatedAt,
	}
}

func groupFromDomain(g domain.Group) groupJSON {
	return groupJSON{
		ID:        string(g.ID),
		Name:      g.Name,
		HostID:    string(g.HostID),
		HostName:  g.HostName,
		MemberIDs: userIDStrings(g.MemberIDs),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func groupMemberFromDomain(m domain.GroupMember) groupMemberJSON {
	return groupMemberJSON{
		ID:       string(m.ID),
		Username: m.Username,
		IsHost:   m.IsHost,
	}
}

func sessionFromDomain(s domain.Session) sessionJSON {
	out := sessionJSON{
		ID:                   string(s.ID),
		GroupID:              string(s.GroupID),
		GroupName:            s.GroupName,
		HostID:               string(s.HostID),
		HostName:             s.HostName,
		IsConfirmed:          s.IsConfirmed,
		SessionDate:          s.SessionDate,
		HostNotes:            s.HostNotes,
		SecretNotes:          s.SecretNotes,
		ExternalAvailability: s.ExternalAvailability,
		AvailableUsers:       userIDStrings(s.AvailableUsers),
		Snacks:               make([]snackJSON, 0, len(s.Snacks)),
		Carpool:              make([]carpoolJSON, 0, len(s.Carpool)),
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
	for _, sn := range s.Snacks {
		out.Snacks = append(out.Snacks, snackJSON{
			UserID:           string(sn.UserID),
			UserName:         sn.UserName,
			SnackDescription: sn.SnackDescription,
		})
	}
	for _, c := range s.Carpool {
		cj := carpoolJSON{
			DriverID:   string(c.DriverID),
			DriverName: c.DriverName,
			Capacity:   c.Capacity,
			Passengers: make([]passengerJSON, 0, len(c.Passengers)),
		}
		for _, p := range c.Passengers {
			cj.Passengers = append(cj.Passengers, passengerJSON{
				UserID:   string(p.UserID),
				UserName: p.UserName,
			})
		}
		out.Carpool = append(out.Carpool, cj)
	}
	return out
}

func sessionsFromDomain(ss []domain.Session) []sessionJSON {
	out := make([]sessionJSON, 0, len(ss))
	for _, s := range ss {
		out = append(out, sessionFromDomain(s))
	}
	return out
}

func userIDStrings(ids []domain.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func groupIDStrings(ids []domain.GroupID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
