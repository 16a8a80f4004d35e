package domain

import (
	"fmt"
	"time"
)

const (
	// MinCarpoolCapacity and MaxCarpoolCapacity bound the passenger capacity
	// a driver may offer for a single session.
	MinCarpoolCapacity = 1
	MaxCarpoolCapacity = 10
)

// Session is a single scheduled play session for a group.
//
// GroupName, HostID and HostName are snapshots of the parent group taken when
// the session was created. Renaming a group does not retroactively update past
// sessions.
type Session struct {
	ID      SessionID
	GroupID GroupID

	GroupName string
	HostID    UserID
	HostName  string

	IsConfirmed bool
	SessionDate time.Time

	HostNotes            string
	SecretNotes          string
	ExternalAvailability string

	// AvailableUsers has set semantics (no duplicates) but preserves
	// insertion order for display.
	AvailableUsers []UserID

	// Snacks holds at most one entry per UserID.
	Snacks []SessionSnack

	// Carpool holds at most one entry per DriverID.
	Carpool []SessionCarpool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionSnack is one user's snack contribution for a session.
type SessionSnack struct {
	UserID           UserID
	UserName         string
	SnackDescription string
}

// SessionPassenger is a rider in a session carpool.
type SessionPassenger struct {
	UserID   UserID
	UserName string
}

// SessionCarpool is a driver's ride offer for a session.
// Invariant: len(Passengers) <= Capacity.
type SessionCarpool struct {
	DriverID   UserID
	DriverName string
	Capacity   int
	Passengers []SessionPassenger
}

// NewSessionCarpool validates the capacity range and returns a carpool offer
// with no passengers.
func NewSessionCarpool(driverID UserID, driverName string, capacity int) (SessionCarpool, error) {
	if err := ValidateCarpoolCapacity(capacity); err != nil {
		return SessionCarpool{}, err
	}
	return SessionCarpool{
		DriverID:   driverID,
		DriverName: driverName,
		Capacity:   capacity,
		Passengers: []SessionPassenger{},
	}, nil
}

// ValidateCarpoolCapacity enforces the [MinCarpoolCapacity, MaxCarpoolCapacity] range.
func ValidateCarpoolCapacity(capacity int) error {
	if capacity < MinCarpoolCapacity || capacity > MaxCarpoolCapacity {
		return fmt.Errorf("capacity must be between %d and %d, got %d", MinCarpoolCapacity, MaxCarpoolCapacity, capacity)
	}
	return nil
}

// HasPassenger reports whether the user currently rides in this carpool.
func (c SessionCarpool) HasPassenger(id UserID) bool {
	for _, p := range c.Passengers {
		if p.UserID == id {
			return true
		}
	}
	return false
}
