package sessions

import (
	"time"

	"github.com/Roll-Call-Gaming/roll-call-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// CreateSessionInput carries the session creation request. Nil pointers and
// nil slices mean "use the default" (unconfirmed, empty collections).
type CreateSessionInput struct {
	GroupID     domain.GroupID
	SessionDate time.Time

	HostNotes            *string
	SecretNotes          *string
	ExternalAvailability *string
	IsConfirmed          *bool

	AvailableUsers []domain.UserID
	Snacks         []domain.SessionSnack
	Carpool        []domain.SessionCarpool
}

// UpdateSessionInput merges only the explicitly-specified fields into the
// session. An unspecified field is left untouched; a field specified with a
// value (including the empty string) is applied. None of these fields may be
// specified as null; clearing a text field means setting it to "".
type UpdateSessionInput struct {
	IsConfirmed Optional[bool]
	SessionDate Optional[time.Time]

	HostNotes            Optional[string]
	SecretNotes          Optional[string]
	ExternalAvailability Optional[string]

	AvailableUsers Optional[[]domain.UserID]
	Snacks         Optional[[]domain.SessionSnack]
	Carpool        Optional[[]domain.SessionCarpool]
}
