package sessions

// Error is an application-layer error that can be mapped to an HTTP response.
// Code values are part of the public contract; callers branch on them.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
