package identify

import (
	"context"
	"errors"
)

type Kind string

const (
	KindOffline   Kind = "offline"
	KindNetwork   Kind = "network-error"
	KindTimeout   Kind = "timed-out"
	KindExhausted Kind = "exhausted-retries"
	KindUnknown   Kind = "unknown"
)

var messages = map[Kind]string{
	KindOffline:   "No internet connection. You can still save the photo manually.",
	KindNetwork:   "Network error. Check your connection and try again, or save manually.",
	KindTimeout:   "Analysis timed out. You can save the photo manually.",
	KindExhausted: "Failed to identify fish after multiple attempts. Please check your connection and try again.",
	KindUnknown:   "Unable to identify fish. You can still save the photo.",
}

// Error is the typed identification failure handed to callers. Message
// is safe to show to the user.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: messages[kind], Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrNoImage        = errors.New("no image provided")
	ErrConnectionLost = errors.New("lost internet connection during analysis")
)

func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, err)
	case errors.Is(err, ErrConnectionLost):
		return newError(KindNetwork, err)
	default:
		return newError(KindUnknown, err)
	}
}
