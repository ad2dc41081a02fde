package store

import (
	"errors"
	"strings"
)

// Mutation failures. Returned errors wrap one of these with a human-readable
// message; test with errors.Is.
var (
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrNotFound             = errors.New("not found")
	ErrImmutableField       = errors.New("immutable field")
	ErrReferentialViolation = errors.New("referential violation")
	ErrDuplicateRoute       = errors.New("duplicate route")
)

// Result is the success flag and message reported to API callers for a mutation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

// NewResult builds a Result from a mutation error. On success the message is okMessage.
func NewResult(err error, okMessage string) Result {
	if err != nil {
		return Result{Success: false, Message: describe(err)}
	}
	return Result{Success: true, Message: okMessage}
}

// describe strips the sentinel prefix so the message reads like a sentence.
func describe(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrDuplicateKey, ErrNotFound, ErrImmutableField, ErrReferentialViolation, ErrDuplicateRoute} {
		if !errors.Is(err, sentinel) {
			continue
		}
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
