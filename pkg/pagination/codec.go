package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter separates token segments. It may not appear in any segment.
const Delimiter = ":"

// MaxTokenLength is the Discord custom_id ceiling.
const MaxTokenLength = 100

// minSegments is command, action and page.
const minSegments = 3

// Encoding failures.
var (
	ErrInvalidCommand   = errors.New("command key is empty or contains the delimiter")
	ErrInvalidAction    = errors.New("unknown action")
	ErrInvalidPage      = errors.New("page must be >= 1")
	ErrDelimiterInParam = errors.New("filter parameter contains the delimiter")
	ErrTokenTooLong     = errors.New("token exceeds the length ceiling")
)

// EncodingError is returned by Encode. Reason is one of the Err* values above.
type EncodingError struct {
	Reason error
	// Param is the offending parameter index, or -1.
	Param int
	// Length is the encoded length for ErrTokenTooLong.
	Length int
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	switch {
	case errors.Is(e.Reason, ErrTokenTooLong):
		return fmt.Sprintf("encode pagination token: %v (%d > %d)", e.Reason, e.Length, MaxTokenLength)
	case e.Param >= 0:
		return fmt.Sprintf("encode pagination token: %v (param %d)", e.Reason, e.Param)
	default:
		return fmt.Sprintf("encode pagination token: %v", e.Reason)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *EncodingError) Unwrap() error {
	return e.Reason
}

// Session is the navigation state of one paginated view, reconstructed
// from a token on every request.
type Session struct {
	CommandKey string
	Action     Action
	Page       int
	// Params are positional, view-specific filter values.
	Params []string
}

// Encode serializes s as command:action:page[:param...].
// It fails closed instead of truncating.
func Encode(s Session) (string, error) {
	if s.CommandKey == "" || strings.Contains(s.CommandKey, Delimiter) {
		return "", &EncodingError{Reason: ErrInvalidCommand, Param: -1}
	}
	if _, ok := ParseAction(string(s.Action)); !ok {
		return "", &EncodingError{Reason: ErrInvalidAction, Param: -1}
	}
	if s.Page < 1 {
		return "", &EncodingError{Reason: ErrInvalidPage, Param: -1}
	}

	segments := make([]string, 0, minSegments+len(s.Params))
	segments = append(segments, s.CommandKey, string(s.Action), strconv.Itoa(s.Page))
	for i, p := range s.Params {
		if strings.Contains(p, Delimiter) {
			return "", &EncodingError{Reason: ErrDelimiterInParam, Param: i}
		}
		segments = append(segments, p)
	}

	token := strings.Join(segments, Delimiter)
	if len(token) > MaxTokenLength {
		return "", &EncodingError{Reason: ErrTokenTooLong, Param: -1, Length: len(token)}
	}
	return token, nil
}

// Decode parses token for the view identified by expectedCommand.
// It returns false for anything that Encode could not have produced for that
// view; callers ignore such events.
func Decode(token, expectedCommand string) (Session, bool) {
	if token == "" || expectedCommand == "" || len(token) > MaxTokenLength {
		return Session{}, false
	}

	segments := strings.Split(token, Delimiter)
	if len(segments) < minSegments || segments[0] != expectedCommand {
		return Session{}, false
	}

	action, ok := ParseAction(segments[1])
	if !ok {
		return Session{}, false
	}

	page, ok := parsePage(segments[2])
	if !ok {
		return Session{}, false
	}

	var params []string
	if len(segments) > minSegments {
		params = append([]string(nil), segments[minSegments:]...)
	}

	return Session{
		CommandKey: expectedCommand,
		Action:     action,
		Page:       page,
		Params:     params,
	}, true
}

// CommandOf returns the command key segment of token, or "" if there is none.
func CommandOf(token string) string {
	cmd, _, found := strings.Cut(token, Delimiter)
	if !found {
		return ""
	}
	return cmd
}

// parsePage accepts plain decimal digits only, no sign.
func parsePage(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}
