package client

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrNoChoices is returned when a response carries no choices.
var ErrNoChoices = errors.New("no choices returned from the API")

// APIError is an error envelope returned by the API.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
	// Request is the JSON body that was sent.
	Request string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (status %d", e.StatusCode)
	if e.Type != "" {
		msg += ", type " + e.Type
	}
	if e.Code != "" {
		msg += ", code " + e.Code
	}
	return msg + "): " + e.Message
}

// StatusError is a non-2xx response without an error envelope.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, truncate(e.Body, 512))
}

// ParseError is a 2xx body that does not decode as a chat completion.
type ParseError struct {
	Body string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode chat completion: %v (body: %s)", e.Err, truncate(e.Body, 512))
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaMismatchError is an answer that does not decode into the requested type.
type SchemaMismatchError struct {
	Type   string
	Answer string
	Err    error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("answer does not match %s: %v (answer: %s)", e.Type, e.Err, truncate(e.Answer, 512))
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
