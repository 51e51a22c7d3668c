// Package validation reports bad input detected before any store call.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

type Error struct {
	Field  string
	Reason string
}

func (err *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}

func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &Error{Field: field, Reason: "must not be empty"}
	}

	return nil
}

func MaxLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return &Error{Field: field, Reason: fmt.Sprintf("must be at most %d characters", limit)}
	}

	return nil
}

// HTTPURL accepts absolute http and https URLs only.
func HTTPURL(field, value string) error {
	err := Required(field, value)
	if err != nil {
		return err
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &Error{Field: field, Reason: "must be an absolute http(s) url"}
	}

	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
