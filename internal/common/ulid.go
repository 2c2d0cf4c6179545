package common

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a 26 char, time ordered identifier.
func NewULID() (string, error) {
	return NewULIDAt(time.Now())
}

func NewULIDAt(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewPrefixedID builds ids such as "fallback-01hx...". Lower case so they
// survive case-insensitive command parsing.
func NewPrefixedID(prefix string, t time.Time) (string, error) {
	id, err := NewULIDAt(t)
	if err != nil {
		return "", err
	}
	return prefix + strings.ToLower(id), nil
}
