// Package uuid provides identifier helpers for queued actions and
// provisional entities created while offline.
package uuid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// TempPrefix marks an id that was minted locally and has not yet been
// confirmed by the remote API.
const TempPrefix = "offline-"

// UUID v4 format: xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx
// where y is one of [8, 9, a, b] (variant bits)
var uuidV4Regex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// New generates a new UUID v4.
func New() string {
	return uuid.New().String()
}

// NewTemp generates a provisional entity id of the form offline-<uuid>.
func NewTemp() string {
	return TempPrefix + uuid.New().String()
}

// IsTemporary reports whether id was produced by NewTemp (or follows its shape).
func IsTemporary(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// IsValid checks if a string is a valid UUID v4.
func IsValid(s string) bool {
	return uuidV4Regex.MatchString(s)
}

// Validate returns an error if the string is not a valid UUID v4.
func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("invalid UUID v4 format: %q", s)
	}
	return nil
}
