package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// RoomNameRegex validates room name format
	RoomNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)

	// StreamIDRegex validates stream ID format
	StreamIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// IdentityRegex validates subscriber identity format
	IdentityRegex = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)
)

// ValidateRoomName validates a chat room name
func ValidateRoomName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("room name is required")
	}
	if utf8.RuneCountInString(name) > 64 {
		return fmt.Errorf("room name is too long (max 64 characters)")
	}
	if !RoomNameRegex.MatchString(name) {
		return fmt.Errorf("room name contains invalid characters")
	}
	return nil
}

// ValidateStreamID validates a stream identifier
func ValidateStreamID(id string) error {
	if id == "" {
		return fmt.Errorf("stream id is required")
	}
	if len(id) > 100 {
		return fmt.Errorf("stream id is too long (max 100 characters)")
	}
	if !StreamIDRegex.MatchString(id) {
		return fmt.Errorf("stream id contains invalid characters")
	}
	return nil
}

// ValidateIdentity validates a subscriber identity string
func ValidateIdentity(identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("identity is required")
	}
	if utf8.RuneCountInString(identity) > 64 {
		return fmt.Errorf("identity is too long (max 64 characters)")
	}
	if !IdentityRegex.MatchString(identity) {
		return fmt.Errorf("identity contains invalid characters")
	}
	return nil
}

// ValidateQuality checks that the quality preset name is known
func ValidateQuality(quality string, known map[string]struct{}) error {
	if quality == "" {
		return nil // defaulted by the stream manager
	}
	if _, ok := known[quality]; !ok {
		return fmt.Errorf("unknown quality preset: %s", quality)
	}
	return nil
}
