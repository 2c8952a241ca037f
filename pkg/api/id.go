package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const messageIDPrefix = "msg_"

var messageIDPattern = regexp.MustCompile(`^msg_[a-f0-9]{32}$`)

// NewMessageID generates a new message ID with the "msg_" prefix followed
// by the 32 hex digits of a random UUID.
func NewMessageID() string {
	return messageIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateMessageID checks whether the given string is a valid message ID.
func ValidateMessageID(id string) bool {
	return messageIDPattern.MatchString(id)
}
