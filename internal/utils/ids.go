package utils

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes shared by both registration subsystems.
const (
	GroupIDPrefix = "GRP-"
	UserIDPrefix  = "USER-"
)

// NewGroupID returns a short human-legible group token such as GRP-3F9A1C.
// Uniqueness is not guaranteed; callers check both subsystems and retry.
func NewGroupID() string {
	return GroupIDPrefix + shortHex(6)
}

// NewUserID returns a member token such as USER-AB12-CD34.
func NewUserID() string {
	h := shortHex(8)
	return UserIDPrefix + h[:4] + "-" + h[4:]
}

// shortHex takes the first n hex characters of a random UUID, upper-cased.
func shortHex(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(s[:n])
}
