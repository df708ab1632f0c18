package types

import (
	"strconv"
	"strings"
)

// ChatRef is an operator-configured destination reference: either a numeric
// chat id ("-1001234567890") or a public username ("@channel").
type ChatRef string

// IsZero reports whether the reference is unset.
func (r ChatRef) IsZero() bool {
	return strings.TrimSpace(string(r)) == ""
}

// String returns the trimmed reference.
func (r ChatRef) String() string {
	return strings.TrimSpace(string(r))
}

// ID returns the numeric chat id when the reference is numeric.
func (r ChatRef) ID() (int64, bool) {
	id, err := strconv.ParseInt(r.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ChatRefFromID converts a numeric chat id into a ChatRef.
func ChatRefFromID(id int64) ChatRef {
	return ChatRef(strconv.FormatInt(id, 10))
}

// Chat types as reported by the Bot API.
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
)

// ResolvedChat is the destination descriptor a ChatRef resolves to.
type ResolvedChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// InferChatType guesses a chat type from its id when the API did not report one.
// Ids of the form -100xxxxxxxxxx belong to supergroups and channels.
func InferChatType(id int64) string {
	if strings.HasPrefix(strconv.FormatInt(id, 10), "-100") {
		return ChatTypeSupergroup
	}
	return ChatTypePrivate
}
