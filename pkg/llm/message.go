package llm

// Conversation roles recognized by the relay.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single text turn in a conversation.
// Turns are immutable once constructed; they live only for the duration of
// one request/response cycle.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// KnownRole reports whether role is one of the recognized conversation roles.
func KnownRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
