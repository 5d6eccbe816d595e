package stores

import (
	"gorm.io/gorm"
)

// Message is one persisted conversation entry. A row is created when a round
// starts (assistant placeholder) or when a tool executes (tool result),
// mutated in place while a stream is live, and finalized when the round or
// turn completes.
type Message struct {
	gorm.Model
	ConversationID string `gorm:"index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"not null"` // "system", "user", "assistant", "tool"
	Content        string `gorm:"type:text"`
	// Reasoning holds the thinking segments split out of streamed text; it is
	// never replayed to the service.
	Reasoning string `gorm:"type:text"`
	// ToolCallsJSON stores the marshaled []models.ToolCall of an assistant
	// tool-call-request message.
	ToolCallsJSON string `gorm:"type:json"`
	// ToolCallID links a tool-result message back to its request.
	ToolCallID string `gorm:"index"`
	ToolName   string
}

// IsToolCallRequest reports whether this row is an assistant message carrying
// tool-call requests.
func (m Message) IsToolCallRequest() bool {
	return m.Role == "assistant" && m.ToolCallsJSON != "" && m.ToolCallsJSON != "null" && m.ToolCallsJSON != "[]"
}

// Conversation holds metadata for a chat conversation.
type Conversation struct {
	gorm.Model
	ConversationID string    `gorm:"uniqueIndex;not null"`
	UserID         string    `gorm:"index;not null"`
	Title          string    `gorm:"type:text"`
	MessageCount   int       `gorm:"default:0"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// ConversationInfo holds basic conversation metadata for listing.
type ConversationInfo struct {
	ConversationID string
	UserID         string
	Title          string
	MessageCount   int
	CreatedAt      string
	UpdatedAt      string
}

// MessageStore abstracts message persistence. The orchestrator treats every
// operation as fallible and logs-but-continues on failure, except where the
// result is required to proceed (initial placeholder creation).
type MessageStore interface {
	// AddMessage persists a draft and returns it with ID and sequence assigned.
	AddMessage(draft Message) (Message, error)
	// UpdateMessageContent replaces the visible content (and reasoning) of a
	// live message, used while a stream is growing it.
	UpdateMessageContent(id uint, content, reasoning string) error
	// DeleteMessage removes a message, used to discard empty placeholders and
	// to roll back a turn on a context error.
	DeleteMessage(id uint) error
	// FetchHistory retrieves messages in sequence order; limit 0 returns all.
	FetchHistory(conversationID string, limit int) ([]Message, error)

	CreateConversation(convoID, userID string) error
	ListConversations() ([]string, error)
	ListConversationsForUser(userID string) ([]ConversationInfo, error)

	Connect() error
	Close() error
	Ping() error
}

// StoreConfig holds configuration for database stores.
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`
}

func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
