package stores

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements MessageStore for SQLite databases.
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(config *StoreConfig) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}

	store := &SQLiteStore{path: config.Connection}
	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	return store, nil
}

// NewSQLiteStoreSimple creates a new SQLite store with just a file path.
func NewSQLiteStoreSimple(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStore(NewStoreConfig("sqlite", dbPath))
}

// Connect establishes a connection to the SQLite database.
func (s *SQLiteStore) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	s.db = db

	if err := s.db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB exposes the underlying gorm handle so supporting stores (traces) can
// share the same database file.
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// AddMessage persists a draft message, assigning the next sequence number in
// its conversation and creating the conversation record on first use.
func (s *SQLiteStore) AddMessage(draft Message) (Message, error) {
	return addMessage(s.db, draft)
}

// UpdateMessageContent replaces the content and reasoning of a message.
func (s *SQLiteStore) UpdateMessageContent(id uint, content, reasoning string) error {
	return updateMessageContent(s.db, id, content, reasoning)
}

// DeleteMessage removes a message by ID.
func (s *SQLiteStore) DeleteMessage(id uint) error {
	return deleteMessage(s.db, id)
}

// FetchHistory retrieves messages for a conversation in sequence order.
// limit: maximum number of messages to retrieve (0 = return all messages).
func (s *SQLiteStore) FetchHistory(conversationID string, limit int) ([]Message, error) {
	return fetchHistory(s.db, conversationID, limit)
}

// CreateConversation creates a new conversation record.
func (s *SQLiteStore) CreateConversation(convoID, userID string) error {
	return createConversation(s.db, convoID, userID)
}

// ListConversations returns all conversation IDs.
func (s *SQLiteStore) ListConversations() ([]string, error) {
	return listConversations(s.db)
}

// ListConversationsForUser returns all conversations with details for a user.
func (s *SQLiteStore) ListConversationsForUser(userID string) ([]ConversationInfo, error) {
	return listConversationsForUser(s.db, userID)
}

// Shared gorm operations used by both the SQLite and Postgres stores.

func addMessage(db *gorm.DB, draft Message) (Message, error) {
	if db == nil {
		return Message{}, fmt.Errorf("database connection is nil")
	}
	if draft.ConversationID == "" {
		return Message{}, fmt.Errorf("message draft must carry a conversation ID")
	}

	// Ensure conversation record exists (create if first message).
	// Use Count() to check existence without triggering "record not found" logs.
	var count int64
	if err := db.Model(&Conversation{}).Where("conversation_id = ?", draft.ConversationID).Count(&count).Error; err != nil {
		log.Printf("Warning: error checking for conversation %s: %v", draft.ConversationID, err)
	} else if count == 0 {
		if err := createConversation(db, draft.ConversationID, ""); err != nil {
			log.Printf("Warning: failed to create conversation record for %s: %v", draft.ConversationID, err)
		}
	}

	if err := db.Model(&Message{}).Where("conversation_id = ?", draft.ConversationID).Count(&count).Error; err != nil {
		return Message{}, fmt.Errorf("failed to count existing messages: %w", err)
	}
	draft.Sequence = int(count) + 1

	tx := db.Begin()
	if err := tx.Create(&draft).Error; err != nil {
		tx.Rollback()
		return Message{}, fmt.Errorf("failed to create message record: %w", err)
	}
	if err := tx.Model(&Conversation{}).Where("conversation_id = ?", draft.ConversationID).Update("message_count", draft.Sequence).Error; err != nil {
		tx.Rollback()
		return Message{}, fmt.Errorf("failed to update conversation message count: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return Message{}, err
	}
	return draft, nil
}

func updateMessageContent(db *gorm.DB, id uint, content, reasoning string) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	updates := map[string]interface{}{"content": content}
	if reasoning != "" {
		updates["reasoning"] = reasoning
	}
	result := db.Model(&Message{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update message %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("message %d not found", id)
	}
	return nil
}

func deleteMessage(db *gorm.DB, id uint) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if err := db.Delete(&Message{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete message %d: %w", id, err)
	}
	return nil
}

func fetchHistory(db *gorm.DB, conversationID string, limit int) ([]Message, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := db.Where("conversation_id = ?", conversationID).Order("sequence ASC")

	if limit > 0 {
		var count int64
		if err := db.Model(&Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count messages: %w", err)
		}
		if count > int64(limit) {
			query = query.Offset(int(count) - limit)
		}
	}

	var msgs []Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

func createConversation(db *gorm.DB, convoID, userID string) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	conv := Conversation{
		ConversationID: convoID,
		UserID:         userID,
		MessageCount:   0,
	}
	return db.Create(&conv).Error
}

func listConversations(db *gorm.DB) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var convs []Conversation
	if err := db.Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}
	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ConversationID
	}
	return ids, nil
}

func listConversationsForUser(db *gorm.DB, userID string) ([]ConversationInfo, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var convs []Conversation
	if err := db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}
	result := make([]ConversationInfo, len(convs))
	for i, c := range convs {
		result[i] = ConversationInfo{
			ConversationID: c.ConversationID,
			UserID:         c.UserID,
			Title:          c.Title,
			MessageCount:   c.MessageCount,
			CreatedAt:      c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt:      c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return result, nil
}
