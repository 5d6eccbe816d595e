package stores

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresStore implements MessageStore for PostgreSQL databases.
type PostgresStore struct {
	db  *gorm.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(config *StoreConfig) (*PostgresStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for PostgreSQL store: %s", config.Type)
	}

	store := &PostgresStore{dsn: config.Connection}
	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	return store, nil
}

// NewPostgresStoreSimple creates a new PostgreSQL store with just a DSN.
func NewPostgresStoreSimple(dsn string) (*PostgresStore, error) {
	return NewPostgresStore(NewStoreConfig("postgres", dsn))
}

// Connect establishes a connection to the PostgreSQL database.
func (s *PostgresStore) Connect() error {
	db, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	s.db = db

	if err := s.db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
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
func (s *PostgresStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB exposes the underlying gorm handle.
func (s *PostgresStore) DB() *gorm.DB {
	return s.db
}

func (s *PostgresStore) AddMessage(draft Message) (Message, error) {
	return addMessage(s.db, draft)
}

func (s *PostgresStore) UpdateMessageContent(id uint, content, reasoning string) error {
	return updateMessageContent(s.db, id, content, reasoning)
}

func (s *PostgresStore) DeleteMessage(id uint) error {
	return deleteMessage(s.db, id)
}

func (s *PostgresStore) FetchHistory(conversationID string, limit int) ([]Message, error) {
	return fetchHistory(s.db, conversationID, limit)
}

func (s *PostgresStore) CreateConversation(convoID, userID string) error {
	return createConversation(s.db, convoID, userID)
}

func (s *PostgresStore) ListConversations() ([]string, error) {
	return listConversations(s.db)
}

func (s *PostgresStore) ListConversationsForUser(userID string) ([]ConversationInfo, error) {
	return listConversationsForUser(s.db, userID)
}
