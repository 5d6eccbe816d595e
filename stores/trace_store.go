package stores

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RoundTrace is a diagnostic event recorded per generation round and per tool
// execution. Trace writes are best-effort; the orchestrator never fails a
// turn over them.
type RoundTrace struct {
	ID             uint           `gorm:"primarykey" json:"-"`
	CreatedAt      time.Time      `json:"-"`
	ConversationID string         `gorm:"index:idx_trace_conv;not null" json:"conversation_id"`
	TurnID         string         `gorm:"index:idx_trace_turn;not null" json:"turn_id"`
	Round          int            `gorm:"not null" json:"round"`
	ToolCallID     string         `gorm:"index:idx_trace_tool" json:"tool_call_id,omitempty"`
	Stage          string         `gorm:"not null" json:"stage"`  // "round", "tool"
	Status         string         `gorm:"not null" json:"status"` // start, end, error, cap
	Label          string         `json:"label"`
	DetailsJSON    string         `gorm:"type:text" json:"-"`
	Details        map[string]any `gorm:"-" json:"details,omitempty"`
	Timestamp      int64          `gorm:"not null" json:"timestamp"`
	DurationMS     int64          `json:"duration_ms,omitempty"`
}

// BeforeSave marshals Details to DetailsJSON.
func (t *RoundTrace) BeforeSave(tx *gorm.DB) error {
	if t.Details != nil {
		data, err := json.Marshal(t.Details)
		if err != nil {
			return err
		}
		t.DetailsJSON = string(data)
	}
	return nil
}

// AfterFind unmarshals DetailsJSON to Details.
func (t *RoundTrace) AfterFind(tx *gorm.DB) error {
	if t.DetailsJSON != "" {
		return json.Unmarshal([]byte(t.DetailsJSON), &t.Details)
	}
	return nil
}

// TraceStore persists round traces.
type TraceStore interface {
	SaveTrace(trace *RoundTrace) error
	SaveTraces(traces []*RoundTrace) error
	GetTracesByConversation(conversationID string) ([]*RoundTrace, error)
	GetTracesByTurn(turnID string) ([]*RoundTrace, error)
	DeleteTracesByConversation(conversationID string) error
	DeleteTracesBefore(cutoff time.Time) (int64, error)
}

// GORMTraceStore implements TraceStore for SQLite/PostgreSQL via GORM.
type GORMTraceStore struct {
	db *gorm.DB
}

// NewGORMTraceStore creates a trace store from an existing GORM connection.
func NewGORMTraceStore(db *gorm.DB) (*GORMTraceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if err := db.AutoMigrate(&RoundTrace{}); err != nil {
		return nil, fmt.Errorf("failed to migrate round_traces table: %w", err)
	}
	return &GORMTraceStore{db: db}, nil
}

func (s *GORMTraceStore) SaveTrace(trace *RoundTrace) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Create(trace).Error
}

func (s *GORMTraceStore) SaveTraces(traces []*RoundTrace) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	if len(traces) == 0 {
		return nil
	}
	return s.db.CreateInBatches(traces, 100).Error
}

func (s *GORMTraceStore) GetTracesByConversation(conversationID string) ([]*RoundTrace, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var traces []*RoundTrace
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Find(&traces).Error
	return traces, err
}

func (s *GORMTraceStore) GetTracesByTurn(turnID string) ([]*RoundTrace, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var traces []*RoundTrace
	err := s.db.Where("turn_id = ?", turnID).
		Order("timestamp ASC").
		Find(&traces).Error
	return traces, err
}

func (s *GORMTraceStore) DeleteTracesByConversation(conversationID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Where("conversation_id = ?", conversationID).Delete(&RoundTrace{}).Error
}

// DeleteTracesBefore removes traces older than the cutoff and reports how
// many rows were removed. Used by the retention sweeper.
func (s *GORMTraceStore) DeleteTracesBefore(cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}
	result := s.db.Where("created_at < ?", cutoff).Delete(&RoundTrace{})
	return result.RowsAffected, result.Error
}
