package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type ChatSource string

const (
	SourceFAQ      ChatSource = "faq"
	SourceFaculty  ChatSource = "faculty"
	SourceLLM      ChatSource = "llm"
	SourceFallback ChatSource = "fallback"
)

type ChatLog struct {
	ID              string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID       string         `gorm:"column:session_id;type:text;index" json:"session_id"`
	Role            string         `gorm:"column:role;type:text" json:"role"` // "user" | "assistant"
	Content         string         `gorm:"column:content;type:text" json:"content"`
	Source          ChatSource     `gorm:"column:source;type:text" json:"source,omitempty"`
	MatchedProfiles pq.StringArray `gorm:"column:matched_profiles;type:text[]" json:"matched_profiles,omitempty"`
	Timestamp       time.Time      `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
}

func (ChatLog) TableName() string { return "chat_logs" }

// ChatTurn is one message of the short-term history kept in the cache.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
