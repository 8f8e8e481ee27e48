package journal

import (
	"fmt"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one week's bounded conversational interaction. The transcript
// lives in journal_messages; the session row carries metadata and the
// end-of-session artifacts.
type Session struct {
	ID               uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"session_id"`
	UserID           string     `gorm:"type:varchar(64);index;not null" json:"user_id"`
	UserName         string     `gorm:"type:varchar(128)" json:"user_name"`
	Week             int        `gorm:"index;not null" json:"week"`
	Theme            string     `gorm:"type:varchar(255)" json:"theme"`
	Perspective      string     `gorm:"type:varchar(32)" json:"perspective"`
	ConversationMode string     `gorm:"type:varchar(16)" json:"conversation_mode"`
	SessionLength    string     `gorm:"type:varchar(16)" json:"session_length"`
	TargetMinutes    int        `json:"target_minutes"`
	FortuneTypes     []string   `gorm:"serializer:json" json:"fortune_types,omitempty"`
	FortuneMode      string     `gorm:"type:varchar(16)" json:"fortune_mode,omitempty"`
	Summary          string     `gorm:"type:text" json:"summary,omitempty"`
	Article          string     `gorm:"type:text" json:"article,omitempty"`
	ImageURL         string     `gorm:"type:varchar(512)" json:"image_url,omitempty"`
	IsCompleted      bool       `json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastSavedAt      time.Time  `json:"last_saved_at"`
}

func (Session) TableName() string { return "journal_sessions" }

// Message is one transcript entry. The auto-increment id gives transcript
// order; the first row for a session is always the composed system prompt.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(128);not null;index" json:"session_id"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "journal_messages" }

// NewSessionID builds a session id whose fixed-width millisecond suffix makes
// lexicographic order match creation order within a user/week prefix.
func NewSessionID(userID string, week int, now time.Time) string {
	return fmt.Sprintf("%s_week%d_%d", userID, week, now.UnixMilli())
}

// SessionIDPrefix is the shared prefix of all session ids for one user/week.
func SessionIDPrefix(userID string, week int) string {
	return fmt.Sprintf("%s_week%d_", userID, week)
}
