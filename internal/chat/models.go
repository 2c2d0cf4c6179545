package chat

import "time"

type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	UserID    string    `gorm:"type:varchar(64);index;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// Message is one transcript line. DelayMS is the pacing hint the engine
// attached when it was emitted.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_user_session_id,priority:2" json:"session_id"`
	UserID    string    `gorm:"type:varchar(64);not null;index:idx_chat_msg_user_session_id,priority:1" json:"-"`
	Sender    string    `gorm:"type:varchar(16);index;not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	OrderRef  string    `gorm:"type:varchar(64)" json:"order_ref,omitempty"`
	DelayMS   int64     `gorm:"not null;default:0" json:"delay_ms"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }
