package models

import "time"

// MessageRole автор сообщения в диалоге
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Conversation диалог администратора с ассистентом
type Conversation struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ID           string    `json:"id"`            // UUID диалога
	AdminID      string    `json:"admin_id"`      // владелец диалога
	Title        string    `json:"title"`         // заголовок (начало первого сообщения)
	MessageCount int       `json:"message_count"` // количество сообщений
	TotalTokens  int       `json:"total_tokens"`  // суммарный расход токенов модели
	Deleted      bool      `json:"-"`             // мягкое удаление
}

// Message одно сообщение диалога
type Message struct {
	CreatedAt      time.Time   `json:"created_at"`
	ID             string      `json:"id"` // ULID, сортируется по времени создания
	ConversationID string      `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	TokensUsed     int         `json:"tokens_used"`
}

// IPRule правило списка разрешенных адресов
type IPRule struct {
	CreatedAt time.Time `json:"created_at"`
	CIDR      string    `json:"cidr"`
	Note      string    `json:"note,omitempty"`
}
