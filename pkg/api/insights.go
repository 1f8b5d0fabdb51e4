package api

import "time"

// ChatRequest сообщение ассистенту. Пустой ConversationID начинает новый диалог.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse ответ ассистента
type ChatResponse struct {
	Conversation Conversation `json:"conversation"`
	Reply        Message      `json:"reply"`
}

// Conversation краткие сведения о диалоге
type Conversation struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	TotalTokens  int       `json:"total_tokens"`
}

// Message сообщение диалога
type Message struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	TokensUsed int       `json:"tokens_used"`
}

// ConversationListResponse список диалогов
type ConversationListResponse struct {
	Conversations []Conversation `json:"conversations"`
}

// ConversationHistoryResponse диалог с сообщениями
type ConversationHistoryResponse struct {
	Messages     []Message    `json:"messages"`
	Conversation Conversation `json:"conversation"`
}
