// Package chat proxies conversations to an OpenAI-compatible
// chat-completion API and tags every reply with the emotion the model
// detected. Users can also save and list past conversations.
package chat

import (
	"errors"
	"time"
)

// Message roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultEmotion is reported when the reply carries no emotion tag.
const DefaultEmotion = "neutral"

// MaxConversations caps how many saved conversations a list returns.
const MaxConversations = 100

// systemPrompt asks the model to end every reply with an emotion tag.
const systemPrompt = "You are an emotionally intelligent assistant. Analyze the user's message for emotional tone and respond appropriately. Include an emotion tag at the end of your response in the format [EMOTION: emotion_name]. Be empathetic and supportive."

// Errors reported by the completion client.
var (
	// ErrNotConfigured means no API key is set.
	ErrNotConfigured = errors.New("chat: completion API not configured")

	// ErrUpstream wraps any failure talking to the completion API.
	ErrUpstream = errors.New("chat: completion API failed")
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a saved list of messages owned by a user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Request / response DTOs ---

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message             string    `json:"message"`
	ConversationHistory []Message `json:"conversation_history"`
}

// ChatResponse is the assistant reply with its emotion tag removed.
type ChatResponse struct {
	Message string `json:"message"`
	Emotion string `json:"emotion"`
}

// SaveConversationResponse is returned after a conversation is stored.
type SaveConversationResponse struct {
	ID string `json:"id"`
}

func validRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
