package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/moodwise/internal/apperror"
)

// ChatService handles emotion chat and saved conversations.
type ChatService interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	SaveConversation(ctx context.Context, userID string, messages []Message) (string, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
}

type chatService struct {
	client CompletionClient
	repo   ConversationRepository
	now    func() time.Time
}

// NewChatService creates a chat service.
func NewChatService(client CompletionClient, repo ConversationRepository) ChatService {
	return &chatService{client: client, repo: repo, now: time.Now}
}

// Chat sends the history plus the new message upstream and returns the
// reply with its emotion extracted.
func (s *chatService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !s.client.IsConfigured() {
		return nil, apperror.NewServiceUnavailable("chat is not configured")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperror.NewValidation("message is required")
	}
	if err := validateMessages(req.ConversationHistory); err != nil {
		return nil, err
	}

	reply, err := s.client.Complete(ctx, buildPrompt(req))
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil, apperror.NewServiceUnavailable("chat is not configured")
		}
		slog.Error("chat completion failed", slog.Any("error", err))
		return nil, apperror.NewBadGateway("chat service unavailable", err)
	}

	text, emotion := ExtractEmotion(reply)
	return &ChatResponse{Message: text, Emotion: emotion}, nil
}

// SaveConversation stores the messages for the user and returns the new ID.
func (s *chatService) SaveConversation(ctx context.Context, userID string, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", apperror.NewValidation("conversation must contain at least one message")
	}
	if err := validateMessages(messages); err != nil {
		return "", err
	}

	conv := &Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Messages:  messages,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return "", apperror.NewInternal(err)
	}
	return conv.ID, nil
}

// ListConversations returns the user's most recent saved conversations.
func (s *chatService) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	convs, err := s.repo.ListByUser(ctx, userID, MaxConversations)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return convs, nil
}

// buildPrompt puts the system prompt first unless the history already
// carries one, then the history, then the new user message.
func buildPrompt(req ChatRequest) []Message {
	msgs := make([]Message, 0, len(req.ConversationHistory)+2)
	if !hasSystemMessage(req.ConversationHistory) {
		msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, req.ConversationHistory...)
	return append(msgs, Message{Role: RoleUser, Content: req.Message})
}

func hasSystemMessage(msgs []Message) bool {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}

func validateMessages(msgs []Message) error {
	for i, m := range msgs {
		if !validRole(m.Role) {
			return apperror.NewValidation(fmt.Sprintf("message %d: role must be system, user or assistant", i))
		}
	}
	return nil
}
