// Package chat manages plant-expert conversations: per-conversation history
// held by an owned manager rather than package globals, so tests construct
// isolated instances.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/floramind/floramind/internal/llm"
)

const expertPrompt = `You are a professional plant-care expert focused on houseplants,
succulents, and foliage plants. Give specific, practical advice rather than
generalities. For watering, name frequency, amount, and cautions; for light,
name hours and intensity; for feeding, name fertilizer type, frequency, and
dose. For pests or disease, explain how to identify the problem and the exact
treatment steps. Answer warmly, like an experienced gardener. If the question
lacks detail, ask for the specifics you need.`

// historyWindow is how many prior turns are replayed to the model.
const historyWindow = 6

// Conversation is one chat thread with its rolling message history.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	messages  []llm.Message
}

// Manager owns all active conversations.
type Manager struct {
	llm llm.Client

	mu            sync.Mutex
	conversations map[string]*Conversation
}

// NewManager creates a conversation manager backed by the given client.
func NewManager(client llm.Client) *Manager {
	return &Manager{
		llm:           client,
		conversations: make(map[string]*Conversation),
	}
}

// Reply is the outcome of one chat turn.
type Reply struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	TokensUsed     int    `json:"tokens_used,omitempty"`
}

// Ask sends one user message in a conversation and returns the assistant
// reply. An empty conversation ID starts a new thread.
func (m *Manager) Ask(ctx context.Context, conversationID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message must not be empty")
	}
	if m.llm == nil {
		return nil, fmt.Errorf("no text-generation provider configured")
	}

	conv := m.getOrCreate(conversationID, message)

	messages := []llm.Message{{Role: "system", Content: expertPrompt}}
	m.mu.Lock()
	messages = append(messages, conv.window()...)
	m.mu.Unlock()
	messages = append(messages, llm.Message{Role: "user", Content: message})

	resp, err := m.llm.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	m.mu.Lock()
	conv.messages = append(conv.messages,
		llm.Message{Role: "user", Content: message},
		llm.Message{Role: "assistant", Content: resp.Content},
	)
	m.mu.Unlock()

	return &Reply{
		ConversationID: conv.ID,
		Message:        resp.Content,
		TokensUsed:     resp.TokensUsed,
	}, nil
}

func (m *Manager) getOrCreate(id, firstMessage string) *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if conv, ok := m.conversations[id]; ok {
			return conv
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	title := firstMessage
	if len([]rune(title)) > 20 {
		title = string([]rune(title)[:20]) + "..."
	}
	conv := &Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: time.Now(),
	}
	m.conversations[id] = conv
	return conv
}

// window returns the most recent turns, capped at historyWindow.
// Caller holds the manager lock.
func (c *Conversation) window() []llm.Message {
	if len(c.messages) <= historyWindow {
		return c.messages
	}
	return c.messages[len(c.messages)-historyWindow:]
}
