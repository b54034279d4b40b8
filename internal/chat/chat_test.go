package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/floramind/floramind/internal/llm"
)

func TestAskStartsConversation(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "Twice a week.", Provider: "mock"}}
	m := NewManager(mock)

	reply, err := m.Ask(context.Background(), "", "How often should I water a pothos?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply.Message != "Twice a week." {
		t.Errorf("message = %q", reply.Message)
	}
	if reply.ConversationID == "" {
		t.Fatal("missing conversation id")
	}

	// The system prompt leads every request.
	req := mock.Calls[0]
	if req.Messages[0].Role != "system" {
		t.Errorf("first message role = %q, want system", req.Messages[0].Role)
	}
	if !strings.Contains(req.Messages[0].Content, "plant-care expert") {
		t.Errorf("unexpected system prompt: %q", req.Messages[0].Content)
	}
}

func TestAskReplaysHistory(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "ok", Provider: "mock"}}
	m := NewManager(mock)

	reply, err := m.Ask(context.Background(), "", "first question")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if _, err := m.Ask(context.Background(), reply.ConversationID, "second question"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// Second request carries system + prior user/assistant turns + new user turn.
	req := mock.Calls[1]
	if len(req.Messages) != 4 {
		t.Fatalf("second request has %d messages, want 4", len(req.Messages))
	}
	if req.Messages[1].Content != "first question" {
		t.Errorf("history turn = %q", req.Messages[1].Content)
	}
}

func TestHistoryWindowCapped(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "ok", Provider: "mock"}}
	m := NewManager(mock)

	reply, err := m.Ask(context.Background(), "", "q0")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	for i := 1; i < 8; i++ {
		if _, err := m.Ask(context.Background(), reply.ConversationID, fmt.Sprintf("q%d", i)); err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
	}

	// Each request is capped at system + 6 history turns + the new message.
	last := mock.Calls[len(mock.Calls)-1]
	if len(last.Messages) != 8 {
		t.Errorf("request has %d messages, want 8 (1 system + 6 history + 1 new)", len(last.Messages))
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	m := NewManager(&llm.MockClient{})
	if _, err := m.Ask(context.Background(), "", "   "); err == nil {
		t.Error("expected error for empty message")
	}
}

func TestProviderFailureSurfaces(t *testing.T) {
	mock := &llm.MockClient{Err: fmt.Errorf("provider down")}
	m := NewManager(mock)
	if _, err := m.Ask(context.Background(), "", "hello"); err == nil {
		t.Error("expected error when provider fails")
	}
}

func TestLongFirstMessageTruncatedForTitle(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "ok", Provider: "mock"}}
	m := NewManager(mock)

	long := strings.Repeat("水", 30)
	reply, err := m.Ask(context.Background(), "", long)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	m.mu.Lock()
	conv := m.conversations[reply.ConversationID]
	m.mu.Unlock()
	if got := len([]rune(conv.Title)); got != 23 { // 20 runes + "..."
		t.Errorf("title length = %d runes (%q)", got, conv.Title)
	}
}
