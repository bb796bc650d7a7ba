package session

import (
	"context"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_AppendTurnAndHistory(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	turn := []Message{
		{Role: RoleUser, Content: "What is the CGPA requirement?"},
		{Role: RoleAssistant, Content: "A minimum CGPA of 1.0 is required."},
	}
	if err := s.AppendTurn(ctx, "thread-a", turn); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	msgs, err := s.History(ctx, "thread-a", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != turn[0].Content {
		t.Errorf("msg[0]: want user question, got %s/%s", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != turn[1].Content {
		t.Errorf("msg[1]: want assistant answer, got %s/%s", msgs[1].Role, msgs[1].Content)
	}
}

func Test_Store_ToolRoleIsAccepted(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	// The schema admits tool messages even though the agent does not
	// persist them today.
	turn := []Message{
		{Role: RoleUser, Content: "What is the hostel curfew?"},
		{Role: RoleTool, Content: "Source: Hostel Guide, Page: 3"},
		{Role: RoleAssistant, Content: "Gates close at 10pm."},
	}
	if err := s.AppendTurn(ctx, "thread-tool", turn); err != nil {
		t.Fatalf("append turn with tool message: %v", err)
	}

	msgs, err := s.History(ctx, "thread-tool", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("want 3 messages, got %d", len(msgs))
	}
	if msgs[1].Role != RoleTool {
		t.Errorf("msg[1]: want tool role, got %s", msgs[1].Role)
	}
}

func Test_Store_HistoryLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for range 3 {
		turn := []Message{
			{Role: RoleUser, Content: "q"},
			{Role: RoleAssistant, Content: "a"},
		}
		if err := s.AppendTurn(ctx, "thread-b", turn); err != nil {
			t.Fatalf("append turn: %v", err)
		}
	}

	msgs, err := s.History(ctx, "thread-b", 4)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 4 {
		t.Errorf("want 4 messages, got %d", len(msgs))
	}
}

func Test_Store_ThreadIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "thread-x", []Message{{Role: RoleUser, Content: "from x"}}); err != nil {
		t.Fatalf("append x: %v", err)
	}
	if err := s.AppendTurn(ctx, "thread-y", []Message{{Role: RoleUser, Content: "from y"}}); err != nil {
		t.Fatalf("append y: %v", err)
	}

	msgsX, err := s.History(ctx, "thread-x", 10)
	if err != nil {
		t.Fatalf("history x: %v", err)
	}
	msgsY, err := s.History(ctx, "thread-y", 10)
	if err != nil {
		t.Fatalf("history y: %v", err)
	}
	if len(msgsX) != 1 || msgsX[0].Content != "from x" {
		t.Errorf("thread x: want [from x], got %+v", msgsX)
	}
	if len(msgsY) != 1 || msgsY[0].Content != "from y" {
		t.Errorf("thread y: want [from y], got %+v", msgsY)
	}
}

func Test_Store_EmptyTurnIsNoop(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AppendTurn(ctx, "thread-z", nil); err != nil {
		t.Fatalf("append empty turn: %v", err)
	}
	msgs, err := s.History(ctx, "thread-z", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("want no messages, got %d", len(msgs))
	}
}

func Test_Store_UnknownThreadIsEmpty(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	msgs, err := s.History(context.Background(), "never-seen", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("want no messages for unknown thread, got %d", len(msgs))
	}
}
