package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/uiguide/uiguide-go/internal/rag"
	"github.com/uiguide/uiguide-go/internal/session"
)

// fakeChatModel is a scripted ToolCallingChatModel: each Generate call pops
// the next response from the script. It records the message slices it was
// given so tests can assert on the context the agent built.
type fakeChatModel struct {
	script []*schema.Message
	calls  [][]*schema.Message
	err    error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls = append(f.calls, input)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.script) == 0 {
		return nil, errors.New("fakeChatModel: script exhausted")
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next, nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("fakeChatModel: streaming not supported")
}

func (f *fakeChatModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

// fakeRetriever returns a fixed document set or a fixed error.
type fakeRetriever struct {
	docs    []rag.Document
	err     error
	queries []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, _ int) ([]rag.Document, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

// toolCallMessage builds an assistant message requesting one doc_retriever call.
func toolCallMessage(id, query string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{
				ID: id,
				Function: schema.FunctionCall{
					Name:      docRetrieverName,
					Arguments: `{"query": "` + query + `"}`,
				},
			},
		},
	}
}

func policyDocs() []rag.Document {
	return []rag.Document{
		{
			ID:           "aaaa",
			Content:      "Students must maintain a minimum CGPA of 1.0 to remain in good standing.",
			DocumentName: "Academic Policy",
			PageNo:       12,
			Source:       "/docs/academic_policy.pdf",
			Metadata:     map[string]string{"date": "2023-01-15"},
		},
		{
			ID:           "bbbb",
			Content:      "Hostel accommodation is allocated on a first-come first-served basis.",
			DocumentName: "Hostel Guide",
			PageNo:       3,
			Source:       "/docs/hostel_guide.pdf",
		},
	}
}

func newTestAgent(t *testing.T, chat *fakeChatModel, retriever rag.Retriever, store session.Store) *GuideAgent {
	t.Helper()
	a, err := New(&Config{
		ChatModel: chat,
		Retriever: retriever,
		Sessions:  store,
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return a
}

func Test_Query_DirectAnswerSkipsRetrieval(t *testing.T) {
	t.Parallel()
	chat := &fakeChatModel{script: []*schema.Message{
		schema.AssistantMessage("Hello! How can I help you today?", nil),
	}}
	retriever := &fakeRetriever{docs: policyDocs()}
	a := newTestAgent(t, chat, retriever, nil)

	res, err := a.Query(context.Background(), "Hello", "t1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.UsedRetriever {
		t.Error("greeting should not mark used_retriever")
	}
	if len(res.Sources) != 0 {
		t.Errorf("greeting should have no sources, got %d", len(res.Sources))
	}
	if res.Answer != "Hello! How can I help you today?" {
		t.Errorf("unexpected answer: %q", res.Answer)
	}
	if len(retriever.queries) != 0 {
		t.Errorf("retriever should not be called, got queries %v", retriever.queries)
	}
	if res.ThreadID != "t1" {
		t.Errorf("thread id not propagated: %q", res.ThreadID)
	}
}

func Test_Query_ToolCallProducesCitations(t *testing.T) {
	t.Parallel()
	chat := &fakeChatModel{script: []*schema.Message{
		toolCallMessage("call-1", "CGPA requirement"),
		schema.AssistantMessage("According to Academic Policy (Page 12), a minimum CGPA of 1.0 is required.", nil),
	}}
	retriever := &fakeRetriever{docs: policyDocs()}
	a := newTestAgent(t, chat, retriever, nil)

	res, err := a.Query(context.Background(), "What is the minimum CGPA?", "t2")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !res.UsedRetriever {
		t.Error("tool call should mark used_retriever")
	}
	if len(res.Sources) != 2 {
		t.Fatalf("want 2 sources, got %d", len(res.Sources))
	}
	if res.Sources[0].Document != "Academic Policy" || res.Sources[0].Page != "12" {
		t.Errorf("source[0]: got %+v", res.Sources[0])
	}
	if res.Sources[0].Date != "2023-01-15" {
		t.Errorf("source[0] date: got %q", res.Sources[0].Date)
	}

	// The second Generate call must carry the tool result back to the model.
	if len(chat.calls) != 2 {
		t.Fatalf("want 2 model calls, got %d", len(chat.calls))
	}
	last := chat.calls[1][len(chat.calls[1])-1]
	if last.Role != schema.Tool {
		t.Fatalf("last message should be the tool result, got role %s", last.Role)
	}
	if !strings.Contains(last.Content, "Academic Policy") || !strings.Contains(last.Content, "[Source 1]") {
		t.Errorf("tool result not formatted as excerpts: %q", last.Content)
	}
}

func Test_Query_RetrievalFailureReportedToModel(t *testing.T) {
	t.Parallel()
	chat := &fakeChatModel{script: []*schema.Message{
		toolCallMessage("call-1", "admission requirements"),
		schema.AssistantMessage("I could not reach the knowledge base, please try again later.", nil),
	}}
	retriever := &fakeRetriever{err: errors.New("qdrant: connection refused")}
	a := newTestAgent(t, chat, retriever, nil)

	res, err := a.Query(context.Background(), "What are the admission requirements?", "t3")
	if err != nil {
		t.Fatalf("query should not fail on retrieval error: %v", err)
	}
	if !res.UsedRetriever {
		t.Error("tool call should mark used_retriever even on failure")
	}
	if len(res.Sources) != 0 {
		t.Errorf("failed retrieval should yield no sources, got %d", len(res.Sources))
	}

	// The model must see the failure as tool output, not an aborted query.
	last := chat.calls[1][len(chat.calls[1])-1]
	if !strings.Contains(last.Content, "Knowledge base unavailable") {
		t.Errorf("tool result should report the failure, got %q", last.Content)
	}
}

func Test_Query_ToolCycleBound(t *testing.T) {
	t.Parallel()
	// The model asks for the tool on every cycle; after the cap, one final
	// generation produces the answer from what was gathered so far.
	script := []*schema.Message{
		toolCallMessage("call-1", "more context"),
		toolCallMessage("call-2", "more context"),
		toolCallMessage("call-3", "more context"),
		schema.AssistantMessage("Everything I found about the policies.", nil),
	}
	chat := &fakeChatModel{script: script}
	retriever := &fakeRetriever{docs: policyDocs()}

	a, err := New(&Config{
		ChatModel:     chat,
		Retriever:     retriever,
		MaxToolCycles: 3,
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	res, err := a.Query(context.Background(), "Tell me everything", "t4")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	// 3 capped cycles plus the final recovery generation.
	if len(chat.calls) != 4 {
		t.Errorf("want exactly 4 model calls, got %d", len(chat.calls))
	}
	if res.Answer != "Everything I found about the policies." {
		t.Errorf("final generation should supply the answer, got %q", res.Answer)
	}
}

func Test_Query_ExhaustedLoopWithoutContentFallsBack(t *testing.T) {
	t.Parallel()
	// Even the recovery generation yields no content; the canned fallback
	// keeps the response non-empty.
	loop := make([]*schema.Message, 0, 8)
	for i := 0; i < 8; i++ {
		loop = append(loop, toolCallMessage("call", "more context"))
	}
	chat := &fakeChatModel{script: loop}

	a, err := New(&Config{
		ChatModel:     chat,
		Retriever:     &fakeRetriever{docs: policyDocs()},
		MaxToolCycles: 2,
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	res, err := a.Query(context.Background(), "Tell me everything", "t5")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Answer != fallbackAnswer {
		t.Errorf("expected the fallback answer, got %q", res.Answer)
	}
}

func Test_Query_ModelFailureReturnsErrModelUnavailable(t *testing.T) {
	t.Parallel()
	chat := &fakeChatModel{err: errors.New("429 too many requests")}
	a := newTestAgent(t, chat, &fakeRetriever{}, nil)

	_, err := a.Query(context.Background(), "Hello", "t5")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("want ErrModelUnavailable, got %v", err)
	}
}

func Test_Query_SourceCapAndPreviewTruncation(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", 400)
	docs := make([]rag.Document, 0, 7)
	for i := 0; i < 7; i++ {
		docs = append(docs, rag.Document{
			ID: "d", Content: long, DocumentName: "Big Doc", PageNo: i + 1,
		})
	}
	chat := &fakeChatModel{script: []*schema.Message{
		toolCallMessage("call-1", "everything"),
		schema.AssistantMessage("Summarised.", nil),
	}}
	a := newTestAgent(t, chat, &fakeRetriever{docs: docs}, nil)

	res, err := a.Query(context.Background(), "Summarise the policies", "t6")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res.Sources) != maxSources {
		t.Fatalf("want %d sources, got %d", maxSources, len(res.Sources))
	}
	for _, s := range res.Sources {
		if len(s.Content) != sourcePreviewChars {
			t.Errorf("source preview not truncated: %d chars", len(s.Content))
		}
	}
}

func Test_Query_PersistsTurnToSessionStore(t *testing.T) {
	t.Parallel()
	store, err := session.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	chat := &fakeChatModel{script: []*schema.Message{
		schema.AssistantMessage("first answer", nil),
		schema.AssistantMessage("second answer", nil),
	}}
	a := newTestAgent(t, chat, &fakeRetriever{}, store)
	ctx := context.Background()

	if _, err := a.Query(ctx, "first question", "t7"); err != nil {
		t.Fatalf("query 1: %v", err)
	}
	if _, err := a.Query(ctx, "second question", "t7"); err != nil {
		t.Fatalf("query 2: %v", err)
	}

	msgs, err := store.History(ctx, "t7", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("want 4 persisted messages, got %d", len(msgs))
	}

	// The second query's model input must include the first turn as history.
	second := chat.calls[1]
	var sawHistory bool
	for _, m := range second {
		if m.Role == schema.Assistant && m.Content == "first answer" {
			sawHistory = true
		}
	}
	if !sawHistory {
		t.Error("second query should inject the first turn as history")
	}
}

func Test_Query_FallbackSourceRecovery(t *testing.T) {
	t.Parallel()
	// The tool call carries malformed arguments, so the handler records no
	// sources; the agent must recover citations with a direct retrieval.
	bad := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: "call-1", Function: schema.FunctionCall{Name: docRetrieverName, Arguments: `{invalid`}},
		},
	}
	chat := &fakeChatModel{script: []*schema.Message{
		bad,
		schema.AssistantMessage("Answer from context.", nil),
	}}
	retriever := &fakeRetriever{docs: policyDocs()}
	a := newTestAgent(t, chat, retriever, nil)

	res, err := a.Query(context.Background(), "What is the hostel policy?", "t8")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res.Sources) != 2 {
		t.Fatalf("want recovered sources, got %d", len(res.Sources))
	}
}

func Test_New_RequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := New(&Config{Retriever: &fakeRetriever{}}); err == nil {
		t.Error("nil ChatModel should fail")
	}
	if _, err := New(&Config{ChatModel: &fakeChatModel{}}); err == nil {
		t.Error("nil Retriever should fail")
	}
}
