// Package agent implements the UI Guide conversational assistant. It wires a
// tool-calling chat model to the document retriever and the session store,
// and runs the decide/retrieve loop: the model either answers directly or
// calls the doc_retriever tool, reads the retrieved excerpts, and answers
// with citations.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/uiguide/uiguide-go/internal/budget"
	"github.com/uiguide/uiguide-go/internal/logging"
	"github.com/uiguide/uiguide-go/internal/rag"
	"github.com/uiguide/uiguide-go/internal/session"
)

// systemPrompt establishes the assistant's persona and the rules for when to
// retrieve documents and how to cite them.
const systemPrompt = `You are a helpful and friendly assistant that provides information about
University of Ibadan and its policies. Your name is UI GUIDE.
Your response should always be friendly. You have access to a document
retrieval tool.

DO NOT retrieve documents for these (answer directly in a warm, friendly way):
- Greetings: 'Hello', 'Hi', 'How are you', etc.
- Questions about your capabilities: 'What can you help with?', 'What do you do?'
- Simple math or general knowledge: 'What is 2+2?'
- Casual conversation: 'Thank you', 'Goodbye'

DO retrieve documents for:
- Questions asking for specific information about University of Ibadan
- Requests for facts, definitions, or explanations about UI policies
- Any question where citing sources would improve the answer

IMPORTANT - When you use retrieved documents:
1. Cite sources using format: (Source X: Document Name, Page Y)
2. Limit citations to the 1-3 most relevant sources
3. Only cite the sources you actually used in your answer
4. If documents do not contain the answer, say so clearly
5. Do not answer questions outside the scope of University of Ibadan
   except for casual greetings

When providing citations in your response, use this format:
'According to [Document Name] (Page X)...'
or 'This information is based on [Document Name], page Y.'`

// fallbackAnswer is returned when the model produces no final text response.
const fallbackAnswer = "No response generated"

// ErrModelUnavailable indicates the LLM backend could not be reached or
// rejected the request. The HTTP layer maps it to 503.
var ErrModelUnavailable = errors.New("agent: model unavailable")

// Config holds the dependencies required to construct a GuideAgent.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Retriever is the RAG retriever over the policy document index.
	Retriever rag.Retriever

	// Sessions is the optional conversation store used to persist and replay
	// prior turns. If nil, each query is stateless.
	Sessions session.Store

	// TopK controls how many documents each retrieval returns.
	// Defaults to rag.DefaultTopK if zero.
	TopK int

	// MaxToolCycles bounds the number of decide/retrieve rounds per query.
	// Defaults to 4 if zero.
	MaxToolCycles int

	// HistoryDepth is the number of prior turns (user+assistant pairs) to
	// inject per query. Defaults to 10 if zero.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context (system prompt + history + user message). History is trimmed
	// oldest-first to fit. Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Result is the outcome of one completed query.
type Result struct {
	// Answer is the assistant's final text response.
	Answer string `json:"answer"`
	// UsedRetriever reports whether the model called the retrieval tool.
	UsedRetriever bool `json:"used_retriever"`
	// ThreadID identifies the conversation thread the query belongs to.
	ThreadID string `json:"thread_id"`
	// Sources lists the document excerpts that informed the answer. Empty
	// when the model answered without retrieval.
	Sources []SourceCitation `json:"sources"`
}

// GuideAgent runs the decide/retrieve loop against a tool-calling chat model.
type GuideAgent struct {
	// chatModel is the LLM backend with the retrieval tool bound.
	chatModel model.ToolCallingChatModel

	// retriever is the RAG retriever over the policy document index.
	retriever rag.Retriever

	// sessions is the optional conversation store for multi-turn context.
	sessions session.Store

	// topK is the number of documents each retrieval returns.
	topK int

	// maxToolCycles bounds the number of decide/retrieve rounds per query.
	maxToolCycles int

	// historyDepth is the number of recent messages to inject per query.
	historyDepth int

	// maxContextTokens is the estimated token budget for the input context.
	maxContextTokens int

	// dispatch maps tool names to their handlers.
	dispatch map[string]toolHandler
}

// New constructs a GuideAgent from the provided Config, binding the retrieval
// tool to the chat model.
func New(cfg *Config) (*GuideAgent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("agent: Retriever must not be nil")
	}

	bound, err := cfg.ChatModel.WithTools([]*schema.ToolInfo{docRetrieverInfo()})
	if err != nil {
		return nil, fmt.Errorf("agent: failed to bind tools: %w", err)
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	cycles := cfg.MaxToolCycles
	if cycles <= 0 {
		cycles = 4
	}
	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = 10
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	a := &GuideAgent{
		chatModel:        bound,
		retriever:        cfg.Retriever,
		sessions:         cfg.Sessions,
		topK:             topK,
		maxToolCycles:    cycles,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
	}
	a.dispatch = map[string]toolHandler{
		docRetrieverName: a.handleDocRetriever,
	}
	return a, nil
}

// Query runs one turn of the conversation: it builds the message context,
// loops the model through tool calls until it produces a final answer, and
// persists the completed turn to the session store.
func (a *GuideAgent) Query(ctx context.Context, userMessage, threadID string) (*Result, error) {
	messages, err := a.buildMessages(ctx, userMessage, threadID)
	if err != nil {
		return nil, fmt.Errorf("agent: failed to build messages: %w", err)
	}

	tracker := newSourceTracker()
	usedRetriever := false
	answer := ""

	for cycle := 0; cycle < a.maxToolCycles; cycle++ {
		resp, err := a.chatModel.Generate(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		if len(resp.ToolCalls) == 0 {
			answer = resp.Content
			break
		}

		usedRetriever = true
		messages = append(messages, resp)
		for _, call := range resp.ToolCalls {
			messages = append(messages, schema.ToolMessage(a.runTool(ctx, call, tracker), call.ID))
		}
	}

	// Cycle cap exhausted with the model still asking for tools: run one
	// final generation and take its content whether or not it requests more
	// retrieval, so the user gets an answer from what was gathered so far.
	if answer == "" {
		resp, err := a.chatModel.Generate(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		answer = resp.Content
	}
	if answer == "" {
		answer = fallbackAnswer
	}

	// The tool may have failed while the model still produced an answer from
	// its own knowledge of the conversation. Recover citations by querying
	// the index directly so the response is never silently source-free.
	sources := []SourceCitation{}
	if usedRetriever {
		sources = tracker.Sources()
		if len(sources) == 0 {
			sources = a.collectSources(ctx, userMessage)
		}
	}

	a.persistTurn(ctx, threadID, userMessage, answer)

	return &Result{
		Answer:        answer,
		UsedRetriever: usedRetriever,
		ThreadID:      threadID,
		Sources:       sources,
	}, nil
}

// runTool dispatches a single tool call and returns its result content.
// Unknown tool names produce an error message for the model rather than
// failing the query.
func (a *GuideAgent) runTool(ctx context.Context, call schema.ToolCall, tracker *sourceTracker) string {
	handler, ok := a.dispatch[call.Function.Name]
	if !ok {
		logging.FromContext(ctx).Warn("agent: model requested unknown tool",
			slog.String("tool", call.Function.Name))
		return fmt.Sprintf("Unknown tool: %s", call.Function.Name)
	}
	return handler(ctx, call.Function.Arguments, tracker)
}

// buildMessages constructs the message slice for the model: system prompt,
// trimmed conversation history, and the current user message.
func (a *GuideAgent) buildMessages(ctx context.Context, userMessage, threadID string) ([]*schema.Message, error) {
	system := schema.SystemMessage(systemPrompt)

	// Inject recent conversation history so the model has multi-turn context.
	var historyMsgs []*schema.Message
	if a.sessions != nil {
		prior, err := a.sessions.History(ctx, threadID, a.historyDepth*2)
		if err != nil {
			logging.FromContext(ctx).Warn("session: failed to load prior messages", slog.Any("error", err))
		} else {
			for _, m := range prior {
				switch m.Role {
				case session.RoleUser:
					historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
				case session.RoleAssistant:
					historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
				}
			}
		}
	}

	// Trim history oldest-first so the total estimated token count fits
	// within the configured context budget.
	fixed := []*schema.Message{system, schema.UserMessage(userMessage)}
	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, a.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	result := make([]*schema.Message, 0, 2+len(historyMsgs))
	result = append(result, system)
	result = append(result, historyMsgs...)
	result = append(result, schema.UserMessage(userMessage))
	return result, nil
}

// persistTurn writes the completed user/assistant exchange to the session
// store. Persistence failures are logged, not returned: the user already has
// their answer.
func (a *GuideAgent) persistTurn(ctx context.Context, threadID, userMessage, answer string) {
	if a.sessions == nil {
		return
	}
	turn := []session.Message{
		{Role: session.RoleUser, Content: userMessage},
		{Role: session.RoleAssistant, Content: answer},
	}
	if err := a.sessions.AppendTurn(ctx, threadID, turn); err != nil {
		logging.FromContext(ctx).Warn("session: failed to persist turn",
			slog.String("thread_id", threadID),
			slog.Any("error", err))
	}
}
