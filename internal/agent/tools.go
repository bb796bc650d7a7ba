package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/uiguide/uiguide-go/internal/logging"
	"github.com/uiguide/uiguide-go/internal/rag"
)

const (
	// docRetrieverName is the tool name the model calls to search the index.
	docRetrieverName = "doc_retriever"

	// sourcePreviewChars caps the excerpt length in a citation.
	sourcePreviewChars = 300

	// maxSources caps the number of citations returned per query.
	maxSources = 5
)

// toolHandler executes one tool call. It receives the raw JSON arguments and
// the per-query source tracker, and returns the tool result content for the
// model. Handlers never fail the query: errors are reported to the model as
// text so it can recover or apologise.
type toolHandler func(ctx context.Context, arguments string, tracker *sourceTracker) string

// SourceCitation is one document excerpt that informed an answer.
type SourceCitation struct {
	// Content is a preview of the excerpt, capped at 300 characters.
	Content string `json:"content"`
	// Document is the source document's name.
	Document string `json:"document"`
	// Page is the 1-based page number within the document.
	Page string `json:"page"`
	// Date is the document's creation date, when the PDF metadata carried one.
	Date string `json:"date"`
	// Source is the path of the source file at index time.
	Source string `json:"source"`
}

// docRetrieverInfo describes the retrieval tool to the model.
func docRetrieverInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: docRetrieverName,
		Desc: "Search knowledge base for relevant documents.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The search query describing the information needed.",
				Required: true,
			},
		}),
	}
}

// docRetrieverArgs is the JSON argument shape of the doc_retriever tool.
type docRetrieverArgs struct {
	Query string `json:"query"`
}

// handleDocRetriever runs a retrieval for the model's query, records the
// citations, and formats the full excerpts as the tool result.
func (a *GuideAgent) handleDocRetriever(ctx context.Context, arguments string, tracker *sourceTracker) string {
	var args docRetrieverArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return fmt.Sprintf("Invalid tool arguments: %v", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return "Invalid tool arguments: query must not be empty"
	}

	docs, err := a.retriever.Retrieve(ctx, args.Query, a.topK)
	if err != nil {
		logging.FromContext(ctx).Warn("agent: document retrieval failed", slog.Any("error", err))
		return fmt.Sprintf("Knowledge base unavailable: %v", err)
	}
	if len(docs) == 0 {
		return "No relevant documents found."
	}

	for _, doc := range docs {
		tracker.Add(citationFromDocument(doc))
	}

	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf(
			"[Source %d] Document: %s (Page %d)\n\nContent:\n%s",
			i+1, doc.DocumentName, doc.PageNo, doc.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// collectSources retrieves citations directly for the user's message. Used as
// a fallback when the tool ran but recorded nothing.
func (a *GuideAgent) collectSources(ctx context.Context, query string) []SourceCitation {
	docs, err := a.retriever.Retrieve(ctx, query, a.topK)
	if err != nil {
		logging.FromContext(ctx).Warn("agent: source recovery retrieval failed", slog.Any("error", err))
		return []SourceCitation{}
	}
	sources := make([]SourceCitation, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, citationFromDocument(doc))
	}
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	return sources
}

// citationFromDocument converts a retrieved document into a citation with a
// truncated content preview.
func citationFromDocument(doc rag.Document) SourceCitation {
	content := doc.Content
	if runes := []rune(content); len(runes) > sourcePreviewChars {
		content = string(runes[:sourcePreviewChars])
	}
	date := doc.Metadata["date"]
	return SourceCitation{
		Content:  content,
		Document: doc.DocumentName,
		Page:     strconv.Itoa(doc.PageNo),
		Date:     date,
		Source:   doc.Source,
	}
}

// sourceTracker accumulates citations across the tool calls of one query,
// capped at maxSources.
type sourceTracker struct {
	sources []SourceCitation
}

// newSourceTracker returns an empty tracker.
func newSourceTracker() *sourceTracker {
	return &sourceTracker{sources: []SourceCitation{}}
}

// Add records a citation unless the cap has been reached.
func (t *sourceTracker) Add(s SourceCitation) {
	if len(t.sources) >= maxSources {
		return
	}
	t.sources = append(t.sources, s)
}

// Sources returns the recorded citations, oldest-first.
func (t *sourceTracker) Sources() []SourceCitation {
	return t.sources
}
