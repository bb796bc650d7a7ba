package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/uiguide/uiguide-go/internal/agent"
)

// maxMessageChars is the maximum accepted length of a chat message.
const maxMessageChars = 2000

// maxThreadIDChars is the maximum accepted length of a client-supplied
// thread ID.
const maxThreadIDChars = 64

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// AllowedOrigins is the CORS origin allowlist. "*" allows any origin.
	// If empty, CORS headers are not emitted.
	AllowedOrigins []string
	// Registry is the Prometheus registry server metrics register into and
	// GET /api/metrics serves from. If nil, a fresh registry is created.
	Registry *prometheus.Registry
}

// querier is the interface handleChat calls to answer a message.
// *agent.GuideAgent satisfies it; tests inject a fake.
type querier interface {
	// Query answers userMessage within the given thread and returns the
	// result with citations.
	Query(ctx context.Context, userMessage, threadID string) (*agent.Result, error)
}

// documentLister is the interface handleDocuments calls to enumerate the
// indexed source documents. The vector store satisfies it.
type documentLister interface {
	// DocumentNames returns the distinct source document display names.
	DocumentNames(ctx context.Context) ([]string, error)
}

// Server is the HTTP server that wraps the GuideAgent.
type Server struct {
	// querier answers chat messages; the agent in production, a fake in tests.
	querier querier
	// documents enumerates indexed documents for GET /api/documents.
	// May be nil, in which case the endpoint returns an empty list.
	documents documentLister
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's natural language question.
	Message string `json:"message"`
	// ThreadID identifies the conversation to continue. If empty a new
	// thread ID is generated and returned in the response.
	ThreadID string `json:"thread_id"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Documents is the sorted list of indexed source document names.
	Documents []string `json:"documents"`
	// Count is len(Documents), provided for client convenience.
	Count int `json:"count"`
}

// healthResponse is the JSON response for GET /api/health and GET /.
type healthResponse struct {
	// Status is always "healthy" when the process is serving.
	Status string `json:"status"`
	// Message is a human-readable service description.
	Message string `json:"message"`
	// Version is the running binary version.
	Version string `json:"version"`
}
