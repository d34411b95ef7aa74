package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/flowchain"
	"github.com/aretw0/flowchain/internal/logging"
	"github.com/aretw0/flowchain/pkg/bridge"
	"github.com/aretw0/flowchain/pkg/command"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/signing"
	"github.com/aretw0/flowchain/pkg/value"
)

// Engine defines what the MCP server needs of a flowchain engine.
type Engine interface {
	Run(ctx context.Context, name, userID string, inputs *value.Map) (*value.Map, error)
	Registry() *command.Registry
	Hub() *signing.Hub
}

var _ Engine = (*flowchain.Engine)(nil)

// CommandList is the result of list_commands.
type CommandList struct {
	Commands []string `json:"commands" jsonschema_description:"Names of the registered commands"`
}

// PendingSignature is a signature request waiting for the user, in a form an agent can act on.
type PendingSignature struct {
	ID        string    `json:"id" jsonschema_description:"Request id to pass to answer_signature"`
	Pubkey    string    `json:"pubkey" jsonschema_description:"Base58 public key that must sign"`
	Message   string    `json:"message" jsonschema_description:"Base64 message bytes to sign"`
	ExpiresAt time.Time `json:"expires_at" jsonschema_description:"When the request times out"`
}

// SignatureList is the result of list_signatures.
type SignatureList struct {
	Requests []PendingSignature `json:"requests"`
}

// AnswerResult is the result of answer_signature.
type AnswerResult struct {
	ID     string `json:"id"`
	Status string `json:"status" jsonschema_description:"accepted or rejected"`
}

type listSignaturesArgs struct {
	UserID string `json:"user_id"`
}

type answerArgs struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Pubkey    string `json:"pubkey"`
	Signature string `json:"signature"`
	Reject    string `json:"reject"`
}

// Server wraps a flowchain Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer

	// closing ends open SSE sessions once cancelled.
	closing context.Context
	close   context.CancelFunc
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for tool calls.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("flowchain-mcp", strings.TrimSpace(flowchain.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.closing, s.close = context.WithCancel(context.Background())
	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Handler serves MCP over SSE under basePath: GET basePath/sse opens a session and
// POST basePath/message carries its requests.
func (s *Server) Handler(basePath string) http.Handler {
	basePath = strings.TrimSuffix(basePath, "/")
	sseServer := server.NewSSEServer(s.mcpServer, server.WithStaticBasePath(basePath))

	mux := http.NewServeMux()
	mux.Handle(basePath+"/sse", corsMiddleware(s.untilClose(sseServer.SSEHandler())))
	mux.Handle(basePath+"/message", corsMiddleware(sseServer.MessageHandler()))
	return mux
}

// Close ends every open SSE session so that its handler returns. It is safe to call twice.
func (s *Server) Close() {
	s.close()
}

// untilClose cancels the request context of next when the server is closed.
func (s *Server) untilClose(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		stop := context.AfterFunc(s.closing, cancel)
		defer stop()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: run_command
	runTool := mcp.NewTool("run_command",
		mcp.WithDescription("Run a registered command. Inputs and outputs use the tagged JSON value encoding, e.g. {\"M\":{\"amount\":{\"D\":\"1.5\"}}}."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Command name, see list_commands")),
		mcp.WithString("user_id", mcp.Description("User on whose behalf remote signatures are requested")),
		mcp.WithString("inputs", mcp.Description("Tagged JSON map of command inputs (optional, defaults to an empty map)")),
	)
	s.mcpServer.AddTool(runTool, s.handleRunCommand)

	// TOOL: list_commands
	s.mcpServer.AddTool(mcp.NewTool("list_commands",
		mcp.WithDescription("List the registered command names."),
		mcp.WithOutputSchema[CommandList](),
	), mcp.NewStructuredToolHandler(s.handleListCommands))

	// TOOL: list_signatures
	s.mcpServer.AddTool(mcp.NewTool("list_signatures",
		mcp.WithDescription("List the signature requests waiting for a user."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User whose requests to list")),
		mcp.WithOutputSchema[SignatureList](),
	), mcp.NewStructuredToolHandler(s.handleListSignatures))

	// TOOL: answer_signature
	s.mcpServer.AddTool(mcp.NewTool("answer_signature",
		mcp.WithDescription("Answer a pending signature request with a signature, or reject it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Request id from list_signatures")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User the request was made for")),
		mcp.WithString("pubkey", mcp.Description("Base58 public key that signed")),
		mcp.WithString("signature", mcp.Description("Base58 signature over the request message")),
		mcp.WithString("reject", mcp.Description("Reason to decline instead of signing")),
		mcp.WithOutputSchema[AnswerResult](),
	), mcp.NewStructuredToolHandler(s.handleAnswerSignature))
}

func (s *Server) handleRunCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID := request.GetString("user_id", "")

	inputs := value.NewMap()
	if raw := strings.TrimSpace(request.GetString("inputs", "")); raw != "" {
		v, err := value.DecodeJSON([]byte(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid_inputs: %v", err)), nil
		}
		m, ok := v.(*value.Map)
		if !ok {
			return mcp.NewToolResultError("invalid_inputs: command inputs must be a map"), nil
		}
		inputs = m
	}

	logger := s.logger.With("command", name, "user_id", userID, "transport", "mcp")
	outputs, err := s.engine.Run(ctx, name, userID, inputs)
	if err != nil {
		kind := failureKind(err)
		logger.Warn("MCP command failed", "err", err, "kind", kind)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err)), nil
	}
	data, err := value.EncodeJSON(outputs)
	if err != nil {
		return nil, fmt.Errorf("encode outputs: %w", err)
	}
	logger.Debug("MCP command completed")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleListCommands(_ context.Context, _ mcp.CallToolRequest, _ map[string]any) (CommandList, error) {
	return CommandList{Commands: s.engine.Registry().Names()}, nil
}

func (s *Server) handleListSignatures(_ context.Context, _ mcp.CallToolRequest, args listSignaturesArgs) (SignatureList, error) {
	if args.UserID == "" {
		return SignatureList{}, errors.New("user_id is required")
	}
	pending := s.engine.Hub().Pending(args.UserID)
	out := SignatureList{Requests: make([]PendingSignature, 0, len(pending))}
	for _, p := range pending {
		out.Requests = append(out.Requests, PendingSignature{
			ID:        p.ID,
			Pubkey:    p.Pubkey.String(),
			Message:   base64.StdEncoding.EncodeToString(p.Message),
			ExpiresAt: p.ExpiresAt,
		})
	}
	return out, nil
}

func (s *Server) handleAnswerSignature(_ context.Context, _ mcp.CallToolRequest, args answerArgs) (AnswerResult, error) {
	hub := s.engine.Hub()
	if args.Reject != "" {
		if err := hub.Reject(args.ID, args.UserID, args.Reject); err != nil {
			return AnswerResult{}, err
		}
		return AnswerResult{ID: args.ID, Status: "rejected"}, nil
	}
	if args.Signature == "" {
		return AnswerResult{}, errors.New("either signature or reject is required")
	}
	pubkey, err := solana.PublicKeyFromBase58(args.Pubkey)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("pubkey: %w", err)
	}
	sig, err := solana.SignatureFromBase58(args.Signature)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("signature: %w", err)
	}
	if err := hub.Submit(args.ID, args.UserID, pubkey, sig); err != nil {
		return AnswerResult{}, err
	}
	s.logger.Debug("MCP signature accepted", "id", args.ID, "user_id", args.UserID)
	return AnswerResult{ID: args.ID, Status: "accepted"}, nil
}

// failureKind names err the way the HTTP API does in its error bodies.
func failureKind(err error) string {
	var berr *bridge.Error
	switch {
	case errors.Is(err, command.ErrCommandNotFound):
		return "not_found"
	case errors.As(err, &berr):
		return "marshalling"
	}
	return domain.FailureKind(err)
}
