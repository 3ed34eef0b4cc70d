package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	graphstore "github.com/stoneforge-ai/stoneforge-sub017"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

// ElementResponse is the structured result returned by element tools.
type ElementResponse struct {
	Element *domain.Element `json:"element" jsonschema_description:"The element after the operation"`
}

// TaskListResponse carries the results of the ready/blocked queries.
type TaskListResponse struct {
	Tasks []*domain.Element `json:"tasks" jsonschema_description:"Matching tasks"`
	Count int               `json:"count" jsonschema_description:"Number of matching tasks"`
}

// DependencyResponse is the structured result of add_dependency.
type DependencyResponse struct {
	Dependency *domain.Dependency `json:"dependency" jsonschema_description:"The dependency edge"`
	Blocked    bool               `json:"blocked" jsonschema_description:"Whether the dependent task is now blocked"`
}

// Engine defines the interface required by the MCP server.
type Engine interface {
	CreateElement(ctx context.Context, el *domain.Element) error
	GetElement(ctx context.Context, id string) (*domain.Element, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, actor string) error
	CloseTask(ctx context.Context, id, actor string) error
	Reconcile(ctx context.Context, id string) error
	AddDependency(ctx context.Context, input graphstore.AddDependencyInput) (*domain.Dependency, error)
	RemoveDependency(ctx context.Context, blockedID, blockerID string, t domain.DependencyType, actor string) error
	Ready(ctx context.Context) ([]*domain.Element, error)
	Blocked(ctx context.Context) ([]*domain.Element, error)
	Events(ctx context.Context, elementID string) ([]*domain.Event, error)
	Dependencies(ctx context.Context, id string, types ...domain.DependencyType) ([]*domain.Dependency, error)
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine, version string) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("graphstore-mcp", version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	createTool := mcp.NewTool("create_element",
		mcp.WithDescription("Create a new element. Tasks get a status lifecycle; other kinds are inert."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Element kind: task, document, agent or channel")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable title")),
		mcp.WithString("status", mcp.Description("Initial task status (defaults to open)")),
		mcp.WithString("actor", mcp.Description("Actor attributed in the audit log")),
		mcp.WithOutputSchema[ElementResponse](),
	)
	s.mcpServer.AddTool(createTool, mcp.NewStructuredToolHandler(s.handleCreateElement))

	statusTool := mcp.NewTool("update_status",
		mcp.WithDescription("Set a task's explicit status. The blocked status is computed and cannot be set directly."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status")),
		mcp.WithString("actor", mcp.Description("Actor attributed in the audit log")),
		mcp.WithOutputSchema[ElementResponse](),
	)
	s.mcpServer.AddTool(statusTool, mcp.NewStructuredToolHandler(s.handleUpdateStatus))

	closeTool := mcp.NewTool("close_task",
		mcp.WithDescription("Close a task and release anything it was blocking."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("actor", mcp.Description("Actor attributed in the audit log")),
		mcp.WithOutputSchema[ElementResponse](),
	)
	s.mcpServer.AddTool(closeTool, mcp.NewStructuredToolHandler(s.handleCloseTask))

	addDepTool := mcp.NewTool("add_dependency",
		mcp.WithDescription("Add a dependency edge between two elements. Blocking edges may flip the dependent task to blocked."),
		mcp.WithString("blocker_id", mcp.Required(), mcp.Description("Element that does the blocking")),
		mcp.WithString("blocked_id", mcp.Required(), mcp.Description("Element that depends on the blocker")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Dependency type: blocks, awaits, parent-child or references")),
		mcp.WithString("metadata", mcp.Description("JSON object with edge metadata, e.g. a timer gate spec")),
		mcp.WithString("actor", mcp.Description("Actor attributed in the audit log")),
		mcp.WithOutputSchema[DependencyResponse](),
	)
	s.mcpServer.AddTool(addDepTool, mcp.NewStructuredToolHandler(s.handleAddDependency))

	removeDepTool := mcp.NewTool("remove_dependency",
		mcp.WithDescription("Remove a dependency edge. May unblock the dependent task."),
		mcp.WithString("blocker_id", mcp.Required(), mcp.Description("Element that does the blocking")),
		mcp.WithString("blocked_id", mcp.Required(), mcp.Description("Element that depends on the blocker")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Dependency type")),
		mcp.WithString("actor", mcp.Description("Actor attributed in the audit log")),
		mcp.WithOutputSchema[ElementResponse](),
	)
	s.mcpServer.AddTool(removeDepTool, mcp.NewStructuredToolHandler(s.handleRemoveDependency))

	reconcileTool := mcp.NewTool("reconcile",
		mcp.WithDescription("Force a reconciliation pass over an element, picking up elapsed timer gates."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Element ID")),
		mcp.WithOutputSchema[ElementResponse](),
	)
	s.mcpServer.AddTool(reconcileTool, mcp.NewStructuredToolHandler(s.handleReconcile))

	readyTool := mcp.NewTool("list_ready",
		mcp.WithDescription("List tasks that are actionable right now (open or in progress, not blocked)."),
		mcp.WithOutputSchema[TaskListResponse](),
	)
	s.mcpServer.AddTool(readyTool, mcp.NewStructuredToolHandler(s.handleListReady))

	blockedTool := mcp.NewTool("list_blocked",
		mcp.WithDescription("List tasks whose effective status is blocked."),
		mcp.WithOutputSchema[TaskListResponse](),
	)
	s.mcpServer.AddTool(blockedTool, mcp.NewStructuredToolHandler(s.handleListBlocked))

	// TOOL: get_events
	s.mcpServer.AddTool(mcp.NewTool("get_events",
		mcp.WithDescription("Get the audit trail for an element, oldest first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Element ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		events, err := s.engine.Events(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("events failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(events)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleCreateElement(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ElementResponse, error) {
	kindRaw, _ := args["kind"].(string)
	title, _ := args["title"].(string)
	actor, _ := args["actor"].(string)

	kind, err := domain.ParseKind(kindRaw)
	if err != nil {
		return ElementResponse{}, err
	}

	var el *domain.Element
	if kind == domain.KindTask {
		status := domain.StatusOpen
		if raw, ok := args["status"].(string); ok && raw != "" {
			status, err = domain.ParseStatus(raw)
			if err != nil {
				return ElementResponse{}, err
			}
		}
		el = domain.NewTask(title, status)
	} else {
		el = domain.NewElement(kind, title)
	}
	el.CreatedBy = actor

	if err := s.engine.CreateElement(ctx, el); err != nil {
		return ElementResponse{}, fmt.Errorf("create failed: %w", err)
	}
	return ElementResponse{Element: el}, nil
}

func (s *Server) handleUpdateStatus(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ElementResponse, error) {
	id, _ := args["id"].(string)
	statusRaw, _ := args["status"].(string)
	actor, _ := args["actor"].(string)

	status, err := domain.ParseStatus(statusRaw)
	if err != nil {
		return ElementResponse{}, err
	}

	if err := s.engine.UpdateStatus(ctx, id, status, actor); err != nil {
		return ElementResponse{}, fmt.Errorf("update failed: %w", err)
	}
	return s.elementResponse(ctx, id)
}

func (s *Server) handleCloseTask(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ElementResponse, error) {
	id, _ := args["id"].(string)
	actor, _ := args["actor"].(string)

	if err := s.engine.CloseTask(ctx, id, actor); err != nil {
		return ElementResponse{}, fmt.Errorf("close failed: %w", err)
	}
	return s.elementResponse(ctx, id)
}

func (s *Server) handleAddDependency(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DependencyResponse, error) {
	blockerID, _ := args["blocker_id"].(string)
	blockedID, _ := args["blocked_id"].(string)
	depType, _ := args["type"].(string)
	actor, _ := args["actor"].(string)

	var metadata map[string]any
	if metaStr, ok := args["metadata"].(string); ok && metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &metadata); err != nil {
			return DependencyResponse{}, fmt.Errorf("invalid metadata: %w", err)
		}
	}

	dep, err := s.engine.AddDependency(ctx, graphstore.AddDependencyInput{
		BlockerID: blockerID,
		BlockedID: blockedID,
		Type:      domain.DependencyType(depType),
		Metadata:  metadata,
		Actor:     actor,
	})
	if err != nil {
		return DependencyResponse{}, fmt.Errorf("add dependency failed: %w", err)
	}

	blocked := false
	if el, err := s.engine.GetElement(ctx, blockedID); err == nil && el.Task != nil {
		blocked = el.Task.Blocked
	}
	return DependencyResponse{Dependency: dep, Blocked: blocked}, nil
}

func (s *Server) handleRemoveDependency(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ElementResponse, error) {
	blockerID, _ := args["blocker_id"].(string)
	blockedID, _ := args["blocked_id"].(string)
	typeRaw, _ := args["type"].(string)
	actor, _ := args["actor"].(string)

	depType, err := domain.ParseDependencyType(typeRaw)
	if err != nil {
		return ElementResponse{}, err
	}

	if err := s.engine.RemoveDependency(ctx, blockedID, blockerID, depType, actor); err != nil {
		return ElementResponse{}, fmt.Errorf("remove dependency failed: %w", err)
	}
	return s.elementResponse(ctx, blockedID)
}

func (s *Server) handleReconcile(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ElementResponse, error) {
	id, _ := args["id"].(string)

	if err := s.engine.Reconcile(ctx, id); err != nil {
		return ElementResponse{}, fmt.Errorf("reconcile failed: %w", err)
	}
	return s.elementResponse(ctx, id)
}

func (s *Server) handleListReady(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TaskListResponse, error) {
	tasks, err := s.engine.Ready(ctx)
	if err != nil {
		return TaskListResponse{}, fmt.Errorf("ready failed: %w", err)
	}
	return TaskListResponse{Tasks: tasks, Count: len(tasks)}, nil
}

func (s *Server) handleListBlocked(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TaskListResponse, error) {
	tasks, err := s.engine.Blocked(ctx)
	if err != nil {
		return TaskListResponse{}, fmt.Errorf("blocked failed: %w", err)
	}
	return TaskListResponse{Tasks: tasks, Count: len(tasks)}, nil
}

func (s *Server) elementResponse(ctx context.Context, id string) (ElementResponse, error) {
	el, err := s.engine.GetElement(ctx, id)
	if err != nil {
		return ElementResponse{}, err
	}
	return ElementResponse{Element: el}, nil
}
