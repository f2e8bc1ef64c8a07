package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/neilberkman/agentrider/internal/core/logging"
	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

// ListSessionsArgs defines arguments for the list_sessions tool
type ListSessionsArgs struct {
	Provider string `json:"provider,omitempty"`
	Project  string `json:"project,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// LoadSessionEventsArgs defines arguments for the load_session_events tool
type LoadSessionEventsArgs struct {
	SessionID  string `json:"session_id"`
	Mode       string `json:"mode,omitempty"`
	IncludeRaw bool   `json:"include_raw,omitempty"`
}

// CanonicalizePathArgs defines arguments for the canonicalize_path tool
type CanonicalizePathArgs struct {
	Path string `json:"path"`
}

// SessionSummary represents a session in the list view
type SessionSummary struct {
	Provider         string `json:"provider"`
	SessionID        string `json:"session_id"`
	Project          string `json:"project,omitempty"`
	FirstUserMessage string `json:"first_user_message,omitempty"`
	LastUserMessage  string `json:"last_user_message,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
	MessageCount     int    `json:"message_count"`
}

// SessionEvents is the load_session_events result
type SessionEvents struct {
	Session agentsessions.SessionRecord  `json:"session"`
	Mode    string                       `json:"mode"`
	Events  []agentsessions.SessionEvent `json:"events"`
}

// CanonicalPath is the canonicalize_path result
type CanonicalPath struct {
	Path      string `json:"path"`
	Canonical string `json:"canonical"`
	Resolved  bool   `json:"resolved"`
}

type handler = server.ToolHandlerFunc

// NewServer builds the MCP server and registers its tools
func NewServer(reg *agentsessions.Registry, logger *slog.Logger, version string) *server.MCPServer {
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer("AgentRider", version)

	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List recent Claude Code, Codex and Kimi sessions, newest first, optionally filtered by provider or project directory"),
		mcp.WithString("provider",
			mcp.Description("Only sessions from this provider (claude, codex, kimi)")),
		mcp.WithString("project",
			mcp.Description("Only sessions whose working directory is inside this path")),
		mcp.WithNumber("limit",
			mcp.Description("Max sessions to return (default: 20)")),
	)
	s.AddTool(listTool, makeListSessionsHandler(reg, logger))

	eventsTool := mcp.NewTool("load_session_events",
		mcp.WithDescription("Replay a session as normalized events. The id may be a unique prefix."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id to load")),
		mcp.WithString("mode",
			mcp.Description("full (default), conversation or user")),
		mcp.WithBoolean("include_raw",
			mcp.Description("Attach the source JSON line to each event")),
	)
	s.AddTool(eventsTool, makeLoadSessionEventsHandler(reg))

	canonicalTool := mcp.NewTool("canonicalize_path",
		mcp.WithDescription("Resolve a path to the absolute, symlink-free form used to match session working directories"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to resolve")),
	)
	s.AddTool(canonicalTool, makeCanonicalizePathHandler())

	return s
}

// StartServer serves the MCP tools over stdio
func StartServer(reg *agentsessions.Registry, logger *slog.Logger, version string) error {
	return server.ServeStdio(NewServer(reg, logger, version))
}

func decodeArgs(request mcp.CallToolRequest, v any) error {
	argsBytes, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func makeListSessionsHandler(reg *agentsessions.Registry, logger *slog.Logger) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListSessionsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		limit := args.Limit
		if limit <= 0 {
			limit = 20
		}

		var records []agentsessions.SessionRecord
		var err error
		if args.Provider != "" {
			records, err = reg.ListProvider(args.Provider)
			if err != nil && len(records) == 0 {
				return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
			}
		} else {
			records, err = reg.ListSessions()
		}
		if logger != nil {
			logging.ProviderFailures(logger, err)
		}
		agentsessions.SortByRecent(records)

		summaries := []SessionSummary{}
		for _, rec := range records {
			if args.Project != "" && !agentsessions.WithinDir(args.Project, rec.WorkingDir) {
				continue
			}
			s := SessionSummary{
				Provider:         rec.Provider,
				SessionID:        rec.ID,
				Project:          rec.WorkingDir,
				FirstUserMessage: rec.FirstUserMessage,
				LastUserMessage:  rec.LastUserMessage,
				MessageCount:     len(rec.UserMessages),
			}
			if !rec.LastTimestamp.IsZero() {
				s.UpdatedAt = rec.LastTimestamp.UTC().Format("2006-01-02T15:04:05Z")
			}
			summaries = append(summaries, s)
			if len(summaries) == limit {
				break
			}
		}
		return jsonResult(summaries)
	}
}

func makeLoadSessionEventsHandler(reg *agentsessions.Registry) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args LoadSessionEventsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		mode, err := agentsessions.ParseLoadMode(args.Mode)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rec, err := reg.FindSession(args.SessionID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		events, err := reg.LoadSessionEvents(rec, mode, args.IncludeRaw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load events: %v", err)), nil
		}
		if events == nil {
			events = []agentsessions.SessionEvent{}
		}
		return jsonResult(SessionEvents{Session: rec, Mode: mode.String(), Events: events})
	}
}

func makeCanonicalizePathHandler() handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args CanonicalizePathArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.Path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		canonical, ok := agentsessions.Canonicalize(args.Path)
		if !ok {
			canonical = args.Path
		}
		return jsonResult(CanonicalPath{Path: args.Path, Canonical: canonical, Resolved: ok})
	}
}
