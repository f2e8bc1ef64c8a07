// Package codex reads Codex CLI rollouts from ~/.codex/sessions.
//
// Rollouts are nested by date (YYYY/MM/DD/rollout-*.jsonl). Every line is an
// envelope {"timestamp", "type", "payload"} where type is one of
// session_meta, turn_context, response_item or event_msg.
package codex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

// Name is the provider name recorded on every session.
const Name = "codex"

const pattern = "**/*.jsonl"

// DefaultRoot returns ~/.codex/sessions, honoring CODEX_HOME.
func DefaultRoot() string {
	if home := os.Getenv("CODEX_HOME"); home != "" {
		return filepath.Join(home, "sessions")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".codex", "sessions")
}

// Provider lists and replays Codex rollouts under a root directory.
type Provider struct {
	root  string
	cache *agentsessions.Cache
}

// New returns a provider reading root. An empty root means DefaultRoot.
func New(root string) *Provider {
	if root == "" {
		root = DefaultRoot()
	}
	return &Provider{root: root, cache: agentsessions.NewCache()}
}

func (p *Provider) Name() string { return Name }

// Root returns the directory the provider scans.
func (p *Provider) Root() string { return p.root }

func (p *Provider) ListSessions() ([]agentsessions.SessionRecord, error) {
	files, err := agentsessions.ListTranscripts(p.root, pattern)
	if err != nil {
		return nil, err
	}
	return p.cache.Refresh(files, p.parseFile), nil
}

func (p *Provider) LoadSessionEvents(rec agentsessions.SessionRecord, includeRaw bool) ([]agentsessions.SessionEvent, error) {
	observations, err := agentsessions.ParseTranscript(rec.FilePath, includeRaw, parseLine)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s session %s: %w", Name, rec.ID, err)
	}
	return agentsessions.Events(observations), nil
}

func (p *Provider) parseFile(file agentsessions.TranscriptFile) (agentsessions.SessionRecord, bool) {
	observations, err := agentsessions.ParseTranscript(file.Path, false, parseLine)
	if err != nil {
		return agentsessions.SessionRecord{}, false
	}
	base := filepath.Base(file.Path)
	return agentsessions.Summarize(Name, file.Path, strings.TrimSuffix(base, filepath.Ext(base)), observations)
}

func parseLine(line []byte, includeRaw bool) (agentsessions.Observation, bool) {
	if !gjson.ValidBytes(line) {
		return agentsessions.Observation{}, false
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return agentsessions.Observation{}, false
	}
	entry, ok := classify(root, line)
	if !ok {
		return agentsessions.Observation{}, false
	}
	return agentsessions.Normalize(entry, line, includeRaw), true
}

type sessionMeta struct {
	ID           agentsessions.LooseString `json:"id"`
	CWD          agentsessions.LooseString `json:"cwd"`
	Originator   agentsessions.LooseString `json:"originator"`
	CLIVersion   agentsessions.LooseString `json:"cli_version"`
	Instructions agentsessions.LooseString `json:"instructions"`
}

type responseItem struct {
	Type      agentsessions.LooseString `json:"type"`
	Role      agentsessions.LooseString `json:"role"`
	Content   json.RawMessage           `json:"content"`
	Name      agentsessions.LooseString `json:"name"`
	Arguments json.RawMessage           `json:"arguments"`
	Input     json.RawMessage           `json:"input"`
	CallID    agentsessions.LooseString `json:"call_id"`
	Output    json.RawMessage           `json:"output"`
}

var toolItemKeys = []string{"type", "name", "arguments", "input", "call_id", "output", "status"}

// classify maps one envelope to an entry. The discriminators are probed
// before any typed decoding so unknown shapes cost nothing.
func classify(root gjson.Result, line []byte) (agentsessions.Entry, bool) {
	lineType := root.Get("type").String()
	payload := root.Get("payload")
	entry := agentsessions.Entry{
		Timestamp: root.Get("timestamp").String(),
		Whole:     line,
	}

	switch lineType {
	case "session_meta":
		var meta sessionMeta
		if err := json.Unmarshal([]byte(payload.Raw), &meta); err != nil {
			return agentsessions.OpaqueEntry(line), true
		}
		entry.SessionID = meta.ID.String()
		entry.WorkingDir = meta.CWD.String()
		entry.Originator = meta.Originator.String()
		entry.Kind = agentsessions.EntryMeta
		if strings.TrimSpace(meta.Instructions.String()) != "" {
			entry.Kind = agentsessions.EntryInstructions
			entry.Actor = agentsessions.ActorSystem
			entry.Category = agentsessions.CategorySystem
			entry.Text = meta.Instructions.String()
		}
		if meta.CLIVersion != "" {
			entry.Data = map[string]any{"cli_version": meta.CLIVersion.String()}
		}
		return entry, true

	case "turn_context":
		entry.Kind = agentsessions.EntryMeta
		entry.WorkingDir = payload.Get("cwd").String()
		return entry, true

	case "response_item":
		return classifyResponseItem(entry, payload, line)

	case "event_msg":
		return classifyEvent(entry, payload)

	default:
		entry.Kind = agentsessions.EntryOther
		entry.Category = lineType
		return entry, true
	}
}

func classifyResponseItem(entry agentsessions.Entry, payload gjson.Result, line []byte) (agentsessions.Entry, bool) {
	var item responseItem
	if err := json.Unmarshal([]byte(payload.Raw), &item); err != nil {
		return agentsessions.OpaqueEntry(line), true
	}
	entry.Content = item.Content
	entry.Whole = json.RawMessage(payload.Raw)

	switch item.Type {
	case "message":
		entry.Kind = agentsessions.EntryMessage
		switch item.Role {
		case "user":
			entry.Actor = agentsessions.ActorUser
			entry.Category = agentsessions.CategoryUserMessage
		case "assistant":
			entry.Actor = agentsessions.ActorAssistant
			entry.Category = agentsessions.CategoryAssistantMessage
		case "developer", "system":
			entry.Kind = agentsessions.EntryInstructions
			entry.Actor = agentsessions.ActorSystem
			entry.Category = agentsessions.CategorySystem
		default:
			entry.Kind = agentsessions.EntryOther
			entry.Actor = item.Role.String()
			entry.Category = agentsessions.CategoryEvent
		}
		return entry, true

	case "function_call", "custom_tool_call":
		args := item.Arguments
		if item.Type == "custom_tool_call" {
			args = item.Input
		}
		input := decodeArguments(args)
		entry.Kind = agentsessions.EntryMessage
		entry.Actor = agentsessions.ActorAssistant
		entry.Category = agentsessions.CategoryToolUse
		entry.Content = nil
		entry.Tool = &agentsessions.SessionToolEvent{
			Phase:      agentsessions.ToolPhaseUse,
			Name:       item.Name.String(),
			Identifier: item.CallID.String(),
			Input:      input,
			Extras:     agentsessions.Without(agentsessions.ObjectFields(entry.Whole), toolItemKeys...),
		}
		entry.Text = "Tool call: " + item.Name.String()
		if pretty := agentsessions.PrettyJSON(input); pretty != "" {
			entry.Text += "\n" + pretty
		}
		return entry, true

	case "function_call_output", "custom_tool_call_output":
		entry.Kind = agentsessions.EntryMessage
		entry.Actor = agentsessions.ActorTool
		entry.Category = agentsessions.CategoryToolResult
		entry.Content = nil
		entry.Tool = &agentsessions.SessionToolEvent{
			Phase:      agentsessions.ToolPhaseResult,
			Name:       item.Name.String(),
			Identifier: item.CallID.String(),
			Extras:     agentsessions.Without(agentsessions.ObjectFields(entry.Whole), toolItemKeys...),
		}
		if !agentsessions.IsNullJSON(item.Output) {
			entry.Tool.Output = item.Output
		}
		entry.Text = outputText(item.Output)
		return entry, true

	case "reasoning":
		entry.Kind = agentsessions.EntryMeta
		return entry, true

	default:
		entry.Kind = agentsessions.EntryOther
		entry.Category = item.Type.String()
		if entry.Category == "" {
			entry.Category = agentsessions.CategoryEvent
		}
		return entry, true
	}
}

func classifyEvent(entry agentsessions.Entry, payload gjson.Result) (agentsessions.Entry, bool) {
	eventType := payload.Get("type").String()
	entry.Whole = json.RawMessage(payload.Raw)
	entry.Data = map[string]any{"event_type": eventType}

	switch {
	case strings.HasPrefix(eventType, "agent_reasoning"):
		entry.Kind = agentsessions.EntryMeta
		return entry, true
	case eventType == "token_count":
		info := payload.Get("info")
		if !info.Exists() || info.Type == gjson.Null {
			entry.Kind = agentsessions.EntryMeta
			return entry, true
		}
		entry.Kind = agentsessions.EntryUsage
		entry.Category = agentsessions.CategoryUsage
		entry.Text = agentsessions.PrettyJSON(json.RawMessage(info.Raw))
		return entry, true
	default:
		// Codex mirrors user and agent messages here; they are shown but
		// never counted as user input.
		entry.Kind = agentsessions.EntryOther
		entry.Category = agentsessions.CategoryEvent
		if msg := payload.Get("message"); msg.Type == gjson.String {
			entry.Text = msg.String()
		}
		return entry, true
	}
}

// decodeArguments keeps JSON-encoded argument strings as JSON and wraps any
// other string as a JSON string. Arguments that are already structured JSON
// are kept as they are.
func decodeArguments(raw json.RawMessage) json.RawMessage {
	if agentsessions.IsNullJSON(raw) {
		return nil
	}
	var args string
	if err := json.Unmarshal(raw, &args); err != nil {
		return raw
	}
	args = strings.TrimSpace(args)
	if args == "" {
		return nil
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, _ := json.Marshal(args)
	return quoted
}

// outputText renders a tool output. Outputs are usually a string, sometimes
// itself JSON of the form {"output": "...", "metadata": {...}}.
func outputText(output json.RawMessage) string {
	if agentsessions.IsNullJSON(output) {
		return ""
	}
	var s string
	if err := json.Unmarshal(output, &s); err != nil {
		return agentsessions.ExtractText(output)
	}
	if inner := gjson.Get(s, "output"); gjson.Valid(s) && inner.Type == gjson.String {
		return strings.TrimSpace(inner.String())
	}
	return strings.TrimSpace(s)
}
