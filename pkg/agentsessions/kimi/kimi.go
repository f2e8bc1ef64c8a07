// Package kimi reads Kimi CLI sessions from ~/.local/share/kimi/sessions.
//
// Sessions are grouped by the MD5 of their work directory, either as
// <hash>/<session>.jsonl or <hash>/<session>/context.jsonl. Lines carry no
// working directory; it is recovered from the work_dirs list in kimi.json.
package kimi

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

// Name is the provider name recorded on every session.
const Name = "kimi"

const (
	pattern     = "**/*.jsonl"
	contextFile = "context.jsonl"
)

// DefaultShareDir returns ~/.local/share/kimi.
func DefaultShareDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "kimi")
}

// DefaultRoot returns the sessions directory under DefaultShareDir.
func DefaultRoot() string {
	dir := DefaultShareDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "sessions")
}

// DefaultConfigPath returns the kimi.json path under DefaultShareDir.
func DefaultConfigPath() string {
	dir := DefaultShareDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "kimi.json")
}

// Provider lists and replays Kimi sessions.
type Provider struct {
	root       string
	configPath string
	cache      *agentsessions.Cache
}

// New returns a provider reading sessions under root and work directories
// from configPath. Empty arguments select the defaults.
func New(root, configPath string) *Provider {
	if root == "" {
		root = DefaultRoot()
	}
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	return &Provider{root: root, configPath: configPath, cache: agentsessions.NewCache()}
}

func (p *Provider) Name() string { return Name }

// Root returns the directory the provider scans.
func (p *Provider) Root() string { return p.root }

func (p *Provider) ListSessions() ([]agentsessions.SessionRecord, error) {
	files, err := agentsessions.ListTranscripts(p.root, pattern)
	if err != nil {
		return nil, err
	}
	// A broken kimi.json only costs the working directories.
	workDirs, _ := LoadWorkDirs(p.configPath)
	return p.cache.Refresh(files, func(file agentsessions.TranscriptFile) (agentsessions.SessionRecord, bool) {
		observations, err := agentsessions.ParseTranscript(file.Path, false, p.parser(file.Path, workDirs))
		if err != nil {
			return agentsessions.SessionRecord{}, false
		}
		return agentsessions.Summarize(Name, file.Path, SessionID(file.Path), observations)
	}), nil
}

func (p *Provider) LoadSessionEvents(rec agentsessions.SessionRecord, includeRaw bool) ([]agentsessions.SessionEvent, error) {
	workDirs, _ := LoadWorkDirs(p.configPath)
	observations, err := agentsessions.ParseTranscript(rec.FilePath, includeRaw, p.parser(rec.FilePath, workDirs))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s session %s: %w", Name, rec.ID, err)
	}
	return agentsessions.Events(observations), nil
}

func (p *Provider) parser(path string, workDirs map[string]string) agentsessions.LineParser {
	workDir := workDirs[hashDir(p.root, path)]
	return func(line []byte, includeRaw bool) (agentsessions.Observation, bool) {
		entry, ok := decodeLine(line)
		if !ok {
			return agentsessions.Observation{}, false
		}
		entry.WorkingDir = workDir
		return agentsessions.Normalize(entry, line, includeRaw), true
	}
}

// LoadWorkDirs reads kimi.json and maps the MD5 hex of every known work
// directory to the directory itself. A missing file yields an empty map.
func LoadWorkDirs(configPath string) (map[string]string, error) {
	dirs := make(map[string]string)
	if configPath == "" {
		return dirs, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dirs, nil
		}
		return dirs, fmt.Errorf("failed to read %s: %w", configPath, err)
	}
	if !gjson.ValidBytes(data) {
		return dirs, fmt.Errorf("invalid JSON in %s", configPath)
	}
	gjson.GetBytes(data, "work_dirs.#.path").ForEach(func(_, value gjson.Result) bool {
		if path := value.String(); path != "" {
			dirs[HashWorkDir(path)] = path
		}
		return true
	})
	return dirs, nil
}

// HashWorkDir returns the directory name Kimi uses for a work directory.
func HashWorkDir(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

// relParts splits path relative to root; nil when path is outside root.
func relParts(root, path string) []string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

func hashDir(root, path string) string {
	parts := relParts(root, path)
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// SessionID derives a session id from the transcript's location: the
// directory name for <session>/context.jsonl, the file stem otherwise.
func SessionID(path string) string {
	base := filepath.Base(path)
	if base == contextFile {
		return filepath.Base(filepath.Dir(path))
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type rawLine struct {
	Role         agentsessions.LooseString `json:"role"`
	Type         agentsessions.LooseString `json:"type"`
	Content      json.RawMessage           `json:"content"`
	Message      json.RawMessage           `json:"message"`
	FunctionCall json.RawMessage           `json:"function_call"`
	Arguments    json.RawMessage           `json:"arguments"`
	Name         agentsessions.LooseString `json:"name"`
	ToolCalls    []rawToolCall             `json:"tool_calls"`
	ToolCallID   agentsessions.LooseString `json:"tool_call_id"`
	TokenCount   json.RawMessage           `json:"token_count"`
	InputTokens  json.RawMessage           `json:"input_tokens"`
	OutputTokens json.RawMessage           `json:"output_tokens"`
	ID           json.RawMessage           `json:"id"`
	Timestamp    json.RawMessage           `json:"timestamp"`
}

var rawLineKeys = []string{
	"role", "type", "content", "message", "function_call", "arguments", "name",
	"tool_calls", "tool_call_id", "token_count", "input_tokens", "output_tokens",
	"id", "timestamp",
}

type rawFunction struct {
	Name      agentsessions.LooseString `json:"name"`
	Arguments json.RawMessage           `json:"arguments"`
}

type rawToolCall struct {
	ID       agentsessions.LooseString `json:"id"`
	Type     agentsessions.LooseString `json:"type"`
	Function rawFunction               `json:"function"`
}

// functionCall returns the legacy single call of an assistant turn. The
// function_call member is either {name, arguments} or a bare name with the
// arguments beside it.
func (raw rawLine) functionCall() (rawToolCall, bool) {
	if agentsessions.IsNullJSON(raw.FunctionCall) {
		return rawToolCall{}, false
	}
	var fn rawFunction
	if err := json.Unmarshal(raw.FunctionCall, &fn); err != nil {
		var name string
		if err := json.Unmarshal(raw.FunctionCall, &name); err != nil {
			return rawToolCall{}, false
		}
		fn.Name = agentsessions.LooseString(name)
	}
	if fn.Name == "" {
		return rawToolCall{}, false
	}
	if agentsessions.IsNullJSON(fn.Arguments) {
		fn.Arguments = raw.Arguments
	}
	return rawToolCall{Type: "function", Function: fn}, true
}

func decodeLine(line []byte) (agentsessions.Entry, bool) {
	var raw rawLine
	extras, err := agentsessions.DecodeObject(line, &raw, rawLineKeys...)
	if errors.Is(err, agentsessions.ErrFieldType) {
		return agentsessions.OpaqueEntry(line), true
	}
	if err != nil {
		return agentsessions.Entry{}, false
	}

	content := raw.Content
	if agentsessions.IsNullJSON(content) {
		content = raw.Message
	}
	entry := agentsessions.Entry{
		Content:   content,
		Timestamp: timestampString(raw.Timestamp),
		Whole:     line,
	}

	switch raw.Role {
	case "user":
		entry.Kind = agentsessions.EntryMessage
		entry.Actor = agentsessions.ActorUser
		entry.Category = agentsessions.CategoryUserMessage
	case "assistant":
		entry.Kind = agentsessions.EntryMessage
		entry.Actor = agentsessions.ActorAssistant
		entry.Category = agentsessions.CategoryAssistantMessage
		calls := raw.ToolCalls
		if call, ok := raw.functionCall(); ok {
			calls = append(calls, call)
		}
		if len(calls) > 0 {
			entry.Tool, entry.Text = toolCalls(content, calls)
			entry.Data = map[string]any{"tool_call_count": len(calls)}
		}
	case "tool":
		entry.Kind = agentsessions.EntryMessage
		entry.Actor = agentsessions.ActorTool
		entry.Category = agentsessions.CategoryToolResult
		entry.Tool = &agentsessions.SessionToolEvent{
			Phase:      agentsessions.ToolPhaseResult,
			Name:       raw.Name.String(),
			Identifier: raw.ToolCallID.String(),
			Extras:     agentsessions.Without(extras),
		}
		if !agentsessions.IsNullJSON(content) {
			entry.Tool.Output = content
		}
	case "system":
		entry.Kind = agentsessions.EntryInstructions
		entry.Actor = agentsessions.ActorSystem
		entry.Category = agentsessions.CategorySystem
	case "_checkpoint":
		entry.Kind = agentsessions.EntryCheckpoint
		entry.Category = agentsessions.CategoryCheckpoint
		entry.Text = "Checkpoint"
		if id := strings.Trim(string(raw.ID), `"`); id != "" && id != "null" {
			entry.Text += " " + id
			entry.Data = map[string]any{"checkpoint_id": id}
		}
	case "_usage":
		entry.Kind = agentsessions.EntryUsage
		entry.Category = agentsessions.CategoryUsage
		entry.Text, entry.Data = usage(raw)
	default:
		entry.Kind = agentsessions.EntryOther
		entry.Actor = raw.Role.String()
		entry.Category = raw.Type.String()
		if entry.Category == "" {
			entry.Category = agentsessions.CategoryEvent
		}
	}
	return entry, true
}

// usage renders a _usage line. token_count is either a number or an object
// of per-kind counts; input_tokens and output_tokens are reported as well.
func usage(raw rawLine) (string, map[string]any) {
	var parts []string
	data := make(map[string]any)
	if !agentsessions.IsNullJSON(raw.TokenCount) {
		if n, ok := tokenCount(raw.TokenCount); ok {
			data["token_count"] = n
			parts = append(parts, fmt.Sprintf("Token count: %d", n))
		} else {
			data["token_count"] = gjson.ParseBytes(raw.TokenCount).Value()
			parts = append(parts, "Token count:\n"+agentsessions.PrettyJSON(raw.TokenCount))
		}
	}
	for _, field := range []struct {
		key, label string
		raw        json.RawMessage
	}{
		{"input_tokens", "Input tokens", raw.InputTokens},
		{"output_tokens", "Output tokens", raw.OutputTokens},
	} {
		if n, ok := tokenCount(field.raw); ok {
			data[field.key] = n
			parts = append(parts, fmt.Sprintf("%s: %d", field.label, n))
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, "\n"), data
}

func tokenCount(raw json.RawMessage) (int64, bool) {
	value := gjson.ParseBytes(raw)
	if value.Type != gjson.Number {
		return 0, false
	}
	return value.Int(), true
}

// toolCalls builds the Use event for an assistant turn with tool calls. The
// first call becomes the event's tool; every call is listed in the text.
func toolCalls(content json.RawMessage, calls []rawToolCall) (*agentsessions.SessionToolEvent, string) {
	var parts []string
	if text := agentsessions.ExtractText(content); text != "" {
		parts = append(parts, text)
	}
	var first *agentsessions.SessionToolEvent
	for _, call := range calls {
		input := decodeArguments(call.Function.Arguments)
		line := "Tool call: " + call.Function.Name.String()
		if pretty := agentsessions.PrettyJSON(input); pretty != "" {
			line += "\n" + pretty
		}
		parts = append(parts, line)
		if first == nil {
			first = &agentsessions.SessionToolEvent{
				Phase:      agentsessions.ToolPhaseUse,
				Name:       call.Function.Name.String(),
				Identifier: call.ID.String(),
				Input:      input,
			}
		}
	}
	return first, strings.Join(parts, "\n\n")
}

// decodeArguments unwraps JSON-encoded argument strings. Arguments that are
// already objects are kept; other strings stay JSON strings.
func decodeArguments(raw json.RawMessage) json.RawMessage {
	if agentsessions.IsNullJSON(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return raw
}

// timestampString accepts RFC3339 strings; numeric epochs are not used by
// current Kimi builds and are ignored.
func timestampString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
