// Package claude reads Claude Code transcripts from ~/.claude/projects.
//
// Each project directory holds one JSONL file per session:
//
//	{"type":"user","sessionId":"...","cwd":"/repo","message":{"role":"user","content":"..."}}
//	{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{...}}]}}
//
// Sub-agent transcripts (agent-*.jsonl) carry their parent's sessionId, so
// they are identified by file name instead.
package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

// Name is the provider name recorded on every session.
const Name = "claude"

const pattern = "*/*.jsonl"

// DefaultRoot returns ~/.claude/projects.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

// Provider lists and replays Claude Code sessions under a root directory.
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

// ListSessions returns one record per transcript that has user input.
func (p *Provider) ListSessions() ([]agentsessions.SessionRecord, error) {
	files, err := agentsessions.ListTranscripts(p.root, pattern)
	if err != nil {
		return nil, err
	}
	return p.cache.Refresh(files, p.parseFile), nil
}

// LoadSessionEvents replays the transcript behind rec.
func (p *Provider) LoadSessionEvents(rec agentsessions.SessionRecord, includeRaw bool) ([]agentsessions.SessionEvent, error) {
	observations, err := agentsessions.ParseTranscript(rec.FilePath, includeRaw, parser(rec.FilePath))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s session %s: %w", Name, rec.ID, err)
	}
	return agentsessions.Events(observations), nil
}

func (p *Provider) parseFile(file agentsessions.TranscriptFile) (agentsessions.SessionRecord, bool) {
	observations, err := agentsessions.ParseTranscript(file.Path, false, parser(file.Path))
	if err != nil {
		return agentsessions.SessionRecord{}, false
	}
	return agentsessions.Summarize(Name, file.Path, fileStem(file.Path), observations)
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isAgentTranscript(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "agent-")
}

// parser returns the line parser for the file at path.
func parser(path string) agentsessions.LineParser {
	agent := isAgentTranscript(path)
	return func(line []byte, includeRaw bool) (agentsessions.Observation, bool) {
		entry, ok := decodeLine(line)
		if !ok {
			return agentsessions.Observation{}, false
		}
		if agent {
			entry.SessionID = ""
		}
		return agentsessions.Normalize(entry, line, includeRaw), true
	}
}

// rawLine is the subset of a transcript line the provider understands.
type rawLine struct {
	Type      agentsessions.LooseString `json:"type"`
	Timestamp agentsessions.LooseString `json:"timestamp"`
	CWD       agentsessions.LooseString `json:"cwd"`
	SessionID agentsessions.LooseString `json:"sessionId"`
	Message   json.RawMessage           `json:"message"`
	Content   json.RawMessage           `json:"content"`
	Summary   agentsessions.LooseString `json:"summary"`
}

var rawLineKeys = []string{"type", "timestamp", "cwd", "sessionId", "message", "content", "summary"}

type rawMessage struct {
	Role    agentsessions.LooseString `json:"role"`
	Text    agentsessions.LooseString `json:"text"`
	Content json.RawMessage           `json:"content"`
}

// extraDataKeys are leftover top-level fields copied into event data.
var extraDataKeys = map[string]string{
	"uuid":       "uuid",
	"parentUuid": "parent_uuid",
	"gitBranch":  "git_branch",
	"version":    "version",
}

func isMeta(extras *agentsessions.Fields) bool {
	if extras == nil {
		return false
	}
	v, ok := extras.Get("isMeta")
	return ok && string(v) == "true"
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

	var msg rawMessage
	if !agentsessions.IsNullJSON(raw.Message) {
		if len(raw.Message) > 0 && raw.Message[0] == '{' {
			_ = json.Unmarshal(raw.Message, &msg)
		} else {
			// A bare string or array stands in for the content.
			msg.Content = raw.Message
		}
	}
	content := msg.Content
	if agentsessions.IsNullJSON(content) {
		content = raw.Content
	}

	entry := agentsessions.Entry{
		Content:    content,
		Timestamp:  raw.Timestamp.String(),
		WorkingDir: raw.CWD.String(),
		SessionID:  raw.SessionID.String(),
		Whole:      line,
	}
	if agentsessions.IsNullJSON(content) {
		entry.Text = msg.Text.String()
	}
	for key, name := range extraDataKeys {
		if v := agentsessions.FieldString(extras, key); v != "" {
			if entry.Data == nil {
				entry.Data = make(map[string]any)
			}
			entry.Data[name] = v
		}
	}

	switch raw.Type {
	case "user":
		entry.Kind = agentsessions.EntryMessage
		entry.Actor = agentsessions.ActorUser
		entry.Category = agentsessions.CategoryUserMessage
		if isMeta(extras) {
			// Injected by the client (caveats, command expansions).
			entry.Kind = agentsessions.EntryOther
		}
	case "assistant":
		entry.Kind = agentsessions.EntryMessage
		entry.Actor = agentsessions.ActorAssistant
		entry.Category = agentsessions.CategoryAssistantMessage
	case "system":
		entry.Kind = agentsessions.EntryInstructions
		entry.Actor = agentsessions.ActorSystem
		entry.Category = agentsessions.CategorySystem
	case "summary":
		entry.Kind = agentsessions.EntryOther
		entry.Category = agentsessions.CategorySummary
		entry.Text = raw.Summary.String()
		entry.Content = nil
	default:
		entry.Kind = agentsessions.EntryOther
		entry.Actor = msg.Role.String()
		entry.Category = raw.Type.String()
	}
	return entry, true
}
