// Package agentsessions normalizes transcripts written by AI coding agents
// (Claude Code, Codex, Kimi) into one canonical model.
//
// Each provider lists its transcript files, parses changed ones into a
// SessionRecord summary and, on demand, replays a file as a sequence of
// SessionEvent values. Provider-specific JSON shapes never leave the
// provider packages.
package agentsessions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Actors used across providers.
const (
	ActorUser      = "user"
	ActorAssistant = "assistant"
	ActorSystem    = "system"
	ActorTool      = "tool"
)

// Categories used across providers. Providers may emit other categories for
// entry types they do not model.
const (
	CategoryUserMessage      = "user_message"
	CategoryAssistantMessage = "assistant_message"
	CategorySystem           = "system"
	CategoryToolUse          = "tool_use"
	CategoryToolResult       = "tool_result"
	CategoryCheckpoint       = "checkpoint"
	CategoryUsage            = "usage"
	CategorySummary          = "summary"
	CategoryEvent            = "event"
)

// SessionRecord summarizes one transcript file.
type SessionRecord struct {
	Provider         string    `json:"provider"`
	ID               string    `json:"id"`
	WorkingDir       string    `json:"working_dir,omitempty"`
	Originator       string    `json:"originator,omitempty"`
	Instructions     string    `json:"instructions,omitempty"`
	FirstUserMessage string    `json:"first_user_message,omitempty"`
	LastUserMessage  string    `json:"last_user_message,omitempty"`
	LastTimestamp    time.Time `json:"last_timestamp,omitzero"`
	FilePath         string    `json:"file_path"`
	UserMessages     []string  `json:"user_messages"`
}

// SessionEvent is one normalized turn or tool interaction.
type SessionEvent struct {
	Actor       string            `json:"actor,omitempty"`
	Category    string            `json:"category"`
	Label       string            `json:"label,omitempty"`
	Text        string            `json:"text"`
	SummaryText string            `json:"summary_text,omitempty"`
	Data        map[string]any    `json:"data,omitempty"`
	Timestamp   time.Time         `json:"timestamp,omitzero"`
	Raw         json.RawMessage   `json:"raw,omitempty"`
	Tool        *SessionToolEvent `json:"tool,omitempty"`
}

// IsConversation reports whether the event is a plain user or assistant turn
// with no tool involvement.
func (e SessionEvent) IsConversation() bool {
	if e.Tool != nil {
		return false
	}
	return e.Actor == ActorUser || e.Actor == ActorAssistant
}

// ToolPhase distinguishes a tool invocation from its result.
type ToolPhase int

const (
	ToolPhaseUse ToolPhase = iota
	ToolPhaseResult
)

// String returns the display name used in event labels.
func (p ToolPhase) String() string {
	switch p {
	case ToolPhaseUse:
		return "Tool Use"
	case ToolPhaseResult:
		return "Tool Result"
	default:
		return fmt.Sprintf("ToolPhase(%d)", int(p))
	}
}

// MarshalText encodes the phase as "use" or "result".
func (p ToolPhase) MarshalText() ([]byte, error) {
	switch p {
	case ToolPhaseUse:
		return []byte("use"), nil
	case ToolPhaseResult:
		return []byte("result"), nil
	default:
		return nil, fmt.Errorf("unknown tool phase %d", int(p))
	}
}

// UnmarshalText decodes "use" or "result".
func (p *ToolPhase) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "use":
		*p = ToolPhaseUse
	case "result":
		*p = ToolPhaseResult
	default:
		return fmt.Errorf("unknown tool phase %q", text)
	}
	return nil
}

// SessionToolEvent describes a tool invocation or its result.
//
// Identifier is kept so consumers can pair a Result with its Use; the
// engine itself never pairs them.
type SessionToolEvent struct {
	Phase      ToolPhase                                    `json:"phase"`
	Name       string                                       `json:"name,omitempty"`
	Identifier string                                       `json:"identifier,omitempty"`
	Input      json.RawMessage                              `json:"input,omitempty"`
	Output     json.RawMessage                              `json:"output,omitempty"`
	WorkingDir string                                       `json:"working_dir,omitempty"`
	Extras     *orderedmap.OrderedMap[string, json.RawMessage] `json:"extras,omitempty"`
}

// Label returns "<phase> · <name>", or just the phase when the name is unknown.
func (t *SessionToolEvent) Label() string {
	if t.Name == "" {
		return t.Phase.String()
	}
	return t.Phase.String() + " · " + t.Name
}

// Category returns the event category a tool event imposes.
func (t *SessionToolEvent) Category() string {
	if t.Phase == ToolPhaseResult {
		return CategoryToolResult
	}
	return CategoryToolUse
}

// SortByRecent orders records by last activity, newest first. Records without
// a timestamp go last; ties are broken by file path.
func SortByRecent(records []SessionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].LastTimestamp, records[j].LastTimestamp
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		if !a.Equal(b) {
			return a.After(b)
		}
		return records[i].FilePath < records[j].FilePath
	})
}
