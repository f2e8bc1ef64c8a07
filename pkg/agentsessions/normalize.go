package agentsessions

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// EntryKind says how a decoded line should be treated before any text is
// extracted from it.
type EntryKind int

const (
	// EntryMessage is an ordinary conversational turn.
	EntryMessage EntryKind = iota
	// EntryInstructions carries system-level instructions.
	EntryInstructions
	// EntryCheckpoint marks a provider checkpoint.
	EntryCheckpoint
	// EntryUsage reports token usage.
	EntryUsage
	// EntryMeta carries session metadata only (ids, working directory).
	EntryMeta
	// EntryOther is a recognized line of a type the model does not cover.
	EntryOther
)

// Entry is the provider-neutral form of one transcript line. Providers fill
// in what their schema offers and leave the rest empty.
type Entry struct {
	Kind     EntryKind
	Actor    string
	Category string

	// Content is the raw message content: a JSON string, object or array.
	Content json.RawMessage
	// Text, when set, is used verbatim instead of extracting from Content.
	Text string
	// Tool is set by providers whose tool calls live outside Content.
	Tool *SessionToolEvent
	// Whole is the complete decoded line, used as the last-resort text.
	Whole json.RawMessage

	Timestamp  string
	WorkingDir string
	SessionID  string
	Originator string
	Data       map[string]any
}

// Observation is what one transcript line contributes to a session: an event
// when the line had displayable text, plus metadata hints that count even
// when it did not.
type Observation struct {
	Event      *SessionEvent
	WorkingDir string
	SessionID  string
	Originator string
	Timestamp  time.Time
}

// Normalize turns an entry into an observation. raw is attached to the event
// only when includeRaw is set.
func Normalize(entry Entry, raw []byte, includeRaw bool) Observation {
	obs := Observation{
		WorkingDir: strings.TrimSpace(entry.WorkingDir),
		SessionID:  strings.TrimSpace(entry.SessionID),
		Originator: strings.TrimSpace(entry.Originator),
		Timestamp:  ParseTimestamp(entry.Timestamp),
	}

	text := strings.TrimSpace(entry.Text)
	if text == "" && entry.Kind != EntryMeta {
		text = ExtractText(entry.Content)
		if text == "" && len(entry.Content) == 0 && entry.Kind == EntryOther {
			text = PrettyJSON(entry.Whole)
		}
	}
	if text == "" {
		return obs
	}

	tool := entry.Tool
	if tool == nil {
		tool = ToolFromContent(entry.Content)
	}
	if tool != nil && tool.WorkingDir == "" {
		tool.WorkingDir = obs.WorkingDir
	}

	ev := &SessionEvent{
		Actor:     entry.Actor,
		Category:  entry.Category,
		Text:      text,
		Timestamp: obs.Timestamp,
		Tool:      tool,
	}
	if ev.Category == "" {
		ev.Category = CategoryEvent
	}

	if tool != nil {
		ev.Category = tool.Category()
		ev.Label = tool.Label()
	} else {
		ev.Label = TitleCase(entry.Actor)
		if ev.Label == "" {
			ev.Label = TitleCase(ev.Category)
		}
	}

	if tool == nil && entry.Kind == EntryMessage && entry.Actor == ActorUser &&
		entry.Category == CategoryUserMessage && !IsSyntheticUserText(text) {
		ev.SummaryText = text
	}

	ev.Data = entryData(entry, obs)
	if includeRaw && len(raw) > 0 {
		ev.Raw = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
	}

	obs.Event = ev
	return obs
}

func entryData(entry Entry, obs Observation) map[string]any {
	data := make(map[string]any, len(entry.Data)+3)
	for k, v := range entry.Data {
		data[k] = v
	}
	if obs.WorkingDir != "" {
		data["working_dir"] = obs.WorkingDir
	}
	if obs.SessionID != "" {
		data["source_id"] = obs.SessionID
	}
	if obs.Originator != "" {
		data["originator"] = obs.Originator
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// contentItem is the common shape of a typed content array element.
type contentItem struct {
	Type      LooseString     `json:"type"`
	Text      *string         `json:"text"`
	Name      LooseString     `json:"name"`
	ID        LooseString     `json:"id"`
	ToolUseID LooseString     `json:"tool_use_id"`
	Input     json.RawMessage `json:"input"`
	Content   json.RawMessage `json:"content"`
}

var contentItemKeys = []string{"type", "text", "name", "id", "tool_use_id", "input", "content"}

// contentItems returns content as a list of raw items. A lone object counts
// as a one-item list; strings and scalars yield nil.
func contentItems(content json.RawMessage) []json.RawMessage {
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil
	}
	switch content[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(content, &items); err != nil {
			return nil
		}
		return items
	case '{':
		return []json.RawMessage{content}
	default:
		return nil
	}
}

// ExtractText renders message content as display text. Strings are trimmed;
// arrays are rendered item by item; reasoning items contribute nothing.
func ExtractText(content json.RawMessage) string {
	content = bytes.TrimSpace(content)
	if len(content) == 0 || IsNullJSON(content) {
		return ""
	}
	if content[0] == '"' {
		var s string
		if err := json.Unmarshal(content, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}

	items := contentItems(content)
	if items == nil {
		return strings.TrimSpace(string(content))
	}

	var parts []string
	for _, raw := range items {
		if part := strings.TrimSpace(itemText(raw)); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func itemText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}

	var item contentItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return PrettyJSON(raw)
	}

	switch item.Type {
	case "text", "input_text", "output_text":
		if item.Text != nil {
			return *item.Text
		}
		return ""
	case "thinking", "redacted_thinking", "think", "reasoning":
		return ""
	case "tool_use":
		line := "Tool call: " + item.Name.String()
		if item.Name == "" {
			line = "Tool call"
		}
		if input := PrettyJSON(item.Input); input != "" && !IsNullJSON(item.Input) {
			return line + "\n" + input
		}
		return line
	case "tool_result":
		if item.Text != nil && strings.TrimSpace(*item.Text) != "" {
			return *item.Text
		}
		return resultText(item.Content)
	default:
		if item.Text != nil && strings.TrimSpace(*item.Text) != "" {
			return *item.Text
		}
		if len(item.Content) > 0 && !IsNullJSON(item.Content) {
			if text := ExtractText(item.Content); text != "" {
				return text
			}
		}
		return PrettyJSON(raw)
	}
}

// resultText renders a tool result payload: nested text items are joined,
// anything else is pretty-printed.
func resultText(content json.RawMessage) string {
	content = bytes.TrimSpace(content)
	if len(content) == 0 || IsNullJSON(content) {
		return ""
	}
	if content[0] == '"' || content[0] == '[' {
		if text := ExtractText(content); text != "" {
			return text
		}
	}
	return PrettyJSON(content)
}

// ToolFromContent returns a tool event for the first tool_use item in
// content, or failing that the first tool_result item.
func ToolFromContent(content json.RawMessage) *SessionToolEvent {
	items := contentItems(content)
	if len(items) == 0 {
		return nil
	}
	for _, wanted := range []string{"tool_use", "tool_result"} {
		for _, raw := range items {
			var item contentItem
			if err := json.Unmarshal(raw, &item); err != nil || item.Type.String() != wanted {
				continue
			}
			tool := &SessionToolEvent{
				Name:       item.Name.String(),
				Identifier: item.ID.String(),
				Extras:     Without(ObjectFields(raw), contentItemKeys...),
			}
			if item.ToolUseID != "" {
				tool.Identifier = item.ToolUseID.String()
			}
			if wanted == "tool_use" {
				tool.Phase = ToolPhaseUse
				if !IsNullJSON(item.Input) {
					tool.Input = item.Input
				}
			} else {
				tool.Phase = ToolPhaseResult
				if !IsNullJSON(item.Content) {
					tool.Output = item.Content
				} else if item.Text != nil {
					out, _ := json.Marshal(*item.Text)
					tool.Output = out
				}
			}
			return tool
		}
	}
	return nil
}

// syntheticPrefixes mark user-role text injected by the agent rather than
// typed by a person.
var syntheticPrefixes = []string{
	"<command-name>",
	"<command-message>",
	"<command-args>",
	"<local-command-stdout>",
	"<local-command-stderr>",
	"<local-command-caveat>",
	"Caveat:",
	"[Request interrupted by user",
	"<environment_context>",
	"<user_instructions>",
	"<system-reminder>",
}

// IsSyntheticUserText reports whether user-role text is command output, a
// caveat banner, an interruption notice or other injected context.
func IsSyntheticUserText(text string) bool {
	text = strings.TrimSpace(text)
	for _, prefix := range syntheticPrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// TitleCase upper-cases the first letter of each word; underscores and
// hyphens become spaces.
func TitleCase(s string) string {
	s = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	if s == "" {
		return ""
	}
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
