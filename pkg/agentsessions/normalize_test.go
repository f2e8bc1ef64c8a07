package agentsessions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"string", `"  hello  "`, "hello"},
		{"null", `null`, ""},
		{"text items joined", `[{"type":"text","text":"one"},{"type":"text","text":"two"}]`, "one\n\ntwo"},
		{"thinking dropped", `[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"answer"}]`, "answer"},
		{"input_text", `[{"type":"input_text","text":"fix it"}]`, "fix it"},
		{"tool use", `[{"type":"tool_use","name":"Bash","input":{"command":"ls"}}]`, "Tool call: Bash\n{\n  \"command\": \"ls\"\n}"},
		{"tool result text", `[{"type":"tool_result","tool_use_id":"t1","content":"done"}]`, "done"},
		{"tool result nested", `[{"type":"tool_result","content":[{"type":"text","text":"nested"}]}]`, "nested"},
		{"lone object", `{"type":"text","text":"solo"}`, "solo"},
		{"unknown item", `[{"type":"image","source":"x"}]`, "{\n  \"type\": \"image\",\n  \"source\": \"x\"\n}"},
		{"empty array", `[]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractText(json.RawMessage(tt.content)))
		})
	}
}

func TestToolFromContentUse(t *testing.T) {
	content := json.RawMessage(`[
		{"type":"text","text":"Let me look."},
		{"type":"tool_use","id":"toolu_1","name":"git_diff","input":{"commit":"HEAD~1","paths":["src/lib.rs"]},"cache":"hit"}
	]`)

	tool := ToolFromContent(content)
	require.NotNil(t, tool)
	assert.Equal(t, ToolPhaseUse, tool.Phase)
	assert.Equal(t, "git_diff", tool.Name)
	assert.Equal(t, "toolu_1", tool.Identifier)
	assert.JSONEq(t, `{"commit":"HEAD~1","paths":["src/lib.rs"]}`, string(tool.Input))
	assert.Nil(t, tool.Output)
	require.NotNil(t, tool.Extras)
	assert.Equal(t, 1, tool.Extras.Len())
	assert.Equal(t, "hit", FieldString(tool.Extras, "cache"))
	assert.Equal(t, "Tool Use · git_diff", tool.Label())
}

func TestToolFromContentToleratesFieldTypes(t *testing.T) {
	content := json.RawMessage(`[{"type":"tool_use","id":17,"name":"Bash","input":{"command":"ls"}}]`)

	tool := ToolFromContent(content)
	require.NotNil(t, tool)
	assert.Equal(t, "Bash", tool.Name)
	assert.Empty(t, tool.Identifier)
	assert.Equal(t, "Tool call: Bash\n{\n  \"command\": \"ls\"\n}", ExtractText(content))
}

func TestToolFromContentPrefersUseOverResult(t *testing.T) {
	content := json.RawMessage(`[
		{"type":"tool_result","tool_use_id":"a","content":"out"},
		{"type":"tool_use","id":"b","name":"Read","input":{}}
	]`)
	tool := ToolFromContent(content)
	require.NotNil(t, tool)
	assert.Equal(t, ToolPhaseUse, tool.Phase)
	assert.Equal(t, "b", tool.Identifier)

	result := ToolFromContent(json.RawMessage(`[{"type":"tool_result","tool_use_id":"a","content":"out"}]`))
	require.NotNil(t, result)
	assert.Equal(t, ToolPhaseResult, result.Phase)
	assert.Equal(t, "a", result.Identifier)
	assert.JSONEq(t, `"out"`, string(result.Output))
	assert.Nil(t, result.Input)
	assert.Equal(t, "Tool Result", result.Label())

	assert.Nil(t, ToolFromContent(json.RawMessage(`"plain"`)))
}

func TestNormalizeUserMessage(t *testing.T) {
	entry := Entry{
		Kind:       EntryMessage,
		Actor:      ActorUser,
		Category:   CategoryUserMessage,
		Content:    json.RawMessage(`"commit changes"`),
		Timestamp:  "2025-03-01T10:00:00Z",
		WorkingDir: "/nonexistent/repo",
		SessionID:  "s1",
	}
	obs := Normalize(entry, []byte(`{"raw":true}`), false)
	require.NotNil(t, obs.Event)
	ev := obs.Event
	assert.Equal(t, "commit changes", ev.Text)
	assert.Equal(t, "commit changes", ev.SummaryText)
	assert.Equal(t, "User", ev.Label)
	assert.Equal(t, CategoryUserMessage, ev.Category)
	assert.Nil(t, ev.Raw)
	assert.Equal(t, "/nonexistent/repo", ev.Data["working_dir"])
	assert.Equal(t, "s1", ev.Data["source_id"])

	withRaw := Normalize(entry, []byte(`{"raw":true}`), true)
	assert.JSONEq(t, `{"raw":true}`, string(withRaw.Event.Raw))
}

func TestNormalizeSyntheticUserText(t *testing.T) {
	for _, text := range []string{
		"<local-command-stdout>ok</local-command-stdout>",
		"<command-name>/clear</command-name>",
		"Caveat: The messages below were generated by the user while running local commands.",
		"[Request interrupted by user for tool use]",
		"<environment_context>\n  <cwd>/repo</cwd>\n</environment_context>",
	} {
		content, _ := json.Marshal(text)
		obs := Normalize(Entry{
			Kind:     EntryMessage,
			Actor:    ActorUser,
			Category: CategoryUserMessage,
			Content:  content,
		}, nil, false)
		require.NotNil(t, obs.Event, text)
		assert.Empty(t, obs.Event.SummaryText, text)
		assert.Equal(t, CategoryUserMessage, obs.Event.Category)
	}
}

func TestNormalizeToolOverridesCategory(t *testing.T) {
	obs := Normalize(Entry{
		Kind:     EntryMessage,
		Actor:    ActorUser,
		Category: CategoryUserMessage,
		Content:  json.RawMessage(`[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]`),
	}, nil, false)
	require.NotNil(t, obs.Event)
	assert.Equal(t, CategoryToolResult, obs.Event.Category)
	assert.Equal(t, "Tool Result", obs.Event.Label)
	assert.Equal(t, ActorUser, obs.Event.Actor)
	assert.Empty(t, obs.Event.SummaryText)
}

func TestNormalizeEmptyTextKeepsHints(t *testing.T) {
	obs := Normalize(Entry{
		Kind:       EntryMessage,
		Actor:      ActorAssistant,
		Category:   CategoryAssistantMessage,
		Content:    json.RawMessage(`[{"type":"thinking","thinking":"..."}]`),
		WorkingDir: "/repo",
		Timestamp:  "2025-03-01T10:00:00Z",
	}, nil, false)
	assert.Nil(t, obs.Event)
	assert.Equal(t, "/repo", obs.WorkingDir)
	assert.False(t, obs.Timestamp.IsZero())
}

func TestNormalizeOtherFallsBackToWholeLine(t *testing.T) {
	obs := Normalize(Entry{
		Kind:     EntryOther,
		Category: "file-history-snapshot",
		Whole:    json.RawMessage(`{"type":"file-history-snapshot","files":1}`),
	}, nil, false)
	require.NotNil(t, obs.Event)
	assert.Equal(t, "file-history-snapshot", obs.Event.Category)
	assert.Equal(t, "File History Snapshot", obs.Event.Label)
	assert.Contains(t, obs.Event.Text, `"files": 1`)
	assert.Empty(t, obs.Event.SummaryText)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Assistant Message", TitleCase("assistant_message"))
	assert.Equal(t, "Tool Result", TitleCase("tool-result"))
	assert.Empty(t, TitleCase("  "))
}
