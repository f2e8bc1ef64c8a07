package codex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

func writeRollout(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func sampleRollout(cwd string) []string {
	return []string{
		`{"timestamp":"2025-05-01T09:00:00.000Z","type":"session_meta","payload":{"id":"0196-abc","cwd":"` + cwd + `","originator":"codex_cli_rs","cli_version":"0.20.0","instructions":"Follow AGENTS.md"}}`,
		`{"timestamp":"2025-05-01T09:00:01.000Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"<environment_context>\n  <cwd>/repo</cwd>\n</environment_context>"}]}}`,
		`{"timestamp":"2025-05-01T09:00:02.000Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"run the tests"}]}}`,
		`{"timestamp":"2025-05-01T09:00:02.100Z","type":"event_msg","payload":{"type":"user_message","message":"run the tests","kind":"plain"}}`,
		`{"timestamp":"2025-05-01T09:00:03.000Z","type":"response_item","payload":{"type":"reasoning","summary":[],"encrypted_content":"xyz"}}`,
		`{"timestamp":"2025-05-01T09:00:04.000Z","type":"response_item","payload":{"type":"function_call","name":"shell","arguments":"{\"command\":[\"go\",\"test\",\"./...\"]}","call_id":"call_1"}}`,
		`{"timestamp":"2025-05-01T09:00:05.000Z","type":"response_item","payload":{"type":"function_call_output","call_id":"call_1","output":"{\"output\":\"ok  \\tpkg\\n\",\"metadata\":{\"exit_code\":0}}"}}`,
		`{"timestamp":"2025-05-01T09:00:06.000Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":10}}}}`,
		`{"timestamp":"2025-05-01T09:00:06.500Z","type":"event_msg","payload":{"type":"agent_reasoning","text":"thinking"}}`,
		`{"timestamp":"2025-05-01T09:00:07.000Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"All tests pass."}]}}`,
		`{"timestamp":"2025-05-01T09:00:08.000Z","type":"turn_context","payload":{"cwd":"/elsewhere","model":"gpt-5"}}`,
		`garbage`,
	}
}

func TestListSessions(t *testing.T) {
	root := t.TempDir()
	repo := t.TempDir()
	path := filepath.Join(root, "2025", "05", "01", "rollout-2025-05-01T09-00-00-0196-abc.jsonl")
	writeRollout(t, path, sampleRollout(repo)...)

	p := New(root)
	records, err := p.ListSessions()
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, Name, rec.Provider)
	assert.Equal(t, "0196-abc", rec.ID)
	assert.Equal(t, agentsessions.CanonicalOrSelf(repo), rec.WorkingDir)
	assert.Equal(t, "codex_cli_rs", rec.Originator)
	assert.Equal(t, "Follow AGENTS.md", rec.Instructions)
	assert.Equal(t, []string{"run the tests"}, rec.UserMessages, "mirrored event_msg must not be counted")
	assert.Equal(t, "2025-05-01T09:00:08Z", rec.LastTimestamp.UTC().Format("2006-01-02T15:04:05Z07:00"))
}

func TestLoadSessionEvents(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "2025", "05", "01", "rollout.jsonl")
	writeRollout(t, path, sampleRollout("/repo")...)

	p := New(root)
	events, err := p.LoadSessionEvents(agentsessions.SessionRecord{ID: "x", FilePath: path}, false)
	require.NoError(t, err)

	var categories []string
	for _, ev := range events {
		categories = append(categories, ev.Category)
	}
	assert.Equal(t, []string{
		agentsessions.CategorySystem,
		agentsessions.CategoryUserMessage,
		agentsessions.CategoryUserMessage,
		agentsessions.CategoryEvent,
		agentsessions.CategoryToolUse,
		agentsessions.CategoryToolResult,
		agentsessions.CategoryUsage,
		agentsessions.CategoryAssistantMessage,
	}, categories)

	use := events[4]
	require.NotNil(t, use.Tool)
	assert.Equal(t, "shell", use.Tool.Name)
	assert.Equal(t, "call_1", use.Tool.Identifier)
	assert.Equal(t, "Tool Use · shell", use.Label)
	assert.JSONEq(t, `{"command":["go","test","./..."]}`, string(use.Tool.Input))

	result := events[5]
	require.NotNil(t, result.Tool)
	assert.Equal(t, agentsessions.ToolPhaseResult, result.Tool.Phase)
	assert.Equal(t, "call_1", result.Tool.Identifier)
	assert.Equal(t, "ok  \tpkg", result.Text)

	assert.Equal(t, "run the tests", events[3].Text)
	assert.Empty(t, events[3].SummaryText)
	assert.Empty(t, events[1].SummaryText)
}

func TestDecodeArguments(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(decodeArguments([]byte(`"{\"a\":1}"`))))
	assert.JSONEq(t, `"*** Begin Patch"`, string(decodeArguments([]byte(`"*** Begin Patch"`))))
	assert.JSONEq(t, `{"cmd":"ls"}`, string(decodeArguments([]byte(`{"cmd":"ls"}`))))
	assert.Nil(t, decodeArguments([]byte(`"  "`)))
	assert.Nil(t, decodeArguments([]byte(`null`)))
	assert.Nil(t, decodeArguments(nil))
}

func TestParseLineToleratesUnexpectedFieldTypes(t *testing.T) {
	obs, kept := parseLine([]byte(`{"timestamp":"2025-05-01T09:00:04Z","type":"response_item","payload":{"type":"function_call","name":"shell","arguments":{"cmd":"ls"},"call_id":7}}`), false)
	require.True(t, kept)
	require.NotNil(t, obs.Event)
	require.NotNil(t, obs.Event.Tool)
	assert.Equal(t, "shell", obs.Event.Tool.Name)
	assert.Empty(t, obs.Event.Tool.Identifier)
	assert.JSONEq(t, `{"cmd":"ls"}`, string(obs.Event.Tool.Input))
	assert.Equal(t, agentsessions.CategoryToolUse, obs.Event.Category)

	obs, kept = parseLine([]byte(`{"timestamp":1700000000,"type":"session_meta","payload":{"id":"0196-abc","cwd":["/repo"],"instructions":false}}`), false)
	require.True(t, kept)
	assert.Equal(t, "0196-abc", obs.SessionID)
	assert.Empty(t, obs.WorkingDir)
	assert.True(t, obs.Timestamp.IsZero())
	assert.Nil(t, obs.Event)

	// A payload that is not an object is shown whole.
	obs, kept = parseLine([]byte(`{"type":"response_item","payload":"opaque"}`), false)
	require.True(t, kept)
	require.NotNil(t, obs.Event)
	assert.Equal(t, "response_item", obs.Event.Category)
	assert.Contains(t, obs.Event.Text, `"payload": "opaque"`)
}
