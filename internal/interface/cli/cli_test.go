package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilberkman/agentrider/internal/core/config"
	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short text", truncate("short\n  text", 80))
	long := strings.Repeat("word ", 40)
	out := truncate(long, 50)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len([]rune(out)), 53)
	assert.Equal(t, "日本語...", truncate("日本語テキスト", 3))
}

func TestParseDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	got, err := parseDate("2025-01-02", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDate("yesterday", now)
	require.NoError(t, err)
	assert.Equal(t, 14, got.Day())

	_, err = parseDate("", now)
	assert.Error(t, err)
	_, err = parseDate("qwxz", now)
	assert.Error(t, err)
}

func TestRecordFilter(t *testing.T) {
	repo := t.TempDir()
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	records := []agentsessions.SessionRecord{
		{ID: "a", WorkingDir: filepath.Join(repo, "sub"), LastTimestamp: t2},
		{ID: "b", WorkingDir: "/elsewhere", LastTimestamp: t2},
		{ID: "c", WorkingDir: repo, LastTimestamp: t1},
		{ID: "d", WorkingDir: repo},
	}

	ids := func(recs []agentsessions.SessionRecord) []string {
		var out []string
		for _, r := range recs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(recordFilter{}.apply(records)))
	assert.Equal(t, []string{"a", "c", "d"}, ids(recordFilter{Project: repo}.apply(records)))
	assert.Equal(t, []string{"a", "b"}, ids(recordFilter{Since: t1.Add(time.Hour)}.apply(records)))
	assert.Equal(t, []string{"c"}, ids(recordFilter{Until: t1.Add(time.Hour)}.apply(records)))
	assert.Equal(t, []string{"a"}, ids(recordFilter{Project: repo, Limit: 1}.apply(records)))
}

func TestRenderExportDefaultTemplate(t *testing.T) {
	rec := agentsessions.SessionRecord{
		ID:           "sess-1",
		Provider:     "codex",
		WorkingDir:   "/src/app",
		Instructions: "Be brief.",
	}
	events := []agentsessions.SessionEvent{
		{Label: "User", Text: "use <T> generics & go"},
		{Label: "Assistant", Text: "Done."},
	}

	out, err := renderExport(config.DefaultExportTemplate, rec, events)
	require.NoError(t, err)
	assert.Contains(t, out, "# Session sess-1")
	assert.Contains(t, out, "- Provider: codex")
	assert.Contains(t, out, "- Working directory: /src/app")
	assert.NotContains(t, out, "Last activity")
	assert.Contains(t, out, "## Instructions\n\nBe brief.")
	assert.Contains(t, out, "### User\n\nuse <T> generics & go")
	assert.Contains(t, out, "### Assistant\n\nDone.")
}

func TestRenderExportKeepsMarkupInHeaderFields(t *testing.T) {
	rec := agentsessions.SessionRecord{
		ID:           "sess-2",
		Provider:     "codex",
		WorkingDir:   "/src/a&b",
		Instructions: "<user_instructions>Be brief.</user_instructions>",
	}

	out, err := renderExport(config.DefaultExportTemplate, rec, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "- Working directory: /src/a&b")
	assert.Contains(t, out, "<user_instructions>Be brief.</user_instructions>")
	assert.NotContains(t, out, "&lt;")
	assert.NotContains(t, out, "&amp;")
}

func TestExportPath(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	got, err := exportPath("", "0ccfddc4-00e7-443a")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "session-0ccfddc4-00e7-443a.md"), got)

	first, err := exportPath("", "rollout-2025-05-01T09-00-00-0196-abc")
	require.NoError(t, err)
	second, err := exportPath("", "rollout-2025-05-02T10-30-00-0197-def")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err = exportPath("", "a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "session-a_b.md"), got)

	got, err = exportPath("out.md", "x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "out.md"), got)

	got, err = exportPath("/tmp/out.md", "x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out.md", got)
}

// runCLI executes the root command against a config whose roots point at
// temp directories.
func runCLI(t *testing.T, claudeRoot string, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := `log_level = "quiet"
disabled_providers = ["codex", "kimi"]
index_path = "` + filepath.Join(dir, "index.db") + `"

[roots]
claude = "` + claudeRoot + `"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	dbPath = ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeClaudeSession(t *testing.T, root, id, text string) {
	t.Helper()
	path := filepath.Join(root, "proj", id+".jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	line := `{"type":"user","sessionId":"` + id + `","timestamp":"2025-03-01T10:00:00Z","message":{"role":"user","content":"` + text + `"}}`
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))
}

func TestListCommandJSON(t *testing.T) {
	root := t.TempDir()
	writeClaudeSession(t, root, "sess-1", "hello there")

	out := runCLI(t, root, "list", "--json", "--limit", "5")
	var records []agentsessions.SessionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "sess-1", records[0].ID)
	assert.Equal(t, []string{"hello there"}, records[0].UserMessages)
}

func TestExportCommand(t *testing.T) {
	root := t.TempDir()
	writeClaudeSession(t, root, "sess-2", "export me")
	target := filepath.Join(t.TempDir(), "out.md")

	out := runCLI(t, root, "export", "sess-2", "-o", target)
	assert.Contains(t, out, "Exported session to: "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Session sess-2")
	assert.Contains(t, string(data), "export me")
}

func TestSyncAndStatsCommands(t *testing.T) {
	root := t.TempDir()
	writeClaudeSession(t, root, "sess-3", "index me")

	out := runCLI(t, root, "sync", "--quiet")
	assert.Contains(t, out, "Indexed 1, unchanged 0, failed 0, removed 0")
}
