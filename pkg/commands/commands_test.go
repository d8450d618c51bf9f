package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portrait = `{
  "nodes": [
    {"id": 1, "type": "KSampler", "mode": 0},
    {"id": 7, "type": "PresetSwitch", "mode": 0, "widgets_values": [0]}
  ],
  "links": [],
  "extra": {}
}`

// run executes the root command against the library at dir and returns
// stdout.
func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := New()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--path", dir}, args...))
	require.NoError(t, cmd.Execute(), errOut.String())
	return out.String()
}

func newLibrary(t *testing.T) string {
	t.Helper()
	color.NoColor = true
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "portrait.json")
	require.NoError(t, os.WriteFile(file, []byte(portrait), 0o644))

	out := run(t, dir, "import", file)
	assert.Contains(t, out, "imported portrait")
	return dir
}

func TestPresetLifecycle(t *testing.T) {
	dir := newLibrary(t)

	run(t, dir, "add", "portrait")
	run(t, dir, "add", "portrait")
	run(t, dir, "rename", "portrait", "0", "--name", "Wide")

	var res struct {
		Index   int `json:"index"`
		Presets []struct {
			Name   string `json:"name"`
			Active bool   `json:"active"`
		} `json:"presets"`
	}
	out := run(t, dir, "apply", "portrait", "0", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.Index)
	require.Len(t, res.Presets, 2)
	assert.Equal(t, "Wide", res.Presets[0].Name)
	assert.True(t, res.Presets[0].Active)

	out = run(t, dir, "move", "portrait", "0", "1", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, "Wide", res.Presets[1].Name)

	out = run(t, dir, "list", "portrait")
	assert.Contains(t, out, "▶ 1.Wide")
}

func TestJSONErrorCodes(t *testing.T) {
	dir := newLibrary(t)

	var e map[string]string
	out := run(t, dir, "apply", "portrait", "5", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, "preset_not_found", e["code"])

	out = run(t, dir, "list", "missing", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, "workflow_not_found", e["code"])

	out = run(t, dir, "add", "portrait", "--node", "1", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, "no_control_node", e["code"])
}

func TestErrorsWithoutJSON(t *testing.T) {
	dir := newLibrary(t)

	cmd := New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--path", dir, "apply", "portrait", "x"})
	assert.EqualError(t, cmd.Execute(), `invalid preset index "x"`)

	cmd = New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--path", dir, "options", "portrait", "--on-missing-node", "maybe"})
	assert.Error(t, cmd.Execute())

	cmd = New()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--path", dir, "apply", "portrait"})
	assert.EqualError(t, cmd.Execute(), "a preset index is required")
}

func TestDocsAndRemove(t *testing.T) {
	dir := newLibrary(t)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(run(t, dir, "docs", "--json")), &names))
	assert.Equal(t, []string{"portrait"}, names)

	run(t, dir, "remove", "portrait")
	require.NoError(t, json.Unmarshal([]byte(run(t, dir, "docs", "--json")), &names))
	assert.Empty(t, names)
}

func TestOptionsCommand(t *testing.T) {
	dir := newLibrary(t)

	out := run(t, dir, "options", "portrait", "--index-out-of-range", "silent")
	assert.Contains(t, out, "indexOutOfRange: silent")
	assert.Contains(t, out, "onMissingNode: skip")
}

func TestIndexArg(t *testing.T) {
	n, err := indexArg(nil, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	n, err = indexArg([]string{"3"}, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = indexArg([]string{"-2"}, 0, -1)
	assert.Error(t, err)
}

func TestMCPOverStdio(t *testing.T) {
	dir := newLibrary(t)

	var out bytes.Buffer
	cmd := New()
	cmd.SetIn(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}` + "\n"))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--path", dir, "mcp", "--transport", "stdio"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"presetswitch MCP"`)

	cmd = New()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--path", dir, "mcp", "--transport", "tcp"})
	assert.EqualError(t, cmd.Execute(), `unsupported transport "tcp" (expected http or stdio)`)
}
