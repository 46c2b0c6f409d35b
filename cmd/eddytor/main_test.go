package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eddytor runs the command with a script and returns its output.
func eddytor(t *testing.T, input, script string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	all := []string{"-env", filepath.Join(dir, "missing.env")}
	if script != "" {
		path := filepath.Join(dir, "actions.txt")
		require.NoError(t, os.WriteFile(path, []byte(script), 0o600))
		all = append(all, "-script", path)
	}
	all = append(all, args...)
	var stdout, stderr bytes.Buffer
	err := run(all, strings.NewReader(input), &stdout, &stderr)
	return stdout.String(), err
}

func TestTypeText(t *testing.T) {
	out, err := eddytor(t, "<p>hello</p>", "select 6\ntype  world\n", "-format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestCommands(t *testing.T) {
	out, err := eddytor(t, "<p>hello</p>", "# make a heading\ncommand heading1\n", "-format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "# hello\n", out)

	out, err = eddytor(t, "<p>task</p>", "command checklist\n", "-format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "- [ ] task\n", out)
}

func TestSlashCommand(t *testing.T) {
	out, err := eddytor(t, "", "type /head\nslash heading2\ntype Title\n", "-format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "## Title\n", out)
}

func TestLinkDialog(t *testing.T) {
	out, err := eddytor(t, "<p>site</p>", "select 1 5\ncommand hyperlink\nlink https://x\n", "-format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "[site](https://x)\n", out)

	_, err = eddytor(t, "<p>site</p>", "link https://x\n")
	assert.ErrorContains(t, err, "line 1: link: no link dialog is open")
}

func TestJSONRoundTrip(t *testing.T) {
	out, err := eddytor(t, "<p>one</p><p>two</p>", "", "-format", "json")
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "doc", doc["type"])
	assert.Len(t, doc["content"], 2)

	md, err := eddytor(t, out, "", "-format", "markdown")
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo\n", md)
}

func TestScriptErrors(t *testing.T) {
	_, err := eddytor(t, "", "type a\njump 3\n")
	assert.ErrorContains(t, err, "line 2")
	assert.ErrorIs(t, err, errUnknownOp)

	_, err = eddytor(t, "", "key Hyper-a\n")
	assert.ErrorContains(t, err, "unknown modifier")

	_, err = eddytor(t, "", "select 99\n")
	assert.Error(t, err)

	_, err = eddytor(t, "", "", "-format", "pdf")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestParseKey(t *testing.T) {
	event, err := parseKey("Shift-Tab")
	require.NoError(t, err)
	assert.Equal(t, "Tab", event.Key)
	assert.True(t, event.Shift)

	event, err = parseKey("Space")
	require.NoError(t, err)
	assert.Equal(t, " ", event.Key)

	event, err = parseKey("Ctrl--")
	require.NoError(t, err)
	assert.Equal(t, "-", event.Key)
	assert.True(t, event.Ctrl)
}

func TestParseScript(t *testing.T) {
	steps, err := parseScript(strings.NewReader("\n# comment\nblur\ntype \"a\\tb\"\n"))
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, step{line: 3, op: "blur"}, steps[0])
	assert.Equal(t, step{line: 4, op: "type", arg: `"a\tb"`}, steps[1])

	_, err = parseScript(strings.NewReader("command\n"))
	assert.ErrorContains(t, err, "line 1: command needs an argument")
}
