package library

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/presetswitch/pkg/store"
)

const sample = `{"nodes": [{"id": 10, "type": "PresetSwitch", "mode": 0, "widgets_values": [0]}], "links": [], "extra": {}}`

func newLibrary(t *testing.T) store.Persistence {
	t.Helper()
	p, err := store.Load(store.Dir(t.TempDir()))
	require.NoError(t, err)
	return p
}

func TestImportExportRoundTrip(t *testing.T) {
	p := newLibrary(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "portrait.json")
	require.NoError(t, os.WriteFile(src, []byte(sample), 0o644))

	var out bytes.Buffer
	require.NoError(t, (&Import{Persistence: p, Path: src, Out: &out}).Do(context.Background()))
	assert.Equal(t, "imported portrait\n", out.String())
	assert.True(t, p.Has("portrait"))

	dst := filepath.Join(dir, "out.json")
	require.NoError(t, (&Export{Persistence: p, Name: "portrait", Path: dst}).Do(context.Background()))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.JSONEq(t, sample, string(data))
}

func TestImportFromStdin(t *testing.T) {
	p := newLibrary(t)

	err := (&Import{Persistence: p, Path: "-", In: strings.NewReader(sample), Out: &bytes.Buffer{}}).Do(context.Background())
	assert.Error(t, err, "stdin needs a name")

	err = (&Import{Persistence: p, Path: "-", Name: "piped", In: strings.NewReader(sample), Out: &bytes.Buffer{}}).Do(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Has("piped"))
}

func TestImportRejectsGarbage(t *testing.T) {
	p := newLibrary(t)
	err := (&Import{Persistence: p, Path: "-", Name: "bad", In: strings.NewReader("{"), Out: &bytes.Buffer{}}).Do(context.Background())
	assert.Error(t, err)
	assert.False(t, p.Has("bad"))
}

func TestDocsAndRemove(t *testing.T) {
	p := newLibrary(t)
	for _, name := range []string{"b", "a"} {
		require.NoError(t, p.Import(name, []byte(sample), nil))
	}

	var out bytes.Buffer
	require.NoError(t, (&Docs{Persistence: p, Out: &out, JSON: true}).Do(context.Background()))
	var names []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &names))
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, (&Remove{Persistence: p, Name: "a"}).Do(context.Background()))
	assert.ErrorIs(t, (&Remove{Persistence: p, Name: "a"}).Do(context.Background()), store.ErrNotFound)

	out.Reset()
	require.NoError(t, (&Docs{Persistence: p, Out: &out}).Do(context.Background()))
	assert.Equal(t, "b\n", out.String())
}
