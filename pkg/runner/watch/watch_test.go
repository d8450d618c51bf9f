package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/store"
	"tableflip.dev/presetswitch/pkg/workflow"
)

const sample = `{
  "nodes": [
    {"id": 1, "type": "KSampler", "mode": 0},
    {"id": 10, "type": "PresetSwitch", "mode": 0, "widgets_values": [0]}
  ],
  "links": [],
  "extra": {}
}`

func modeOf(t *testing.T, p store.Persistence, id graph.NodeID) int {
	t.Helper()
	d, err := p.Load("scene", nil)
	if err != nil {
		// The watcher may be mid-write.
		return -1
	}
	n, ok := d.NodeByID(id)
	if !ok {
		return -1
	}
	mode, _ := n.Mode()
	return mode
}

func TestWatchAppliesExternalIndexChange(t *testing.T) {
	p, err := store.Load(store.Dir(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, p.Import("scene", []byte(sample), nil))

	// Preset 0 keeps the sampler active, preset 1 mutes it.
	s, err := workflow.Open(p, nil, "scene", nil)
	require.NoError(t, err)
	_, err = s.Service.Record(0)
	require.NoError(t, err)
	n, _ := s.Doc.NodeByID(1)
	n.SetMode(2)
	_, err = s.Service.Record(1)
	require.NoError(t, err)
	n.SetMode(0)
	_, err = s.Save()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Interval = 20 * time.Millisecond

	ready := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		w := &Watch{Persistence: p, Config: cfg, Workflow: "scene", Ready: func() { close(ready) }}
		done <- w.Do(ctx)
	}()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("watch exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch never became ready")
	}
	time.Sleep(50 * time.Millisecond)

	d, err := p.Load("scene", nil)
	require.NoError(t, err)
	sw, _ := d.NodeByID(10)
	require.True(t, sw.SetField("preset_index", 1))
	require.NoError(t, p.Save("scene", d))

	require.Eventually(t, func() bool {
		return modeOf(t, p, 1) == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchMissingWorkflow(t *testing.T) {
	p, err := store.Load(store.Dir(t.TempDir()))
	require.NoError(t, err)
	err = (&Watch{Persistence: p, Workflow: "nope"}).Do(context.Background())
	require.ErrorIs(t, err, store.ErrNotFound)
}
