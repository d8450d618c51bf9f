package preset

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/presetswitch/pkg/graph"
)

type memoryBacking struct {
	values map[string]json.RawMessage
	writes int
	fail   error
}

func newMemoryBacking() *memoryBacking {
	return &memoryBacking{values: map[string]json.RawMessage{}}
}

func (m *memoryBacking) Extra(key string) (json.RawMessage, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *memoryBacking) SetExtra(key string, raw json.RawMessage) error {
	if m.fail != nil {
		return m.fail
	}
	m.writes++
	m.values[key] = raw
	return nil
}

func fixedClock() func() time.Time {
	t := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func states(ids ...graph.NodeID) map[graph.NodeID]NodeState {
	out := make(map[graph.NodeID]NodeState, len(ids))
	for _, id := range ids {
		mode := int(id)
		out[id] = NodeState{Mode: &mode}
	}
	return out
}

// seeded returns a store with n auto-named presets; preset i snapshots node i.
func seeded(t *testing.T, n int) *Store {
	t.Helper()
	s := New(WithClock(fixedClock()))
	for i := 0; i < n; i++ {
		got, err := s.Record(i, states(graph.NodeID(i)))
		require.NoError(t, err)
		require.Equal(t, i, got)
	}
	return s
}

func contiguous(t *testing.T, s *Store) {
	t.Helper()
	for pos, i := range s.Indexes() {
		require.Equal(t, pos, i, "indexes %v are not contiguous", s.Indexes())
	}
}

// marker returns the node id a seeded preset was recorded with.
func marker(t *testing.T, s *Store, i int) graph.NodeID {
	t.Helper()
	p, ok := s.Get(i)
	require.True(t, ok)
	require.Len(t, p.Nodes, 1)
	for id := range p.Nodes {
		return id
	}
	return -1
}

func TestOpenCreatesDefaultStoreLazily(t *testing.T) {
	b := newMemoryBacking()
	s, err := Open(b)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, b.writes)

	var d Data
	require.NoError(t, json.Unmarshal(b.values[ExtraKey], &d))
	assert.Equal(t, Version, d.Version)
	assert.Equal(t, DefaultOptions(), d.Options)
	assert.Empty(t, d.Presets)
}

func TestOpenReadsPersistedLayout(t *testing.T) {
	b := newMemoryBacking()
	b.values[ExtraKey] = json.RawMessage(`{
		"version": 1,
		"presets": {
			"0": {"name": "Preset 0 预设", "nodes": {"3": {"mode": 4, "bypass": null}}, "updated_at": 1700000000000},
			"1": {"name": "Custom", "nodes": {}, "updated_at": 1700000000001},
			"bogus": {"name": "ignored"}
		},
		"options": {"onMissingNode": "silent"}
	}`)
	s, err := Open(b)
	require.NoError(t, err)
	assert.Equal(t, 0, b.writes, "reading must not rewrite the document")

	assert.Equal(t, []int{0, 1}, s.Indexes())
	assert.Equal(t, "Custom", s.Name(1))
	p, ok := s.Get(0)
	require.True(t, ok)
	require.NotNil(t, p.Nodes[3].Mode)
	assert.Equal(t, 4, *p.Nodes[3].Mode)
	assert.Nil(t, p.Nodes[3].Bypass)

	assert.Equal(t, PolicySilent, s.Options().OnMissingNode)
	assert.Equal(t, PolicyWarn, s.Options().IndexOutOfRange, "missing option takes its default")
}

func TestPersistedKeysAreDecimalStrings(t *testing.T) {
	b := newMemoryBacking()
	s, err := Open(b, WithClock(fixedClock()))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.Record(i, states(7))
		require.NoError(t, err)
	}

	var generic map[string]any
	require.NoError(t, json.Unmarshal(b.values[ExtraKey], &generic))
	presets := generic["presets"].(map[string]any)
	assert.Contains(t, presets, "0")
	assert.Contains(t, presets, "2")
	p := presets["1"].(map[string]any)
	assert.Equal(t, "Preset 1 预设", p["name"])
	assert.Contains(t, p["nodes"].(map[string]any), "7")
	assert.Equal(t, float64(fixedClock()().UnixMilli()), p["updated_at"])
}

func TestRecordKeepsCustomNameAndDoesNotShift(t *testing.T) {
	s := seeded(t, 3)
	require.NoError(t, s.Rename(1, "Custom"))

	got, err := s.Record(1, states(42))
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, "Custom", s.Name(1))
	assert.Equal(t, graph.NodeID(42), marker(t, s, 1))
	assert.Equal(t, graph.NodeID(0), marker(t, s, 0))
	assert.Equal(t, graph.NodeID(2), marker(t, s, 2))
}

func TestRecordPastEndAppends(t *testing.T) {
	s := seeded(t, 2)
	got, err := s.Record(9, states(9))
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, "Preset 2 预设", s.Name(2))
	contiguous(t, s)
}

func TestRename(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return clock }))
	_, err := s.Record(0, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Rename(3, "x"), ErrNotFound)

	clock = clock.Add(time.Second)
	require.NoError(t, s.Rename(0, "  Night  "))
	p, _ := s.Get(0)
	assert.Equal(t, "Night", p.Name)
	assert.Equal(t, clock.UnixMilli(), p.UpdatedAt)

	clock = clock.Add(time.Second)
	require.NoError(t, s.Rename(0, "Night"))
	p, _ = s.Get(0)
	assert.NotEqual(t, clock.UnixMilli(), p.UpdatedAt, "unchanged name is a no-op")

	require.NoError(t, s.Rename(0, "   "))
	assert.Equal(t, "Preset 0 预设", s.Name(0))
}

func TestDeleteCompactsAndTracksDefaultNames(t *testing.T) {
	s := seeded(t, 4)
	require.NoError(t, s.Rename(3, "Custom"))

	assert.ErrorIs(t, s.Delete(7), ErrNotFound)
	require.NoError(t, s.Delete(1))

	assert.Equal(t, []int{0, 1, 2}, s.Indexes())
	assert.Equal(t, graph.NodeID(0), marker(t, s, 0), "indexes below the removed one are unchanged")
	assert.Equal(t, graph.NodeID(2), marker(t, s, 1))
	assert.Equal(t, graph.NodeID(3), marker(t, s, 2))

	assert.Equal(t, "Preset 0 预设", s.Name(0))
	assert.Equal(t, "Preset 1 预设", s.Name(1), "auto name follows the new index")
	assert.Equal(t, "Custom", s.Name(2), "custom name survives compaction")
}

func TestDefaultNameTracking(t *testing.T) {
	s := seeded(t, 3)
	assert.Equal(t, "Preset 2 预设", s.Name(2))
	require.NoError(t, s.Delete(1))
	assert.Equal(t, "Preset 1 预设", s.Name(1))

	s = seeded(t, 3)
	require.NoError(t, s.Rename(2, "Custom"))
	require.NoError(t, s.Delete(1))
	assert.Equal(t, "Custom", s.Name(1))
}

func TestCollidingCustomNameIsNotSpecialCased(t *testing.T) {
	s := seeded(t, 3)
	// Looks like the generated name of index 1 but lives at index 2.
	require.NoError(t, s.Rename(2, "Preset 1 预设"))
	require.NoError(t, s.Delete(0))
	assert.Equal(t, "Preset 1 预设", s.Name(1))
	assert.Equal(t, "Preset 0 预设", s.Name(0))
}

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []graph.NodeID
	}{
		{name: "left", from: 3, to: 1, want: []graph.NodeID{0, 3, 1, 2, 4}},
		{name: "right", from: 1, to: 3, want: []graph.NodeID{0, 2, 3, 1, 4}},
		{name: "to front", from: 4, to: 0, want: []graph.NodeID{4, 0, 1, 2, 3}},
		{name: "to end", from: 0, to: 4, want: []graph.NodeID{1, 2, 3, 4, 0}},
		{name: "clamped", from: 1, to: 99, want: []graph.NodeID{0, 2, 3, 4, 1}},
		{name: "same", from: 2, to: 2, want: []graph.NodeID{0, 1, 2, 3, 4}},
		{name: "last past end", from: 4, to: 10, want: []graph.NodeID{0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seeded(t, 5)
			require.NoError(t, s.Move(tt.from, tt.to))
			contiguous(t, s)
			got := make([]graph.NodeID, 0, s.Len())
			for _, i := range s.Indexes() {
				got = append(got, marker(t, s, i))
				assert.Equal(t, "Preset "+strconv.Itoa(i)+" 预设", s.Name(i))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoveMissing(t *testing.T) {
	s := seeded(t, 2)
	assert.ErrorIs(t, s.Move(5, 0), ErrNotFound)
	assert.Equal(t, []int{0, 1}, s.Indexes())
}

func TestMoveKeepsCustomNames(t *testing.T) {
	s := seeded(t, 3)
	require.NoError(t, s.Rename(0, "First"))
	require.NoError(t, s.Move(0, 2))
	assert.Equal(t, "First", s.Name(2))
	assert.Equal(t, "Preset 0 预设", s.Name(0))
	assert.Equal(t, "Preset 1 预设", s.Name(1))
}

func TestMoveThereAndBackRestoresOrder(t *testing.T) {
	for from := 0; from < 5; from++ {
		for to := 0; to < 5; to++ {
			s := seeded(t, 5)
			require.NoError(t, s.Move(from, to))
			require.NoError(t, s.Move(to, from))
			for i := 0; i < 5; i++ {
				assert.Equal(t, graph.NodeID(i), marker(t, s, i), "move(%d,%d) then back", from, to)
			}
		}
	}
}

func TestRandomSequencesStayContiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := New(WithClock(fixedClock()))
	for step := 0; step < 2000; step++ {
		n := s.Len()
		switch rng.Intn(4) {
		case 0, 1:
			_, err := s.Record(rng.Intn(n+3), states(graph.NodeID(step)))
			require.NoError(t, err)
		case 2:
			err := s.Delete(rng.Intn(n + 1))
			if n == 0 {
				require.ErrorIs(t, err, ErrNotFound)
			}
		case 3:
			before := s.Len()
			_ = s.Move(rng.Intn(n+1), rng.Intn(n+2))
			require.Equal(t, before, s.Len(), "move must be a permutation")
		}
		contiguous(t, s)
	}
}

func TestNavigationWrapsAround(t *testing.T) {
	b := newMemoryBacking()
	b.values[ExtraKey] = json.RawMessage(`{"version":1,"presets":{"1":{"name":"a","nodes":{}},"3":{"name":"b","nodes":{}},"5":{"name":"c","nodes":{}}},"options":{}}`)
	s, err := Open(b)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Next(5))
	assert.Equal(t, 5, s.Prev(1))
	assert.Equal(t, 3, s.Next(1))
	assert.Equal(t, 3, s.Prev(5))
	assert.Equal(t, 3, s.Next(2))
	assert.Equal(t, 6, s.NextAvailable())

	empty := New()
	assert.Equal(t, 4, empty.Next(4))
	assert.Equal(t, 0, empty.Prev(-3))
	assert.Equal(t, 0, empty.NextAvailable())
}

func TestGappedDocumentIsCompactedOnMutation(t *testing.T) {
	b := newMemoryBacking()
	b.values[ExtraKey] = json.RawMessage(`{"version":1,"presets":{"1":{"name":"Preset 1 预设","nodes":{}},"4":{"name":"Keep","nodes":{}}},"options":{}}`)
	s, err := Open(b, WithClock(fixedClock()))
	require.NoError(t, err)

	got, err := s.Record(4, states(1))
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, []int{0, 1}, s.Indexes())
	assert.Equal(t, "Preset 0 预设", s.Name(0))
	assert.Equal(t, "Keep", s.Name(1))
}

func TestRecordIntoGapAppends(t *testing.T) {
	b := newMemoryBacking()
	b.values[ExtraKey] = json.RawMessage(`{"version":1,"presets":{"0":{"name":"A","nodes":{}},"2":{"name":"B","nodes":{}}},"options":{}}`)
	s, err := Open(b, WithClock(fixedClock()))
	require.NoError(t, err)

	got, err := s.Record(1, states(1))
	require.NoError(t, err)
	assert.Equal(t, 2, got, "the gap is closed before recording")
	assert.Equal(t, []int{0, 1, 2}, s.Indexes())
	assert.Equal(t, "A", s.Name(0))
	assert.Equal(t, "B", s.Name(1))
	assert.Equal(t, s.DefaultName(2), s.Name(2))
}

func TestFailedWriteLeavesStoreUntouched(t *testing.T) {
	b := newMemoryBacking()
	s, err := Open(b, WithClock(fixedClock()))
	require.NoError(t, err)
	_, err = s.Record(0, nil)
	require.NoError(t, err)

	b.fail = errors.New("disk full")
	_, err = s.Record(1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, s.Delete(0), b.fail)
	assert.Equal(t, []int{0}, s.Indexes())
}

func TestSetOptions(t *testing.T) {
	b := newMemoryBacking()
	s, err := Open(b)
	require.NoError(t, err)
	require.NoError(t, s.SetOptions(Options{OnMissingNode: PolicySilent, IndexOutOfRange: PolicySilent}))
	assert.False(t, s.Options().ReportMissing())
	assert.False(t, s.Options().ReportOutOfRange())

	again, err := Open(b)
	require.NoError(t, err)
	assert.Equal(t, PolicySilent, again.Options().OnMissingNode)
}

func TestWithNameFormat(t *testing.T) {
	s := New(WithNameFormat("Look %02d"))
	_, err := s.Record(0, nil)
	require.NoError(t, err)
	_, err = s.Record(1, nil)
	require.NoError(t, err)
	require.NoError(t, s.Delete(0))
	assert.Equal(t, "Look 00", s.Name(0))
}

func TestCompact(t *testing.T) {
	b := newMemoryBacking()
	b.values[ExtraKey] = json.RawMessage(`{"version":1,"presets":{"2":{"name":"Preset 2 预设","nodes":{}},"7":{"name":"Keep","nodes":{}}},"options":{}}`)
	s, err := Open(b)
	require.NoError(t, err)

	changed, err := s.Compact()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []int{0, 1}, s.Indexes())
	assert.Equal(t, "Preset 0 预设", s.Name(0))
	assert.Equal(t, "Keep", s.Name(1))

	writes := b.writes
	changed, err = s.Compact()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, writes, b.writes)
}
