package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/index"
)

// ErrNotFound is returned when an operation targets an index with no preset.
var ErrNotFound = errors.New("preset: not found")

// Backing is the document-owned key/value storage the store persists into.
type Backing interface {
	Extra(key string) (json.RawMessage, bool)
	SetExtra(key string, raw json.RawMessage) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNameFormat overrides the default-name pattern. The format receives the
// preset index as its only argument.
func WithNameFormat(format string) Option {
	return func(s *Store) {
		if format != "" {
			s.nameFormat = format
		}
	}
}

// Store is the preset collection of one document.
//
// Indices form the contiguous range 0..Len()-1. Every mutation computes a
// complete new index mapping and swaps it in only after it was written to
// the backing, so a reader never observes a half-shifted store. Preset node
// maps are never mutated after creation and may be shared between mappings.
//
// Store is not safe for concurrent use.
type Store struct {
	backing    Backing
	now        func() time.Time
	nameFormat string

	version int
	presets map[int]Preset
	options Options
}

// New returns an empty store that is not attached to a document.
func New(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		nameFormat: DefaultNameFormat,
		version:    Version,
		presets:    map[int]Preset{},
		options:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the store from b, creating and writing the default store when
// the document has none yet.
func Open(b Backing, opts ...Option) (*Store, error) {
	s := New(opts...)
	raw, ok := b.Extra(ExtraKey)
	if !ok {
		s.backing = b
		if err := s.commit(s.presets, s.options); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := s.decode(raw); err != nil {
		return nil, err
	}
	s.backing = b
	return s, nil
}

type wireData struct {
	Version int               `json:"version"`
	Presets map[string]Preset `json:"presets"`
	Options Options           `json:"options"`
}

func (s *Store) decode(raw json.RawMessage) error {
	var w wireData
	if err := json.Unmarshal(raw, &w); err != nil {
		return fmt.Errorf("preset: decode store: %w", err)
	}
	if w.Version != 0 {
		s.version = w.Version
	}
	for key, p := range w.Presets {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 {
			// Keys that are not non-negative integers cannot be addressed.
			continue
		}
		if p.Nodes == nil {
			p.Nodes = map[graph.NodeID]NodeState{}
		}
		s.presets[i] = p
	}
	def := DefaultOptions()
	s.options = w.Options
	if s.options.OnMissingNode == "" {
		s.options.OnMissingNode = def.OnMissingNode
	}
	if s.options.IndexOutOfRange == "" {
		s.options.IndexOutOfRange = def.IndexOutOfRange
	}
	return nil
}

func (s *Store) commit(next map[int]Preset, opts Options) error {
	if s.backing != nil {
		raw, err := json.Marshal(Data{Version: s.version, Presets: next, Options: opts})
		if err != nil {
			return fmt.Errorf("preset: encode store: %w", err)
		}
		if err := s.backing.SetExtra(ExtraKey, raw); err != nil {
			return fmt.Errorf("preset: write store: %w", err)
		}
	}
	s.presets = next
	s.options = opts
	return nil
}

// DefaultName returns the generated name for index i.
func (s *Store) DefaultName(i int) string {
	return DefaultName(s.nameFormat, i)
}

// rekey carries p from oldIdx to newIdx. A name that is still the generated
// name of its old position follows it; custom names are kept verbatim.
func (s *Store) rekey(p Preset, oldIdx, newIdx int) Preset {
	if oldIdx != newIdx && IsDefaultName(s.nameFormat, p.Name, oldIdx) {
		p.Name = DefaultName(s.nameFormat, newIdx)
	}
	return p
}

// Indexes returns every index in ascending order.
func (s *Store) Indexes() []int {
	out := make([]int, 0, len(s.presets))
	for i := range s.presets {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of presets.
func (s *Store) Len() int { return len(s.presets) }

// Has reports whether a preset exists at i.
func (s *Store) Has(i int) bool {
	_, ok := s.presets[index.Normalize(i)]
	return ok
}

// Get returns a copy of the preset at i.
func (s *Store) Get(i int) (Preset, bool) {
	p, ok := s.presets[index.Normalize(i)]
	if !ok {
		return Preset{}, false
	}
	nodes := make(map[graph.NodeID]NodeState, len(p.Nodes))
	for id, st := range p.Nodes {
		nodes[id] = st
	}
	p.Nodes = nodes
	return p, true
}

// Name returns the display name of the preset at i, or the generated name
// when there is none.
func (s *Store) Name(i int) string {
	idx := index.Normalize(i)
	if p, ok := s.presets[idx]; ok && p.Name != "" {
		return p.Name
	}
	return s.DefaultName(idx)
}

// Options returns the policy flags.
func (s *Store) Options() Options { return s.options }

// SetOptions replaces the policy flags.
func (s *Store) SetOptions(opts Options) error {
	return s.commit(s.presets, opts)
}

// Data returns a copy of the persisted layout.
func (s *Store) Data() Data {
	presets := make(map[int]Preset, len(s.presets))
	for i := range s.presets {
		presets[i], _ = s.Get(i)
	}
	return Data{Version: s.version, Presets: presets, Options: s.options}
}

// NextAvailable returns the index just past the highest one, 0 when empty.
func (s *Store) NextAvailable() int {
	indexes := s.Indexes()
	if len(indexes) == 0 {
		return 0
	}
	return indexes[len(indexes)-1] + 1
}

// Next returns the first index above current, wrapping to the lowest one.
// An empty store returns current normalized.
func (s *Store) Next(current int) int {
	cur := index.Normalize(current)
	indexes := s.Indexes()
	if len(indexes) == 0 {
		return cur
	}
	for _, i := range indexes {
		if i > cur {
			return i
		}
	}
	return indexes[0]
}

// Prev returns the last index below current, wrapping to the highest one.
// An empty store returns current normalized.
func (s *Store) Prev(current int) int {
	cur := index.Normalize(current)
	indexes := s.Indexes()
	if len(indexes) == 0 {
		return cur
	}
	for i := len(indexes) - 1; i >= 0; i-- {
		if indexes[i] < cur {
			return indexes[i]
		}
	}
	return indexes[len(indexes)-1]
}

// Record stores nodes as the preset at i, overwriting any snapshot there but
// keeping its custom name. Other presets are not shifted. An index past the
// end appends instead, so the range stays contiguous; the index actually
// written is returned. A legacy gapped store is compacted first, and an index
// that falls in one of its gaps appends rather than filling the gap.
func (s *Store) Record(i int, nodes map[graph.NodeID]NodeState) (int, error) {
	idx := index.Normalize(i)

	next, remap := s.compacted()
	target, exists := remap[idx]
	if !exists {
		target = len(next)
	}

	name := s.DefaultName(target)
	if existing, ok := next[target]; ok && existing.Name != "" {
		name = existing.Name
	}

	snapshot := make(map[graph.NodeID]NodeState, len(nodes))
	for id, st := range nodes {
		snapshot[id] = st
	}
	next[target] = Preset{
		Name:      name,
		Nodes:     snapshot,
		UpdatedAt: s.now().UnixMilli(),
	}
	if err := s.commit(next, s.options); err != nil {
		return 0, err
	}
	return target, nil
}

// Rename sets the name of the preset at i. Surrounding whitespace is trimmed
// and a blank name restores the generated name.
func (s *Store) Rename(i int, name string) error {
	idx := index.Normalize(i)
	p, ok := s.presets[idx]
	if !ok {
		return fmt.Errorf("%w: #%d", ErrNotFound, idx)
	}
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		normalized = s.DefaultName(idx)
	}
	if p.Name == normalized {
		return nil
	}

	next := make(map[int]Preset, len(s.presets))
	for k, v := range s.presets {
		next[k] = v
	}
	p.Name = normalized
	p.UpdatedAt = s.now().UnixMilli()
	next[idx] = p
	return s.commit(next, s.options)
}

// Delete removes the preset at i and closes the gap: every later preset moves
// down by one.
func (s *Store) Delete(i int) error {
	idx := index.Normalize(i)
	if _, ok := s.presets[idx]; !ok {
		return fmt.Errorf("%w: #%d", ErrNotFound, idx)
	}
	next := make(map[int]Preset, len(s.presets))
	for _, old := range s.Indexes() {
		if old == idx {
			continue
		}
		pos := len(next)
		next[pos] = s.rekey(s.presets[old], old, pos)
	}
	return s.commit(next, s.options)
}

// Move relocates the preset at from to position to, shifting the presets in
// between by one toward the vacated slot. to is clamped to the last index.
func (s *Store) Move(from, to int) error {
	fromIdx := index.Normalize(from)
	toIdx := index.Normalize(to)
	if _, ok := s.presets[fromIdx]; !ok {
		return fmt.Errorf("%w: #%d", ErrNotFound, fromIdx)
	}
	if fromIdx == toIdx {
		return nil
	}

	order := s.Indexes()
	fromPos := sort.SearchInts(order, fromIdx)
	toPos := toIdx
	if last := len(order) - 1; toPos > last {
		toPos = last
	}
	if fromPos == toPos && order[fromPos] == fromPos {
		return nil
	}

	moved := make([]int, 0, len(order))
	moved = append(moved, order[:fromPos]...)
	moved = append(moved, order[fromPos+1:]...)
	moved = append(moved[:toPos], append([]int{fromIdx}, moved[toPos:]...)...)

	next := make(map[int]Preset, len(order))
	for pos, old := range moved {
		next[pos] = s.rekey(s.presets[old], old, pos)
	}
	return s.commit(next, s.options)
}

// compacted returns the presets keyed 0..n-1 in ascending order of their
// current index, plus the old-to-new mapping. For a store that is already
// contiguous it is an identity copy; documents written with gaps are closed
// up on their first mutation.
func (s *Store) compacted() (map[int]Preset, map[int]int) {
	next := make(map[int]Preset, len(s.presets)+1)
	remap := make(map[int]int, len(s.presets))
	for _, old := range s.Indexes() {
		pos := len(next)
		next[pos] = s.rekey(s.presets[old], old, pos)
		remap[old] = pos
	}
	return next, remap
}

// Compact re-keys a store whose indexes have gaps into 0..Len()-1 and reports
// whether anything moved.
func (s *Store) Compact() (bool, error) {
	next, remap := s.compacted()
	changed := false
	for old, pos := range remap {
		if old != pos {
			changed = true
			break
		}
	}
	if !changed {
		return false, nil
	}
	if err := s.commit(next, s.options); err != nil {
		return false, err
	}
	return true, nil
}
