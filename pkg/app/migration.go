package app

import (
	"sort"

	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/preset"
)

// MigrationResult reports what Migrate changed.
type MigrationResult struct {
	Compacted bool
	// Pruned counts node snapshots dropped because the node is gone.
	Pruned int
}

// Migrate brings a store written by an older editor up to date: gapped
// indexes are compacted and, when prune is set, snapshots of nodes that no
// longer exist are dropped.
func (s *Service) Migrate(prune bool) (MigrationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Store == nil {
		return MigrationResult{}, errNoStore
	}

	var result MigrationResult
	compacted, err := s.Store.Compact()
	if err != nil {
		return result, err
	}
	result.Compacted = compacted

	if prune {
		for _, i := range s.Store.Indexes() {
			p, _ := s.Store.Get(i)
			kept := make(map[graph.NodeID]preset.NodeState, len(p.Nodes))
			for id, st := range p.Nodes {
				if _, ok := s.Graph.NodeByID(id); ok {
					kept[id] = st
				}
			}
			dropped := len(p.Nodes) - len(kept)
			if dropped == 0 {
				continue
			}
			if _, err := s.Store.Record(i, kept); err != nil {
				return result, err
			}
			result.Pruned += dropped
		}
	}

	for _, sess := range s.sessions {
		sess.signature = ""
	}
	s.log().Info("migrated presets", "compacted", result.Compacted, "pruned", result.Pruned)
	return result, nil
}

// missingNodes lists the ids preset i references that are not in the graph.
func (s *Service) missingNodes(i int) []graph.NodeID {
	p, ok := s.Store.Get(i)
	if !ok {
		return nil
	}
	var out []graph.NodeID
	for id := range p.Nodes {
		if _, ok := s.Graph.NodeByID(id); !ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}
