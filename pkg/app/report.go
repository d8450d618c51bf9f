package app

import (
	"time"

	"tableflip.dev/presetswitch/pkg/graph"
)

// ReportItem summarizes one preset against the live graph.
type ReportItem struct {
	Index      int
	Name       string
	Nodes      int
	Missing    int
	MissingIDs []graph.NodeID
	Active     bool
	UpdatedAt  time.Time
}

// ReportResult lists every preset in index order.
type ReportResult struct {
	Current int
	Linked  bool
	Items   []ReportItem
	Total   int
}

// Report summarizes the presets as seen from control node id. A zero id with
// no such node reports without an active preset.
func (s *Service) Report(id graph.NodeID) (ReportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Store == nil {
		return ReportResult{}, errNoStore
	}

	result := ReportResult{Current: -1}
	if n, ok := s.Graph.NodeByID(id); ok {
		result.Current = s.resolver().Effective(n)
		result.Linked = s.resolver().Linked(n)
	}

	for _, i := range s.Store.Indexes() {
		p, _ := s.Store.Get(i)
		item := ReportItem{
			Index:  i,
			Name:   s.Store.Name(i),
			Nodes:  len(p.Nodes),
			Active: i == result.Current,
		}
		if p.UpdatedAt > 0 {
			item.UpdatedAt = time.UnixMilli(p.UpdatedAt)
		}
		item.MissingIDs = s.missingNodes(i)
		item.Missing = len(item.MissingIDs)
		result.Items = append(result.Items, item)
	}
	result.Total = len(result.Items)
	return result, nil
}
