// Package workflow opens one stored workflow document together with the
// preset store and service that operate on it.
package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/preset"
	"tableflip.dev/presetswitch/pkg/resolve"
	"tableflip.dev/presetswitch/pkg/store"
	"tableflip.dev/presetswitch/pkg/watch"
)

// Session is an open workflow. Doc keeps its identity across reloads, so the
// Service and anything else holding it observe reloaded contents.
type Session struct {
	Name        string
	Persistence store.Persistence
	Config      *config.Config
	Doc         *graph.Document
	Service     *app.Service
	Log         *slog.Logger

	mu sync.Mutex
}

var _ watch.Checker = (*Session)(nil)

// Open loads workflow name from p and attaches a preset service to it.
// A nil cfg means config.Default().
func Open(p store.Persistence, cfg *config.Config, name string, log *slog.Logger) (*Session, error) {
	if p == nil {
		return nil, errors.New("workflow: no persistence")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	doc, err := p.Load(name, cfg.Schema())
	if err != nil {
		return nil, err
	}
	st, err := preset.Open(doc, cfg.StoreOptions()...)
	if err != nil {
		return nil, fmt.Errorf("workflow: open presets of %q: %w", name, err)
	}

	log = log.With("workflow", name)
	return &Session{
		Name:        name,
		Persistence: p,
		Config:      cfg,
		Doc:         doc,
		Log:         log,
		Service: &app.Service{
			Graph:        doc,
			Store:        st,
			Resolver:     &resolve.Resolver{Graph: doc, Input: resolve.DefaultInput, Candidates: cfg.Candidates},
			Log:          log,
			Now:          time.Now,
			DoubleClick:  cfg.DoubleClick,
			ControlTypes: cfg.ControlTypes,
		},
	}, nil
}

// Node returns the control node a command targets: id when it is non-zero,
// else the first control node of the document.
func (s *Session) Node(id int) (graph.NodeID, error) {
	if id == 0 {
		return s.Service.FirstControlNode()
	}
	n, ok := s.Doc.NodeByID(graph.NodeID(id))
	if !ok || !s.Service.IsControl(n) {
		return 0, fmt.Errorf("%w: node %d", app.ErrNoControlNode, id)
	}
	return n.ID(), nil
}

// Save writes the document back when it changed and reports whether it did.
func (s *Session) Save() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Doc.Dirty() {
		return false, nil
	}
	if err := s.Persistence.Save(s.Name, s.Doc); err != nil {
		return false, err
	}
	s.Log.Debug("workflow saved")
	return true, nil
}

// Reload replaces the document with the stored copy and hands the service a
// store over the new contents.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh, err := s.Persistence.Load(s.Name, s.Config.Schema())
	if err != nil {
		return err
	}
	s.Doc.Replace(fresh)
	st, err := preset.Open(s.Doc, s.Config.StoreOptions()...)
	if err != nil {
		return fmt.Errorf("workflow: reopen presets of %q: %w", s.Name, err)
	}
	s.Service.Reload(st)
	s.Log.Debug("workflow reloaded")
	return nil
}

// ControlNodes implements watch.Checker.
func (s *Session) ControlNodes() []graph.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Service.ControlNodes()
}

// AutoApply implements watch.Checker.
func (s *Session) AutoApply(id graph.NodeID) (applied, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Service.AutoApply(id)
}

// Forget implements watch.Checker.
func (s *Session) Forget(id graph.NodeID) {
	s.Service.Forget(id)
}

// Poller returns a poller over the session at the configured interval.
func (s *Session) Poller() *watch.Poller {
	return &watch.Poller{Checker: s, Interval: s.Config.Interval, Log: s.Log}
}
