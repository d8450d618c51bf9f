// Package watch re-applies presets when a control node's effective index
// changes, either on a fixed poll or on an explicit notification.
package watch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tableflip.dev/presetswitch/pkg/graph"
)

// DefaultInterval is the poll period.
const DefaultInterval = 250 * time.Millisecond

// Checker is the lifecycle the poller drives. app.Service implements it.
type Checker interface {
	ControlNodes() []graph.NodeID
	AutoApply(id graph.NodeID) (applied, present bool)
	Forget(id graph.NodeID)
}

// Poller keeps at most one watch per control node and checks every watched
// node on each tick.
type Poller struct {
	Checker  Checker
	Interval time.Duration
	Log      *slog.Logger
	// OnApply, when set, is called after a tick or notification applied a
	// preset to at least one node.
	OnApply func(ids []graph.NodeID)

	mu       sync.Mutex
	watched  map[graph.NodeID]bool
	inFlight atomic.Bool
}

func (p *Poller) log() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

func (p *Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

// Watch starts watching control node id. It reports false when the node is
// already watched.
func (p *Poller) Watch(id graph.NodeID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watched == nil {
		p.watched = map[graph.NodeID]bool{}
	}
	if p.watched[id] {
		return false
	}
	p.watched[id] = true
	return true
}

// Unwatch stops watching id and drops its session state.
func (p *Poller) Unwatch(id graph.NodeID) {
	p.mu.Lock()
	_, ok := p.watched[id]
	delete(p.watched, id)
	p.mu.Unlock()
	if ok {
		p.Checker.Forget(id)
	}
}

// Watched returns the watched ids in ascending order.
func (p *Poller) Watched() []graph.NodeID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]graph.NodeID, 0, len(p.watched))
	for id := range p.watched {
		out = append(out, id)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Tick discovers new control nodes and auto-applies every watched one. A tick
// that starts while another is still running returns false without doing
// anything.
func (p *Poller) Tick() bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer p.inFlight.Store(false)

	for _, id := range p.Checker.ControlNodes() {
		if p.Watch(id) {
			p.log().Debug("watching control node", "node", id)
		}
	}

	var applied []graph.NodeID
	for _, id := range p.Watched() {
		ok, present := p.Checker.AutoApply(id)
		if !present {
			p.log().Debug("control node gone", "node", id)
			p.Unwatch(id)
			continue
		}
		if ok {
			applied = append(applied, id)
		}
	}
	if len(applied) > 0 && p.OnApply != nil {
		p.OnApply(applied)
	}
	return true
}

// Notify checks one control node now, without waiting for the next tick.
// It is the push-based replacement for polling.
func (p *Poller) Notify(id graph.NodeID) bool {
	p.Watch(id)
	applied, present := p.Checker.AutoApply(id)
	if !present {
		p.Unwatch(id)
		return false
	}
	if applied && p.OnApply != nil {
		p.OnApply([]graph.NodeID{id})
	}
	return applied
}

// Run ticks until ctx is done. No check starts after Run returns.
func (p *Poller) Run(ctx context.Context) error {
	run := uuid.New().String()
	log := p.log().With("run", run)
	log.Info("watcher started", "interval", p.interval())

	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	p.Tick()
	for {
		select {
		case <-ctx.Done():
			log.Info("watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			p.Tick()
		}
	}
}
