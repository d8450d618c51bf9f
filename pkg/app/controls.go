package app

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/preset"
	"tableflip.dev/presetswitch/pkg/reorder"
)

// RenameTitle is the title of the rename prompt.
const RenameTitle = "Rename Preset 重命名预设"

// PromptRequest asks the host for one line of text. Submit is called at most
// once with the entered value; a cancelled prompt never calls it.
type PromptRequest struct {
	Title   string
	Initial string
	Node    graph.NodeID
	Index   int
	Submit  func(value string) error
}

// Prompter is a modal text prompt.
type Prompter interface {
	Prompt(ctx context.Context, req PromptRequest) error
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, req PromptRequest) error

// Prompt implements Prompter.
func (f PrompterFunc) Prompt(ctx context.Context, req PromptRequest) error {
	return f(ctx, req)
}

// AddPreset records the current state as a new preset after the last one and
// switches control node id to it.
func (s *Service) AddPreset(id graph.NodeID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return 0, err
	}
	written, err := s.record(s.Store.NextAvailable())
	if err != nil {
		return 0, err
	}
	_, err = s.switchTo(n, sess, written, true)
	return written, err
}

// RecordCurrent overwrites the preset the node currently selects. When the
// selection is past the end the preset is appended and the local field follows
// it.
func (s *Service) RecordCurrent(id graph.NodeID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return 0, err
	}
	current := s.resolver().Effective(n)
	written, err := s.record(current)
	if err != nil {
		return 0, err
	}
	if written != current && !s.resolver().Linked(n) {
		s.resolver().SetLocal(n, written)
		sess.applied = true
		sess.lastApplied = written
	}
	s.refresh(n, sess)
	return written, nil
}

// DeleteSelected deletes the preset the node currently selects. Unless the
// index input is linked, the node then switches to the same position, or the
// new last preset when the deleted one was last.
func (s *Service) DeleteSelected(id graph.NodeID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return 0, err
	}
	current := s.resolver().Effective(n)
	if err := s.Store.Delete(current); err != nil {
		s.refresh(n, sess)
		return current, err
	}
	s.log().Info("deleted preset", "index", current)

	if s.resolver().Linked(n) {
		s.refresh(n, sess)
		return current, nil
	}
	fallback := 0
	if indexes := s.Store.Indexes(); len(indexes) > 0 {
		fallback = min(current, indexes[len(indexes)-1])
	}
	if _, err := s.switchTo(n, sess, fallback, true); err != nil && !errors.Is(err, preset.ErrNotFound) {
		return fallback, err
	}
	return fallback, nil
}

// PrevPreset switches to the preset before the current one, wrapping around.
func (s *Service) PrevPreset(id graph.NodeID) (int, error) {
	return s.step(id, (*preset.Store).Prev)
}

// NextPreset switches to the preset after the current one, wrapping around.
func (s *Service) NextPreset(id graph.NodeID) (int, error) {
	return s.step(id, (*preset.Store).Next)
}

func (s *Service) step(id graph.NodeID, nav func(*preset.Store, int) int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return 0, err
	}
	target := nav(s.Store, s.resolver().Effective(n))
	_, err = s.switchTo(n, sess, target, true)
	return target, err
}

// Rename sets the name of preset i and refreshes the panel of node id.
func (s *Service) Rename(id graph.NodeID, i int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return err
	}
	if err := s.Store.Rename(i, name); err != nil {
		return err
	}
	s.refresh(n, sess)
	return nil
}

// RenameSelected prompts for a new name of the preset node id selects.
func (s *Service) RenameSelected(ctx context.Context, id graph.NodeID) error {
	s.mu.Lock()
	n, _, err := s.controlNode(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	current := s.resolver().Effective(n)
	s.mu.Unlock()
	return s.RenamePrompt(ctx, id, current)
}

// RenamePrompt opens the rename prompt for preset i.
func (s *Service) RenamePrompt(ctx context.Context, id graph.NodeID, i int) error {
	s.mu.Lock()
	if s.Store == nil {
		s.mu.Unlock()
		return errNoStore
	}
	if !s.Store.Has(i) {
		s.mu.Unlock()
		s.log().Warn("preset not found, cannot rename", "index", i)
		return fmt.Errorf("%w: #%d", preset.ErrNotFound, i)
	}
	req := PromptRequest{
		Title:   RenameTitle,
		Initial: s.Store.Name(i),
		Node:    id,
		Index:   i,
		Submit: func(value string) error {
			return s.Rename(id, i, value)
		},
	}
	prompter := s.Prompter
	s.mu.Unlock()

	if prompter == nil {
		s.log().Warn("prompt unavailable, rename aborted", "index", i)
		return ErrNoPrompter
	}
	return prompter.Prompt(ctx, req)
}

// Pointer feeds a pointer event on the panel of node id through its drag
// controller and carries out the resulting intent.
func (s *Service) Pointer(ctx context.Context, id graph.NodeID, ev reorder.Event) (reorder.Intent, error) {
	s.mu.Lock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		s.mu.Unlock()
		return reorder.Intent{}, err
	}
	if sess.rows == nil {
		s.refresh(n, sess)
	}
	intent := sess.drag.Handle(ev, sess.rows)

	switch intent.Kind {
	case reorder.Select, reorder.Rename:
		_, err = s.switchTo(n, sess, intent.Index, true)
	case reorder.Move:
		if merr := s.Store.Move(intent.From, intent.To); merr != nil {
			s.log().Warn("preset move failed", "from", intent.From, "to", intent.To, "error", merr)
			sess.signature = ""
			s.refresh(n, sess)
			break
		}
		s.log().Info("moved preset", "from", intent.From, "to", intent.To)
		_, err = s.switchTo(n, sess, intent.To, true)
	}
	s.mu.Unlock()

	if intent.Kind == reorder.Rename {
		if perr := s.RenamePrompt(ctx, id, intent.Index); perr != nil {
			return intent, perr
		}
	}
	return intent, err
}
