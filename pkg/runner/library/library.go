// Package library moves workflow documents in and out of the local library.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/printers"
	"tableflip.dev/presetswitch/pkg/store"
)

// Import reads a workflow file exported by the editor into the library.
type Import struct {
	Persistence store.Persistence
	Config      *config.Config

	// Path is the file to read; "-" reads In.
	Path string
	// Name defaults to the file name without extension.
	Name string
	In   io.Reader
	Out  io.Writer
}

func (i *Import) Do(ctx context.Context) error {
	var (
		data []byte
		err  error
	)
	if i.Path == "-" {
		in := i.In
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(i.Path)
	}
	if err != nil {
		return fmt.Errorf("library: read %s: %w", i.Path, err)
	}

	name := i.Name
	if name == "" {
		if i.Path == "-" {
			return fmt.Errorf("library: a name is required when importing from stdin")
		}
		base := filepath.Base(i.Path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	cfg := i.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := i.Persistence.Import(name, data, cfg.Schema()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(output(i.Out), "imported %s\n", name)
	return nil
}

// Export writes a stored workflow back out in the editor's format.
type Export struct {
	Persistence store.Persistence

	Name string
	// Path is the file to write; empty writes Out.
	Path string
	Out  io.Writer
}

func (e *Export) Do(ctx context.Context) error {
	data, err := e.Persistence.Export(e.Name)
	if err != nil {
		return err
	}
	if e.Path != "" {
		if err := os.WriteFile(e.Path, data, 0o644); err != nil {
			return fmt.Errorf("library: write %s: %w", e.Path, err)
		}
		return nil
	}
	_, err = fmt.Fprintln(output(e.Out), string(data))
	return err
}

// Docs lists the stored workflows.
type Docs struct {
	Persistence store.Persistence
	Out         io.Writer
	JSON        bool
}

func (d *Docs) Do(ctx context.Context) error {
	names := d.Persistence.Names(ctx)
	if d.JSON {
		b, err := json.Marshal(names)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(output(d.Out), string(b))
		return nil
	}
	pp := &printers.PrettyPrint{Out: output(d.Out)}
	pp.Names(names)
	return nil
}

// Remove deletes a stored workflow.
type Remove struct {
	Persistence store.Persistence
	Name        string
}

func (r *Remove) Do(ctx context.Context) error {
	return r.Persistence.Delete(r.Name)
}

func output(w io.Writer) io.Writer {
	if w == nil {
		return color.Output
	}
	return w
}
