package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/nbtoc/internal/config"
)

// BuildCmd implements the 'build' command: exactly one tick.
type BuildCmd struct {
	DocumentFlags
	Print bool `help:"Also print the rendered table of contents to stdout"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, b.DocumentFlags, config.Validate)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, root)

	src, ctr, err := openDocument(cfg)
	if err != nil {
		return err
	}
	opts, err := refreshOptions(cfg)
	if err != nil {
		return err
	}

	r, err := newRefresher(cfg, src, ctr, opts, logger)
	if err != nil {
		return err
	}
	out, err := r.Tick(context.Background())
	if err != nil {
		return err
	}

	if b.Print {
		_, _ = fmt.Fprintln(g.Stdout, string(out.Rendered))
		return nil
	}
	verb := "written"
	if !out.Written {
		verb = "already up to date"
	}
	_, _ = fmt.Fprintf(g.Stdout, "Table of contents %s: %d primary, %d secondary entries (%s)\n",
		verb, out.Primary, out.Secondary, out.Fingerprint)
	if out.Revision != "" {
		_, _ = fmt.Fprintf(g.Stdout, "Document revision: %s\n", out.Revision)
	}
	return nil
}
