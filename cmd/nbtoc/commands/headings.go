package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/nbtoc/internal/config"
	"git.home.luguber.info/inful/nbtoc/internal/document"
)

// HeadingsCmd implements the 'headings' command. It only reads the
// document, so no container or output is needed.
type HeadingsCmd struct {
	DocumentFlags
	JSON bool `help:"Print headings as JSON"`
}

func (h *HeadingsCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root, h.DocumentFlags, config.ValidateSource)
	if err != nil {
		return err
	}
	newLogger(cfg, root)

	src, err := document.OpenSource(cfg.Document.Kind, cfg.Document.Path)
	if err != nil {
		return err
	}
	headings, err := src.Headings(context.Background(), document.Query{
		ExcludeID:   cfg.Document.TitleID,
		IgnoreClass: cfg.Document.IgnoreClass,
	})
	if err != nil {
		return err
	}

	if h.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(headings)
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LEVEL\tID\tCONTENT")
	for _, hd := range headings {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", hd.Level, hd.ID, hd.Content)
	}
	return tw.Flush()
}
