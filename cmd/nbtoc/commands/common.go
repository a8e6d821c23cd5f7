package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/nbtoc/internal/config"
	"git.home.luguber.info/inful/nbtoc/internal/document"
	"git.home.luguber.info/inful/nbtoc/internal/refresh"
	"git.home.luguber.info/inful/nbtoc/internal/revision"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"nbtoc.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Regenerate the table of contents once"`
	Watch    WatchCmd    `cmd:"" help:"Regenerate the table of contents every interval until interrupted"`
	Headings HeadingsCmd `cmd:"" help:"List the headings the table of contents is built from"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// DocumentFlags override the document section of the configuration. When
// the configuration file does not exist, --document alone is enough.
type DocumentFlags struct {
	Document  string `short:"d" help:"Document to read headings from (overrides config)" type:"path"`
	Kind      string `help:"Document kind: html, markdown or notebook (default: by extension)"`
	Container string `help:"Id of the element receiving the table of contents"`
	Output    string `short:"o" help:"Write the table of contents to this file instead of the page" type:"path"`
	TitleID   string `name:"title-id" help:"Id of the title heading to leave out"`
}

// loadConfig reads the configuration file, or starts from defaults when the
// file is missing and a document was given on the command line. Flag
// overrides are applied before validate runs.
func loadConfig(root *CLI, flags DocumentFlags, validate func(*config.Config) error) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(root.Config); err != nil && flags.Document != "" {
		cfg = &config.Config{}
	} else {
		loaded, err := config.Read(root.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Document != "" {
		cfg.Document.Path = flags.Document
	}
	if flags.Kind != "" {
		cfg.Document.Kind = flags.Kind
	}
	if flags.Container != "" {
		cfg.Document.ContainerID = flags.Container
	}
	if flags.Output != "" {
		cfg.Document.Output = flags.Output
	}
	if flags.TitleID != "" {
		cfg.Document.TitleID = flags.TitleID
	}

	if err := config.ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger applies the configured level and format, keeping -v.
func newLogger(cfg *config.Config, root *CLI) *slog.Logger {
	logger := config.NewLogger(cfg.Logging, os.Stderr, root.Verbose)
	slog.SetDefault(logger)
	return logger
}

func openDocument(cfg *config.Config) (document.Source, document.Container, error) {
	return document.Open(document.OpenOptions{
		Kind:        cfg.Document.Kind,
		Path:        cfg.Document.Path,
		ContainerID: cfg.Document.ContainerID,
		Output:      cfg.Document.Output,
	})
}

func refreshOptions(cfg *config.Config) (refresh.Options, error) {
	orphans, err := toc.ParseOrphanPolicy(cfg.TOC.Orphans)
	if err != nil {
		return refresh.Options{}, err
	}
	return refresh.Options{
		Query: document.Query{
			ExcludeID:   cfg.Document.TitleID,
			IgnoreClass: cfg.Document.IgnoreClass,
		},
		Build: toc.Options{
			ListKeyPrefix: cfg.TOC.ListKeyPrefix,
			Orphans:       orphans,
		},
		Render:   toc.RenderOptions{ListClass: cfg.TOC.ListClass},
		Interval: cfg.Refresh.Interval,
	}, nil
}

// watchPaths lists the files whose changes should trigger an early tick.
func watchPaths(cfg *config.Config) []string {
	return []string{cfg.Document.Path}
}

func newRefresher(cfg *config.Config, src document.Source, ctr document.Container, opts refresh.Options, logger *slog.Logger) (*refresh.Refresher, error) {
	r := refresh.New(src, ctr, opts).WithLogger(logger)
	if cfg.Document.TrackRevision {
		resolver, err := revision.NewResolver(cfg.Document.Path)
		if err != nil {
			return nil, err
		}
		r.WithRevisions(resolver)
	}
	return r, nil
}
