package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nbtoc/internal/config"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

const page = `<!DOCTYPE html><html><head></head><body>
<h1 id="title">Notebook</h1>
<div id="toc"></div>
<h1 id="intro">Intro</h1>
<h2 id="bg">Background</h2>
<h1 id="methods">Methods</h1>
</body></html>`

// run parses args against a fresh CLI and runs the selected command.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("nbtoc"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = ctx.Run(&Global{Logger: slog.New(slog.DiscardHandler), Stdout: &out}, cli)
	return out.String(), err
}

func writePage(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "notebook.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))
	return dir, path
}

func TestBuildWritesIntoPage(t *testing.T) {
	dir, path := writePage(t)

	out, err := run(t, "-c", filepath.Join(dir, "missing.yaml"),
		"build", "-d", path, "--container", "toc", "--title-id", "title")
	require.NoError(t, err)
	assert.Contains(t, out, "2 primary, 1 secondary")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `<li>1 <a href="#intro">Intro</a></li>`)
	assert.Contains(t, s, `<ul id="toc-h1-1"><li><a href="#bg">Background</a></li></ul>`)
	assert.Contains(t, s, `<li>2 <a href="#methods">Methods</a></li>`)
	assert.NotContains(t, s, `href="#title"`)
}

func TestBuildPrint(t *testing.T) {
	dir, path := writePage(t)
	output := filepath.Join(dir, "toc.html")

	out, err := run(t, "-c", filepath.Join(dir, "missing.yaml"),
		"build", "-d", path, "-o", output, "--title-id", "title", "--print")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<ol class="toc">`))

	fragment, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(out), string(fragment))
}

func TestBuildFailsOnOrphan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orphan.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body><div id="toc"></div><h2 id="a">A</h2></body></html>`), 0o600))

	_, err := run(t, "-c", filepath.Join(dir, "missing.yaml"), "build", "-d", path, "--container", "toc")
	require.ErrorIs(t, err, toc.ErrOrphanSecondary)
}

func TestBuildRequiresConfigOrDocument(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "-c", filepath.Join(dir, "missing.yaml"), "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestBuildFromConfigFile(t *testing.T) {
	dir, path := writePage(t)
	cfgPath := filepath.Join(dir, "nbtoc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`version: "1"
document:
  path: `+path+`
  title_id: title
  container_id: toc
toc:
  list_key_prefix: sec-
  list_class: "-"
`), 0o600))

	_, err := run(t, "-c", cfgPath, "build")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<div id="toc"><ol><li>1 `)
	assert.Contains(t, string(data), `<ul id="sec-1">`)
}

func TestHeadingsJSON(t *testing.T) {
	dir, path := writePage(t)

	out, err := run(t, "-c", filepath.Join(dir, "missing.yaml"),
		"headings", "-d", path, "--container", "toc", "--title-id", "title", "--json")
	require.NoError(t, err)

	var headings []toc.Heading
	require.NoError(t, json.Unmarshal([]byte(out), &headings))
	require.Len(t, headings, 3)
	assert.Equal(t, toc.Heading{ID: "bg", Level: toc.LevelSecondary, Content: "Background"}, headings[1])
}

func TestHeadingsTable(t *testing.T) {
	dir, path := writePage(t)

	out, err := run(t, "-c", filepath.Join(dir, "missing.yaml"),
		"headings", "-d", path, "--container", "toc")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "LEVEL")
	assert.Contains(t, lines[1], "title")
	assert.Contains(t, lines[3], "secondary")
}

func TestHeadingsNeedsNoContainer(t *testing.T) {
	dir, path := writePage(t)

	out, err := run(t, "-c", filepath.Join(dir, "missing.yaml"),
		"headings", "-d", path, "--title-id", "title", "--json")
	require.NoError(t, err)

	var headings []toc.Heading
	require.NoError(t, json.Unmarshal([]byte(out), &headings))
	assert.Len(t, headings, 3)

	// build still needs somewhere to write.
	_, err = run(t, "-c", filepath.Join(dir, "missing.yaml"), "build", "-d", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container id is required")
}

func TestHeadingsWithConfigLackingContainer(t *testing.T) {
	dir, path := writePage(t)
	cfgPath := filepath.Join(dir, "nbtoc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("document:\n  path: "+path+"\n"), 0o600))

	out, err := run(t, "-c", cfgPath, "headings")
	require.NoError(t, err)
	assert.Contains(t, out, "intro")
}

func TestBuildContainerFromFlagCompletesConfig(t *testing.T) {
	dir, path := writePage(t)
	cfgPath := filepath.Join(dir, "nbtoc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("document:\n  path: "+path+"\n  title_id: title\n"), 0o600))

	out, err := run(t, "-c", cfgPath, "build", "--container", "toc")
	require.NoError(t, err)
	assert.Contains(t, out, "Table of contents written")
}

func TestInit(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nbtoc.yaml")

	out, err := run(t, "-c", cfgPath, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")

	_, err = run(t, "-c", cfgPath, "init")
	require.Error(t, err)

	_, err = run(t, "-c", cfgPath, "init", "--force")
	require.NoError(t, err)
}

func TestStartServicesRefreshesUntilShutdown(t *testing.T) {
	_, path := writePage(t)
	cfg := &config.Config{
		Document: config.DocumentConfig{Path: path, TitleID: "title", ContainerID: "toc"},
		Refresh:  config.RefreshConfig{Interval: 50 * time.Millisecond, Watch: true},
		History:  config.HistoryConfig{Enabled: true, Path: ":memory:"},
	}
	require.NoError(t, config.ApplyDefaults(cfg))
	require.NoError(t, config.Validate(cfg))

	svc, err := startServices(t.Context(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entries, err := svc.store.Recent(context.Background(), 10)
		return err == nil && len(entries) > 0
	}, 2*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `href="#methods"`)

	require.NoError(t, svc.shutdown(context.Background()))
}

func TestStartServicesFailsOnBadDocument(t *testing.T) {
	cfg := &config.Config{
		Document: config.DocumentConfig{Path: filepath.Join(t.TempDir(), "notes.txt"), Output: "out.html"},
	}
	require.NoError(t, config.ApplyDefaults(cfg))

	_, err := startServices(t.Context(), cfg, slog.New(slog.DiscardHandler))
	require.Error(t, err)
}
