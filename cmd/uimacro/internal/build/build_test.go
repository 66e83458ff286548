package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/uimacro/internal/cache"
	"github.com/recera/uimacro/pkg/backend/jinja"
	"github.com/recera/uimacro/pkg/compiler"
)

const buttonSource = `---
props:
  label:
    required: true
---
<button>{}</button>
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func newBuilder(t *testing.T, opts Options) *Builder {
	t.Helper()
	return New(compiler.New(&jinja.Backend{}, compiler.Options{}), opts)
}

func TestBuildAll(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "macros")
	writeFiles(t, in, map[string]string{
		"button.html": buttonSource,
		"card.html":   `<div class="card"><slot></slot></div>`,
		"broken.html": "<p></p><p></p>",
		"notes.txt":   "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(in, "nested"), 0755))

	b := newBuilder(t, Options{InputDir: in, OutputDir: out, Extensions: []string{".html"}, Workers: 2})
	summary, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Files, 3)
	assert.Equal(t, 2, summary.Compiled)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, filepath.Join(in, "broken.html"), summary.Files[0].Source)
	assert.Error(t, summary.Files[0].Err)
	assert.NotEmpty(t, summary.Files[0].Error)

	data, err := os.ReadFile(filepath.Join(out, "button.html"))
	require.NoError(t, err)
	assert.Equal(t, "{% macro button(label) -%}\n    <button>{{ label }}</button>\n{%- endmacro %}\n", string(data))

	assert.Equal(t, "button", summary.Files[1].Component)
	assert.FileExists(t, filepath.Join(out, "card.html"))
	assert.NoFileExists(t, filepath.Join(out, "broken.html"))
}

func TestBuildFile_OutputExtension(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{"icon-button.html": buttonSource})

	b := newBuilder(t, Options{InputDir: in, OutputDir: out, OutputExt: ".jinja"})
	res := b.BuildFile(filepath.Join(in, "icon-button.html"))
	require.NoError(t, res.Err)

	assert.Equal(t, filepath.Join(out, "icon-button.jinja"), res.Output)
	data, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "{% macro icon_button(label) -%}")
}

func TestBuildAll_Cache(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{"button.html": buttonSource})

	c, err := cache.New(cache.Config{Dir: t.TempDir()})
	require.NoError(t, err)

	b := newBuilder(t, Options{InputDir: in, OutputDir: out, Cache: c})

	first, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Compiled)
	assert.Equal(t, 0, first.Cached)

	second, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Cached)
	assert.Equal(t, []string{"label"}, paramNames(second.Files[0]))

	writeFiles(t, in, map[string]string{"button.html": buttonSource + "\n"})
	third, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, third.Compiled, "edited source must recompile")
}

func TestBuildAll_Cancelled(t *testing.T) {
	in := t.TempDir()
	writeFiles(t, in, map[string]string{"button.html": buttonSource})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBuilder(t, Options{InputDir: in, OutputDir: t.TempDir()}).BuildAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemove(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFiles(t, in, map[string]string{"button.html": buttonSource})

	b := newBuilder(t, Options{InputDir: in, OutputDir: out})
	res := b.BuildFile(filepath.Join(in, "button.html"))
	require.NoError(t, res.Err)

	removed, err := b.Remove(filepath.Join(in, "button.html"))
	require.NoError(t, err)
	assert.Equal(t, res.Output, removed)
	assert.NoFileExists(t, removed)

	_, err = b.Remove(filepath.Join(in, "button.html"))
	assert.NoError(t, err, "removing twice is not an error")
}

func TestDiscover_MissingDir(t *testing.T) {
	b := newBuilder(t, Options{InputDir: filepath.Join(t.TempDir(), "missing")})
	_, err := b.Discover()
	assert.Error(t, err)
}

func paramNames(r *Result) []string {
	var names []string
	for _, p := range r.Params {
		names = append(names, p.Name)
	}
	return names
}
