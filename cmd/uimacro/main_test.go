package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/uimacro/cmd/uimacro/internal/config"
)

const buttonSource = `---
props:
  label:
    required: true
  variant:
    class: btn-{}
---
<button class="btn">{label}</button>
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "components"), 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, "components", name), []byte(content), 0644))
	}
	return root
}

func TestGen(t *testing.T) {
	root := project(t, map[string]string{"button.html": buttonSource})

	out, _, err := run(t, "gen", "--config", root)
	require.NoError(t, err)
	assert.Contains(t, out, "button.html")
	assert.Contains(t, out, "1 compiled")

	data, err := os.ReadFile(filepath.Join(root, "macros", "button.html"))
	require.NoError(t, err)
	assert.Equal(t, "{% macro button(label, variant=None) -%}\n"+
		"    <button class=\"btn{% if variant %} btn-{{ variant }}{% endif %}\">{{ label }}</button>\n"+
		"{%- endmacro %}\n", string(data))

	out, _, err = run(t, "gen", "--config", root)
	require.NoError(t, err)
	assert.Contains(t, out, "1 cached")
}

func TestGen_ExplicitDirsAndJSON(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(filepath.Join(in, "button.html"), []byte(buttonSource), 0644))

	stdout, _, err := run(t, "gen", in, out, "--config", t.TempDir(), "--no-cache", "--json")
	require.NoError(t, err)

	var summary struct {
		Compiled int `json:"compiled"`
		Files    []struct {
			Component string `json:"component"`
			Cached    bool   `json:"cached"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, 1, summary.Compiled)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, "button", summary.Files[0].Component)
	assert.FileExists(t, filepath.Join(out, "button.html"))
}

func TestGen_FailureExitsNonZero(t *testing.T) {
	root := project(t, map[string]string{
		"button.html": buttonSource,
		"broken.html": "---\nprops: [\n---\n<p></p>",
	})

	_, stderr, err := run(t, "gen", "--config", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 components failed")
	assert.Contains(t, stderr, "broken.html")
	assert.FileExists(t, filepath.Join(root, "macros", "button.html"))
}

func TestGen_Strict(t *testing.T) {
	root := project(t, map[string]string{
		"chip.html": "---\nprops:\n  icon:\n    target: .icon\n---\n<span></span>",
	})

	_, stderr, err := run(t, "gen", "--config", root)
	require.NoError(t, err)
	assert.Contains(t, stderr, ".icon")

	_, _, err = run(t, "gen", "--config", root, "--strict")
	assert.Error(t, err)
}

func TestGen_ConfigFile(t *testing.T) {
	root := project(t, map[string]string{"button.html": buttonSource})
	cfg := config.DefaultConfig()
	cfg.OutputDir = "templates"
	cfg.OutputExt = ".jinja"
	cfg.Cache.Enabled = false
	require.NoError(t, config.Save(cfg, root))

	_, _, err := run(t, "gen", "--config", root, "-q")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "templates", "button.jinja"))
	assert.NoDirExists(t, filepath.Join(root, ".uimacro"))
}

func TestGen_UnknownBackend(t *testing.T) {
	root := project(t, nil)
	_, _, err := run(t, "gen", "--config", root, "--backend", "mustache")
	assert.Error(t, err)
}

func TestInspect_JSON(t *testing.T) {
	root := project(t, map[string]string{"button.html": buttonSource})

	out, _, err := run(t, "inspect", filepath.Join(root, "components", "button.html"), "--config", root, "--json")
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "button", report.Component)
	require.Len(t, report.Params, 2)
	assert.Equal(t, "label", report.Params[0].Name)
	assert.True(t, report.Params[0].Required)
	require.Len(t, report.Rules, 2)
	assert.Equal(t, "&", report.Rules[1].Target)
	assert.Contains(t, report.Rules[1].Attributes, "class")
	assert.Contains(t, report.Output, "{% macro button(")
}

func TestInspect_Text(t *testing.T) {
	root := project(t, map[string]string{"button.html": buttonSource})

	out, _, err := run(t, "inspect", filepath.Join(root, "components", "button.html"), "--config", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Component button")
	assert.Contains(t, out, "label")
	assert.Contains(t, out, "variant $defined")
	assert.Contains(t, out, "endmacro")
}

func TestCreate(t *testing.T) {
	root := project(t, nil)

	out, _, err := run(t, "create", "alert", "--config", root,
		"--prop", "title!", "--prop", "tone:class", "--slot", "actions", "--children")
	require.NoError(t, err)
	path := filepath.Join(root, "components", "alert.html")
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, _, err = run(t, "create", "alert", "--config", root)
	assert.Error(t, err, "existing file is kept without --force")

	_, _, err = run(t, "gen", "--config", root, "--strict")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "macros", "alert.html"))
}

func TestCreate_Errors(t *testing.T) {
	root := project(t, nil)

	_, _, err := run(t, "create", "--config", root)
	assert.Error(t, err)

	_, _, err = run(t, "create", "alert", "--config", root, "--prop", "x:style")
	assert.Error(t, err)
}
