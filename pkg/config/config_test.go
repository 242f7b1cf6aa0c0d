package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gosnips/pkg/config"
	"github.com/walteh/gosnips/pkg/diff"
	"github.com/walteh/gosnips/pkg/script"
	"github.com/walteh/gosnips/pkg/snippet"
)

func TestLoad(t *testing.T) {
	t.Setenv("GOSNIPS_TEST_PYTHON", "/opt/py/bin/python3")

	tests := []struct {
		name        string
		file        string
		config      string
		expectError bool
		validate    func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "yaml",
			file: "gosnips.yaml",
			config: `
shell:
  path: /bin/bash
  timeout: 2s
engines:
  - lang: python
    command: [python3, -c]
expand:
  implicit_final_tabstop: false
  columns: graphemes
`,
			validate: func(t *testing.T, cfg *config.Config) {
				require.Empty(t, diff.DiffExportedOnly(&config.ShellBlock{Path: "/bin/bash", Timeout: "2s"}, cfg.Shell))
				require.Len(t, cfg.Engines, 1)
				require.Equal(t, "python", cfg.Engines[0].Lang)
				require.Equal(t, []string{"python3", "-c"}, cfg.Engines[0].Command)
				require.False(t, cfg.ImplicitFinalTabStop())
				require.Equal(t, "graphemes", cfg.Columns())
			},
		},
		{
			name: "hcl",
			file: ".gosnips.hcl",
			config: `
shell {
  timeout = "500ms"
}

engine "python" {
  command = ["${env.GOSNIPS_TEST_PYTHON}", "-c"]
}

engine "vim" {
  command = ["vim", "-es", "-c"]
  timeout = "1s"
}
`,
			validate: func(t *testing.T, cfg *config.Config) {
				require.Len(t, cfg.Engines, 2)
				require.Equal(t, "python", cfg.Engines[0].Lang)
				require.Equal(t, []string{"/opt/py/bin/python3", "-c"}, cfg.Engines[0].Command)
				require.Equal(t, "vim", cfg.Engines[1].Lang)
				require.Equal(t, "1s", cfg.Engines[1].Timeout)
				require.True(t, cfg.ImplicitFinalTabStop())
				require.Equal(t, "bytes", cfg.Columns())
			},
		},
		{
			name:        "unknown yaml field",
			file:        "gosnips.yml",
			config:      "shel:\n  path: /bin/sh\n",
			expectError: true,
		},
		{
			name:        "unknown engine language",
			file:        "gosnips.hcl",
			config:      "engine \"ruby\" {\n  command = [\"ruby\", \"-e\"]\n}\n",
			expectError: true,
		},
		{
			name:        "duplicate engine",
			file:        "gosnips.yaml",
			config:      "engines:\n  - {lang: vim, command: [vim]}\n  - {lang: vim, command: [nvim]}\n",
			expectError: true,
		},
		{
			name:        "empty command",
			file:        "gosnips.yaml",
			config:      "engines:\n  - {lang: python, command: []}\n",
			expectError: true,
		},
		{
			name:        "bad columns",
			file:        "gosnips.yaml",
			config:      "expand:\n  columns: runes\n",
			expectError: true,
		},
		{
			name:        "invalid hcl",
			file:        "gosnips.hcl",
			config:      "shell {\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tt.file, []byte(tt.config), 0o644))

			cfg, err := config.Load(fs, tt.file)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(afero.NewMemMapFs(), "nope.hcl")
	require.Error(t, err)
}

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()

	path, err := config.Find(fs, "/work")
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, afero.WriteFile(fs, "/work/.gosnips.yaml", []byte("{}"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/.gosnips.yml", []byte("{}"), 0o644))

	path, err = config.Find(fs, "/work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", ".gosnips.yaml"), path)
}

func TestRegistry(t *testing.T) {
	cfg := &config.Config{
		Shell: &config.ShellBlock{Path: "/bin/bash", Timeout: "3s"},
		Engines: []*config.EngineBlock{
			{Lang: "python", Command: []string{"python3", "-c"}, Timeout: "1s"},
		},
	}

	reg, err := cfg.Registry()
	require.NoError(t, err)

	shell, ok := reg.Lookup(script.LangShell)
	require.True(t, ok)
	require.IsType(t, &script.ShellEngine{}, shell)
	assert.Equal(t, "/bin/bash", shell.(*script.ShellEngine).Shell)
	assert.Equal(t, 3*time.Second, shell.(*script.ShellEngine).Timeout)

	python, ok := reg.Lookup(script.LangPython)
	require.True(t, ok)
	require.IsType(t, &script.CommandEngine{}, python)
	assert.Equal(t, []string{"python3", "-c"}, python.(*script.CommandEngine).Command)
	assert.Equal(t, time.Second, python.(*script.CommandEngine).Timeout)

	_, ok = reg.Lookup(script.LangVim)
	assert.False(t, ok)

	cfg.Engines[0].Timeout = "soon"
	_, err = cfg.Registry()
	require.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	reg, err := config.Default().Registry()
	require.NoError(t, err)

	shell, ok := reg.Lookup(script.LangShell)
	require.True(t, ok)
	assert.Equal(t, script.DefaultShell, shell.(*script.ShellEngine).Shell)
}

func TestIndentFor(t *testing.T) {
	dir := t.TempDir()
	editorconfig := `root = true

[*]
indent_style = tab
tab_width = 8

[*.py]
indent_style = space
indent_size = 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".editorconfig"), []byte(editorconfig), 0o644))

	tests := []struct {
		name string
		file string
		want snippet.IndentStyle
	}{
		{name: "tabs", file: "main.go", want: snippet.IndentStyle{ExpandTab: false, Width: 8}},
		{name: "spaces", file: "main.py", want: snippet.IndentStyle{ExpandTab: true, Width: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.IndentFor(filepath.Join(dir, tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
