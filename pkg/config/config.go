// Package config loads gosnips settings from HCL or YAML files and derives
// indentation from .editorconfig.
package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/gosnips/pkg/script"
	"github.com/walteh/gosnips/pkg/snippet"
)

// DefaultFiles are looked up in the working directory when no config is given.
var DefaultFiles = []string{".gosnips.hcl", ".gosnips.yaml", ".gosnips.yml"}

type Config struct {
	Shell   *ShellBlock    `json:"shell,omitempty" hcl:"shell,block" yaml:"shell,omitempty"`
	Engines []*EngineBlock `json:"engines,omitempty" hcl:"engine,block" yaml:"engines,omitempty"`
	Expand  *ExpandBlock   `json:"expand,omitempty" hcl:"expand,block" yaml:"expand,omitempty"`
}

// ShellBlock configures the engine for `backtick` code.
type ShellBlock struct {
	Path    string `json:"path,omitempty" hcl:"path,optional" yaml:"path,omitempty"`
	Timeout string `json:"timeout,omitempty" hcl:"timeout,optional" yaml:"timeout,omitempty"`
}

// EngineBlock runs code of one language through an external command.
type EngineBlock struct {
	Lang    string   `json:"lang" hcl:"lang,label" yaml:"lang"`
	Command []string `json:"command" hcl:"command,attr" yaml:"command"`
	Timeout string   `json:"timeout,omitempty" hcl:"timeout,optional" yaml:"timeout,omitempty"`
}

type ExpandBlock struct {
	ImplicitFinalTabStop *bool  `json:"implicit_final_tabstop,omitempty" hcl:"implicit_final_tabstop,optional" yaml:"implicit_final_tabstop,omitempty"`
	Columns              string `json:"columns,omitempty" hcl:"columns,optional" yaml:"columns,omitempty"`
}

func Default() *Config {
	return &Config{}
}

// Find returns the first of DefaultFiles present in dir, or "" if none is.
func Find(fs afero.Fs, dir string) (string, error) {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		ok, err := afero.Exists(fs, path)
		if err != nil {
			return "", errors.Errorf("checking %s: %w", path, err)
		}
		if ok {
			return path, nil
		}
	}
	return "", nil
}

// Load reads a config file; .yaml and .yml files are YAML, anything else HCL.
// HCL files can read environment variables through env.NAME.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		var cfg Config
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
		return &cfg, cfg.validate()
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": environment(),
		},
	}

	var cfg Config
	diags = gohcl.DecodeBody(hclFile.Body, ctx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	return &cfg, cfg.validate()
}

func environment() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	if len(vars) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	return cty.MapVal(vars)
}

func (c *Config) validate() error {
	seen := map[string]bool{}
	for _, e := range c.Engines {
		switch script.Lang(e.Lang) {
		case script.LangShell, script.LangPython, script.LangVim:
		default:
			return errors.Errorf("engine %q: unknown language", e.Lang)
		}
		if seen[e.Lang] {
			return errors.Errorf("engine %q: defined twice", e.Lang)
		}
		seen[e.Lang] = true
		if len(e.Command) == 0 {
			return errors.Errorf("engine %q: empty command", e.Lang)
		}
	}
	if c.Expand != nil {
		switch c.Expand.Columns {
		case "", "bytes", "graphemes":
		default:
			return errors.Errorf("expand: columns must be bytes or graphemes, got %q", c.Expand.Columns)
		}
	}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("parsing timeout %q: %w", s, err)
	}
	return d, nil
}

// Registry builds the script engines described by c. The shell engine is
// always present; engine blocks override or add languages.
func (c *Config) Registry() (*script.Registry, error) {
	shell := script.NewShellEngine("")
	if c.Shell != nil {
		if c.Shell.Path != "" {
			shell.Shell = c.Shell.Path
		}
		d, err := parseTimeout(c.Shell.Timeout)
		if err != nil {
			return nil, errors.Errorf("shell: %w", err)
		}
		shell.Timeout = d
	}

	reg := script.NewRegistry()
	reg.Register(script.LangShell, shell)

	for _, e := range c.Engines {
		d, err := parseTimeout(e.Timeout)
		if err != nil {
			return nil, errors.Errorf("engine %q: %w", e.Lang, err)
		}
		reg.Register(script.Lang(e.Lang), &script.CommandEngine{Command: e.Command, Timeout: d})
	}
	return reg, nil
}

// ImplicitFinalTabStop reports whether expanded snippets get a trailing $0.
func (c *Config) ImplicitFinalTabStop() bool {
	if c.Expand == nil || c.Expand.ImplicitFinalTabStop == nil {
		return true
	}
	return *c.Expand.ImplicitFinalTabStop
}

func (c *Config) Columns() string {
	if c.Expand == nil || c.Expand.Columns == "" {
		return "bytes"
	}
	return c.Expand.Columns
}

// IndentFor returns the indentation style .editorconfig files give path.
func IndentFor(path string) (snippet.IndentStyle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return snippet.IndentStyle{}, errors.Errorf("resolving %s: %w", path, err)
	}

	def, err := editorconfig.GetDefinitionForFilename(abs)
	if err != nil {
		return snippet.IndentStyle{}, errors.Errorf("reading editorconfig for %s: %w", path, err)
	}

	style := snippet.IndentStyle{
		ExpandTab: def.IndentStyle == editorconfig.IndentStyleSpaces,
		Width:     def.TabWidth,
	}
	if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
		style.Width = n
	}
	if style.Width <= 0 {
		style.Width = 4
	}
	return style, nil
}

type contextKey struct{}

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the config stored by WithContext, or Default.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok && cfg != nil {
		return cfg
	}
	return Default()
}
