// Package build runs the compiler over a directory of component files.
package build

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/recera/uimacro/internal/cache"
	"github.com/recera/uimacro/pkg/backend"
	"github.com/recera/uimacro/pkg/compiler"
)

// FormatVersion changes whenever cached artifacts stop being valid.
const FormatVersion = "1"

// Options configure a Builder
type Options struct {
	InputDir   string
	OutputDir  string
	Extensions []string
	OutputExt  string
	Workers    int
	// Cache is optional; nil compiles every file.
	Cache *cache.Cache
}

// Result is the outcome of building one component file.
type Result struct {
	Source      string                `json:"source"`
	Output      string                `json:"output,omitempty"`
	Component   string                `json:"component,omitempty"`
	Params      []backend.Param       `json:"params,omitempty"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
	Cached      bool                  `json:"cached"`
	Duration    time.Duration         `json:"duration"`
	Error       string                `json:"error,omitempty"`
	Err         error                 `json:"-"`
}

// Summary aggregates a directory build. Files keep discovery order.
type Summary struct {
	Files    []*Result     `json:"files"`
	Compiled int           `json:"compiled"`
	Cached   int           `json:"cached"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Builder compiles component files to macro files.
type Builder struct {
	compiler *compiler.Compiler
	opts     Options
}

type artifact struct {
	Component   string                `json:"component"`
	Output      string                `json:"output"`
	Params      []backend.Param       `json:"params"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
}

// New creates a builder
func New(c *compiler.Compiler, opts Options) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Builder{compiler: c, opts: opts}
}

// Discover lists component files in the input directory, sorted by name.
// Subdirectories are not descended into.
func (b *Builder) Discover() ([]string, error) {
	entries, err := os.ReadDir(b.opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(b.opts.InputDir, e.Name())
		if b.Accepts(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Accepts reports whether path has one of the configured extensions.
func (b *Builder) Accepts(path string) bool {
	if len(b.opts.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range b.opts.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// OutputPath maps a component file to its macro file.
func (b *Builder) OutputPath(source string) string {
	name := filepath.Base(source)
	if b.opts.OutputExt != "" {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + b.opts.OutputExt
	}
	return filepath.Join(b.opts.OutputDir, name)
}

// ComponentName derives the macro name from a file name.
func ComponentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BuildFile compiles one component file and writes its macro file.
func (b *Builder) BuildFile(path string) *Result {
	start := time.Now()
	res := &Result{Source: path}
	defer func() {
		res.Duration = time.Since(start)
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
	}()

	src, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to read %s: %w", path, err)
		return res
	}

	art, cached, err := b.compile(path, string(src))
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", filepath.Base(path), err)
		return res
	}
	res.Component = art.Component
	res.Params = art.Params
	res.Diagnostics = art.Diagnostics
	res.Cached = cached

	out := b.OutputPath(path)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		res.Err = fmt.Errorf("failed to create output directory: %w", err)
		return res
	}
	if err := os.WriteFile(out, []byte(art.Output+"\n"), 0644); err != nil {
		res.Err = fmt.Errorf("failed to write %s: %w", out, err)
		return res
	}
	res.Output = out
	return res
}

func (b *Builder) compile(path, src string) (*artifact, bool, error) {
	name := ComponentName(path)
	key := cache.Key(
		FormatVersion,
		b.compiler.Backend().Name(),
		strconv.FormatBool(b.compiler.Options().Strict),
		name,
		src,
	)

	if b.opts.Cache != nil {
		if data, ok := b.opts.Cache.Get(key); ok {
			var art artifact
			if err := json.Unmarshal(data, &art); err == nil {
				return &art, true, nil
			}
			b.opts.Cache.Delete(key)
		}
	}

	result, err := b.compiler.CompileSource(name, src)
	if err != nil {
		return nil, false, err
	}
	art := &artifact{
		Component:   result.Component.Name,
		Output:      result.Output,
		Params:      result.Params,
		Diagnostics: result.Diagnostics,
	}

	if b.opts.Cache != nil {
		// A cache that cannot be written only costs a recompile next time.
		if data, err := json.Marshal(art); err == nil {
			_ = b.opts.Cache.Put(key, path, data)
		}
	}
	return art, false, nil
}

// BuildAll compiles every discovered file. A failing file is recorded in its
// Result and does not stop the others; only discovery and cancellation fail
// the whole build.
func (b *Builder) BuildAll(ctx context.Context) (*Summary, error) {
	start := time.Now()
	paths, err := b.Discover()
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.BuildFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}

	summary := &Summary{Files: results, Duration: time.Since(start)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			summary.Failed++
		case r.Cached:
			summary.Cached++
		default:
			summary.Compiled++
		}
	}
	return summary, nil
}

// Remove deletes the macro file generated from a removed component file.
func (b *Builder) Remove(source string) (string, error) {
	if b.opts.Cache != nil {
		b.opts.Cache.InvalidateSource(source)
	}
	out := b.OutputPath(source)
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove %s: %w", out, err)
	}
	return out, nil
}

// OutputDir returns the directory macros are written to
func (b *Builder) OutputDir() string {
	return b.opts.OutputDir
}

// InputDir returns the directory components are read from
func (b *Builder) InputDir() string {
	return b.opts.InputDir
}
