package main

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/uimacro/cmd/uimacro/internal/build"
	"github.com/recera/uimacro/cmd/uimacro/internal/config"
	"github.com/recera/uimacro/internal/cache"
	"github.com/recera/uimacro/pkg/backend"
	"github.com/recera/uimacro/pkg/compiler"
)

// projectFlags are the flags shared by commands that compile components
type projectFlags struct {
	projectDir string
	backend    string
	strict     bool
	workers    int
	noCache    bool
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.projectDir, "config", ".", "Directory containing "+config.FileName)
	cmd.Flags().StringVar(&f.backend, "backend", "", "Target templating language (default from config)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail on rules whose target matches nothing")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel compiles (default: number of CPUs)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Compile every file, ignoring the compile cache")
}

// load reads the project configuration and applies flags the user set. Flags
// take precedence over the file.
func (f *projectFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = f.backend
	}
	if flags.Changed("strict") {
		cfg.Strict = f.strict
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.InputDir = f.resolve(cfg.InputDir)
	cfg.OutputDir = f.resolve(cfg.OutputDir)
	cfg.Cache.Dir = f.resolve(cfg.Cache.Dir)
	return cfg, nil
}

func (f *projectFlags) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(f.projectDir, path)
}

func newCompiler(cfg *config.Config) (*compiler.Compiler, error) {
	b, err := backend.Lookup(cfg.Backend)
	if err != nil {
		return nil, err
	}
	return compiler.New(b, compiler.Options{Strict: cfg.Strict}), nil
}

// openCache returns nil when caching is disabled or the cache cannot be opened.
func openCache(cfg *config.Config) *cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	c, err := cache.New(cache.Config{
		Dir:      cfg.Cache.Dir,
		MaxSize:  cfg.Cache.MaxSize,
		MaxAge:   7 * 24 * time.Hour,
		Strategy: cache.LRU,
	})
	if err != nil {
		log.Printf("⚠️  Failed to initialize compile cache: %v", err)
		return nil
	}
	return c
}

func newBuilder(cfg *config.Config, c *compiler.Compiler, buildCache *cache.Cache) *build.Builder {
	return build.New(c, build.Options{
		InputDir:   cfg.InputDir,
		OutputDir:  cfg.OutputDir,
		Extensions: cfg.Extensions,
		OutputExt:  cfg.OutputExt,
		Workers:    cfg.Workers,
		Cache:      buildCache,
	})
}

func closeCache(c *cache.Cache) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("⚠️  Failed to save compile cache: %v", err)
	}
}
