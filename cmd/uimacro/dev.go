package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recera/uimacro/cmd/uimacro/internal/devserver"
)

func newDevCommand() *cobra.Command {
	var (
		flags projectFlags
		port  int
		host  string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Watch components and serve a live preview",
		Long: `Compiles all components, then watches the input directory and recompiles
files as they change. A preview server lists every component with its
status and pushes rebuild notifications to the browser over a websocket.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Dev.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Dev.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			c, err := newCompiler(cfg)
			if err != nil {
				return err
			}
			buildCache := openCache(cfg)
			defer closeCache(buildCache)

			if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			server := devserver.New(newBuilder(cfg, c, buildCache), time.Duration(cfg.Dev.DebounceMs)*time.Millisecond)

			log.Println("🚀 Starting uimacro dev server...")
			summary, err := server.Rebuild(cmd.Context())
			if err != nil {
				return fmt.Errorf("initial build failed: %w", err)
			}
			for _, r := range summary.Files {
				if r.Err != nil {
					log.Printf("❌ %v", r.Err)
				}
			}
			log.Printf("🎨 Compiled %d components (%d cached, %d failed)",
				summary.Compiled+summary.Cached, summary.Cached, summary.Failed)

			// Handle shutdown signals
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Watch(ctx)
			})
			g.Go(func() error {
				log.Printf("✨ Dev server running at http://%s", cfg.Addr())
				err := server.ListenAndServe(ctx, cfg.Addr())
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
			log.Printf("👀 Watching %s for changes... (Press Ctrl+C to stop)", cfg.InputDir)

			err = g.Wait()
			log.Println("🛑 Dev server stopped")
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the dev server on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind the dev server to (default from config)")

	return cmd
}
