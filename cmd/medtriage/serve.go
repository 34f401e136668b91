package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/medtriage/internal/corpus"
	httpserver "github.com/fyrsmithlabs/medtriage/internal/http"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
	"github.com/fyrsmithlabs/medtriage/internal/pipeline"
)

var (
	serveCorpus string
	serveWatch  bool
	servePort   int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveCorpus, "corpus", "", "conversation CSV to load (default corpus.path)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the corpus when the file changes")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default server.http_port)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve corpus statistics, analysis and scheduling over HTTP",
	Long: `Load the conversation corpus and start the HTTP API.

Examples:
  # Serve convdata.csv and reload it on change
  medtriage serve --corpus convdata.csv --watch

  # Check it
  curl localhost:9090/api/v1/stats`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{authOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	if serveCorpus != "" {
		a.cfg.Corpus.Path = serveCorpus
	}
	if serveWatch {
		a.cfg.Corpus.Watch = true
	}
	if servePort != 0 {
		a.cfg.Server.Port = servePort
	}

	if err := loadCorpus(ctx, a.engine, a.cfg.Corpus.Path, corpus.OptionsFromConfig(a.cfg.Corpus), a.logger); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		a.logger.Warn(ctx, "corpus file not found, serving an empty corpus", zap.String("path", a.cfg.Corpus.Path))
	}

	opts := []httpserver.Option{httpserver.WithTelemetry(a.telemetry)}
	if a.scheduler != nil {
		opts = append(opts, httpserver.WithEvents(a.scheduler))
	}
	srv, err := httpserver.NewServer(a.engine, a.logger, httpserver.ConfigFrom(a.cfg.Server), opts...)
	if err != nil {
		return err
	}

	a.logger.Info(ctx, "starting medtriage",
		zap.Int("port", a.cfg.Server.Port),
		zap.String("corpus", a.cfg.Corpus.Path),
		zap.Bool("watch", a.cfg.Corpus.Watch),
		zap.Bool("scheduling", a.scheduler != nil),
		zap.Duration("shutdown_timeout", a.cfg.Server.ShutdownTimeout))

	var watcher *corpus.Watcher
	if a.cfg.Corpus.Watch {
		watcher, err = corpus.NewWatcher(a.cfg.Corpus.Path, a.logger)
		if err != nil {
			return fmt.Errorf("failed to watch corpus: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to watch corpus: %w", err)
		}
		defer watcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if watcher != nil {
		readOpts := corpus.OptionsFromConfig(a.cfg.Corpus)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case ev := <-watcher.Events():
					// A bad write keeps the previous statistics.
					if err := loadCorpus(gctx, a.engine, ev.Path, readOpts, a.logger); err != nil {
						a.logger.Warn(gctx, "corpus reload failed", zap.Error(err))
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info(context.Background(), "server shutdown complete")
	return nil
}

// loadCorpus reads path and replaces the engine's corpus and statistics.
func loadCorpus(ctx context.Context, engine *pipeline.Engine, path string, opts corpus.ReadOptions, logger *logging.Logger) error {
	convs, err := corpus.LoadFile(path, opts)
	if err != nil {
		return err
	}
	st, err := engine.Load(ctx, convs)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	logger.Info(ctx, "corpus loaded", zap.String("path", path), zap.Int("conversations", st.Total()))
	return nil
}
