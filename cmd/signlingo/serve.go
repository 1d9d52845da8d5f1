package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/signlingo/internal/config"
	"github.com/ayusman/signlingo/internal/server"
	"github.com/ayusman/signlingo/internal/session"
)

func defaultListenAddr() string {
	return config.Default().ListenAddr
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [<lesson|quiz> <id>]",
		Short: "Serve the catalog, history and an optional live session over HTTP",
		Long: `Serve the exercise catalog and practice history as a JSON API.

When an exercise is given, a practice session runs alongside the server and
its progress is streamed to browsers on /api/session/events.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return nil
		},
		RunE: runServe,
	}
	cmd.Flags().StringVar(&flagListenAddr, "addr", defaultListenAddr(), "HTTP listen address")
	cmd.Flags().StringVar(&flagStaticDir, "static", "", "directory of web UI assets")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	env, err := openEnvironment(settings, logger, !flagNoHistory)
	if err != nil {
		return err
	}
	defer env.Close()

	var sess *session.Session
	if len(args) == 2 {
		kind, id, err := parseExercise(args)
		if err != nil {
			return err
		}
		ex, err := env.app.Exercise(kind, id)
		if err != nil {
			return err
		}
		if sess, err = env.app.NewSession(ex); err != nil {
			return err
		}
	}

	cfg := server.Config{
		StaticDir: settings.StaticDir,
		Catalog:   env.app.Catalog(),
		Store:     env.store,
		Logger:    logger,
	}
	if sess != nil {
		cfg.Session = sess
	}
	srv := server.New(cfg)

	ctx, stop := signalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx, settings.ListenAddr) })
	if sess != nil {
		g.Go(func() error { return sess.Run(gctx) })
	}
	return g.Wait()
}
