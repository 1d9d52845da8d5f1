package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/signlingo/internal/server"
	"github.com/ayusman/signlingo/internal/tray"
)

func newTrayCmd() *cobra.Command {
	d := defaultListenAddr()
	cmd := &cobra.Command{
		Use:   "tray <lesson|quiz> <id>",
		Short: "Practice with progress shown in the system tray",
		Args:  cobra.ExactArgs(2),
		RunE:  runTray,
	}
	cmd.Flags().BoolVar(&flagTrayServe, "serve", false, "also serve the web UI and offer to open it")
	cmd.Flags().StringVar(&flagListenAddr, "addr", d, "HTTP listen address used with --serve")
	cmd.Flags().StringVar(&flagStaticDir, "static", "", "directory of web UI assets used with --serve")
	return cmd
}

func runTray(cmd *cobra.Command, args []string) error {
	kind, id, err := parseExercise(args)
	if err != nil {
		return err
	}
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

	ex, err := env.app.Exercise(kind, id)
	if err != nil {
		return err
	}
	sess, err := env.app.NewSession(ex)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New(ex.Title)
	t.OnReset(sess.Reset)
	t.OnRetry(sess.Retry)
	t.OnQuit(cancel)

	unwatch := sess.Watch(t.Update)
	defer unwatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })

	if flagTrayServe {
		srv := server.New(server.Config{
			StaticDir: settings.StaticDir,
			Catalog:   env.app.Catalog(),
			Store:     env.store,
			Session:   sess,
			Logger:    logger,
		})
		url := browserURL(settings.ListenAddr)
		t.OnOpen(func() {
			if err := openBrowser(url); err != nil {
				logger.Warn("failed to open browser", "url", url, "error", err)
			}
		})
		g.Go(func() error { return srv.Serve(gctx, settings.ListenAddr) })
	}

	// The tray loop must own the main goroutine on some platforms.
	go func() {
		<-gctx.Done()
		t.Quit()
	}()
	t.Run()

	cancel()
	return g.Wait()
}

// browserURL turns a listen address such as ":8080" into a local URL.
func browserURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var name string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		name = "xdg-open"
	}
	if err := exec.Command(name, url).Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
