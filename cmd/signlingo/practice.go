package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ayusman/signlingo/internal/session"
	"github.com/ayusman/signlingo/internal/tui"
)

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice <lesson|quiz> <id>",
		Short: "Practice a lesson or quiz in the terminal",
		Args:  cobra.ExactArgs(2),
		RunE:  runPractice,
	}
	cmd.Flags().BoolVar(&flagPlain, "plain", false, "print status lines instead of the full-screen view")
	return cmd
}

func runPractice(cmd *cobra.Command, args []string) error {
	kind, id, err := parseExercise(args)
	if err != nil {
		return err
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	interactive := !flagPlain && term.IsTerminal(int(os.Stdout.Fd()))

	// The full-screen view owns the terminal, so logs go to a file.
	var logOut io.Writer = cmd.ErrOrStderr()
	if interactive {
		f, err := openLogFile()
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger, err := newLogger(settings.LogLevel, logOut)
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

	if interactive {
		return practiceTUI(ctx, sess)
	}
	return practicePlain(ctx, cmd.OutOrStdout(), sess)
}

func practiceTUI(ctx context.Context, sess *session.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := tui.NewFeed()
	unwatch := sess.Watch(feed.Push)
	defer unwatch()

	errc := make(chan error, 1)
	go func() { errc <- sess.Run(ctx) }()

	model := tui.NewModel(sess, feed, sess.Snapshot())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	_, perr := p.Run()
	interrupted := ctx.Err() != nil
	cancel()
	rerr := <-errc

	if perr != nil && !interrupted {
		return fmt.Errorf("failed to run UI: %w", perr)
	}
	return rerr
}

// practicePlain prints a line whenever the status or target letter changes,
// and one per confirmed letter. It returns after the exercise completes.
func practicePlain(ctx context.Context, w io.Writer, sess *session.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		last string
	)
	emit := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, line)
	}

	unwatch := sess.Watch(func(snap session.Snapshot) {
		line := statusLine(snap)
		mu.Lock()
		changed := line != last
		last = line
		mu.Unlock()
		if changed {
			emit(line)
		}
	})
	defer unwatch()

	unconfirm := sess.OnConfirm(func(c session.Confirmation) {
		emit(fmt.Sprintf("  confirmed %s (%.0f%%)", c.Letter, c.Confidence*100))
	})
	defer unconfirm()

	uncomplete := sess.OnComplete(func(snap session.Snapshot) {
		emit(fmt.Sprintf("%s complete: %d/%d letters", snap.Exercise.Title, len(snap.Progress.Completed), snap.Progress.Total))
		cancel()
	})
	defer uncomplete()

	return sess.Run(ctx)
}

// statusLine summarises a snapshot for line-oriented output.
func statusLine(snap session.Snapshot) string {
	line := fmt.Sprintf("[%s] %s", snap.Channel, snap.Status)
	if snap.Letter != "" && !snap.Completed {
		line += ", sign " + snap.Letter
	}
	if snap.Error != "" {
		line += ": " + snap.Error
	}
	return line
}
