package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ayusman/signlingo/internal/config"
	"github.com/ayusman/signlingo/internal/lesson"
	"github.com/ayusman/signlingo/internal/store"
)

func newExercisesCmd(kind lesson.Kind) *cobra.Command {
	use, short := "lessons", "List the available lessons"
	if kind == lesson.KindQuiz {
		use, short = "quizzes", "List the available quizzes"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(settings)
			if err != nil {
				return err
			}
			return printExercises(cmd.OutOrStdout(), catalog.List(kind))
		},
	}
}

func loadCatalog(settings config.Config) (*lesson.Catalog, error) {
	if settings.CatalogPath == "" {
		return lesson.DefaultCatalog(), nil
	}
	return lesson.LoadCatalog(settings.CatalogPath)
}

func printExercises(w io.Writer, exercises []lesson.Exercise) error {
	if len(exercises) == 0 {
		fmt.Fprintln(w, "No exercises.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tLETTERS")
	for _, ex := range exercises {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", ex.ID, ex.Title, strings.Join(ex.Letters, " "))
	}
	return tw.Flush()
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded practice attempts",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "number of attempts to show (0 for all)")
	cmd.Flags().BoolVar(&flagHistoryStats, "stats", false, "summarize attempts per exercise")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(settings.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	st, err := store.New(settings.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	now := time.Now()
	if flagHistoryStats {
		stats, err := st.Attempts().Stats()
		if err != nil {
			return err
		}
		return printStats(out, stats, now)
	}

	attempts, err := st.Attempts().List(flagHistoryLimit)
	if err != nil {
		return err
	}
	return printAttempts(out, attempts, now)
}

func printAttempts(w io.Writer, attempts []*store.Attempt, now time.Time) error {
	if len(attempts) == 0 {
		fmt.Fprintln(w, "No attempts recorded yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tEXERCISE\tPOLICY\tRESULT\tTIME")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			humanize.RelTime(a.StartedAt, now, "ago", "from now"),
			exerciseLabel(a.Kind, a.ExerciseID, a.Title),
			a.Policy,
			attemptResult(a),
			formatDuration(a.Duration()),
		)
	}
	return tw.Flush()
}

func printStats(w io.Writer, stats []store.ExerciseStats, now time.Time) error {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No attempts recorded yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EXERCISE\tATTEMPTS\tCOMPLETED\tBEST\tLAST PLAYED")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			exerciseLabel(s.Kind, s.ExerciseID, s.Title),
			humanize.Comma(int64(s.Attempts)),
			humanize.Comma(int64(s.Completions)),
			formatDuration(s.BestDuration),
			humanize.RelTime(s.LastPlayed, now, "ago", "from now"),
		)
	}
	return tw.Flush()
}

func exerciseLabel(kind string, id int, title string) string {
	if title == "" {
		return fmt.Sprintf("%s %d", kind, id)
	}
	return fmt.Sprintf("%s %d: %s", kind, id, title)
}

func attemptResult(a *store.Attempt) string {
	switch {
	case a.Completed:
		return "completed"
	case a.FinishedAt != nil:
		return "abandoned"
	default:
		return "in progress"
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}
