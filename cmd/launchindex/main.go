package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchdash/internal/dataset"
	"launchdash/internal/logging"
	"launchdash/internal/store"
)

/*
launchindex keeps an offline snapshot of the launch table in pebble so that
launchweb can start without network access:

  launchindex import --source <url|path> --db <dir>
  launchindex sites --db <dir>
  launchindex stats --db <dir>
*/

var (
	dbPath   string
	logLevel string

	importSource  string
	importTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "launchindex",
	Short: "Import and inspect launch table snapshots",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Fetch the launch CSV and replace the stored snapshot",
	Args:  cobra.NoArgs,
	RunE:  runImport,
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the launch sites of the stored snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSites,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-site launch totals, successes and payload range",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "launchdash.db", "Path to Pebble database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	importCmd.Flags().StringVar(&importSource, "source", dataset.DefaultSource, "CSV URL or file path")
	importCmd.Flags().DurationVar(&importTimeout, "timeout", 30*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(importCmd, sitesCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logLevel, "console", os.Stderr)
}

func runImport(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	t, err := dataset.NewFetcher(importTimeout, log).Fetch(cmd.Context(), importSource)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath, store.Options{Logger: log})
	if err != nil {
		return err
	}
	defer st.Close()

	return st.Save(t, importSource)
}

func runSites(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := store.Open(dbPath, store.Options{ReadOnly: true, Logger: log})
	if err != nil {
		return err
	}
	defer st.Close()

	sites, err := st.Sites()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range sites {
		fmt.Fprintln(out, s)
	}
	fmt.Fprintf(out, "\n%d sites\n", len(sites))
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := store.Open(dbPath, store.Options{ReadOnly: true, Logger: log})
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Meta()
	if err != nil {
		return err
	}
	t, err := st.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source:   %s\n", meta.Source)
	fmt.Fprintf(out, "Imported: %s\n\n", meta.ImportedAt.Format("2006-01-02 15:04:05"))
	printStats(out, siteStats(t))
	return nil
}

// ========== Stats ==========

type siteStat struct {
	Site       string
	Launches   int
	Successes  int
	MinPayload float64
	MaxPayload float64
	HasPayload bool
}

// siteStats summarizes t per site, sites in first-seen order, followed by a
// total row.
func siteStats(t *dataset.Table) []siteStat {
	idx := make(map[string]int)
	var stats []siteStat
	total := siteStat{Site: "Total"}

	add := func(s *siteStat, r dataset.LaunchRecord) {
		s.Launches++
		if r.Class == dataset.Success {
			s.Successes++
		}
		if !r.HasPayload {
			return
		}
		if !s.HasPayload || r.PayloadMassKg < s.MinPayload {
			s.MinPayload = r.PayloadMassKg
		}
		if !s.HasPayload || r.PayloadMassKg > s.MaxPayload {
			s.MaxPayload = r.PayloadMassKg
		}
		s.HasPayload = true
	}

	for r := range t.All() {
		if r.LaunchSite == "" {
			continue
		}
		i, ok := idx[r.LaunchSite]
		if !ok {
			i = len(stats)
			idx[r.LaunchSite] = i
			stats = append(stats, siteStat{Site: r.LaunchSite})
		}
		add(&stats[i], r)
		add(&total, r)
	}
	return append(stats, total)
}

func printStats(w io.Writer, stats []siteStat) {
	fmt.Fprintf(w, "%-20s %10s %10s %8s %14s\n", "Site", "Launches", "Successes", "Rate", "Payload (kg)")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 66))
	for _, s := range stats {
		rate := 0.0
		if s.Launches > 0 {
			rate = float64(s.Successes) / float64(s.Launches) * 100
		}
		payload := "-"
		if s.HasPayload {
			payload = fmt.Sprintf("%.0f-%.0f", s.MinPayload, s.MaxPayload)
		}
		fmt.Fprintf(w, "%-20s %10d %10d %7.1f%% %14s\n", s.Site, s.Launches, s.Successes, rate, payload)
	}
}
