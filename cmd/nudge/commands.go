package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nudge/internal/config"
	"nudge/internal/debug"
	"nudge/internal/feed"
	"nudge/internal/state"
)

func newDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss",
		Short: "Snooze the update prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			if err := a.engine.MarkDismissed(cmd.Context(), now); err != nil {
				return err
			}
			until := now.Add(config.GetDuration(config.KeySnoozeDuration))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Snoozed until %s\n", until.Format(time.RFC3339))
			return nil
		},
	}
}

func newAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept",
		Short: "Fetch the latest release and start the update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fetchCtx, cancel := a.withTimeout(ctx)
			info, err := a.source.FetchUpdateInfo(fetchCtx)
			cancel()
			if err != nil {
				return fmt.Errorf("fetch update info: %w", err)
			}
			if info == nil {
				_, _ = fmt.Fprintln(out, "No update information available.")
				return nil
			}
			if !info.IsUpdateAvailable() {
				_, _ = fmt.Fprintf(out, "Already up to date (%s).\n", info.CurrentVersion)
				return nil
			}
			return a.performUpdate(ctx, out, info)
		},
	}
}

type statusOutput struct {
	LastCheckedAt   *time.Time `json:"lastCheckedAt,omitempty"`
	LastDismissedAt *time.Time `json:"lastDismissedAt,omitempty"`
	NextCheckAt     *time.Time `json:"nextCheckAt,omitempty"`
	SnoozedUntil    *time.Time `json:"snoozedUntil,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show when the last check and dismissal happened",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load state: %w", err)
			}
			s := buildStatus(st, config.Policy().CheckInterval, config.Policy().SnoozeDuration, time.Now())
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			printStatus(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func buildStatus(st state.CheckState, interval, snooze time.Duration, now time.Time) statusOutput {
	var s statusOutput
	if !st.LastCheckedAt.IsZero() {
		checked := st.LastCheckedAt
		s.LastCheckedAt = &checked
		if interval > 0 {
			next := checked.Add(interval)
			s.NextCheckAt = &next
		}
	}
	if !st.LastDismissedAt.IsZero() {
		dismissed := st.LastDismissedAt
		s.LastDismissedAt = &dismissed
		if until := dismissed.Add(snooze); until.After(now) {
			s.SnoozedUntil = &until
		}
	}
	return s
}

func printStatus(w io.Writer, s statusOutput) {
	line := func(label string, t *time.Time, empty string) {
		value := empty
		if t != nil {
			value = t.Local().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%-16s %s\n", label+":", value)
	}
	line("Last checked", s.LastCheckedAt, "never")
	line("Next check", s.NextCheckAt, "any time")
	line("Last dismissed", s.LastDismissedAt, "never")
	line("Snoozed until", s.SnoozedUntil, "not snoozed")
}

func newServeCmd() *cobra.Command {
	var addr, manifest string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve release channels for the json source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = config.GetString(config.KeyFeedAddr)
			}
			if !cmd.Flags().Changed("manifest") {
				manifest = config.GetString(config.KeyFeedManifest)
			}

			m, err := feed.LoadManifest(manifest)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			debug.Logf("nudge: serving %d channels from %s", len(m.Channels), manifest)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving %v on %s\n", m.Names(), addr)
			return feed.NewServer(m).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address")
	cmd.Flags().StringVar(&manifest, "manifest", "", "YAML manifest of release channels")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or write configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), config.GetString(args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", args[0], args[1])
			return nil
		},
	})
	return cmd
}
