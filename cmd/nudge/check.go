package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"nudge/internal/config"
	"nudge/internal/prompt"
	"nudge/internal/update"
)

const summaryWidth = 72

// isInteractive is swapped out by tests.
var isInteractive = func() bool { return prompt.IsInteractive(os.Stdin) }

// copyToClipboard is swapped out by tests.
var copyToClipboard = clipboard.WriteAll

type decisionOutput struct {
	Present  bool   `json:"present"`
	Reason   string `json:"reason"`
	Current  string `json:"currentVersion,omitempty"`
	Latest   string `json:"latestVersion,omitempty"`
	Critical bool   `json:"critical,omitempty"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check for an update and prompt if one should be shown",
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
			d := a.engine.Decide(fetchCtx, config.Policy(), force)
			cancel()

			if opts.json {
				if d.Present {
					a.engine.MarkClosed()
				}
				return writeJSON(out, toOutput(d))
			}
			if !d.Present {
				_, _ = fmt.Fprintf(out, "No update prompt (%s)\n", d.Reason)
				return nil
			}
			if !isInteractive() {
				_, _ = fmt.Fprint(out, prompt.Summary(d.Info, a.format, summaryWidth))
				a.engine.MarkClosed()
				return nil
			}

			outcome, err := prompt.Run(ctx, d.Info, a.format, os.Stdin, out)
			if err != nil {
				a.engine.MarkClosed()
				return err
			}
			return a.resolve(ctx, out, outcome, d.Info)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Ignore the check interval")
	return cmd
}

// resolve reports the user's choice back to the engine.
func (a *app) resolve(ctx context.Context, out io.Writer, outcome prompt.Outcome, info *update.UpdateInfo) error {
	switch outcome {
	case prompt.OutcomeAccept:
		defer a.engine.MarkAccepted()
		return a.performUpdate(ctx, out, info)
	case prompt.OutcomeLater:
		if err := a.engine.MarkDismissed(ctx, time.Now()); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "Snoozed.")
		return nil
	default:
		a.engine.MarkClosed()
		return nil
	}
}

// performUpdate dispatches the update. When nothing can be launched the
// update URL is copied to the clipboard instead.
func (a *app) performUpdate(ctx context.Context, out io.Writer, info *update.UpdateInfo) error {
	flow, err := config.Flow()
	if err != nil {
		return err
	}
	err = a.dispatcher.PerformUpdate(ctx, info, flow)
	if err == nil {
		return nil
	}
	if !errors.Is(err, update.ErrNoUpdateTarget) || info.UpdateURL == "" {
		return err
	}
	if cerr := copyToClipboard(info.UpdateURL); cerr != nil {
		_, _ = fmt.Fprintf(out, "Open %s to update.\n", info.UpdateURL)
		return nil
	}
	_, _ = fmt.Fprintf(out, "Copied '%s' to clipboard.\n", info.UpdateURL)
	return nil
}

func toOutput(d update.Decision) decisionOutput {
	o := decisionOutput{Present: d.Present, Reason: string(d.Reason)}
	if d.Info != nil {
		o.Current = d.Info.CurrentVersion.String()
		o.Latest = d.Info.LatestVersion.String()
		o.Critical = d.Info.IsCritical
		o.URL = d.Info.UpdateURL
	}
	if d.Err != nil {
		o.Error = d.Err.Error()
	}
	return o
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
