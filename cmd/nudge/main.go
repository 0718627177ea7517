package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"nudge/internal/config"
	"nudge/internal/debug"
)

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"debug":         config.KeyDebug,
	"debug-log":     config.KeyDebugLog,
	"output-format": config.KeyOutputFormat,
	"source":        config.KeySourceKind,
	"url":           config.KeySourceURL,
	"state-backend": config.KeyStateBackend,
	"state-path":    config.KeyStatePath,
	"app-version":   config.KeyAppVersion,
	"package":       config.KeyAppPackage,
}

type rootOptions struct {
	verbose bool
	json    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "nudge",
		Short:         "Decide when to prompt for an application update",
		Long:          "nudge checks an update source, remembers when it last asked and when the user snoozed, and prompts only when it should.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initialize(cmd.Flags(), opts, stderr)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			debug.Close()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.Bool("debug", false, "Write a debug log to ~/.nudge/debug.log")
	pf.String("debug-log", "", "Debug log file (default ~/.nudge/debug.log)")
	pf.String("output-format", "", "Release note style (rich, dark, light, plain)")
	pf.String("source", "", "Update source kind (json, store, lookup)")
	pf.String("url", "", "JSON source URL")
	pf.String("state-backend", "", "State backend (sqlite, file, memory)")
	pf.String("state-path", "", "State file location")
	pf.String("app-version", "", "Installed application version")
	pf.String("package", "", "Application package or bundle id")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Mirror the debug log to stderr")
	pf.BoolVar(&opts.json, "json", false, "Output in JSON format")

	root.AddCommand(
		newCheckCmd(opts),
		newDismissCmd(),
		newAcceptCmd(),
		newStatusCmd(opts),
		newServeCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func initialize(flags *pflag.FlagSet, opts *rootOptions, stderr io.Writer) error {
	if err := config.Initialize(); err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}

	overrides := map[string]any{}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if name == "debug" {
			overrides[key] = f.Value.String() == "true"
			continue
		}
		overrides[key] = f.Value.String()
	}
	if err := config.ApplyOverrides(overrides); err != nil {
		return fmt.Errorf("apply flags: %w", err)
	}

	var logOpts []debug.Option
	if path := config.GetString(config.KeyDebugLog); path != "" {
		logOpts = append(logOpts, debug.WithPath(path))
	}
	if opts.verbose {
		logOpts = append(logOpts, debug.WithMirror(stderr))
	}
	if err := debug.Init(config.GetBool(config.KeyDebug), logOpts...); err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: debug log disabled: %v\n", err)
	}
	return nil
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
