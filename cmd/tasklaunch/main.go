// Package main is the entry point for tasklaunch.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/tasklaunch/internal/app"
	"github.com/dshills/tasklaunch/internal/config"
	"github.com/dshills/tasklaunch/internal/logging"
	"github.com/dshills/tasklaunch/internal/scope"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	workspace string
	folders   []string
	config    string
	logLevel  string
	headless  bool
	active    string
	noWatch   bool
}

func newRootCommand() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:   "tasklaunch",
		Short: "Open a browser when workspace tasks start",
		Long: `tasklaunch runs workspace tasks and opens a browser on the configured
URL when a task matching the taskBrowser criteria starts.

Settings are read from the user settings file, the .code-workspace file,
TASKLAUNCH_* environment variables and each folder's .tasklaunch/settings file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !logging.ValidLevel(flags.logLevel) {
				return fmt.Errorf("invalid log level %q", flags.logLevel)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.workspace, "workspace", "w", "", "Folder or .code-workspace file (default: current directory)")
	pf.StringArrayVar(&flags.folders, "folder", nil, "Additional workspace folder (repeatable)")
	pf.StringVarP(&flags.config, "config", "c", "", "User settings file")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&flags.headless, "headless", false, "Run the browser without a window")
	pf.StringVar(&flags.active, "active", "", "File being worked on, used to pick a folder for unscoped tasks")
	pf.BoolVar(&flags.noWatch, "no-watch", false, "Do not reload settings files when they change")

	root.AddCommand(
		newRunCommand(&flags),
		newOpenCommand(&flags),
		newTasksCommand(&flags),
		newSettingsCommand(&flags),
		newVersionCommand(),
	)
	return root
}

func (f *rootFlags) options() app.Options {
	return app.Options{
		WorkspacePath:  f.workspace,
		Folders:        f.folders,
		ConfigPath:     f.config,
		ActiveResource: f.active,
		LogLevel:       f.logLevel,
		Headless:       f.headless,
		Watch:          !f.noWatch,
	}
}

// withApp creates the application, runs fn and shuts the application down.
func withApp(opts app.Options, fn func(ctx context.Context, a *app.Application) error) error {
	a, err := app.New(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := fn(ctx, a)
	if err := a.Shutdown(); err != nil {
		a.Logger().Warn("shutdown: %v", err)
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newRunCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run [task...]",
		Short: "Run tasks and launch the browser when matching tasks start",
		Long: `Run starts the named tasks (by ID or name) and keeps watching task starts
until interrupted. With no arguments it only watches.

Examples:
  tasklaunch run serve
  tasklaunch run -w project.code-workspace web:dev api:dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags.options(), func(ctx context.Context, a *app.Application) error {
				return a.Run(ctx, args...)
			})
		},
	}
}

func newOpenCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open the browser on the configured URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.Watch = false
			return withApp(opts, func(ctx context.Context, a *app.Application) error {
				if err := a.Open(ctx); err != nil {
					return err
				}
				<-ctx.Done()
				return nil
			})
		},
	}
}

func newTasksCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List discovered tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.Watch = false
			return withApp(opts, func(_ context.Context, a *app.Application) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSOURCE\tTYPE")
				for _, t := range a.Tasks() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Source, t.Type)
				}
				return w.Flush()
			})
		},
	}
}

func newSettingsCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "settings [key...]",
		Short: "Show effective settings and the layer each comes from",
		Long: `Settings prints the effective value of each taskBrowser setting at the
workspace level and for every folder, with the layer that provides it.
With no arguments every setting is shown.

Examples:
  tasklaunch settings
  tasklaunch settings taskBrowser.url taskBrowser.criteria`,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := args
			if len(keys) == 0 {
				keys = config.Keys
			}
			opts := flags.options()
			opts.Watch = false
			return withApp(opts, func(_ context.Context, a *app.Application) error {
				scopes := []scope.ConfigScope{scope.WorkspaceLevel()}
				for _, f := range a.Workspace().Folders() {
					scopes = append(scopes, scope.ForFolder(f))
				}
				return writeSettings(cmd.OutOrStdout(), a.Store(), scopes, keys)
			})
		},
	}
}

func writeSettings(out io.Writer, store *config.Store, scopes []scope.ConfigScope, keys []string) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCOPE\tKEY\tVALUE\tSOURCE")
	for _, cs := range scopes {
		label := "workspace"
		if cs.Folder != nil {
			label = cs.Folder.Name
		}
		for _, key := range keys {
			in := store.Inspect(cs, key)
			source := in.Source
			if source == "" {
				source = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", label, key, in.Effective, source)
		}
	}
	return w.Flush()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tasklaunch %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
