package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Chifiwang/obsidian-git-integration/internal/config"
	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

// NewRootCommand builds the command tree. Running the root command without
// a subcommand starts the daemon.
func (a *App) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "vaultgit",
		Short: "Commit and push a notes vault as you save",
		Long: `vaultgit watches a vault of notes and turns saves into git commits.

Saves are staged as they happen. Depending on the save schema, a commit and
push follows after every save, after every Nth save, or only when the daemon
stops. Commits are spaced at least min_commit_interval apart; a commit that is
due too early is deferred until the interval has passed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.RunDaemon(cmd.Context())
		},
	}
	a.Settings.BindFlags(root.PersistentFlags())

	root.AddCommand(
		a.newRunCommand(),
		a.newAddCommand(),
		a.newPushCommand(),
		a.newPullCommand(),
		a.newCommitCommand(),
		a.newExecCommand(),
		a.newStatusCommand(),
		a.newConfigCommand(),
		a.newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	root := a.NewRootCommand()
	root.SetArgs(args)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintf(a.Stderr, "❌ Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *App) newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the vault and commit saves (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.RunDaemon(cmd.Context())
		},
	}
}

func (a *App) newAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Stage one file",
		Long:  "Stage one file. A relative path is taken relative to the vault root.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			if err := a.Runner.AddFile(cmd.Context(), a.Settings.VaultPath, args[0]); err != nil {
				return err
			}
			a.Logger.Success("Staged %s", filepath.Base(args[0]))
			return nil
		},
	}
}

func (a *App) newPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push the vault to its upstream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			if err := a.Runner.Push(cmd.Context(), a.Settings.VaultPath); err != nil {
				return err
			}
			a.Logger.Success("Pushed")
			return nil
		},
	}
}

func (a *App) newPullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull the vault from its upstream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			if err := a.Runner.Pull(cmd.Context(), a.Settings.VaultPath); err != nil {
				return err
			}
			a.Logger.Success("Pulled")
			return nil
		},
	}
}

func (a *App) newCommitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "commit [message]",
		Short: "Commit what is staged",
		Long:  "Commit what is staged. Without a message argument the message is read from the terminal.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}

			var message string
			if len(args) == 1 {
				message = args[0]
			} else {
				answer, ok := a.Interactor.PromptLine("Commit message")
				if !ok {
					return errors.New("no commit message given")
				}
				message = answer
			}
			if strings.TrimSpace(message) == "" {
				return errors.New("commit message is empty")
			}

			if err := a.Runner.Commit(cmd.Context(), a.Settings.VaultPath, message); err != nil {
				return err
			}
			a.Logger.Success("Committed")
			return nil
		},
	}
}

func (a *App) newExecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec [-- git-args...]",
		Short: "Run an arbitrary git command in the vault",
		Long: `Run an arbitrary git command in the vault root.

Arguments after -- are passed to git unchanged. Without arguments a command
line is read from the terminal and split with shell-style quoting; it is
never run through a shell.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}

			if len(args) == 0 {
				line, ok := a.Interactor.PromptLine("git")
				if !ok {
					return errors.New("no git command given")
				}
				var err error
				if args, err = shlex.Split(line); err != nil {
					return errors.Wrapf(errors.ErrInvalidFlag, "cannot split %q: %v", line, err)
				}
				if len(args) == 0 {
					return errors.New("no git command given")
				}
			}

			res, err := a.Runner.Exec(cmd.Context(), a.Settings.VaultPath, args)
			if res.Stdout != "" {
				_, _ = fmt.Fprint(a.Stdout, res.Stdout)
			}
			return err
		},
	}
}

func (a *App) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the settings, the scheduling state and the daemon lock",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			a.showStatus()
			return nil
		},
	}
}

func (a *App) showStatus() {
	rec, err := a.Store.Load()
	if err != nil {
		a.Logger.WarningToUser("Showing defaults: %v", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(a.Stdout)
	tw.AppendHeader(table.Row{"SETTING", "VALUE"})

	tw.AppendRow(table.Row{"vault_path", rec.VaultPath})
	tw.AppendRow(table.Row{"settings file", a.Store.Path()})
	tw.AppendRow(table.Row{"save_schema", rec.SaveSchema})
	tw.AppendRow(table.Row{"save_depth", rec.SaveDepth})
	tw.AppendRow(table.Row{"major_save_threshold", rec.MajorSaveThreshold})
	tw.AppendRow(table.Row{"edit_count", rec.EditCount})
	tw.AppendRow(table.Row{"min_commit_interval", rec.MinCommitInterval.Duration})
	tw.AppendRow(table.Row{"last_commit_time", formatTime(rec)})
	tw.AppendRow(table.Row{"pending_deferral", rec.PendingDeferral == 1})
	tw.AppendRow(table.Row{"commit_message", rec.CommitMessage})
	tw.AppendRow(table.Row{"push_on_startup", rec.PushOnStartup})
	tw.AppendRow(table.Row{"extensions", strings.Join(rec.Extensions, ", ")})
	tw.AppendRow(table.Row{"shutdown_grace", rec.ShutdownGrace.Duration})
	tw.AppendRow(table.Row{"strict_bookkeeping", rec.StrictBookkeeping})
	tw.AppendSeparator()

	if verr := rec.Validate(); verr != nil {
		tw.AppendRow(table.Row{"valid", verr.Error()})
	} else {
		tw.AppendRow(table.Row{"valid", true})
	}

	daemon := "not running"
	if pid, held := a.Locker.Holder(); held {
		daemon = "running"
		if pid > 0 {
			daemon = fmt.Sprintf("running (PID %d)", pid)
		}
	}
	tw.AppendRow(table.Row{"daemon", daemon})

	if info, derr := a.describe(a.Settings.VaultPath); derr != nil {
		tw.AppendRow(table.Row{"repository", derr.Error()})
	} else {
		branch := info.Branch
		if branch == "" {
			branch = "(detached or unborn)"
		}
		tw.AppendRow(table.Row{"branch", branch})
		if len(info.Head) >= 12 {
			tw.AppendRow(table.Row{"head", info.Head[:12]})
		}
		tw.AppendRow(table.Row{"worktree clean", info.Clean})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, WidthMax: 72},
	})
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func formatTime(rec config.Record) string {
	if rec.LastCommitTime.IsZero() {
		return "never"
	}
	return rec.LastCommitTime.Local().Format("2006-01-02 15:04:05")
}

func (a *App) newConfigCommand() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Change the persisted settings",
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long:  "Change one setting. Keys: " + strings.Join(config.SettableKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.SettableKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			return a.setConfig(args[0], args[1])
		},
	}

	var yes bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore every setting to its default",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.Initialize(); err != nil {
				return err
			}
			if !yes && !a.Interactor.PromptYesNo("Reset all vaultgit settings for this vault to their defaults?") {
				a.Logger.InfoToUser("Settings left unchanged")
				return nil
			}
			return a.resetConfig()
		},
	}
	reset.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List the settings that can be changed",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			for _, k := range config.SettableKeys() {
				_, _ = fmt.Fprintln(a.Stdout, k)
			}
		},
	}

	cfg.AddCommand(set, reset, keys)
	return cfg
}

// setConfig applies key=value through the store. A change that leaves an
// otherwise valid record invalid is rejected and nothing is written.
func (a *App) setConfig(key, value string) error {
	rec, err := a.Store.Update(func(r *config.Record) error {
		wasValid := r.Validate() == nil
		if err := r.Set(key, value); err != nil {
			return err
		}
		if err := r.Validate(); err != nil && wasValid {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if verr := rec.Validate(); verr != nil {
		a.Logger.WarningToUser("Settings are still invalid: %v", verr)
	}
	a.Logger.Success("%s updated", key)
	return nil
}

// resetConfig restores the user-settable defaults. The vault binding and the
// bookkeeping a running daemon relies on survive.
func (a *App) resetConfig() error {
	vault := a.Settings.VaultPath
	if _, err := a.Store.Update(func(r *config.Record) error {
		edits, last, pending := r.EditCount, r.LastCommitTime, r.PendingDeferral
		*r = config.Defaults()
		r.VaultPath = vault
		r.LastCommitTime = last
		r.PendingDeferral = pending
		if edits < r.MajorSaveThreshold {
			r.EditCount = edits
		}
		return nil
	}); err != nil {
		return err
	}
	a.Logger.Success("Settings reset to defaults")
	return nil
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			a.ShowVersion()
		},
	}
}
