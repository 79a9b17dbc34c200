// Package vaultgit is save-triggered version control for a vault of notes.
//
// vaultgit watches a directory of Markdown notes that is also a git working
// tree. Saves are staged as they happen and, depending on the save schema,
// committed and pushed to the vault's upstream. Commits are spaced at least a
// minimum interval apart; a commit that comes due too early is deferred to
// the end of the interval, and at most one deferred commit is pending at a
// time. Stopping the daemon commits and pushes whatever is left.
//
// # Quick Start
//
//	# Inside a vault that is a git clone with an upstream
//	cd ~/notes
//
//	# Commit on every save, at most once every five minutes
//	vaultgit config set save_schema every-save
//	vaultgit config set min_commit_interval 5m
//
//	# Start the daemon; Ctrl+C commits, pushes and prints a summary
//	vaultgit
//
// # Save Schemas
//
//   - major-save (default): every Nth save commits, N = major_save_threshold
//   - every-save: every save commits
//   - close-only: commits only when the daemon stops
//
// The save depth chooses what a save stages: the whole tree, only the saved
// file, or the file's parent directory. The shutdown commit always covers
// the whole tree.
//
// # Module Structure
//
//   - cmd/vaultgit: command-line interface
//   - internal/watcher: recursive fsnotify watcher with per-path debounce
//   - internal/policy: the pure commit decision
//   - internal/coalescer: turns saves into staging and commits
//   - internal/deferral: single-slot deferred commit timer
//   - internal/lifecycle: startup sync and shutdown flush
//   - internal/config: persisted per-vault record and process settings
//   - internal/git: git invocation as argument vectors, repository checks
//   - internal/lock: one daemon per vault
//   - internal/clock: real and fake time for the scheduler
//   - internal/logger: zerolog file logging and terminal messages
//   - internal/errors: sentinels and typed errors
//
// # Implementation Notes
//
// Commands run through the git executable with `git -C <dir>` and an
// argument vector; nothing is passed through a shell, so commit messages
// and prompted command lines reach git exactly as typed. go-git is used
// only to inspect repositories.
//
// The scheduling record is shared with `vaultgit config` running in another
// process, so every write re-reads it under a file lock.
package vaultgit
