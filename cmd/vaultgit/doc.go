// Package main implements vaultgit, save-triggered version control for a
// vault of notes.
//
// vaultgit watches a directory tree that is a git working tree. Each save of
// a tracked file (Markdown by default) is staged right away; whether a commit
// and push follows depends on the save schema:
//
//   - major-save: every Nth save commits (N is major_save_threshold)
//   - every-save: every save commits
//   - close-only: nothing commits until the daemon stops
//
// Commits are at least min_commit_interval apart. A commit that comes due
// too early is deferred to the end of the interval, and at most one deferred
// commit is ever pending. When the daemon stops, everything is staged,
// committed and pushed once.
//
// # Basic Usage
//
//	vaultgit                     # watch the current directory
//	vaultgit -C ~/notes run      # watch another vault
//	vaultgit status              # settings, scheduling state, daemon lock
//	vaultgit config set save_schema every-save
//	vaultgit commit "weekly review"
//	vaultgit exec -- log --oneline -5
//
// # Settings
//
// Per-vault settings live in $XDG_CONFIG_HOME/vaultgit/vault-<hash>.toml and
// are changed with `vaultgit config set`. Process options come from flags or
// VAULTGIT_* environment variables: VAULTGIT_VAULT, VAULTGIT_CONFIG,
// VAULTGIT_VERBOSE, VAULTGIT_DEBUG, VAULTGIT_LOG_FILE and
// VAULTGIT_NON_INTERACTIVE.
//
// Only one daemon runs per vault; a second `vaultgit run` on the same vault
// exits with an error.
package main
