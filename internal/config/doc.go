// Package config holds vaultgit's two kinds of configuration.
//
// Record is the persisted scheduling state: save schema, save depth, the
// major-save threshold and counter, the minimum commit interval, the time of
// the last commit and the pending-deferral flag, plus a few options such as
// the commit message and the tracked extensions. It lives in a TOML file and
// is read and written through a Store. Every mutation goes through
// Store.Update so that the event loop, the deferred commit and a concurrent
// `vaultgit config set` never lose each other's writes.
//
// Settings are per-process options resolved in the usual order:
//
// 1. Command-line flags (highest priority)
// 2. Environment variables (VAULTGIT_*)
// 3. Default values (lowest priority)
//
// # Environment Variables
//
//	VAULTGIT_VAULT            Path to the vault (default: current directory)
//	VAULTGIT_CONFIG           Path to the settings file
//	VAULTGIT_VERBOSE          Show warnings on stdout (default: true)
//	VAULTGIT_DEBUG            Write a JSON debug log (default: false)
//	VAULTGIT_LOG_FILE         Path to log file
//	VAULTGIT_NON_INTERACTIVE  Never prompt on the terminal (default: false)
//
// # Usage
//
//	s := config.NewSettings()
//	s.LoadFromEnvironment()
//	s.BindFlags(cmd.PersistentFlags())
//	// after flag parsing
//	if err := s.Finalize(); err != nil {
//		return err
//	}
//	store := config.NewStore(s.ConfigFile)
//	rec, err := store.Load()
package config
