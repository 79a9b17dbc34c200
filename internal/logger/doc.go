// Package logger provides logging facilities for vaultgit.
//
// Two audiences are served by one interface. Info, Warning and Error produce
// structured records (JSON lines written with zerolog) in the per-vault log
// file; they are what you read when a commit mysteriously did not happen.
// InfoToUser, WarningToUser, Success and StatusMessage print to the terminal
// the daemon runs in, and the first three are also recorded.
//
// # Usage
//
//	log := logger.New(true, "/path/to/vaultgit.log", true)
//	defer log.Close()
//
//	log.Info("staged %s", path)
//	log.Success("committed and pushed")
//
// Components receive the Logger interface so tests can pass logger.Nop().
package logger
