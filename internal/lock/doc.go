// Package lock provides the per-vault instance lock.
//
// Only one vaultgit daemon may schedule commits for a vault: two would race
// on the edit counter and push over each other. The lock is an exclusive,
// non-blocking flock on a file in the temp directory named after a hash of
// the vault path; the holder's PID is written into it so `vaultgit status`
// and error messages can name it.
//
// Because the kernel drops a flock when its holder dies, a lock file left
// behind by a crashed daemon is simply reclaimed by the next Acquire.
//
// # Usage
//
//	locker, err := lock.New(vaultPath)
//	if err != nil {
//		return err
//	}
//	if err := locker.Acquire(); err != nil {
//		// errors.Is(err, errors.ErrAlreadyRunning) when another daemon holds it
//		return err
//	}
//	defer locker.Release()
package lock
