// Package lifecycle owns the daemon's start and stop sequence.
//
// On start the vault is checked, local work is optionally committed and
// pushed, the remote is pulled, and the coalescer is subscribed to file
// events. On stop the subscription ends, any pending deferred commit is
// cancelled, and the whole tree is committed and pushed once within the
// configured shutdown grace.
package lifecycle
