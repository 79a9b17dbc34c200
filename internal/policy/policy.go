// Package policy decides what a single save event should do.
package policy

import (
	"path"
	"path/filepath"

	"github.com/Chifiwang/obsidian-git-integration/internal/config"
)

// Scope is where staging runs and what it stages. Dir is relative to the
// vault root; Pathspec is relative to Dir.
type Scope struct {
	Dir      string
	Pathspec string
}

// WholeTree is the scope of the entire vault.
var WholeTree = Scope{Dir: ".", Pathspec: "."}

// Input is everything Decide looks at.
type Input struct {
	Schema    config.SaveSchema
	Depth     config.SaveDepth
	EditCount int
	Threshold int

	// FilePath is the changed file relative to the vault root.
	FilePath string
}

// Decision is the outcome for one save event.
type Decision struct {
	Stage  bool
	Scope  Scope
	Commit bool

	// EditCount is the counter value to store back.
	EditCount int
}

// Decide maps a save event to a staging scope, a commit verdict and the next
// edit counter. It has no side effects; callers apply it inside a single
// store update so the counter's read-modify-write is atomic.
func Decide(in Input) Decision {
	d := Decision{
		Stage:     true,
		Scope:     ScopeFor(in.Depth, in.FilePath),
		EditCount: in.EditCount,
	}

	switch in.Schema {
	case config.MajorSave:
		next := in.EditCount + 1
		if in.Threshold > 0 && next >= in.Threshold {
			d.Commit = true
			next = 0
		}
		d.EditCount = next
	case config.EverySave:
		d.Commit = true
	case config.CloseOnly:
		// the shutdown flush is the only committer
	}

	return d
}

// ScopeFor returns the staging scope for a change to file under depth.
func ScopeFor(depth config.SaveDepth, file string) Scope {
	if file == "" {
		return WholeTree
	}
	rel := filepath.ToSlash(filepath.Clean(file))
	dir, base := path.Dir(rel), path.Base(rel)

	switch depth {
	case config.FileOnly:
		return Scope{Dir: dir, Pathspec: base}
	case config.ParentDirectory:
		return Scope{Dir: dir, Pathspec: "."}
	default:
		return WholeTree
	}
}

// Join resolves the scope's directory against the vault root.
func (s Scope) Join(vault string) string {
	return filepath.Join(vault, filepath.FromSlash(s.Dir))
}
