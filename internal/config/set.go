package config

import (
	"sort"
	"strconv"
	"strings"
	"time"

	vgerrors "github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

// setters maps user-editable keys to parsers. Bookkeeping fields
// (edit_count, last_commit_time, pending_deferral) are owned by the
// scheduler and cannot be set. vault_path follows the --vault flag.
var setters = map[string]func(r *Record, value string) error{
	"save_schema": func(r *Record, v string) error {
		s, err := ParseSaveSchema(v)
		if err != nil {
			return err
		}
		r.SaveSchema = s
		return nil
	},
	"save_depth": func(r *Record, v string) error {
		d, err := ParseSaveDepth(v)
		if err != nil {
			return err
		}
		r.SaveDepth = d
		return nil
	},
	"major_save_threshold": func(r *Record, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		r.MajorSaveThreshold = n
		// a lower threshold must not strand the counter above it
		if r.EditCount >= n {
			r.EditCount = 0
		}
		return nil
	},
	"min_commit_interval": func(r *Record, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		r.MinCommitInterval = Duration{d}
		return nil
	},
	"commit_message": func(r *Record, v string) error {
		r.CommitMessage = v
		return nil
	},
	"push_on_startup": func(r *Record, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		r.PushOnStartup = b
		return nil
	},
	"extensions": func(r *Record, v string) error {
		var exts []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				exts = append(exts, strings.TrimPrefix(e, "."))
			}
		}
		r.Extensions = exts
		return nil
	},
	"shutdown_grace": func(r *Record, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		r.ShutdownGrace = Duration{d}
		return nil
	},
	"strict_bookkeeping": func(r *Record, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		r.StrictBookkeeping = b
		return nil
	},
}

// SettableKeys lists the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value into the field named by key. It does not validate the
// record as a whole; callers run Validate afterwards.
func (r *Record) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return vgerrors.NewConfigError(key, nil, vgerrors.Wrapf(vgerrors.ErrInvalidConfiguration,
			"unknown key (settable: %s)", strings.Join(SettableKeys(), ", ")))
	}
	if err := set(r, value); err != nil {
		return vgerrors.NewConfigError(key, value, vgerrors.Wrap(vgerrors.ErrInvalidConfiguration, err.Error()))
	}
	return nil
}
