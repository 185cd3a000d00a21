package installer

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"tuffix/internal/errs"
	"tuffix/internal/keyword"
	"tuffix/internal/logger"
	"tuffix/internal/state"
	"tuffix/internal/system"
)

// Direction selects which half of the mark operation runs.
type Direction int

const (
	Add Direction = iota
	Remove
)

func (d Direction) verb() string {
	if d == Add {
		return "add"
	}
	return "remove"
}

func (d Direction) progressive() string {
	if d == Add {
		return "adding"
	}
	return "removing"
}

func (d Direction) past() string {
	if d == Add {
		return "installed"
	}
	return "removed"
}

// Mark adds or removes the keywords named in args, or every applicable
// keyword when args is just "all".
//
// Everything that can be checked is checked before the first keyword runs.
// After that, keywords are processed in order and the state file is
// rewritten after each one, so a failure part way through leaves the
// keywords before it recorded and stops the rest.
func Mark(env *Env, dir Direction, args []string) error {
	if len(args) == 0 {
		return errs.Usage("you must specify at least one keyword to %s", dir.verb())
	}
	bulk := false
	seen := map[string]bool{}
	for _, a := range args {
		if a == keyword.AllSelector {
			bulk = true
		}
		if seen[a] {
			return errs.Usage("keyword %q given more than once", a)
		}
		seen[a] = true
	}
	if bulk && len(args) > 1 {
		return errs.Usage("%q cannot be combined with other keywords", keyword.AllSelector)
	}

	// resolve names before looking at state, so a typo never touches the disk
	var explicit []keyword.Keyword
	if !bulk {
		for _, name := range args {
			k, err := keyword.Find(env.Tools, name)
			if err != nil {
				return err
			}
			explicit = append(explicit, k)
		}
	}

	// Only root can create the lock file; without root we fail at
	// EnsureRoot below before anything is written.
	if env.Tools.Privileges.IsRoot() {
		unlock, err := state.Lock(env.Config)
		if err != nil {
			return err
		}
		defer unlock()
	}

	st, err := state.Read(env.Config)
	if err != nil {
		return err
	}

	var candidates []keyword.Keyword
	if bulk {
		candidates = selectAll(env, dir, st)
	} else {
		for _, k := range explicit {
			if err := checkMembership(dir, st, k.Name()); err != nil {
				return err
			}
		}
		candidates = explicit
	}

	if err := system.EnsureRoot(env.Tools.Privileges); err != nil {
		return err
	}

	if len(candidates) == 0 {
		fmt.Fprintf(env.Out, "nothing to %s\n", dir.verb())
		return nil
	}
	if bulk && !env.AssumeYes {
		if err := confirm(env, dir, candidates); err != nil {
			return err
		}
	}
	if dir == Add && env.Network != nil {
		if err := env.Network(); err != nil {
			return err
		}
	}

	for _, k := range candidates {
		if st, err = markOne(env, dir, st, k); err != nil {
			return err
		}
	}
	return nil
}

// checkMembership enforces "add only what is missing, remove only what is there".
func checkMembership(dir Direction, st *state.State, name string) error {
	switch {
	case dir == Add && st.Has(name):
		return errs.Usage("cannot add %s, it is already installed", name)
	case dir == Remove && !st.Has(name):
		return errs.Usage("cannot remove keyword %s, it is not installed", name)
	}
	return nil
}

// selectAll expands "all": on add every keyword not yet installed, on remove
// every installed keyword this build still knows. Installed names missing
// from the catalog are left alone.
func selectAll(env *Env, dir Direction, st *state.State) []keyword.Keyword {
	var selected []keyword.Keyword
	if dir == Add {
		for _, k := range keyword.All(env.Tools) {
			if !st.Has(k.Name()) {
				selected = append(selected, k)
			}
		}
		return selected
	}
	for _, name := range st.Installed {
		k, err := keyword.Find(env.Tools, name)
		if err != nil {
			logger.Warn("[WARN] %s is recorded as installed but is not a keyword of this version; leaving it\n", name)
			continue
		}
		selected = append(selected, k)
	}
	return selected
}

// confirm asks before a bulk operation; anything but y or yes cancels.
func confirm(env *Env, dir Direction, candidates []keyword.Keyword) error {
	names := keyword.Names(candidates)
	noun := "keywords"
	if len(names) == 1 {
		noun = "keyword"
	}
	fmt.Fprintf(env.Out, "%s %d %s (%s)? [y/N] ",
		dir.verb(), len(names), noun, strings.Join(names, ", "))

	answer := ""
	if env.In != nil {
		line, _ := bufio.NewReader(env.In).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(line))
	}
	if answer != "y" && answer != "yes" {
		return errs.Usage("cancelled")
	}
	return nil
}

// markOne runs one keyword's action and records the result.
func markOne(env *Env, dir Direction, st *state.State, k keyword.Keyword) (*state.State, error) {
	name := k.Name()
	fmt.Fprintf(env.Out, "tuffix: %s %s\n", dir.progressive(), name)

	var err error
	if dir == Add {
		err = k.Add()
	} else {
		err = k.Remove()
	}
	if err != nil {
		logger.Audit("keyword."+dir.verb(), logrus.Fields{"keyword": name, "error": err.Error()})
		return st, errs.WrapEnvironment(err, "failed to %s %s", dir.verb(), name)
	}

	var next *state.State
	if dir == Add {
		next = st.With(env.Config.Version, name)
	} else {
		next = st.Without(env.Config.Version, name)
	}
	if err := state.Write(env.Config, next); err != nil {
		return st, err
	}
	logger.Audit("keyword."+dir.verb(), logrus.Fields{"keyword": name})

	fmt.Fprintf(env.Out, "tuffix: successfully %s %s\n", dir.past(), name)
	return next, nil
}
