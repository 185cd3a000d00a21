// Package keyword is the fixed catalog of installable bundles.
//
// A keyword is a short name (at most eight characters) for a set of system
// packages plus whatever setup steps a course needs on top of them. Keywords
// are cheap values rebuilt on every invocation from All; the only identity
// they carry into the state file is their name.
package keyword

import (
	"fmt"
	"os"
	"strings"

	"tuffix/internal/config"
	"tuffix/internal/errs"
	"tuffix/internal/fetch"
	"tuffix/internal/system"
)

// MaxNameLength bounds keyword names so `tuffix list` lines up.
const MaxNameLength = 8

// AllSelector is the pseudo-keyword meaning "every keyword" on add and
// "every installed keyword" on remove. It is never returned by All.
const AllSelector = "all"

// Keyword is one installable bundle.
type Keyword interface {
	Name() string
	Description() string
	// Add installs the bundle. It assumes root access.
	Add() error
	// Remove uninstalls the bundle. It assumes root access.
	Remove() error
}

// Tools are the collaborators keyword bodies drive.
type Tools struct {
	Packages   system.PackageManager
	Shell      system.Shell
	// Query runs read-only lookups (git config) whose output must stay off
	// the console. Shell is used when it is nil.
	Query      system.Shell
	Fetch      fetch.Fetcher
	Privileges system.Privileges
	Settings   config.Settings
	// Root prefixes files keywords write directly (apt source lists, keys).
	Root string
	// WorkDir holds downloads and build trees; os.TempDir() when empty.
	WorkDir string
	// Ask prompts for one line of input. Nil means nobody is there to answer.
	Ask func(prompt string) (string, error)
}

// QueryShell returns the shell for lookups that must not echo.
func (t *Tools) QueryShell() system.Shell {
	if t.Query != nil {
		return t.Query
	}
	return t.Shell
}

func (t *Tools) ask(prompt string) (string, error) {
	if t.Ask == nil {
		return "", nil
	}
	answer, err := t.Ask(prompt)
	return strings.TrimSpace(answer), err
}

func (t *Tools) workDir() string {
	if t.WorkDir != "" {
		return t.WorkDir
	}
	return os.TempDir()
}

// info carries the name and description every variant shares.
type info struct {
	name        string
	description string
}

func (i info) Name() string        { return i.name }
func (i info) Description() string { return i.description }

// All returns every keyword this build supports in display order:
// alphabetical, with course-code names after the alphabetic ones.
func All(tools *Tools) []Keyword {
	list := []Keyword{
		newBase(tools),
		newBundle(tools, "latex", "LaTeX typesetting environment (large)",
			"texlive-full"),
		newVSCode(tools),
		newBundle(tools, "240", "CPSC 240 assembly language",
			"intel2gas", "nasm"),
		newBundle(tools, "439", "CPSC 439 theory of computation",
			"minisat2"),
		newBundle(tools, "474", "CPSC 474 parallel and distributed computing",
			"mpi-default-dev", "mpich", "openmpi-bin", "openmpi-common", "libopenmpi-dev"),
	}
	for _, k := range list {
		mustValid(k)
	}
	return list
}

// mustValid panics on a malformed catalog entry; the catalog is static, so
// this can only be a programming error.
func mustValid(k Keyword) {
	name := k.Name()
	if name == "" || len(name) > MaxNameLength || name == AllSelector {
		panic(fmt.Sprintf("keyword: invalid name %q", name))
	}
	if k.Description() == "" {
		panic(fmt.Sprintf("keyword: %s has no description", name))
	}
}

// Find returns the keyword called name. Matching is exact and case-sensitive.
func Find(tools *Tools, name string) (Keyword, error) {
	for _, k := range All(tools) {
		if k.Name() == name {
			return k, nil
		}
	}
	return nil, errs.Usage("unknown keyword %q, see valid keyword names with $ tuffix list", name)
}

// Known reports whether name is in the catalog.
func Known(tools *Tools, name string) bool {
	_, err := Find(tools, name)
	return err == nil
}

// Names lists the names of keywords in order.
func Names(list []Keyword) []string {
	names := make([]string, len(list))
	for i, k := range list {
		names[i] = k.Name()
	}
	return names
}
