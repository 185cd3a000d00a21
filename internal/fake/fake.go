// Package fake provides recording stand-ins for the host collaborators so
// commands and keywords can be exercised without touching the system.
package fake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tuffix/internal/fetch"
)

// Packages records package manager calls. Unknown lists names that
// MarkInstall/MarkRemove reject; FailCommit makes every Commit fail.
type Packages struct {
	Calls      []string
	Unknown    map[string]bool
	FailCommit error
}

func (p *Packages) mark(verb string, names []string) error {
	for _, n := range names {
		if p.Unknown[n] {
			return fmt.Errorf("deb package %q not found", n)
		}
	}
	p.Calls = append(p.Calls, verb+" "+strings.Join(names, " "))
	return nil
}

func (p *Packages) MarkInstall(names ...string) error { return p.mark("install", names) }
func (p *Packages) MarkRemove(names ...string) error  { return p.mark("remove", names) }

func (p *Packages) Commit() error {
	p.Calls = append(p.Calls, "commit")
	return p.FailCommit
}

// Shell records commands. Fail maps a command (program and arguments joined
// by spaces, or the RunAs command line) to the error it returns; Lines is
// what every RunAs returns. It is safe for the concurrent status probes.
type Shell struct {
	Calls []string
	Fail  map[string]error
	Lines []string

	mu sync.Mutex
}

func (s *Shell) Run(name string, args ...string) (string, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, call)
	return "", s.Fail[call]
}

func (s *Shell) RunAs(username, command string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, username+"$ "+command)
	if err := s.Fail[command]; err != nil {
		return nil, err
	}
	return s.Lines, nil
}

// Fetcher serves a canned release and writes placeholder files instead of
// downloading.
type Fetcher struct {
	Calls       []string
	FailRelease error
}

func (f *Fetcher) Download(url, dest string) error {
	f.Calls = append(f.Calls, "download "+url)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(url), 0644)
}

func (f *Fetcher) Release(repo, tag string) (*fetch.Release, error) {
	f.Calls = append(f.Calls, "release "+repo+"@"+tag)
	if f.FailRelease != nil {
		return nil, f.FailRelease
	}
	return &fetch.Release{
		TagName:    tag,
		TarballURL: "https://api.github.com/repos/" + repo + "/tarball/" + tag,
	}, nil
}

func (f *Fetcher) Extract(archive, dest string) (string, error) {
	f.Calls = append(f.Calls, "extract "+filepath.Base(archive))
	top := filepath.Join(dest, "src")
	return top, os.MkdirAll(top, 0755)
}

// Privileges reports a fixed root status and login user.
type Privileges struct {
	Root bool
	User string
}

func (p *Privileges) IsRoot() bool { return p.Root }

func (p *Privileges) LoginUser() (string, error) {
	if p.User == "" {
		return "student", nil
	}
	return p.User, nil
}
