package keyword

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"tuffix/internal/errs"
	"tuffix/internal/logger"
	"tuffix/internal/system"
)

// base is the C++ toolchain every intro course starts from. On top of its
// packages it builds GoogleTest from a tagged release, since the distro
// package ships sources only.
type base struct {
	bundle
}

func newBase(tools *Tools) *base {
	return &base{bundle: *newBundle(tools, "base", "CPSC 120-121-131-301 C++ development environment",
		"build-essential",
		"clang",
		"clang-format",
		"clang-tidy",
		"cmake",
		"gdb",
		"git",
		"libgtest-dev",
		"valgrind",
	)}
}

func (b *base) Add() error {
	if err := b.bundle.Add(); err != nil {
		return err
	}
	if err := b.googleTest(); err != nil {
		return err
	}
	return b.configureGit()
}

// configureGit sets the login user's git identity, which commits and
// `tuffix rekey` both need. The site config wins, then whatever the user
// already has, then an answer typed at the prompt. Only values that change
// are written.
func (b *base) configureGit() error {
	user, err := b.tools.Privileges.LoginUser()
	if err != nil {
		return err
	}
	probes := &system.Probes{Shell: b.tools.QueryShell()}
	current, err := probes.GitConfig(user)
	if err != nil {
		return err
	}

	want := system.GitIdentity{
		Name:  firstSet(b.tools.Settings.Git.Name, current.Name),
		Email: firstSet(b.tools.Settings.Git.Email, current.Email),
	}
	if want.Name == "" {
		if want.Name, err = b.tools.ask("Git username: "); err != nil {
			return err
		}
	}
	if want.Email == "" {
		if want.Email, err = b.tools.ask("Git email: "); err != nil {
			return err
		}
	}
	if !want.Configured() {
		return errs.Environment("git user.name and user.email are not set; add git.name and git.email to the site config")
	}

	settings := []struct{ key, value, was string }{
		{"user.name", want.Name, current.Name},
		{"user.email", want.Email, current.Email},
	}
	for _, s := range settings {
		if s.value == s.was {
			continue
		}
		command := "git config --global " + s.key + " " + system.Quote(s.value)
		if _, err := b.tools.Shell.RunAs(user, command); err != nil {
			return errs.WrapEnvironment(err, "cannot set git %s for %s", s.key, user)
		}
	}
	logger.Info("[INFO] Git identity for %s is %s <%s>\n", user, want.Name, want.Email)
	return nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// googleTest downloads the configured release tarball, then configures,
// builds and installs it with cmake.
func (b *base) googleTest() error {
	gt := b.tools.Settings.GoogleTest
	logger.Info("[INFO] Building GoogleTest %s from %s...\n", gt.Tag, gt.Repo)

	release, err := b.tools.Fetch.Release(gt.Repo, gt.Tag)
	if err != nil {
		return errs.WrapEnvironment(err, "cannot find GoogleTest release %s", gt.Tag)
	}

	work, err := os.MkdirTemp(b.tools.workDir(), "tuffix-googletest-")
	if err != nil {
		return errs.WrapEnvironment(err, "cannot create build directory")
	}
	defer os.RemoveAll(work)

	archive := filepath.Join(work, "googletest.tar.gz")
	if err := b.tools.Fetch.Download(release.TarballURL, archive); err != nil {
		return errs.WrapEnvironment(err, "cannot download GoogleTest")
	}
	src, err := b.tools.Fetch.Extract(archive, work)
	if err != nil {
		return errs.WrapEnvironment(err, "cannot unpack GoogleTest")
	}

	build := filepath.Join(src, "build")
	steps := [][]string{
		{"cmake", "-S", src, "-B", build, "-DCMAKE_BUILD_TYPE=Release"},
		{"cmake", "--build", build, "--parallel", strconv.Itoa(runtime.NumCPU())},
		{"cmake", "--install", build},
	}
	for _, step := range steps {
		if _, err := b.tools.Shell.Run(step[0], step[1:]...); err != nil {
			return errs.WrapEnvironment(err, "GoogleTest build failed")
		}
	}
	logger.Info("[INFO] Finished installing GoogleTest\n")
	return nil
}
