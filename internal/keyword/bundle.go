package keyword

import (
	"strings"

	"tuffix/internal/errs"
	"tuffix/internal/logger"
)

// bundle is a keyword that is nothing more than a list of deb packages.
type bundle struct {
	info
	tools    *Tools
	packages []string
}

func newBundle(tools *Tools, name, description string, packages ...string) *bundle {
	return &bundle{
		info:     info{name: name, description: description},
		tools:    tools,
		packages: packages,
	}
}

func (b *bundle) Add() error {
	return installPackages(b.tools, b.packages)
}

func (b *bundle) Remove() error {
	return removePackages(b.tools, b.packages)
}

func installPackages(tools *Tools, packages []string) error {
	logger.Info("[INFO] Adding %s to the APT queue...\n", strings.Join(packages, " "))
	if err := tools.Packages.MarkInstall(packages...); err != nil {
		return err
	}
	if err := tools.Packages.Commit(); err != nil {
		return errs.WrapEnvironment(err, "error installing packages")
	}
	return nil
}

func removePackages(tools *Tools, packages []string) error {
	logger.Info("[INFO] Removing %s...\n", strings.Join(packages, " "))
	if err := tools.Packages.MarkRemove(packages...); err != nil {
		return err
	}
	if err := tools.Packages.Commit(); err != nil {
		return errs.WrapEnvironment(err, "error removing packages")
	}
	return nil
}
