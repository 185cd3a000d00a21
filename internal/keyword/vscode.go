package keyword

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"tuffix/internal/errs"
	"tuffix/internal/logger"
	"tuffix/internal/system"
)

const (
	microsoftKeyURL = "https://packages.microsoft.com/keys/microsoft.asc"
	vscodeKeyring   = "/etc/apt/trusted.gpg.d/packages.microsoft.gpg"
	vscodeSource    = "/etc/apt/sources.list.d/vscode.list"
	vscodeRepo      = "deb [arch=amd64,arm64 signed-by=" + vscodeKeyring + "] https://packages.microsoft.com/repos/code stable main\n"
)

// vscode installs Visual Studio Code from Microsoft's apt repository and
// the configured extensions for the login user.
type vscode struct {
	info
	tools *Tools
}

func newVSCode(tools *Tools) *vscode {
	return &vscode{
		info:  info{name: "vscode", description: "Visual Studio Code editor with C++ extensions"},
		tools: tools,
	}
}

func (v *vscode) path(abs string) string {
	return filepath.Join(v.tools.Root, abs)
}

func (v *vscode) Add() error {
	logger.Info("[INFO] Adding the Microsoft package repository...\n")
	asc := filepath.Join(v.tools.workDir(), "microsoft.asc")
	if err := v.tools.Fetch.Download(microsoftKeyURL, asc); err != nil {
		return errs.WrapEnvironment(err, "cannot download the Microsoft signing key")
	}
	defer os.Remove(asc)

	keyring := v.path(vscodeKeyring)
	if err := os.MkdirAll(filepath.Dir(keyring), 0755); err != nil {
		return errs.WrapEnvironment(err, "cannot create %s", filepath.Dir(keyring))
	}
	if _, err := v.tools.Shell.Run("gpg", "--dearmor", "--yes", "-o", keyring, asc); err != nil {
		return errs.WrapEnvironment(err, "cannot install the Microsoft signing key")
	}

	source := v.path(vscodeSource)
	if err := os.MkdirAll(filepath.Dir(source), 0755); err != nil {
		return errs.WrapEnvironment(err, "cannot create %s", filepath.Dir(source))
	}
	if err := os.WriteFile(source, []byte(vscodeRepo), 0644); err != nil {
		return errs.WrapEnvironment(err, "cannot write %s", source)
	}
	// the new source has to be indexed before apt knows the code package
	if _, err := v.tools.Shell.Run("apt-get", "update"); err != nil {
		return errs.WrapEnvironment(err, "apt-get update failed")
	}

	if err := installPackages(v.tools, []string{"code"}); err != nil {
		return err
	}

	user, err := v.tools.Privileges.LoginUser()
	if err != nil {
		return err
	}
	for _, ext := range v.tools.Settings.VSCode.Extensions {
		logger.Info("[INFO] Installing extension %s for %s\n", ext, user)
		if _, err := v.tools.Shell.RunAs(user, "code --install-extension "+system.Quote(ext)); err != nil {
			return errs.WrapEnvironment(err, "cannot install extension %s", ext)
		}
	}
	logger.Info("[INFO] Finished installing Visual Studio Code\n")
	return nil
}

func (v *vscode) Remove() error {
	if err := removePackages(v.tools, []string{"code"}); err != nil {
		return err
	}
	for _, p := range []string{v.path(vscodeSource), v.path(vscodeKeyring)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errs.WrapEnvironment(err, "cannot remove %s", p)
		}
	}
	return nil
}
