package installer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tuffix/internal/errs"
	"tuffix/internal/logger"
	"tuffix/internal/system"
)

// Credential kinds accepted by Rekey.
const (
	RekeySSH = "ssh"
	RekeyGPG = "gpg"
)

// Rekey regenerates the login user's SSH or GPG key, using their git
// identity for the key comment/uid. It never touches the state file.
func Rekey(env *Env, kind string) error {
	if kind != RekeySSH && kind != RekeyGPG {
		return errs.Usage("you must specify what to rekey: %s or %s", RekeySSH, RekeyGPG)
	}

	user, err := env.Tools.Privileges.LoginUser()
	if err != nil {
		return err
	}
	// the lookup prints the whole global config, so it must not echo
	probes := &system.Probes{Shell: env.Tools.QueryShell()}
	id, err := probes.GitConfig(user)
	if err != nil {
		return err
	}
	if !id.Configured() {
		return errs.Environment("git user.name and user.email are not configured; run $ git config --global user.name ... first")
	}

	var commands []string
	switch kind {
	case RekeySSH:
		commands = []string{
			`mkdir -p ~/.ssh && chmod 700 ~/.ssh`,
			`for f in ~/.ssh/id_rsa ~/.ssh/id_rsa.pub; do if [ -e "$f" ]; then mv -f "$f" "$f.old"; fi; done`,
			`ssh-keygen -q -t rsa -b 4096 -N '' -C ` + system.Quote(id.Email) + ` -f ~/.ssh/id_rsa`,
		}
	case RekeyGPG:
		uid := fmt.Sprintf("%s <%s>", id.Name, id.Email)
		commands = []string{
			`gpg --batch --passphrase '' --quick-gen-key ` + system.Quote(uid) + ` rsa4096 default never`,
		}
	}

	for _, c := range commands {
		if _, err := env.Tools.Shell.RunAs(user, c); err != nil {
			return errs.WrapEnvironment(err, "cannot regenerate %s key", kind)
		}
	}
	logger.Audit("rekey", logrus.Fields{"kind": kind, "user": user})

	fmt.Fprintf(env.Out, "tuffix: successfully regenerated %s key for %s\n", kind, user)
	return nil
}
