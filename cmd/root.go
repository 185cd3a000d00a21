package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"tuffix/internal/config"
	"tuffix/internal/errs"
	"tuffix/internal/fetch"
	"tuffix/internal/installer"
	"tuffix/internal/keyword"
	"tuffix/internal/logger"
	"tuffix/internal/status"
	"tuffix/internal/system"
)

// Env holds the host collaborators a run talks to. DefaultEnv wires the real
// ones; tests pass fakes and buffers.
type Env struct {
	Out io.Writer
	In  io.Reader

	// SettingsPath is the site config read when --config is not given.
	SettingsPath string

	// Tools builds the keyword collaborators once the site config is known.
	Tools func(config.Settings) *keyword.Tools

	// Probes and Nvidia feed `tuffix status`.
	Probes status.Probes
	Nvidia func() (string, error)

	// NetworkDir is the adapter directory checked before downloads and
	// reported by status; empty skips the check.
	NetworkDir string
	// LSBRelease is checked by init; empty skips the check.
	LSBRelease string
}

// DefaultEnv talks to the running host.
func DefaultEnv() *Env {
	// package and build steps stream their output; lookups stay quiet
	sh := &system.Exec{Echo: os.Stdout}
	quiet := &system.Exec{}
	return &Env{
		Out:          os.Stdout,
		In:           os.Stdin,
		SettingsPath: config.DefaultSettingsPath,
		Tools: func(s config.Settings) *keyword.Tools {
			return &keyword.Tools{
				Packages:   system.NewApt(sh, s.Apt.Update),
				Shell:      sh,
				Query:      quiet,
				Fetch:      fetch.NewHTTP(),
				Privileges: system.Host{},
				Settings:   s,
			}
		},
		Probes:     &system.Probes{Shell: quiet},
		Nvidia:     system.NvidiaDriver,
		NetworkDir: system.SysClassNet,
		LSBRelease: system.LSBReleasePath,
	}
}

// Execute runs tuffix against the real host with os.Args and exits with the
// resulting status.
func Execute() {
	cfg, err := config.Default("")
	if err != nil {
		// Version is stamped at build time, so this is a broken build
		panic(err)
	}
	os.Exit(Run(cfg, DefaultEnv(), os.Args[1:]))
}

// Run executes one command line (without the program name) and returns the
// process exit status: 0 on success, 1 after printing a domain error.
//
// Any other error is a defect in tuffix itself and panics.
func Run(cfg config.BuildConfig, env *Env, argv []string) int {
	inv := &invocation{cfg: cfg, env: env}
	defer inv.close()

	root := newRootCmd(inv)
	root.SetArgs(argv)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	if _, ok := errs.AsDomain(err); !ok {
		panic(err)
	}

	fmt.Fprintf(env.Out, "error: %s\n", err)
	if errs.IsUsage(err) {
		printUsage(env.Out, inv.cfg, root)
	}
	return 1
}

// invocation is the per-run state shared by every command: the flags, the
// settings loaded from them and the collaborators built from those.
type invocation struct {
	cfg config.BuildConfig
	env *Env

	debug      bool
	configPath string
	yes        bool

	settings config.Settings
	tools    *keyword.Tools
	audit    io.Closer
	// in is shared by every prompt of the run so no answer is lost to
	// another reader's buffer.
	in *bufio.Reader
}

// setup runs before every command body, after arguments were validated.
func (inv *invocation) setup(cmd *cobra.Command) error {
	logger.Init(inv.debug)

	path, explicit := inv.env.SettingsPath, cmd.Flags().Changed("config")
	if explicit {
		path = inv.configPath
	}
	settings, err := config.LoadSettings(path, explicit)
	if err != nil {
		return err
	}
	inv.settings = settings
	logger.Debug("[DEBUG] Settings loaded from %s: %+v\n", path, settings)

	if settings.StatePath != config.DefaultStatePath {
		cfg, err := config.NewBuildConfig(inv.cfg.Version, settings.StatePath)
		if err != nil {
			return errs.WrapEnvironment(err, "invalid state_path in %s", path)
		}
		inv.cfg = cfg
	}

	inv.tools = inv.env.Tools(settings)
	if inv.env.In != nil {
		inv.in = bufio.NewReader(inv.env.In)
	}
	if inv.tools.Ask == nil {
		inv.tools.Ask = inv.ask
	}

	// only root can append to the audit log; everyone else runs without it
	if inv.tools.Privileges.IsRoot() {
		closer, err := logger.OpenAudit(settings.AuditLog)
		if err != nil {
			logger.Warn("[WARN] audit log disabled: %v\n", err)
		} else {
			inv.audit = closer
		}
	}
	return nil
}

// ask prints prompt and reads one line. With no input it answers "".
func (inv *invocation) ask(prompt string) (string, error) {
	fmt.Fprint(inv.env.Out, prompt)
	if inv.in == nil {
		return "", nil
	}
	line, err := inv.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errs.WrapEnvironment(err, "cannot read answer")
	}
	return strings.TrimSpace(line), nil
}

func (inv *invocation) close() {
	if inv.audit != nil {
		_ = inv.audit.Close()
	}
}

// installer builds the environment the installer operations run in.
func (inv *invocation) installer() *installer.Env {
	env := &installer.Env{
		Config:     inv.cfg,
		Tools:      inv.tools,
		Out:        inv.env.Out,
		AssumeYes:  inv.yes,
		LSBRelease: inv.env.LSBRelease,
	}
	if inv.in != nil {
		env.In = inv.in
	}
	if dir := inv.env.NetworkDir; dir != "" {
		env.Network = func() error { return system.EnsureNetworkConnected(dir) }
	}
	return env
}

// newRootCmd builds the command tree for one run.
//
// Cobra does the parsing, but every message the user sees is tuffix's own:
// errors and usage are silenced here and printed by Run, and every cobra
// error path (unknown command, bad flag, wrong arity) is turned into a
// UsageError.
func newRootCmd(inv *invocation) *cobra.Command {
	root := &cobra.Command{
		Use:           "tuffix",
		Short:         "Tuffix keyword provisioning",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,

		// Reached only when no subcommand matched.
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errs.Usage("you must supply a command name")
			}
			return errs.Usage("unknown command %q", args[0])
		},

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd == cmd.Root() {
				// nothing to set up for a usage error
				return nil
			}
			return inv.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(inv.env.Out)
	root.SetErr(inv.env.Out)
	root.SetIn(inv.env.In)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Usage("%s", err.Error())
	})
	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		printUsage(inv.env.Out, inv.cfg, cmd.Root())
	})

	root.PersistentFlags().BoolVar(&inv.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&inv.configPath, "config", "", "Site config file (YAML or TOML)")

	for _, c := range commands(inv) {
		root.AddCommand(c)
	}
	return root
}

var commandName = regexp.MustCompile(`^[a-z]+$`)

// commands is the registry of every subcommand, in the order usage lists
// them. A malformed entry is a programming error.
func commands(inv *invocation) []*cobra.Command {
	list := []*cobra.Command{
		newAddCmd(inv),
		newDescribeCmd(inv),
		newInitCmd(inv),
		newInstalledCmd(inv),
		newListCmd(inv),
		newRekeyCmd(inv),
		newRemoveCmd(inv),
		newStatusCmd(inv),
	}
	for _, c := range list {
		if !commandName.MatchString(c.Name()) || c.Short == "" {
			panic(fmt.Sprintf("cmd: invalid command %q", c.Name()))
		}
	}
	return list
}

// printUsage writes the version banner and one line per command.
func printUsage(w io.Writer, cfg config.BuildConfig, root *cobra.Command) {
	fmt.Fprintf(w, "tuffix %s\n\n", cfg.Version)
	fmt.Fprint(w, "usage:\n\n")
	fmt.Fprint(w, "    tuffix <command> [argument...]\n\n")
	fmt.Fprint(w, "where <command> and [argument...] match one of the following:\n\n")

	var listed []*cobra.Command
	width := 0
	for _, c := range root.Commands() {
		if c.Name() == "help" || c.Hidden {
			continue
		}
		listed = append(listed, c)
		width = max(width, len(c.Name()))
	}
	for _, c := range listed {
		fmt.Fprintf(w, "%-*s%s\n", width+2, c.Name(), c.Short)
	}
	fmt.Fprintln(w)
}

// noArgs rejects any positional argument, naming the command like
// "list command does not accept arguments".
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 {
		return errs.Usage("%s command does not accept arguments", cmd.Name())
	}
	return nil
}
