// Package status assembles the read-only host report printed by
// `tuffix status`.
package status

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"tuffix/internal/logger"
	"tuffix/internal/system"
)

// Unknown stands in for any fact whose probe failed.
const Unknown = "unknown"

// Probes are the host facts a report is built from. *system.Probes
// implements it; tests substitute fixed values.
type Probes interface {
	Hostname(username string) (string, error)
	OS() (string, error)
	Model() (string, error)
	Kernel() (string, error)
	Uptime() (string, error)
	LoginShell(username string) (string, error)
	Terminal() (string, error)
	CPU() (string, error)
	GPU() (primary, secondary string, err error)
	MemoryGB() (int, error)
	Time() string
	GitConfig(username string) (system.GitIdentity, error)
}

// Sources bundles the probes with the login user they describe.
type Sources struct {
	Probes Probes
	User   string
	// Nvidia reports the NVIDIA driver; nil leaves the line out.
	Nvidia func() (string, error)
	// Network reports whether an adapter has a carrier.
	Network func() (bool, error)
}

// Report is a snapshot of the host. Every field is already rendered text.
type Report struct {
	Heading      string
	OS           string
	Model        string
	Kernel       string
	Uptime       string
	Shell        string
	Terminal     string
	CPU          string
	GPUPrimary   string
	GPUSecondary string
	Nvidia       string
	Memory       string
	Time         string
	GitEmail     string
	GitUsername  string
	Installed    []string
	Connected    string
}

// Collect runs every probe concurrently. A failing probe never fails the
// report; its field reads Unknown. The only error is ctx's.
func Collect(ctx context.Context, src Sources, installed []string) (Report, error) {
	r := Report{Installed: installed, Time: src.Probes.Time()}
	p := src.Probes

	var g errgroup.Group
	text := func(field *string, what string, probe func() (string, error)) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			*field = orUnknown(what, probe)
			return nil
		})
	}

	text(&r.Heading, "hostname", func() (string, error) { return p.Hostname(src.User) })
	text(&r.OS, "os", p.OS)
	text(&r.Model, "model", p.Model)
	text(&r.Kernel, "kernel", p.Kernel)
	text(&r.Uptime, "uptime", p.Uptime)
	text(&r.Shell, "shell", func() (string, error) { return p.LoginShell(src.User) })
	text(&r.Terminal, "terminal", p.Terminal)
	text(&r.CPU, "cpu", p.CPU)
	text(&r.Memory, "memory", func() (string, error) {
		gb, err := p.MemoryGB()
		return strconv.Itoa(gb) + " GB", err
	})
	if src.Nvidia != nil {
		text(&r.Nvidia, "nvidia", src.Nvidia)
	}
	text(&r.Connected, "network", func() (string, error) {
		if src.Network == nil {
			return "", fmt.Errorf("no network probe")
		}
		up, err := src.Network()
		if up {
			return "Yes", err
		}
		return "No", err
	})

	// the multi-value probes fill two fields each
	g.Go(func() error {
		primary, secondary, err := p.GPU()
		if err != nil {
			logger.Debug("[DEBUG] status: gpu probe failed: %v\n", err)
			primary, secondary = Unknown, Unknown
		}
		r.GPUPrimary, r.GPUSecondary = orNone(primary), orNone(secondary)
		return nil
	})
	g.Go(func() error {
		id, err := p.GitConfig(src.User)
		if err != nil {
			logger.Debug("[DEBUG] status: git config probe failed: %v\n", err)
			id = system.GitIdentity{Name: Unknown, Email: Unknown}
		}
		r.GitEmail, r.GitUsername = orNone(id.Email), orNone(id.Name)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return r, nil
}

func orUnknown(what string, probe func() (string, error)) string {
	v, err := probe()
	if err != nil || v == "" {
		logger.Debug("[DEBUG] status: %s probe failed: %v\n", what, err)
		return Unknown
	}
	return v
}

func orNone(v string) string {
	if v == "" {
		return "None"
	}
	return v
}

// Render writes the report in its fixed line order.
func (r Report) Render(w io.Writer) {
	label := color.New(color.FgCyan, color.Bold)
	line := func(name, value string) {
		_, _ = label.Fprint(w, name+":")
		fmt.Fprintln(w, " "+value)
	}
	item := func(name, value string) {
		fmt.Fprintf(w, "  - %s: %s\n", name, value)
	}

	_, _ = color.New(color.Bold).Fprintln(w, r.Heading)
	fmt.Fprintln(w, "-----")
	fmt.Fprintln(w)
	line("OS", r.OS)
	line("Model", r.Model)
	line("Kernel", r.Kernel)
	line("Uptime", r.Uptime)
	line("Shell", r.Shell)
	line("Terminal", r.Terminal)
	line("CPU", r.CPU)
	_, _ = label.Fprintln(w, "GPU:")
	item("Primary", r.GPUPrimary)
	item("Secondary", r.GPUSecondary)
	if r.Nvidia != "" {
		item("NVIDIA", r.Nvidia)
	}
	line("Memory", r.Memory)
	line("Current Time", r.Time)
	_, _ = label.Fprintln(w, "Git Configuration:")
	item("Email", r.GitEmail)
	item("Username", r.GitUsername)
	_, _ = label.Fprintln(w, "Installed keywords:")
	if len(r.Installed) == 0 {
		fmt.Fprintln(w, "  None")
	}
	for _, name := range r.Installed {
		fmt.Fprintf(w, "  - %s\n", name)
	}
	line("Connected to Internet", r.Connected)
}
