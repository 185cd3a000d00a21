package system

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tuffix/internal/errs"
)

// Probes gathers the read-only facts the status command shows.
// Root prefixes every absolute path it reads so tests can point it at a
// fake filesystem; it is empty on a real host.
type Probes struct {
	Root  string
	Shell Shell
	Now   func() time.Time
}

func (p *Probes) path(abs string) string {
	return filepath.Join(p.Root, abs)
}

func (p *Probes) readFile(abs string) (string, error) {
	raw, err := os.ReadFile(p.path(abs))
	if err != nil {
		return "", errs.Environment("no %s; this does not seem to be Linux", abs)
	}
	return string(raw), nil
}

var (
	cpuCoresPattern = regexp.MustCompile(`^cpu cores\s*:\s*(?P<count>[0-9]+)`)
	cpuModelPattern = regexp.MustCompile(`^model name\s*:\s*(?P<name>.*)$`)
)

// CPU returns the model name and core count, e.g. "AMD Ryzen 7 5800X (8 cores)".
func (p *Probes) CPU() (string, error) {
	contents, err := p.readFile("/proc/cpuinfo")
	if err != nil {
		return "", err
	}
	var name, cores string
	for _, line := range strings.Split(contents, "\n") {
		if m := cpuModelPattern.FindStringSubmatch(line); m != nil && name == "" {
			name = strings.Join(strings.Fields(m[1]), " ")
		}
		if m := cpuCoresPattern.FindStringSubmatch(line); m != nil && cores == "" {
			cores = m[1]
		}
		if name != "" && cores != "" {
			return fmt.Sprintf("%s (%s cores)", name, cores), nil
		}
	}
	if name != "" {
		return name, nil
	}
	return "", errs.Environment("/proc/cpuinfo has no model name")
}

// MemoryGB returns MemTotal in decimal gigabytes, truncated.
func (p *Probes) MemoryGB() (int, error) {
	contents, err := p.readFile("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(contents, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			kb, err := strconv.Atoi(fields[1])
			if err != nil {
				return 0, errs.Environment("/proc/meminfo has a malformed MemTotal")
			}
			return kb / 1000 / 1000, nil
		}
	}
	return 0, errs.Environment("/proc/meminfo has no MemTotal")
}

// Uptime formats the time since boot.
func (p *Probes) Uptime() (string, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return "", errs.WrapEnvironment(err, "sysinfo")
	}
	return FormatUptime(time.Duration(info.Uptime) * time.Second), nil
}

// FormatUptime renders d like "2 days, 1 hour, 5 minutes, 0 seconds".
func FormatUptime(d time.Duration) string {
	total := int64(d / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60
	return strings.Join([]string{
		plural(days, "day"),
		plural(hours, "hour"),
		plural(minutes, "minute"),
		plural(seconds, "second"),
	}, ", ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Kernel returns the running kernel release.
func (p *Probes) Kernel() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", errs.WrapEnvironment(err, "uname")
	}
	return unix.ByteSliceToString(u.Release[:]), nil
}

// OS returns the PRETTY_NAME (or NAME) from os-release.
func (p *Probes) OS() (string, error) {
	contents, err := p.readFile("/etc/os-release")
	if err != nil {
		return "", err
	}
	values := map[string]string{}
	for _, line := range strings.Split(contents, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok {
			values[key] = strings.Trim(value, `"`)
		}
	}
	if v := values["PRETTY_NAME"]; v != "" {
		return v, nil
	}
	if v := values["NAME"]; v != "" {
		return v, nil
	}
	return "", errs.Environment("/etc/os-release has no NAME")
}

// Model returns vendor and product from DMI, without repeating the vendor
// when the product name already contains it.
func (p *Probes) Model() (string, error) {
	read := func(name string) (string, error) {
		s, err := p.readFile("/sys/devices/virtual/dmi/id/" + name)
		return strings.TrimSpace(s), err
	}
	product, err := read("product_name")
	if err != nil {
		return "", err
	}
	vendor, err := read("sys_vendor")
	if err != nil {
		return "", err
	}
	if fields := strings.Fields(vendor); len(fields) > 0 {
		vendor = fields[0]
	}
	if vendor == "" || strings.Contains(product, vendor) {
		return product, nil
	}
	return vendor + " " + product, nil
}

// Terminal returns $TERM.
func (p *Probes) Terminal() (string, error) {
	if term := os.Getenv("TERM"); term != "" {
		return term, nil
	}
	return "", errs.Environment("cannot find default terminal")
}

// LoginShell returns the login shell recorded for username in /etc/passwd.
func (p *Probes) LoginShell(username string) (string, error) {
	f, err := os.Open(p.path("/etc/passwd"))
	if err != nil {
		return "", errs.Environment("no /etc/passwd; this does not seem to be Linux")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) == 7 && fields[0] == username {
			return fields[6], nil
		}
	}
	return "", errs.Environment("user %s not found in /etc/passwd", username)
}

var (
	vgaPattern = regexp.MustCompile(`VGA[^:]*:\s*(?P<model>[^(]*)`)
	d3Pattern  = regexp.MustCompile(`3D[^:]*:\s*(?P<model>[^(]*)`)
)

// GPU returns the primary (VGA) and secondary (3D controller) adapters
// reported by lspci. Missing adapters are empty strings.
func (p *Probes) GPU() (primary, secondary string, err error) {
	out, err := p.Shell.Run("lspci")
	if err != nil {
		return "", "", errs.WrapEnvironment(err, "lspci")
	}
	return ParseLspci(out)
}

// ParseLspci extracts the first VGA and first 3D controller from lspci output.
func ParseLspci(out string) (primary, secondary string, err error) {
	for _, line := range strings.Split(out, "\n") {
		if m := vgaPattern.FindStringSubmatch(line); m != nil && primary == "" {
			primary = strings.TrimSpace(m[1])
		} else if m := d3Pattern.FindStringSubmatch(line); m != nil && secondary == "" {
			secondary = strings.TrimSpace(m[1])
		}
	}
	if primary == "" && secondary == "" {
		return "", "", errs.Environment("lspci reported no graphics adapter")
	}
	return primary, secondary, nil
}

// GitIdentity is the user.name/user.email pair from git config.
type GitIdentity struct {
	Name  string
	Email string
}

// Configured reports whether both halves are set.
func (g GitIdentity) Configured() bool {
	return g.Name != "" && g.Email != ""
}

// GitConfig reads username's global git identity.
func (p *Probes) GitConfig(username string) (GitIdentity, error) {
	lines, err := p.Shell.RunAs(username, "git --no-pager config --global --list")
	if err != nil {
		if errors.Is(err, ErrUnknownUser) || errors.Is(err, ErrPermission) {
			return GitIdentity{}, errs.WrapEnvironment(err, "cannot read git config of %s", username)
		}
		// git exits 1 when no global config exists yet
		return GitIdentity{}, nil
	}
	return ParseGitConfig(lines), nil
}

// ParseGitConfig picks user.name and user.email out of `git config --list`.
func ParseGitConfig(lines []string) GitIdentity {
	var id GitIdentity
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "user.name":
			if id.Name == "" {
				id.Name = value
			}
		case "user.email":
			if id.Email == "" {
				id.Email = value
			}
		}
	}
	return id
}

// Hostname returns "user@host".
func (p *Probes) Hostname(username string) (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", errs.WrapEnvironment(err, "hostname")
	}
	return username + "@" + host, nil
}

// Time returns the current time formatted like "Mon 02 January 2006 15:04:05".
func (p *Probes) Time() string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().Format("Mon 02 January 2006 15:04:05")
}
