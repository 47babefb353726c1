// Package system implements the System actor: pause/log/uuid/timestamp
// actions, plus the port and service probes pkg/condition's IOProbe
// delegates to. Every probe degrades to "false" rather than erroring, since
// the DSL treats a failed condition as just that, not a backend fault.
package system

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend has no mutable state of its own; every method is a direct
// syscall/subprocess facade, so one instance can be shared across
// scenarios if a caller wants to, though the engine allocates one per
// scenario like the other backends for consistency.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Pause(d time.Duration) { time.Sleep(d) }

// Log is a no-op sink for now; the engine's trace writer is what actually
// records System log actions. Kept as a method so Dispatch has something
// to call without special-casing System.Log.
func (b *Backend) Log(msg string) {}

func (b *Backend) UUID() string { return uuid.NewString() }

func (b *Backend) Timestamp() string {
	return time.Now().UTC().Format("2006-01-02_15:04:05")
}

// PortListening reports whether something is already bound to port on
// localhost. It tries to bind the port itself first: success means the
// port is free, and AddrInUse means something is listening. Any other
// dial error (e.g. permission denied on a privileged port) falls back to
// a platform lsof/ss/netstat probe, mirroring the reference backend's
// bind-then-shell-out strategy.
func (b *Backend) PortListening(port int) bool {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		ln.Close()
		return false
	}
	if strings.Contains(err.Error(), "address already in use") {
		return true
	}
	return portListeningViaShell(port)
}

func portListeningViaShell(port int) bool {
	switch runtime.GOOS {
	case "darwin":
		out, err := exec.Command("lsof", "-i", fmt.Sprintf(":%d", port), "-P", "-n").Output()
		if err != nil {
			return false
		}
		return strings.Contains(string(out), "LISTEN")
	case "linux":
		out, err := exec.Command("ss", "-tln", "sport", "=", fmt.Sprintf(":%d", port)).Output()
		if err != nil {
			return false
		}
		lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
		return len(lines) > 1
	case "windows":
		out, err := exec.Command("netstat", "-an").Output()
		if err != nil {
			return false
		}
		pattern := fmt.Sprintf(":%d", port)
		for _, line := range strings.Split(string(out), "\n") {
			if strings.Contains(line, pattern) && strings.Contains(strings.ToUpper(line), "LISTENING") {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ServiceRunning reports whether a process named name appears to be
// running, matched case-insensitively and tolerant of a trailing .exe,
// the same comparison the reference backend applies to its process list.
func (b *Backend) ServiceRunning(name string) bool {
	procNames, err := listProcessNames()
	if err != nil {
		return false
	}
	want := strings.ToLower(name)
	for _, p := range procNames {
		p = strings.ToLower(p)
		if p == want || p == want+".exe" || strings.TrimSuffix(p, ".exe") == want {
			return true
		}
	}
	return false
}

func listProcessNames() ([]string, error) {
	switch runtime.GOOS {
	case "windows":
		out, err := exec.Command("tasklist").Output()
		if err != nil {
			return nil, err
		}
		var names []string
		for _, line := range strings.Split(string(out), "\n") {
			fields := strings.Fields(line)
			if len(fields) > 0 {
				names = append(names, fields[0])
			}
		}
		return names, nil
	default:
		out, err := exec.Command("ps", "-A", "-o", "comm=").Output()
		if err != nil {
			return nil, err
		}
		var names []string
		for _, line := range strings.Split(string(out), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			names = append(names, filepath.Base(line))
		}
		return names, nil
	}
}

// ServiceInstalled reports whether name resolves on PATH or matches a
// known platform-specific service-definition location, matching the
// reference backend's which()-then-platform-fallback strategy.
func (b *Backend) ServiceInstalled(name string) bool {
	if _, err := exec.LookPath(name); err == nil {
		return true
	}

	switch runtime.GOOS {
	case "darwin":
		candidates := []string{
			fmt.Sprintf("/Library/LaunchDaemons/%s.plist", name),
			fmt.Sprintf("/Library/LaunchAgents/%s.plist", name),
		}
		if home := homeDir(); home != "" {
			candidates = append(candidates, filepath.Join(home, "Library/LaunchAgents", name+".plist"))
		}
		return anyExists(candidates)
	case "linux":
		candidates := []string{
			fmt.Sprintf("/etc/systemd/system/%s.service", name),
			fmt.Sprintf("/lib/systemd/system/%s.service", name),
			fmt.Sprintf("/usr/lib/systemd/system/%s.service", name),
			fmt.Sprintf("/etc/init.d/%s", name),
		}
		return anyExists(candidates)
	case "windows":
		out, err := exec.Command("sc", "query", name).Output()
		return err == nil && len(out) > 0
	default:
		return false
	}
}

func homeDir() string {
	out, err := exec.Command("sh", "-c", "echo $HOME").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func anyExists(paths []string) bool {
	for _, p := range paths {
		if fileExists(p) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
