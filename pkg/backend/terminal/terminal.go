// Package terminal implements the Terminal actor as a single persistent
// shell session over a pseudo-terminal, so state one command sets up (cd,
// export, a background server) stays visible to the next run in the same
// test run. This generalizes providers.RealExecutor's one-shot os/exec
// capture-and-wait pattern to a long-lived child.
package terminal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/creack/pty"

	"github.com/choreo-lang/choreo/pkg/world"
)

const sentinelPrefix = "__choreo_done_"

// Backend owns one shell's pty pair for the lifetime of a scenario. It is
// created fresh per scenario (never shared across parallel scenarios) and
// killed when the scenario finishes, successfully or not.
type Backend struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	tty    *os.File
	reader *bufio.Reader
	seq    int
}

// New spawns shellPath as a persistent interactive child under a pty.
func New(shellPath string) (*Backend, error) {
	cmd := exec.Command(shellPath)
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("start persistent shell %q: %w", shellPath, err)
	}
	return &Backend{cmd: cmd, tty: f, reader: bufio.NewReader(f)}, nil
}

// Run writes command to the session followed by a sentinel echo carrying
// its exit code, then reads the pty until the sentinel reappears. The
// sentinel includes a monotonically increasing sequence number so a
// command whose own output happens to contain an earlier marker can never
// be mistaken for completion. The marker is typed with an empty quoted
// pair inside it, so the pty's echo of the typed line never matches it;
// only the shell's own echo output does.
func (b *Backend) Run(ctx context.Context, command string) (world.TerminalResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	marker := fmt.Sprintf("%s%d_", sentinelPrefix, b.seq)
	if _, err := fmt.Fprintf(b.tty, "%s; echo %s''%d_$?\n", command, sentinelPrefix, b.seq); err != nil {
		return world.TerminalResult{}, fmt.Errorf("write to persistent shell: %w", err)
	}

	type readResult struct {
		buf      bytes.Buffer
		exitCode int
		err      error
	}
	done := make(chan readResult, 1)
	go func() {
		var rr readResult
		for {
			line, err := b.reader.ReadString('\n')
			rr.buf.WriteString(line)
			if err != nil {
				rr.err = fmt.Errorf("read persistent shell output: %w", err)
				done <- rr
				return
			}
			if idx := strings.Index(line, marker); idx >= 0 {
				code := strings.TrimSpace(line[idx+len(marker):])
				rr.exitCode, _ = strconv.Atoi(code)
				rr.buf.Truncate(rr.buf.Len() - len(line) + idx)
				done <- rr
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		return world.TerminalResult{}, ctx.Err()
	case rr := <-done:
		if rr.err != nil {
			// A command that ends the shell itself (exit N) closes the pty
			// before the sentinel runs; the shell's exit status is then
			// the command's exit code.
			_ = b.cmd.Wait()
			if ps := b.cmd.ProcessState; ps != nil && ps.Exited() {
				out := rr.buf.String()
				return world.TerminalResult{Stdout: out, Combined: out, ExitCode: ps.ExitCode(), Have: true, Drained: true}, nil
			}
			return world.TerminalResult{}, rr.err
		}
		combined := rr.buf.String()
		return world.TerminalResult{
			Stdout:   combined,
			Combined: combined,
			ExitCode: rr.exitCode,
			Have:     true,
			Drained:  true,
		}, nil
	}
}

// Kill terminates the session's shell and releases its pty, used for a
// scenario's best-effort cleanup once every test in it has finished.
func (b *Backend) Kill() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.tty.Close()
	if b.cmd.Process == nil {
		return nil
	}
	return b.cmd.Process.Kill()
}
