package hotspot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner executes an external command and returns its combined output.
// Every system tool this package drives (nmcli, iw, rfkill, ip, iptables)
// goes through a Runner so probes stay bounded and tests can substitute
// canned output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// DefaultCommandTimeout bounds a single external command. A hung or missing
// tool must fail the decision fast, not stall it.
const DefaultCommandTimeout = 5 * time.Second

type execRunner struct {
	timeout time.Duration
}

// NewRunner returns a Runner backed by os/exec with the default per-command
// timeout. Command output is forced to the C locale so parsing is stable
// across system languages.
func NewRunner() Runner {
	return &execRunner{timeout: DefaultCommandTimeout}
}

// NewRunnerWithTimeout returns a Runner with a custom per-command timeout.
func NewRunnerWithTimeout(d time.Duration) Runner {
	return &execRunner{timeout: d}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.Env = append(os.Environ(), "LC_ALL=C")

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("cmd %s timed out after %s", quoteArgs(cmd.Args), r.timeout)
		}
		return "", fmt.Errorf("cmd %s: %v: %s", quoteArgs(cmd.Args), err, strings.TrimSpace(out.String()))
	}

	return strings.TrimRight(out.String(), "\n"), nil
}

func quoteArgs(args []string) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte(' ')
		}
		if strings.Contains(arg, " ") {
			b.WriteByte('\'')
			b.WriteString(arg)
			b.WriteByte('\'')
		} else {
			b.WriteString(arg)
		}
	}
	return b.String()
}
